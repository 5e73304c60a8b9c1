// Package simulator walks a cycle.Cycle's hops through the real per-family
// quote functions with a token-sized input amount, exactly as
// original_source/src/simulator/swap_simulator.rs's SwapSimulator does, and
// converts the result into a gas-adjusted USD profit. Unlike
// internal/graph's cheap probe quotes, this is the "would this actually
// work" pass: it runs AFTER internal/cycle and internal/filter have already
// narrowed the candidate set, because it does real big.Int arithmetic
// through every hop rather than a single log-price lookup.
package simulator

import (
	"fmt"
	"math"
	"math/big"

	"github.com/arbcore/arbengine/internal/adapter"
	"github.com/arbcore/arbengine/internal/cycle"
	"github.com/arbcore/arbengine/internal/graph"
	"github.com/arbcore/arbengine/internal/types"
)

// maxGasPerSwap caps any single hop's gas estimate, mirroring
// swap_simulator.rs's MAX_GAS_PER_SWAP guard against unrealistic values.
const maxGasPerSwap = 500_000

// baseFlashLoanGasOverhead is the fixed gas envelope charged once per
// simulation for the flash loan that funds the cycle's working capital.
const baseFlashLoanGasOverhead = 50_000

// per-hop gas estimates, keyed by family. These are static estimates (the
// engine has no on-chain eth_estimateGas step of its own), grounded on the
// same per-dex constants swap_simulator.rs and filter.rs both use.
const (
	gasUnitsConstantProduct = 100_000
	gasUnitsConcentrated    = 150_000
	gasUnitsWeighted        = 120_000
	gasUnitsStableSwap      = 200_000
	gasUnitsERC4626Vault    = 130_000
)

func gasUnitsFor(f types.Family) uint64 {
	switch f {
	case types.FamilyConcentrated:
		return gasUnitsConcentrated
	case types.FamilyWeighted:
		return gasUnitsWeighted
	case types.FamilyStableSwap, types.FamilyStableSwapNG:
		return gasUnitsStableSwap
	case types.FamilyERC4626Vault:
		return gasUnitsERC4626Vault
	default:
		return gasUnitsConstantProduct
	}
}

// PriceSource gives the simulator a coarse USD-per-whole-token estimate for
// sizing the simulation's input amount and for converting the final
// token-denominated profit into dollars. StaticPriceTable below is the
// implementation in this package.
type PriceSource interface {
	USDPerWholeToken(tokenID uint64) (float64, bool)
}

// StaticPriceTable is the simplest PriceSource: a fixed map, suitable for
// config-seeded stablecoin/WETH/WBTC prices.
type StaticPriceTable map[uint64]float64

func (t StaticPriceTable) USDPerWholeToken(tokenID uint64) (float64, bool) {
	p, ok := t[tokenID]
	return p, ok
}

// SwapResult is one executed hop of a simulation.
type SwapResult struct {
	PoolID    uint64
	TokenIn   uint64
	TokenOut  uint64
	Family    types.Family
	AmountIn  *big.Int
	AmountOut *big.Int
	GasUnits  uint64
}

// Result is the outcome of simulating one full cycle.
type Result struct {
	Cycle            cycle.Cycle
	Swaps            []SwapResult
	InputAmount      *big.Int
	OutputAmount     *big.Int
	TotalGasUnits    uint64
	GasCostUSD       float64
	ReturnMultiplier float64
	GrossProfitUSD   float64
	NetProfitUSD     float64
	Success          bool
	FailureReason    string
}

// Config carries the gas/ETH price assumptions used to price out the
// simulation's fixed costs. They are fixed for the Simulator's lifetime;
// internal/scanner fills them from the configured fallback prices.
type Config struct {
	GasPriceGwei float64
	ETHPriceUSD  float64
	TargetUSD    float64 // desired notional size of the simulated input trade
}

func DefaultConfig() Config {
	return Config{GasPriceGwei: 0.5, ETHPriceUSD: 3000, TargetUSD: 10_000}
}

// Simulator runs a cycle through the real adapter quote functions.
type Simulator struct {
	registry *adapter.Registry
	cfg      Config
}

func New(registry *adapter.Registry, cfg Config) *Simulator {
	return &Simulator{registry: registry, cfg: cfg}
}

// sizeInput computes the input amount, in the start token's smallest units,
// that corresponds to cfg.TargetUSD of notional value.
func sizeInput(token types.Token, priceUSD float64, targetUSD float64) *big.Int {
	if priceUSD <= 0 {
		return big.NewInt(0)
	}
	amountFloat := (targetUSD / priceUSD) * math.Pow(10, float64(token.Decimals))
	if amountFloat > 1e30 {
		amountFloat = 1e30
	}
	if amountFloat < 0 {
		return big.NewInt(0)
	}
	bf := new(big.Float).SetFloat64(amountFloat)
	out, _ := bf.Int(nil)
	return out
}

// applyFeeOnTransfer deducts a rebasing/fee-on-transfer token's percentage
// loss from an amount crossing a transfer boundary. See DESIGN.md's open
// question decision: such cycles are allowed through, just discounted, not
// excluded outright.
func applyFeeOnTransfer(amount *big.Int, token types.Token) *big.Int {
	if token.FeeOnTransferPercent <= 0 {
		return amount
	}
	kept := 1 - token.FeeOnTransferPercent/100.0
	if kept <= 0 {
		return big.NewInt(0)
	}
	f := new(big.Float).Mul(new(big.Float).SetInt(amount), big.NewFloat(kept))
	out, _ := f.Int(nil)
	return out
}

// Simulate walks every hop of c using the real per-family quote functions,
// applying fee-on-transfer deductions between hops, and returns the
// gas-adjusted USD result.
func (s *Simulator) Simulate(c cycle.Cycle, pools map[uint64]graph.PoolState, tokens map[uint64]types.Token, prices PriceSource) Result {
	startTokenID := c.TokenPath[0]
	startToken, ok := tokens[startTokenID]
	if !ok {
		return Result{Cycle: c, Success: false, FailureReason: fmt.Sprintf("unknown start token %d", startTokenID)}
	}
	startPriceUSD, ok := prices.USDPerWholeToken(startTokenID)
	if !ok || startPriceUSD <= 0 {
		return Result{Cycle: c, Success: false, FailureReason: fmt.Sprintf("no USD price for start token %d", startTokenID)}
	}

	inputAmount := sizeInput(startToken, startPriceUSD, s.cfg.TargetUSD)
	if inputAmount.Sign() <= 0 {
		return Result{Cycle: c, Success: false, FailureReason: "computed zero-size input amount"}
	}

	current := new(big.Int).Set(inputAmount)
	totalGas := uint64(baseFlashLoanGasOverhead)
	swaps := make([]SwapResult, 0, len(c.PoolPath))

	for i, poolID := range c.PoolPath {
		tokenIn := c.TokenPath[i]
		tokenOut := c.TokenPath[i+1]
		family := c.FamilyPath[i]

		ps, ok := pools[poolID]
		if !ok {
			return Result{Cycle: c, Swaps: swaps, InputAmount: inputAmount, Success: false,
				FailureReason: fmt.Sprintf("hop %d: pool %d not loaded", i, poolID)}
		}
		adp, ok := s.registry.Resolve(family)
		if !ok {
			return Result{Cycle: c, Swaps: swaps, InputAmount: inputAmount, Success: false,
				FailureReason: fmt.Sprintf("hop %d: family %s has no adapter", i, family)}
		}

		amountOut, err := adp.QuoteExactIn(current, tokenIn, tokenOut, ps.State)
		if err != nil {
			return Result{Cycle: c, Swaps: swaps, InputAmount: inputAmount, Success: false,
				FailureReason: fmt.Sprintf("hop %d (pool %d): %v", i, poolID, err)}
		}

		if outToken, ok := tokens[tokenOut]; ok {
			amountOut = applyFeeOnTransfer(amountOut, outToken)
		}

		gasUnits := gasUnitsFor(family)
		if gasUnits > maxGasPerSwap {
			gasUnits = maxGasPerSwap
		}
		totalGas += gasUnits

		swaps = append(swaps, SwapResult{
			PoolID: poolID, TokenIn: tokenIn, TokenOut: tokenOut, Family: family,
			AmountIn: new(big.Int).Set(current), AmountOut: amountOut, GasUnits: gasUnits,
		})
		current = amountOut

		if current.Sign() <= 0 {
			return Result{Cycle: c, Swaps: swaps, InputAmount: inputAmount, Success: false,
				FailureReason: fmt.Sprintf("hop %d (pool %d): zero output", i, poolID)}
		}
	}

	outputAmount := current
	returnMultiplier := bigRatio(outputAmount, inputAmount)

	profitInToken := new(big.Int).Sub(outputAmount, inputAmount)
	decimalFactor := math.Pow(10, float64(startToken.Decimals))
	profitTokens := bigToFloat(profitInToken) / decimalFactor
	grossProfitUSD := profitTokens * startPriceUSD

	gasCostETH := float64(totalGas) * s.cfg.GasPriceGwei * 1e9 / 1e18
	gasCostUSD := gasCostETH * s.cfg.ETHPriceUSD
	netProfitUSD := grossProfitUSD - gasCostUSD

	return Result{
		Cycle:            c,
		Swaps:            swaps,
		InputAmount:      inputAmount,
		OutputAmount:     outputAmount,
		TotalGasUnits:    totalGas,
		GasCostUSD:       gasCostUSD,
		ReturnMultiplier: returnMultiplier,
		GrossProfitUSD:   grossProfitUSD,
		NetProfitUSD:     netProfitUSD,
		Success:          true,
	}
}

func bigRatio(a, b *big.Int) float64 {
	if b.Sign() == 0 {
		return 0
	}
	f := new(big.Float).Quo(new(big.Float).SetInt(a), new(big.Float).SetInt(b))
	out, _ := f.Float64()
	return out
}

func bigToFloat(a *big.Int) float64 {
	f, _ := new(big.Float).SetInt(a).Float64()
	return f
}
