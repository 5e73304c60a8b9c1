package clmm

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"

	"github.com/arbcore/arbengine/internal/pools/clmm/liquiditymath"
	"github.com/arbcore/arbengine/internal/pools/clmm/swapmath"
	"github.com/arbcore/arbengine/internal/pools/clmm/tickbitmap"
	"github.com/arbcore/arbengine/internal/pools/clmm/tickmath"
)

var (
	ErrInvalidAmountIn = errors.New("clmm: amountIn must be greater than zero")
	ErrTokenMismatch   = errors.New("clmm: token mismatch")

	Q96, _        = new(big.Int).SetString("79228162514264337593543950336", 10)
	Q64F          = new(big.Float).SetInt(Q96)
	MaxUint256, _ = new(big.Int).SetString("ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", 16)
)

// swapState carries every temporary value the tick-crossing loop needs so a
// single swap simulation performs no heap allocations beyond what sync.Pool
// already amortizes.
type swapState struct {
	amountSpecifiedRemaining *big.Int
	amountCalculated         *big.Int
	sqrtPriceX96             *big.Int
	tick                     int64
	liquidity                *big.Int

	sqrtPriceStartX96 *big.Int
	sqrtPriceNextX96  *big.Int
	targetPrice       *big.Int
	stepAmountIn      *big.Int
	stepAmountOut     *big.Int
	stepFeeAmount     *big.Int
	tempAmount        *big.Int
	liquidityNet      *big.Int
}

var swapStatePool = sync.Pool{
	New: func() any {
		return &swapState{
			amountSpecifiedRemaining: new(big.Int),
			amountCalculated:         new(big.Int),
			sqrtPriceX96:             new(big.Int),
			liquidity:                new(big.Int),
			sqrtPriceStartX96:        new(big.Int),
			sqrtPriceNextX96:         new(big.Int),
			targetPrice:              new(big.Int),
			stepAmountIn:             new(big.Int),
			stepAmountOut:            new(big.Int),
			stepFeeAmount:            new(big.Int),
			tempAmount:               new(big.Int),
			liquidityNet:             new(big.Int),
		}
	},
}

// swapStep walks the current tick window, crossing initialized ticks until
// the requested amount is satisfied or liquidity runs out.
func swapStep(state *swapState, pool Pool, sqrtPriceLimitX96 *big.Int, zeroForOne bool) error {
	if sqrtPriceLimitX96 == nil {
		if zeroForOne {
			sqrtPriceLimitX96 = tickmath.MIN_SQRT_RATIO
		} else {
			sqrtPriceLimitX96 = tickmath.MAX_SQRT_RATIO
		}
	}

	exactInput := state.amountSpecifiedRemaining.Sign() > 0

	for state.amountSpecifiedRemaining.Sign() != 0 && state.sqrtPriceX96.Cmp(sqrtPriceLimitX96) != 0 {
		state.sqrtPriceStartX96.Set(state.sqrtPriceX96)

		tickNext, initialized := tickbitmap.NextInitializedTickWithinOneWord(pool.Ticks, state.tick, zeroForOne)
		if !initialized {
			break
		}
		if tickNext < tickmath.MIN_TICK {
			tickNext = tickmath.MIN_TICK
		} else if tickNext > tickmath.MAX_TICK {
			tickNext = tickmath.MAX_TICK
		}

		if err := tickmath.GetSqrtRatioAtTick(state.sqrtPriceNextX96, tickNext); err != nil {
			return err
		}

		if (zeroForOne && state.sqrtPriceNextX96.Cmp(sqrtPriceLimitX96) < 0) ||
			(!zeroForOne && state.sqrtPriceNextX96.Cmp(sqrtPriceLimitX96) > 0) {
			state.targetPrice.Set(sqrtPriceLimitX96)
		} else {
			state.targetPrice.Set(state.sqrtPriceNextX96)
		}

		err := swapmath.ComputeSwapStep(
			state.sqrtPriceX96, state.stepAmountIn, state.stepAmountOut, state.stepFeeAmount,
			state.sqrtPriceStartX96,
			state.targetPrice,
			state.liquidity,
			state.amountSpecifiedRemaining,
			state.tempAmount.SetUint64(uint64(pool.FeePPM)),
		)
		if err != nil {
			break // liquidity is zero at this step
		}

		if exactInput {
			state.amountSpecifiedRemaining.Sub(state.amountSpecifiedRemaining, state.tempAmount.Add(state.stepAmountIn, state.stepFeeAmount))
			state.amountCalculated.Add(state.amountCalculated, state.stepAmountOut)
		} else {
			state.amountSpecifiedRemaining.Add(state.amountSpecifiedRemaining, state.stepAmountOut)
			state.amountCalculated.Add(state.amountCalculated, state.tempAmount.Add(state.stepAmountIn, state.stepFeeAmount))
		}

		if state.sqrtPriceX96.Cmp(state.sqrtPriceNextX96) == 0 {
			var foundTick bool
			for _, t := range pool.Ticks {
				if t.Index == tickNext {
					state.liquidityNet.Set(t.LiquidityNet)
					foundTick = true
					break
				}
			}
			if foundTick {
				if zeroForOne {
					state.liquidityNet.Neg(state.liquidityNet)
				}
				if err := liquiditymath.AddDelta(state.liquidity, state.liquidity, state.liquidityNet); err != nil {
					if errors.Is(err, liquiditymath.ErrLiquidityUnderflow) {
						break
					}
					return err
				}
			}
			if zeroForOne {
				state.tick = tickNext - 1
			} else {
				state.tick = tickNext
			}
		} else if state.sqrtPriceX96.Cmp(state.sqrtPriceStartX96) != 0 {
			state.tick, err = tickmath.GetTickAtSqrtRatio(state.sqrtPriceX96)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func newSwapState(amountSpecified *big.Int, pool Pool) *swapState {
	state := swapStatePool.Get().(*swapState)
	state.amountSpecifiedRemaining.Set(amountSpecified)
	state.amountCalculated.SetInt64(0)
	state.sqrtPriceX96.Set(pool.SqrtPriceX96)
	state.tick = pool.Tick
	state.liquidity.Set(pool.Liquidity)
	return state
}

// SimulateExactInSwap executes a full exact-input swap and returns the
// output amount together with the resulting pool state.
func SimulateExactInSwap(amountIn, sqrtPriceLimitX96 *big.Int, tokenInID uint64, pool Pool) (*big.Int, Pool, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, Pool{}, ErrInvalidAmountIn
	}
	zeroForOne := tokenInID == pool.Token0
	if !zeroForOne && tokenInID != pool.Token1 {
		return nil, Pool{}, fmt.Errorf("%w: token %d is not in pool %d", ErrTokenMismatch, tokenInID, pool.ID)
	}

	state := newSwapState(amountIn, pool)
	defer swapStatePool.Put(state)

	if err := swapStep(state, pool, sqrtPriceLimitX96, zeroForOne); err != nil {
		return nil, Pool{}, err
	}
	// Without an explicit price limit, input left unfilled means the trade
	// walked past the loaded ticks (or active liquidity ran out).
	if sqrtPriceLimitX96 == nil && state.amountSpecifiedRemaining.Sign() != 0 {
		return nil, Pool{}, fmt.Errorf("clmm: pool %d cannot fill the input within its loaded tick range", pool.ID)
	}

	newState := pool
	newState.SqrtPriceX96 = new(big.Int).Set(state.sqrtPriceX96)
	newState.Tick = state.tick
	newState.Liquidity = new(big.Int).Set(state.liquidity)

	return new(big.Int).Set(state.amountCalculated), newState, nil
}

// GetAmountOut computes only the output amount of an exact-input swap,
// discarding the resulting pool state. Used on the cycle-search hot path
// where only the price impact matters.
func GetAmountOut(amountIn, sqrtPriceLimitX96 *big.Int, tokenInID uint64, pool Pool) (*big.Int, error) {
	amountOut, _, err := SimulateExactInSwap(amountIn, sqrtPriceLimitX96, tokenInID, pool)
	return amountOut, err
}

// GetVirtualReserves derives constant-product-equivalent reserves from the
// current price and active liquidity, a uniform reserve-like quantity
// across families. No package outside clmm calls it.
func GetVirtualReserves(tokenInID, tokenOutID uint64, pool Pool) (reserveIn, reserveOut *big.Int, err error) {
	if !((tokenInID == pool.Token0 && tokenOutID == pool.Token1) || (tokenInID == pool.Token1 && tokenOutID == pool.Token0)) {
		return nil, nil, fmt.Errorf("%w: provided tokens do not match pool tokens", ErrTokenMismatch)
	}
	reserve0 := new(big.Int).Div(new(big.Int).Lsh(pool.Liquidity, 96), pool.SqrtPriceX96)
	reserve1 := new(big.Int).Div(new(big.Int).Mul(pool.Liquidity, pool.SqrtPriceX96), Q96)
	if tokenInID == pool.Token0 {
		return reserve0, reserve1, nil
	}
	return reserve1, reserve0, nil
}

// GetSpotPrice returns the pool's current price of tokenIn in terms of
// tokenOut, scaled by 10^decimalsOut.
func GetSpotPrice(tokenInID, tokenOutID uint64, decimalsIn, decimalsOut uint8, pool Pool) (*big.Int, error) {
	decimalsInF := big.NewFloat(math.Pow(10, float64(decimalsIn)))
	decimalsOutF := big.NewFloat(math.Pow(10, float64(decimalsOut)))

	sqrtPriceX96F := new(big.Float).SetInt(pool.SqrtPriceX96)
	intermediate := sqrtPriceX96F.Quo(sqrtPriceX96F, Q64F)
	price := new(big.Float).Mul(intermediate, intermediate)

	if tokenInID == pool.Token0 {
		spotPrice := new(big.Float).Quo(price, new(big.Float).Quo(decimalsOutF, decimalsInF))
		spotPrice.Mul(spotPrice, decimalsOutF)
		sp, _ := spotPrice.Int(nil)
		return sp, nil
	}
	spotPrice := new(big.Float).Quo(big.NewFloat(1), price)
	spotPrice.Quo(spotPrice, new(big.Float).Quo(decimalsOutF, decimalsInF))
	spotPrice.Mul(spotPrice, decimalsOutF)
	sp, _ := spotPrice.Int(nil)
	return sp, nil
}
