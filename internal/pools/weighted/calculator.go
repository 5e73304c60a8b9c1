package weighted

import (
	"errors"
	"fmt"
	"math"
	"math/big"
)

var (
	ErrTokenNotInPool        = errors.New("weighted: token not in pool")
	ErrInvalidAmount         = errors.New("weighted: amount must be positive")
	ErrInsufficientLiquidity = errors.New("weighted: insufficient liquidity for swap")
	ErrInvalidState          = errors.New("weighted: invalid internal ratio")

	feeDivisor = new(big.Float).SetInt64(1_000_000)
)

// GetAmountOut computes the output of an exact-input swap using the
// generalized weighted-pool formula (the same invariant Balancer and its
// forks use):
//
//	amountOut = balanceOut * (1 - (balanceIn / (balanceIn + amountInAfterFee)) ^ (weightIn/weightOut))
//
// The weight ratio exponent is evaluated in float64 (as osmosis's
// CalcOutAmtGivenIn does via its fixed-point Pow approximation) since weight
// ratios are always within a small, well-behaved range; balances themselves
// stay in big.Float throughout to avoid precision loss on 18-decimal tokens.
func GetAmountOut(amountIn *big.Int, tokenIn, tokenOut uint64, pool Pool) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	assetIn, _, ok := pool.assetByToken(tokenIn)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrTokenNotInPool, tokenIn)
	}
	assetOut, _, ok := pool.assetByToken(tokenOut)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrTokenNotInPool, tokenOut)
	}
	if assetIn.Balance.Sign() <= 0 || assetOut.Balance.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	feeMultiplier := new(big.Float).Sub(big.NewFloat(1), new(big.Float).Quo(new(big.Float).SetInt64(int64(pool.SwapFeePPM)), feeDivisor))
	amountInAfterFee := new(big.Float).Mul(new(big.Float).SetInt(amountIn), feeMultiplier)

	balanceIn := new(big.Float).SetInt(assetIn.Balance)
	balanceOut := new(big.Float).SetInt(assetOut.Balance)

	ratio := new(big.Float).Quo(balanceIn, new(big.Float).Add(balanceIn, amountInAfterFee))
	ratioF, _ := ratio.Float64()
	if ratioF <= 0 {
		return nil, ErrInvalidState
	}

	weightRatio := float64(assetIn.WeightPPM) / float64(assetOut.WeightPPM)
	powered := math.Pow(ratioF, weightRatio)

	factor := new(big.Float).Sub(big.NewFloat(1), big.NewFloat(powered))
	out := new(big.Float).Mul(balanceOut, factor)

	amountOut, _ := out.Int(nil)
	if amountOut.Sign() < 0 {
		amountOut.SetInt64(0)
	}
	return amountOut, nil
}

// SpotPrice returns the instantaneous marginal price of tokenOut denominated
// in tokenIn (tokenIn units per tokenOut unit):
// (balanceIn/weightIn) / (balanceOut/weightOut).
func SpotPrice(tokenIn, tokenOut uint64, pool Pool) (*big.Float, error) {
	assetIn, _, ok := pool.assetByToken(tokenIn)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrTokenNotInPool, tokenIn)
	}
	assetOut, _, ok := pool.assetByToken(tokenOut)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrTokenNotInPool, tokenOut)
	}
	numerator := new(big.Float).Quo(new(big.Float).SetInt(assetIn.Balance), new(big.Float).SetInt64(int64(assetIn.WeightPPM)))
	denominator := new(big.Float).Quo(new(big.Float).SetInt(assetOut.Balance), new(big.Float).SetInt64(int64(assetOut.WeightPPM)))
	return new(big.Float).Quo(numerator, denominator), nil
}
