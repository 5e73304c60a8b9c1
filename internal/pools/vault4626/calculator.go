package vault4626

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrTokenMismatch         = errors.New("vault4626: token mismatch")
	ErrInvalidAmount         = errors.New("vault4626: amount must be positive")
	ErrInsufficientLiquidity = errors.New("vault4626: vault has no supply or assets")

	feeDivisor = big.NewInt(1_000_000)
)

// GetAmountOut converts amountIn of tokenIn into the resulting amount of
// tokenOut at the vault's current share price:
//
//	deposit (asset -> share):  shares = assets * totalSupply / totalAssets
//	redeem  (share -> asset):  assets = shares * totalAssets / totalSupply
//
// A deposit into an empty vault (zero totalSupply or totalAssets) prices
// 1:1, matching the OpenZeppelin ERC-4626 reference implementation's
// "virtual shares" bootstrap behavior; a redeem against zero totalSupply
// returns ErrInsufficientLiquidity.
func GetAmountOut(amountIn *big.Int, tokenIn, tokenOut uint64, pool Pool) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	switch {
	case tokenIn == pool.AssetToken && tokenOut == pool.ShareToken:
		return deposit(amountIn, pool)
	case tokenIn == pool.ShareToken && tokenOut == pool.AssetToken:
		return redeem(amountIn, pool)
	default:
		return nil, fmt.Errorf("%w: pool %d does not bridge %d->%d", ErrTokenMismatch, pool.ID, tokenIn, tokenOut)
	}
}

func deposit(assets *big.Int, pool Pool) (*big.Int, error) {
	var shares *big.Int
	if pool.TotalSupply.Sign() == 0 || pool.TotalAssets.Sign() == 0 {
		shares = new(big.Int).Set(assets)
	} else {
		shares = new(big.Int).Mul(assets, pool.TotalSupply)
		shares.Div(shares, pool.TotalAssets)
	}
	return applyFee(shares, pool.DepositFeePPM), nil
}

func redeem(shares *big.Int, pool Pool) (*big.Int, error) {
	if pool.TotalSupply.Sign() == 0 {
		return nil, ErrInsufficientLiquidity
	}
	assets := new(big.Int).Mul(shares, pool.TotalAssets)
	assets.Div(assets, pool.TotalSupply)
	return applyFee(assets, pool.WithdrawFeePPM), nil
}

func applyFee(amount *big.Int, feePPM uint32) *big.Int {
	if feePPM == 0 {
		return amount
	}
	fee := new(big.Int).Mul(amount, big.NewInt(int64(feePPM)))
	fee.Div(fee, feeDivisor)
	return amount.Sub(amount, fee)
}

// SharePrice returns totalAssets/totalSupply as a big.Float, the vault's
// current NAV-per-share, used by internal/special to detect yield drift
// between a vault's share price and a secondary market quoting its shares.
func SharePrice(pool Pool) *big.Float {
	if pool.TotalSupply.Sign() == 0 {
		return big.NewFloat(1)
	}
	return new(big.Float).Quo(new(big.Float).SetInt(pool.TotalAssets), new(big.Float).SetInt(pool.TotalSupply))
}
