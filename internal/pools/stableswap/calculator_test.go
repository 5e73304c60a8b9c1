package stableswap

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func balancedPool() Pool {
	return Pool{
		ID: 1,
		Assets: []Asset{
			{TokenID: 0, Balance: big.NewInt(1_000_000_000_000)},
			{TokenID: 1, Balance: big.NewInt(1_000_000_000_000)},
		},
		AmplificationFactor: 100,
		SwapFeePPM:          1000,
	}
}

func TestGetAmountOutNearParity(t *testing.T) {
	pool := balancedPool()
	out, err := GetAmountOut(big.NewInt(1_000_000), 0, 1, pool)
	require.NoError(t, err)
	// a balanced high-A stableswap pool should return close to 1:1 minus fee
	lowerBound := big.NewInt(990_000)
	assert.True(t, out.Cmp(lowerBound) > 0, "got %s", out)
	assert.True(t, out.Cmp(big.NewInt(1_000_000)) < 0)
}

func TestGetAmountOutUnknownToken(t *testing.T) {
	pool := balancedPool()
	_, err := GetAmountOut(big.NewInt(1), 99, 1, pool)
	require.ErrorIs(t, err, ErrTokenNotInPool)
}

func TestNGRateAdjustment(t *testing.T) {
	pool := balancedPool()
	pool.NG = true
	pool.Assets[0].RatePPM = 1_100_000 // token0 worth 1.1x the accounting unit
	out, err := GetAmountOut(big.NewInt(1_000_000), 0, 1, pool)
	require.NoError(t, err)
	assert.True(t, out.Sign() > 0)
}

func TestNGOffpegFeeMultiplierWidensFeeOnImbalance(t *testing.T) {
	plain := balancedPool()
	outPlain, err := GetAmountOut(big.NewInt(50_000_000_000), 0, 1, plain)
	require.NoError(t, err)

	imbalanced := Pool{
		ID: 1,
		Assets: []Asset{
			{TokenID: 0, Balance: big.NewInt(1_900_000_000_000)},
			{TokenID: 1, Balance: big.NewInt(100_000_000_000)},
		},
		AmplificationFactor:    100,
		SwapFeePPM:             1000,
		NG:                     true,
		OffpegFeeMultiplierPPM: 5_000_000, // 5x ceiling on the widened fee
	}
	outNG, err := GetAmountOut(big.NewInt(50_000_000_000), 0, 1, imbalanced)
	require.NoError(t, err)

	// Same trade size, same flat fee, but the NG pool's imbalance should pull
	// more out of the output via a wider effective fee than the plain pool's
	// flat fee would on an equally-imbalanced book.
	flatOnImbalanced := dynamicFeePPM(imbalanced.Assets[0].Balance, imbalanced.Assets[1].Balance, imbalanced.SwapFeePPM, 0)
	widenedFee := dynamicFeePPM(imbalanced.Assets[0].Balance, imbalanced.Assets[1].Balance, imbalanced.SwapFeePPM, imbalanced.OffpegFeeMultiplierPPM)
	assert.True(t, widenedFee > flatOnImbalanced, "widened fee %d should exceed flat fee %d on an imbalanced book", widenedFee, flatOnImbalanced)
	assert.True(t, outPlain.Sign() > 0)
	assert.True(t, outNG.Sign() > 0)
}

func TestDynamicFeePPMNoWideningBelowThreshold(t *testing.T) {
	fee := dynamicFeePPM(big.NewInt(1_000_000), big.NewInt(1_000_000), 3000, 1_000_000)
	assert.Equal(t, uint32(3000), fee)
}
