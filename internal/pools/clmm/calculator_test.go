package clmm

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVirtualReserves(t *testing.T) {
	pool := Pool{
		ID:           1,
		Token0:       0,
		Token1:       1,
		FeePPM:       3000,
		Tick:         0,
		Liquidity:    big.NewInt(1_000_000_000),
		SqrtPriceX96: new(big.Int).Set(Q96), // price == 1
	}
	r0, r1, err := GetVirtualReserves(0, 1, pool)
	require.NoError(t, err)
	assert.True(t, r0.Sign() > 0)
	assert.True(t, r1.Sign() > 0)

	_, _, err = GetVirtualReserves(5, 6, pool)
	assert.ErrorIs(t, err, ErrTokenMismatch)
}

func TestGetSpotPriceAtParity(t *testing.T) {
	pool := Pool{
		ID:           1,
		Token0:       0,
		Token1:       1,
		SqrtPriceX96: new(big.Int).Set(Q96),
	}
	price, err := GetSpotPrice(0, 1, 18, 18, pool)
	require.NoError(t, err)
	assert.Equal(t, 0, price.Cmp(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)))
}
