package vault4626

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepositAtParity(t *testing.T) {
	pool := Pool{
		ID:          1,
		AssetToken:  0,
		ShareToken:  1,
		TotalAssets: big.NewInt(1_000_000),
		TotalSupply: big.NewInt(1_000_000),
	}
	shares, err := GetAmountOut(big.NewInt(1000), 0, 1, pool)
	require.NoError(t, err)
	assert.Equal(t, 0, shares.Cmp(big.NewInt(1000)))
}

func TestDepositWithAccruedYield(t *testing.T) {
	// vault has accrued yield: 1_100_000 assets backing 1_000_000 shares
	pool := Pool{
		ID:          1,
		AssetToken:  0,
		ShareToken:  1,
		TotalAssets: big.NewInt(1_100_000),
		TotalSupply: big.NewInt(1_000_000),
	}
	shares, err := GetAmountOut(big.NewInt(1100), 0, 1, pool)
	require.NoError(t, err)
	assert.Equal(t, 0, shares.Cmp(big.NewInt(1000)))
}

func TestRedeemEmptyVault(t *testing.T) {
	pool := Pool{
		ID:          1,
		AssetToken:  0,
		ShareToken:  1,
		TotalAssets: big.NewInt(0),
		TotalSupply: big.NewInt(0),
	}
	_, err := GetAmountOut(big.NewInt(10), 1, 0, pool)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
}
