package cpamm

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBigIntFromString(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("failed to set string for big.Int")
	}
	return n
}

func TestGetAmountOut(t *testing.T) {
	cases := []struct {
		name        string
		amountIn    *big.Int
		tokenIn     uint64
		tokenOut    uint64
		pool        Pool
		want        *big.Int
		expectError bool
	}{
		{
			name:     "token0 -> token1",
			amountIn: big.NewInt(1_000_000),
			tokenIn:  0,
			tokenOut: 1,
			pool: Pool{
				ID:       1,
				Token0:   0,
				Token1:   1,
				Reserve0: big.NewInt(100_000_000),
				Reserve1: newBigIntFromString("50000000000000000000"),
				FeePPM:   3000,
			},
			want: newBigIntFromString("493579017198530649"),
		},
		{
			name:     "tokens not in pool are rejected",
			amountIn: big.NewInt(1),
			tokenIn:  5,
			tokenOut: 6,
			pool: Pool{
				ID:       1,
				Token0:   0,
				Token1:   1,
				Reserve0: big.NewInt(1),
				Reserve1: big.NewInt(1),
				FeePPM:   3000,
			},
			expectError: true,
		},
		{
			name:     "zero reserve yields zero output",
			amountIn: big.NewInt(10),
			tokenIn:  0,
			tokenOut: 1,
			pool: Pool{
				ID:       2,
				Token0:   0,
				Token1:   1,
				Reserve0: big.NewInt(0),
				Reserve1: big.NewInt(100),
				FeePPM:   3000,
			},
			want: big.NewInt(0),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := GetAmountOut(tc.amountIn, tc.tokenIn, tc.tokenOut, tc.pool)
			if tc.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 0, tc.want.Cmp(got), "want %s got %s", tc.want, got)
		})
	}
}

func TestSimulateSwapConservesInvariantDirection(t *testing.T) {
	pool := Pool{
		ID:       1,
		Token0:   0,
		Token1:   1,
		Reserve0: big.NewInt(1_000_000),
		Reserve1: big.NewInt(1_000_000),
		FeePPM:   3000,
	}
	amountOut, newPool, err := SimulateSwap(big.NewInt(1000), 0, 1, pool)
	require.NoError(t, err)
	assert.True(t, amountOut.Sign() > 0)
	assert.Equal(t, 0, newPool.Reserve0.Cmp(big.NewInt(1_001_000)))
	assert.True(t, newPool.Reserve1.Cmp(pool.Reserve1) < 0)
}

func TestGetAmountInInsufficientLiquidity(t *testing.T) {
	pool := Pool{
		ID:       1,
		Token0:   0,
		Token1:   1,
		Reserve0: big.NewInt(1000),
		Reserve1: big.NewInt(1000),
		FeePPM:   3000,
	}
	_, err := GetAmountIn(big.NewInt(1000), 0, 1, pool)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
}
