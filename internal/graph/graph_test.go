package graph

import (
	"math/big"
	"testing"

	"github.com/arbcore/arbengine/internal/adapter"
	"github.com/arbcore/arbengine/internal/pools/cpamm"
	"github.com/arbcore/arbengine/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSkipsZeroLiquidityPool(t *testing.T) {
	tokens := []types.Token{
		{ID: 1, Decimals: 18},
		{ID: 2, Decimals: 6},
	}
	pools := []PoolState{
		{
			Ref: types.PoolRef{ID: 1, Tokens: []uint64{1, 2}, Family: types.FamilyConstantProduct, FeePPM: 3000},
			State: cpamm.Pool{
				ID: 1, Token0: 1, Token1: 2,
				Reserve0: big.NewInt(0), Reserve1: big.NewInt(1_000_000),
				FeePPM: 3000,
			},
		},
	}
	g := Build(tokens, pools, adapter.NewRegistry())
	idx1, ok := g.TokenIndex(1)
	require.True(t, ok)
	assert.Empty(t, g.Adjacency[idx1])
	assert.Zero(t, g.PoolEdgeCount[1])
}

func TestBuildAddsBothDirectionsForLiveLiquidity(t *testing.T) {
	tokens := []types.Token{
		{ID: 1, Decimals: 18},
		{ID: 2, Decimals: 6},
	}
	pools := []PoolState{
		{
			Ref: types.PoolRef{ID: 1, Tokens: []uint64{1, 2}, Family: types.FamilyConstantProduct, FeePPM: 3000},
			State: cpamm.Pool{
				ID: 1, Token0: 1, Token1: 2,
				Reserve0: new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil),    // 1e6 WETH-scale
				Reserve1: new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil),    // 1e6 USDC-scale
				FeePPM:   3000,
			},
		},
	}
	g := Build(tokens, pools, adapter.NewRegistry())
	idx1, _ := g.TokenIndex(1)
	idx2, _ := g.TokenIndex(2)
	require.Len(t, g.Adjacency[idx1], 1)
	require.Len(t, g.Adjacency[idx2], 1)
	assert.Equal(t, idx2, g.Adjacency[idx1][0].To)
	assert.Equal(t, uint64(1), g.Adjacency[idx1][0].PoolID)
	assert.True(t, g.Adjacency[idx1][0].EffectivePrice > 0)
	assert.Equal(t, 2, g.PoolEdgeCount[1])
}
