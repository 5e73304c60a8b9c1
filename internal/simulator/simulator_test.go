package simulator

import (
	"math/big"
	"testing"

	"github.com/arbcore/arbengine/internal/adapter"
	"github.com/arbcore/arbengine/internal/cycle"
	"github.com/arbcore/arbengine/internal/graph"
	"github.com/arbcore/arbengine/internal/pools/cpamm"
	"github.com/arbcore/arbengine/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weth() types.Token { return types.Token{ID: 1, Symbol: "WETH", Decimals: 18} }
func usdc() types.Token { return types.Token{ID: 2, Symbol: "USDC", Decimals: 6} }

func triangleCycle() cycle.Cycle {
	return cycle.Cycle{
		TokenPath:      []uint64{1, 2, 3, 1},
		PoolPath:       []uint64{10, 20, 30},
		FamilyPath:     []types.Family{types.FamilyConstantProduct, types.FamilyConstantProduct, types.FamilyConstantProduct},
		ExpectedReturn: 1.01,
	}
}

func cpammPoolState(id uint64, tokenA, tokenB uint64, reserveA, reserveB int64) graph.PoolState {
	return graph.PoolState{
		Ref: types.PoolRef{ID: id, Tokens: []uint64{tokenA, tokenB}, Family: types.FamilyConstantProduct, FeePPM: 3000},
		State: cpamm.Pool{
			ID: id, Token0: tokenA, Token1: tokenB,
			Reserve0: big.NewInt(reserveA), Reserve1: big.NewInt(reserveB),
			FeePPM: 3000,
		},
	}
}

func TestSimulateSuccessfulProfitableCycle(t *testing.T) {
	registry := adapter.NewRegistry()
	pools := map[uint64]graph.PoolState{
		10: cpammPoolState(10, 1, 2, 1_000_000_000_000_000_000_000, 3_000_000_000_000),
		20: cpammPoolState(20, 2, 3, 3_000_000_000_000, 1_000_000_000_000_000_000_000),
		30: cpammPoolState(30, 3, 1, 1_000_000_000_000_000_000_000, 1_020_000_000_000_000_000_000),
	}
	tokens := map[uint64]types.Token{
		1: weth(),
		2: usdc(),
		3: {ID: 3, Symbol: "AUX", Decimals: 18},
	}
	prices := StaticPriceTable{1: 3000, 2: 1, 3: 3000}

	sim := New(registry, DefaultConfig())
	result := sim.Simulate(triangleCycle(), pools, tokens, prices)

	require.True(t, result.Success, result.FailureReason)
	assert.Len(t, result.Swaps, 3)
	assert.True(t, result.TotalGasUnits > baseFlashLoanGasOverhead)
}

func TestSimulateFailsOnMissingPool(t *testing.T) {
	registry := adapter.NewRegistry()
	pools := map[uint64]graph.PoolState{} // nothing loaded
	tokens := map[uint64]types.Token{1: weth(), 2: usdc(), 3: {ID: 3, Decimals: 18}}
	prices := StaticPriceTable{1: 3000}

	sim := New(registry, DefaultConfig())
	result := sim.Simulate(triangleCycle(), pools, tokens, prices)

	assert.False(t, result.Success)
	assert.Contains(t, result.FailureReason, "not loaded")
}

func TestSimulateFailsWithoutStartTokenPrice(t *testing.T) {
	registry := adapter.NewRegistry()
	pools := map[uint64]graph.PoolState{}
	tokens := map[uint64]types.Token{1: weth()}
	prices := StaticPriceTable{} // no entry for token 1

	sim := New(registry, DefaultConfig())
	result := sim.Simulate(triangleCycle(), pools, tokens, prices)

	assert.False(t, result.Success)
	assert.Contains(t, result.FailureReason, "no USD price")
}

func TestApplyFeeOnTransferDeductsPercentage(t *testing.T) {
	token := types.Token{FeeOnTransferPercent: 2.0}
	out := applyFeeOnTransfer(big.NewInt(1_000_000), token)
	assert.Equal(t, big.NewInt(980_000).String(), out.String())
}

func TestApplyFeeOnTransferNoOpWhenZero(t *testing.T) {
	token := types.Token{FeeOnTransferPercent: 0}
	amount := big.NewInt(12345)
	out := applyFeeOnTransfer(amount, token)
	assert.Equal(t, amount, out)
}
