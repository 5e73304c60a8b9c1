package filter

import (
	"testing"

	"github.com/arbcore/arbengine/internal/cycle"
	"github.com/arbcore/arbengine/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCycle(expectedReturn float64, hops int) cycle.Cycle {
	tokenPath := make([]uint64, hops+1)
	poolPath := make([]uint64, hops)
	familyPath := make([]types.Family, hops)
	for i := 0; i < hops; i++ {
		tokenPath[i] = uint64(i + 1)
		poolPath[i] = uint64(i + 100)
		familyPath[i] = types.FamilyConstantProduct
	}
	tokenPath[hops] = tokenPath[0]
	return cycle.Cycle{
		TokenPath:      tokenPath,
		PoolPath:       poolPath,
		FamilyPath:     familyPath,
		ExpectedReturn: expectedReturn,
	}
}

func TestAnalyzeAcceptsModestProfit(t *testing.T) {
	f := New(DefaultConfig())
	a := f.Analyze(sampleCycle(1.01, 3))
	require.False(t, a.IsSuspicious)
	assert.True(t, a.IsCandidate)
	assert.True(t, a.NetProfitUSD > 0)
}

func TestAnalyzeRejectsTooGoodToBeTrue(t *testing.T) {
	f := New(DefaultConfig())
	a := f.Analyze(sampleCycle(1.50, 3))
	assert.True(t, a.IsSuspicious)
	assert.Contains(t, a.SuspicionReason, "max reasonable return")
}

func TestAnalyzeRejectsTooManyHops(t *testing.T) {
	f := New(DefaultConfig())
	a := f.Analyze(sampleCycle(1.01, 7))
	assert.True(t, a.IsSuspicious)
	assert.Contains(t, a.SuspicionReason, "hop count")
}

func TestAnalyzeRejectsInvalidCycle(t *testing.T) {
	f := New(DefaultConfig())
	c := sampleCycle(1.01, 2)
	c.PoolPath[1] = c.PoolPath[0] // duplicate pool, structurally invalid
	a := f.Analyze(c)
	assert.True(t, a.IsSuspicious)
}

func TestAnalyzeRejectsTinyNetProfitAfterGas(t *testing.T) {
	f := New(DefaultConfig())
	// A barely-above-1 return on a 4-hop stableswap cycle leaves too little
	// net profit after gas to clear MinProfitUSD, even though it isn't
	// "suspicious" on its own.
	c := sampleCycle(1.0005, 4)
	for i := range c.FamilyPath {
		c.FamilyPath[i] = types.FamilyStableSwap
	}
	a := f.Analyze(c)
	assert.False(t, a.IsSuspicious)
	assert.False(t, a.IsCandidate)
}

func TestFilterCandidatesSortsByNetProfitDescending(t *testing.T) {
	f := New(DefaultConfig())
	cycles := []cycle.Cycle{
		sampleCycle(1.002, 2),
		sampleCycle(1.02, 2),
		sampleCycle(1.01, 2),
	}
	out := f.FilterCandidates(cycles)
	require.Len(t, out, 3)
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i-1].NetProfitUSD, out[i].NetProfitUSD)
	}
}

func TestGasUnitsForDispatchesByFamily(t *testing.T) {
	assert.Equal(t, int64(gasPerSwapConcentrated), gasUnitsFor(types.FamilyConcentrated))
	assert.Equal(t, int64(gasPerSwapWeighted), gasUnitsFor(types.FamilyWeighted))
	assert.Equal(t, int64(gasPerSwapStableSwap), gasUnitsFor(types.FamilyStableSwap))
	assert.Equal(t, int64(gasPerSwapStableSwap), gasUnitsFor(types.FamilyStableSwapNG))
	assert.Equal(t, int64(gasPerSwapERC4626Vault), gasUnitsFor(types.FamilyERC4626Vault))
	assert.Equal(t, int64(gasPerSwapConstantProduct), gasUnitsFor(types.FamilyConstantProduct))
}
