package scanner

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbcore/arbengine/internal/config"
	"github.com/arbcore/arbengine/internal/execution"
	"github.com/arbcore/arbengine/internal/graph"
	"github.com/arbcore/arbengine/internal/pools/cpamm"
	"github.com/arbcore/arbengine/internal/simulator"
	"github.com/arbcore/arbengine/internal/types"
)

// fakeFetcher hands back a fixed pool snapshot, optionally failing once to
// exercise the scan loop's consecutive-failure path.
type fakeFetcher struct {
	pools    map[uint64]graph.PoolState
	failNext bool
	calls    int
}

func (f *fakeFetcher) Refresh(ctx context.Context, refs []types.PoolRef, scanCount uint64) (map[uint64]graph.PoolState, error) {
	f.calls++
	if f.failNext {
		f.failNext = false
		return nil, assertErr
	}
	return f.pools, nil
}

var assertErr = &fetchError{"simulated transport failure"}

type fetchError struct{ msg string }

func (e *fetchError) Error() string { return e.msg }

type fakeGasOracle struct{ gwei float64 }

func (g fakeGasOracle) Current(ctx context.Context) float64 { return g.gwei }

func twoTokenGraphPools(reserveA, reserveB *big.Int) (map[uint64]types.Token, []types.PoolRef, map[uint64]graph.PoolState) {
	tokens := map[uint64]types.Token{
		0: {ID: 0, Symbol: "WETH", Decimals: 18, IsBase: true},
		1: {ID: 1, Symbol: "USDC", Decimals: 6},
	}
	ref := types.PoolRef{ID: 0, Tokens: []uint64{0, 1}, Family: types.FamilyConstantProduct, FeePPM: 3000}
	state := cpamm.Pool{ID: 0, Token0: 0, Token1: 1, Reserve0: reserveA, Reserve1: reserveB, FeePPM: 3000}
	pools := map[uint64]graph.PoolState{0: {Ref: ref, State: state}}
	return tokens, []types.PoolRef{ref}, pools
}

func staticPrices() simulator.StaticPriceTable {
	return simulator.StaticPriceTable{0: 3000, 1: 1}
}

func testConfig() *config.Config {
	cfg := &config.Config{
		MaxGasGwei:             150,
		MinProfitUSD:           10,
		GasPriceGweiFallback:   0.5,
		ETHPriceUSDFallback:    3000,
		TargetTradeUSD:         10_000,
		MaxHops:                5,
		MinExpectedReturn:      0.95,
		MaxConsecutiveFailures: 3,
		FailurePauseSecs:       1,
		ScanInterval:           10 * time.Millisecond,
	}
	return cfg
}

func TestRunScanGasGated(t *testing.T) {
	tokens, refs, pools := twoTokenGraphPools(big.NewInt(1_000), big.NewInt(1_000))
	f := &fakeFetcher{pools: pools}
	cfg := testConfig()
	cfg.MaxGasGwei = 1

	s := New(cfg, tokens, refs, f, fakeGasOracle{gwei: 50}, staticPrices(), engineFor(cfg), nil)
	res, err := s.RunScan(context.Background(), 100)
	require.NoError(t, err)
	assert.True(t, res.GasGated)
	assert.Equal(t, 0, f.calls)
}

func TestRunScanNoCyclesWhenGraphIsAcyclic(t *testing.T) {
	tokens, refs, pools := twoTokenGraphPools(big.NewInt(1_000_000), big.NewInt(1_000_000))
	f := &fakeFetcher{pools: pools}
	cfg := testConfig()

	s := New(cfg, tokens, refs, f, fakeGasOracle{gwei: 1}, staticPrices(), engineFor(cfg), nil)
	res, err := s.RunScan(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 0, res.CyclesFound)
	assert.Equal(t, 1, f.calls)
}

func TestRunScanEmergencyStopSkipsFetch(t *testing.T) {
	tokens, refs, pools := twoTokenGraphPools(big.NewInt(1_000), big.NewInt(1_000))
	f := &fakeFetcher{pools: pools}
	cfg := testConfig()
	cfg.EmergencyStop = true

	s := New(cfg, tokens, refs, f, fakeGasOracle{gwei: 1}, staticPrices(), engineFor(cfg), nil)
	_, err := s.RunScan(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 0, f.calls)
}

func TestRunScanPropagatesFetchError(t *testing.T) {
	tokens, refs, pools := twoTokenGraphPools(big.NewInt(1_000), big.NewInt(1_000))
	f := &fakeFetcher{pools: pools, failNext: true}
	cfg := testConfig()

	s := New(cfg, tokens, refs, f, fakeGasOracle{gwei: 1}, staticPrices(), engineFor(cfg), nil)
	_, err := s.RunScan(context.Background(), 100)
	assert.Error(t, err)
}

func TestSummaryFormatsGasGate(t *testing.T) {
	tokens, refs, pools := twoTokenGraphPools(big.NewInt(1_000), big.NewInt(1_000))
	f := &fakeFetcher{pools: pools}
	cfg := testConfig()
	s := New(cfg, tokens, refs, f, fakeGasOracle{gwei: 1}, staticPrices(), engineFor(cfg), nil)
	s.scanCount = 3
	msg := s.Summary(ScanResult{GasGated: true, GasGwei: 200})
	assert.Contains(t, msg, "gas-gated")
}

func TestDueForHeartbeat(t *testing.T) {
	tokens, refs, pools := twoTokenGraphPools(big.NewInt(1_000), big.NewInt(1_000))
	f := &fakeFetcher{pools: pools}
	cfg := testConfig()
	s := New(cfg, tokens, refs, f, fakeGasOracle{gwei: 1}, staticPrices(), engineFor(cfg), nil)

	s.scanCount = heartbeatEvery
	assert.True(t, s.DueForHeartbeat())
	s.scanCount = heartbeatEvery + 1
	assert.False(t, s.DueForHeartbeat())
}

func engineFor(cfg *config.Config) *execution.Engine {
	mode, _ := cfg.ExecutionModeValue()
	return &execution.Engine{Mode: mode, EmergencyStop: cfg.EmergencyStop, MinProfitUSD: cfg.MinProfitUSD}
}
