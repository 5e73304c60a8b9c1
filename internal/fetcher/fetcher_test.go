package fetcher

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbcore/arbengine/internal/pools/cpamm"
	"github.com/arbcore/arbengine/internal/pools/stableswap"
	"github.com/arbcore/arbengine/internal/rpcclient"
	"github.com/arbcore/arbengine/internal/types"
)

func encodeOutputs(t *testing.T, a abi.ABI, method string, values ...any) []byte {
	t.Helper()
	m, ok := a.Methods[method]
	require.True(t, ok, "no such method %s", method)
	data, err := m.Outputs.Pack(values...)
	require.NoError(t, err)
	return data
}

// fakeMulticall scripts Aggregate3 responses one call-batch at a time: each
// invocation pops the next entry in responses, asserting the batch size
// matches what the fetcher actually sent.
type fakeMulticall struct {
	responses [][]rpcclient.CallResult
	calls     [][]rpcclient.Call3
}

func (f *fakeMulticall) Aggregate3(ctx context.Context, calls []rpcclient.Call3) ([]rpcclient.CallResult, error) {
	f.calls = append(f.calls, calls)
	idx := len(f.calls) - 1
	if idx >= len(f.responses) {
		return nil, assert.AnError
	}
	resp := f.responses[idx]
	if len(resp) != len(calls) {
		return nil, assert.AnError
	}
	return resp, nil
}

func allSuccess(data ...[]byte) []rpcclient.CallResult {
	out := make([]rpcclient.CallResult, len(data))
	for i, d := range data {
		out[i] = rpcclient.CallResult{Success: true, ReturnData: d}
	}
	return out
}

func allFailed(n int) []rpcclient.CallResult {
	out := make([]rpcclient.CallResult, n)
	for i := range out {
		out[i] = rpcclient.CallResult{Success: false}
	}
	return out
}

func TestRefreshAssemblesCPAMM(t *testing.T) {
	reservesData := encodeOutputs(t, abis.reserves, "getReserves", big.NewInt(100), big.NewInt(200), uint32(123))
	client := &fakeMulticall{responses: [][]rpcclient.CallResult{allSuccess(reservesData)}}
	f := New(client, nil)

	pool := types.PoolRef{ID: 1, Address: common.HexToAddress("0x1"), Tokens: []uint64{0, 1}, Family: types.FamilyConstantProduct, FeePPM: 3000}
	out, err := f.Refresh(context.Background(), []types.PoolRef{pool}, 1)
	require.NoError(t, err)

	state, ok := out[1]
	require.True(t, ok)
	p, ok := state.State.(cpamm.Pool)
	require.True(t, ok)
	assert.Equal(t, big.NewInt(100), p.Reserve0)
	assert.Equal(t, big.NewInt(200), p.Reserve1)
	assert.Equal(t, uint32(3000), p.FeePPM)
}

func TestStableSwapNGThrottledAndServedFromCache(t *testing.T) {
	amplData := encodeOutputs(t, abis.amplification, "A", big.NewInt(200))
	offpegData := encodeOutputs(t, abis.offpegFeeMul, "offpeg_fee_multiplier", big.NewInt(2_000_000))
	bal0 := encodeOutputs(t, abis.balanceOfIdx, "balances", big.NewInt(1000))
	bal1 := encodeOutputs(t, abis.balanceOfIdx, "balances", big.NewInt(2000))

	client := &fakeMulticall{responses: [][]rpcclient.CallResult{
		allSuccess(amplData, offpegData, bal0, bal1),
	}}
	f := New(client, nil)

	pool := types.PoolRef{ID: 9, Address: common.HexToAddress("0x9"), Tokens: []uint64{0, 1}, Family: types.FamilyStableSwapNG, FeePPM: 400}

	out1, err := f.Refresh(context.Background(), []types.PoolRef{pool}, 1)
	require.NoError(t, err)
	state1, ok := out1[9].State.(stableswap.Pool)
	require.True(t, ok)
	assert.Equal(t, uint64(200), state1.AmplificationFactor)
	assert.Equal(t, uint64(2_000_000), state1.OffpegFeeMultiplierPPM)
	assert.Len(t, client.calls, 1)

	// Next scan (scanCount 2) is not yet 5 scans past the first refresh, so
	// the pool should be skipped and served straight from cache without
	// issuing any further Aggregate3 call.
	out2, err := f.Refresh(context.Background(), []types.PoolRef{pool}, 2)
	require.NoError(t, err)
	assert.Len(t, client.calls, 1, "should not have issued a second batch")
	state2, ok := out2[9].State.(stableswap.Pool)
	require.True(t, ok)
	assert.Equal(t, state1, state2)
}

func TestRefreshFallsBackToCacheOnAssemblyFailure(t *testing.T) {
	reservesData := encodeOutputs(t, abis.reserves, "getReserves", big.NewInt(500), big.NewInt(700), uint32(1))
	client := &fakeMulticall{responses: [][]rpcclient.CallResult{
		allSuccess(reservesData),
		allFailed(1),
	}}
	f := New(client, nil)

	pool := types.PoolRef{ID: 3, Address: common.HexToAddress("0x3"), Tokens: []uint64{0, 1}, Family: types.FamilyConstantProduct, FeePPM: 3000}

	out1, err := f.Refresh(context.Background(), []types.PoolRef{pool}, 1)
	require.NoError(t, err)
	require.Contains(t, out1, uint64(3))

	out2, err := f.Refresh(context.Background(), []types.PoolRef{pool}, 2)
	require.NoError(t, err)
	state, ok := out2[3]
	require.True(t, ok, "a failed refresh within the structure TTL should fall back to cache")
	p := state.State.(cpamm.Pool)
	assert.Equal(t, big.NewInt(500), p.Reserve0)
}

func TestRefreshDropsPoolWithNoCacheOnFailure(t *testing.T) {
	client := &fakeMulticall{responses: [][]rpcclient.CallResult{allFailed(1)}}
	f := New(client, nil)

	pool := types.PoolRef{ID: 5, Address: common.HexToAddress("0x5"), Tokens: []uint64{0, 1}, Family: types.FamilyConstantProduct, FeePPM: 3000}
	out, err := f.Refresh(context.Background(), []types.PoolRef{pool}, 1)
	require.NoError(t, err)
	_, ok := out[5]
	assert.False(t, ok)
}
