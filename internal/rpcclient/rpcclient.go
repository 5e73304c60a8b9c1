// Package rpcclient dials a single EVM JSON-RPC endpoint and exposes the two
// primitives internal/fetcher needs: plain chain-head queries and
// Multicall3-batched eth_call aggregation. It is a direct repurposing of the
// teacher's streams/jsonrpc/client package — same Config/validate shape and
// the same exponential reconnect backoff constants — retargeted from
// "subscribe to an external state-diff stream" to "dial a plain RPC node and
// batch calls against it", since this engine does its own fetching instead
// of consuming a pre-built defistate snapshot.
package rpcclient

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	enginetypes "github.com/arbcore/arbengine/internal/types"
)

// Reconnect backoff constants, kept numerically identical to
// streams/jsonrpc/client.Client's reconnection logic.
const (
	initialDialDelay = 1 * time.Second
	maxDialDelay     = 30 * time.Second
	maxDialAttempts  = 6
)

// DefaultMulticall3Address is the canonical cross-chain Multicall3 deployment
// address (same bytecode at the same address on every chain that has it).
var DefaultMulticall3Address = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

const multicall3ABIJSON = `[
  {"inputs":[{"components":[{"name":"target","type":"address"},{"name":"allowFailure","type":"bool"},{"name":"callData","type":"bytes"}],"name":"calls","type":"tuple[]"}],
   "name":"aggregate3",
   "outputs":[{"components":[{"name":"success","type":"bool"},{"name":"returnData","type":"bytes"}],"name":"returnData","type":"tuple[]"}],
   "stateMutability":"payable","type":"function"}
]`

// Config mirrors the teacher's jsonrpc Config shape: URL + Logger are
// required, the rest have sane defaults.
type Config struct {
	URL             string
	Logger          enginetypes.Logger
	DialTimeout     time.Duration
	RequestTimeout  time.Duration
	Multicall3Addr  common.Address
	MaxCallsPerBatch int
}

func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("rpcclient: URL is required")
	}
	if c.Logger == nil {
		return errors.New("rpcclient: Logger is required")
	}
	return nil
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.DialTimeout <= 0 {
		out.DialTimeout = 10 * time.Second
	}
	if out.RequestTimeout <= 0 {
		out.RequestTimeout = 20 * time.Second
	}
	if out.Multicall3Addr == (common.Address{}) {
		out.Multicall3Addr = DefaultMulticall3Address
	}
	if out.MaxCallsPerBatch <= 0 {
		out.MaxCallsPerBatch = 500
	}
	return out
}

// Client wraps go-ethereum's rpc/ethclient handles plus a parsed Multicall3
// ABI for batched eth_call aggregation.
type Client struct {
	cfg          Config
	rpc          *rpc.Client
	eth          *ethclient.Client
	multicallABI abi.ABI
	logger       enginetypes.Logger
}

// Dial connects to cfg.URL, retrying with exponential backoff (same
// initialDialDelay/maxDialDelay envelope the teacher's stream client uses
// for reconnection) up to maxDialAttempts before giving up.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	parsedABI, err := abi.JSON(strings.NewReader(multicall3ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("rpcclient: failed to parse multicall3 ABI: %w", err)
	}

	delay := initialDialDelay
	var lastErr error
	for attempt := 1; attempt <= maxDialAttempts; attempt++ {
		dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
		rpcClient, dialErr := rpc.DialContext(dialCtx, cfg.URL)
		cancel()
		if dialErr == nil {
			cfg.Logger.Info("rpcclient: connected", "url", cfg.URL, "attempt", attempt)
			return &Client{
				cfg:          cfg,
				rpc:          rpcClient,
				eth:          ethclient.NewClient(rpcClient),
				multicallABI: parsedABI,
				logger:       cfg.Logger,
			}, nil
		}

		lastErr = dialErr
		cfg.Logger.Warn("rpcclient: dial failed, retrying", "url", cfg.URL, "attempt", attempt, "delay", delay, "error", dialErr)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay = min(delay*2, maxDialDelay)
	}
	return nil, fmt.Errorf("rpcclient: failed to dial %s after %d attempts: %w", cfg.URL, maxDialAttempts, lastErr)
}

func min(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// HeaderByNumber fetches a block header; nil means "latest".
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	return c.eth.HeaderByNumber(ctx, number)
}

// SuggestGasPrice is the RPC-fallback leg of internal/gasoracle: used when
// the REST gas-price source is unavailable.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	return c.eth.SuggestGasPrice(ctx)
}

// Call3 is one leg of a Multicall3 aggregate3 batch.
type Call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// CallResult is the per-leg outcome of an Aggregate3 batch.
type CallResult struct {
	Success    bool
	ReturnData []byte
}

// Aggregate3 batches up to cfg.MaxCallsPerBatch calls into a single eth_call
// against Multicall3, splitting larger batches into sequential chunks. This
// is the engine's primary chain-read path: internal/fetcher uses it to pull
// every pool's reserves/ticks/balances in a handful of round trips instead
// of one eth_call per pool per field.
func (c *Client) Aggregate3(ctx context.Context, calls []Call3) ([]CallResult, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	results := make([]CallResult, 0, len(calls))
	for start := 0; start < len(calls); start += c.cfg.MaxCallsPerBatch {
		end := start + c.cfg.MaxCallsPerBatch
		if end > len(calls) {
			end = len(calls)
		}
		chunk, err := c.aggregate3Chunk(ctx, calls[start:end])
		if err != nil {
			return nil, fmt.Errorf("rpcclient: aggregate3 chunk [%d:%d]: %w", start, end, err)
		}
		results = append(results, chunk...)
	}
	return results, nil
}

func (c *Client) aggregate3Chunk(ctx context.Context, calls []Call3) ([]CallResult, error) {
	type call3Tuple struct {
		Target       common.Address
		AllowFailure bool
		CallData     []byte
	}
	tuples := make([]call3Tuple, len(calls))
	for i, call := range calls {
		tuples[i] = call3Tuple{Target: call.Target, AllowFailure: call.AllowFailure, CallData: call.CallData}
	}

	packed, err := c.multicallABI.Pack("aggregate3", tuples)
	if err != nil {
		return nil, fmt.Errorf("failed to pack aggregate3 call: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &c.cfg.Multicall3Addr,
		Data: packed,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("aggregate3 eth_call failed: %w", err)
	}

	var out struct {
		ReturnData []struct {
			Success    bool
			ReturnData []byte
		}
	}
	if err := c.multicallABI.UnpackIntoInterface(&out, "aggregate3", raw); err != nil {
		return nil, fmt.Errorf("failed to unpack aggregate3 result: %w", err)
	}

	results := make([]CallResult, len(out.ReturnData))
	for i, r := range out.ReturnData {
		results[i] = CallResult{Success: r.Success, ReturnData: r.ReturnData}
	}
	return results, nil
}
