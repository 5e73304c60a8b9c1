// Package gasoracle supplies the current gas price used by internal/filter
// and internal/simulator to price a cycle's fixed costs. Grounded on
// original_source/src/gas_oracle.rs's header (an Etherscan-style REST
// gas-price source, falling back to the RPC node's own eth_gasPrice) — the
// Rust file's body was truncated in the retrieval pack, so the REST client
// itself is written from the header's doc comment and import list
// (reqwest-equivalent: Go's net/http, since no ecosystem REST client
// library appears anywhere in the example pack) while the RPC fallback
// reuses internal/rpcclient's SuggestGasPrice, which wraps go-ethereum's
// ethclient exactly as the teacher does throughout chains/ethereum.
package gasoracle

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/arbcore/arbengine/internal/rpcclient"
	"github.com/arbcore/arbengine/internal/types"
)

// cacheTTL bounds how often the oracle actually hits the network; a scan
// loop running every few seconds has no need for a fresh gas price on every
// tick.
const cacheTTL = 15 * time.Second

// Source is anything that can report the current gas price in gwei.
type Source interface {
	GasPriceGwei(ctx context.Context) (float64, error)
}

// etherscanGasPriceResponse mirrors the subset of Etherscan's
// eth_gasPrice proxy response the oracle actually reads.
type etherscanGasPriceResponse struct {
	Result string `json:"result"`
}

// restSource fetches gas price from an Etherscan-compatible REST endpoint.
type restSource struct {
	url        string
	httpClient *http.Client
}

func newRESTSource(url string) *restSource {
	return &restSource{url: url, httpClient: &http.Client{Timeout: 5 * time.Second}}
}

func (s *restSource) GasPriceGwei(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, fmt.Errorf("gasoracle: failed to build request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("gasoracle: REST request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("gasoracle: REST source returned status %d", resp.StatusCode)
	}

	var parsed etherscanGasPriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("gasoracle: failed to decode REST response: %w", err)
	}

	var weiHex string
	if err := json.Unmarshal([]byte(parsed.Result), &weiHex); err != nil {
		weiHex = parsed.Result
	}

	var weiValue uint64
	if _, err := fmt.Sscanf(weiHex, "0x%x", &weiValue); err != nil {
		return 0, fmt.Errorf("gasoracle: could not parse gas price %q: %w", parsed.Result, err)
	}
	return float64(weiValue) / 1e9, nil
}

// rpcFallbackSource calls eth_gasPrice directly against the configured RPC
// node, used when the REST source is unreachable or unconfigured.
type rpcFallbackSource struct {
	client *rpcclient.Client
}

func (s *rpcFallbackSource) GasPriceGwei(ctx context.Context) (float64, error) {
	wei, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return 0, fmt.Errorf("gasoracle: eth_gasPrice fallback failed: %w", err)
	}
	weiFloat := new(big.Float).SetInt(wei)
	gwei, _ := new(big.Float).Quo(weiFloat, big.NewFloat(1e9)).Float64()
	return gwei, nil
}

// Oracle is the cached, REST-first/RPC-fallback gas price source used
// engine-wide. Current() serves the cached value while it is fresh and,
// once the cache goes stale, refreshes it synchronously before returning.
type Oracle struct {
	mu           sync.Mutex
	rest         Source
	fallback     Source
	fallbackOnly float64 // static fallback if both sources ever fail on first use
	lastValue    float64
	lastFetched  time.Time
	logger       types.Logger
}

// New builds an Oracle. restURL may be empty, in which case only the RPC
// fallback is ever used (this is the common case: not every deployment
// wants an Etherscan-style API key).
func New(restURL string, rpc *rpcclient.Client, staticFallbackGwei float64, logger types.Logger) *Oracle {
	var rest Source
	if restURL != "" {
		rest = newRESTSource(restURL)
	}
	return &Oracle{
		rest:         rest,
		fallback:     &rpcFallbackSource{client: rpc},
		fallbackOnly: staticFallbackGwei,
		logger:       logger,
	}
}

// Current returns the cached gas price in gwei, refreshing synchronously if
// the cache has expired.
func (o *Oracle) Current(ctx context.Context) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	if time.Since(o.lastFetched) < cacheTTL && o.lastValue > 0 {
		return o.lastValue
	}

	if o.rest != nil {
		if price, err := o.rest.GasPriceGwei(ctx); err == nil && price > 0 {
			o.lastValue, o.lastFetched = price, time.Now()
			return price
		} else if o.logger != nil {
			o.logger.Warn("gasoracle: REST source failed, falling back to RPC", "error", err)
		}
	}

	if price, err := o.fallback.GasPriceGwei(ctx); err == nil && price > 0 {
		o.lastValue, o.lastFetched = price, time.Now()
		return price
	} else if o.logger != nil {
		o.logger.Warn("gasoracle: RPC fallback failed, using static default", "error", err)
	}

	if o.lastValue > 0 {
		return o.lastValue
	}
	return o.fallbackOnly
}
