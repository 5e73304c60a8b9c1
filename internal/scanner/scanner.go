// Package scanner glues the Fetcher, Graph, Cycle Search, Profit Filter, and
// Swap Simulator into the fixed-cadence loop spec.md §4.7 (reproduced in the
// package comment below) describes, and hands qualifying opportunities to
// internal/execution. Grounded on original_source/src/main.rs's run_scan
// (gas-gate-first short circuit, consecutive-failure backoff, compact scan
// summary, heartbeat every 50 scans) and the teacher's chains/ethereum/
// client.go loop()/functional-Option construction pattern.
//
//	Idle -> FetchGas -> (gas>max? -> Skip) -> FetchPools -> BuildGraph
//	     -> FindCycles -> (empty? -> Report) -> RankFilter
//	     -> SimulateTopK -> (per-candidate) LogCandidate
//	     -> (profitable? -> Execute via external) -> NextScan
package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arbcore/arbengine/internal/adapter"
	"github.com/arbcore/arbengine/internal/config"
	"github.com/arbcore/arbengine/internal/cycle"
	"github.com/arbcore/arbengine/internal/execution"
	"github.com/arbcore/arbengine/internal/fetcher"
	"github.com/arbcore/arbengine/internal/filter"
	"github.com/arbcore/arbengine/internal/gasoracle"
	"github.com/arbcore/arbengine/internal/graph"
	"github.com/arbcore/arbengine/internal/pools/basket"
	"github.com/arbcore/arbengine/internal/pools/cpamm"
	"github.com/arbcore/arbengine/internal/pools/vault4626"
	"github.com/arbcore/arbengine/internal/simulator"
	"github.com/arbcore/arbengine/internal/special"
	"github.com/arbcore/arbengine/internal/types"
)

// topK bounds how many ranked candidates are actually handed to the
// (expensive, real-chain-state) simulator per scan.
const topK = 10

// heartbeatEvery mirrors original_source/main.rs's "detailed heartbeat every
// 50 scans."
const heartbeatEvery = 50

// GasOracle is the subset of internal/gasoracle.Oracle the scanner needs,
// narrowed to an interface so tests can fake a gas price without a live RPC
// endpoint.
type GasOracle interface {
	Current(ctx context.Context) float64
}

// Fetcher is the subset of internal/fetcher.Fetcher the scanner drives.
type Fetcher interface {
	Refresh(ctx context.Context, pools []types.PoolRef, scanCount uint64) (map[uint64]graph.PoolState, error)
}

// Metrics are the prometheus series the scan loop publishes, grounded on the
// teacher's differ.StateDiffer metrics shape (a Registerer-backed struct
// built once, referenced by every scan).
type Metrics struct {
	scanDuration     prometheus.Histogram
	cyclesFound      prometheus.Counter
	candidatesRanked prometheus.Counter
	simulationsRun   prometheus.Counter
	opportunities    prometheus.Counter
	scanFailures     prometheus.Counter
	lastGasGwei      prometheus.Gauge
}

// NewMetrics registers the scan-loop series against reg. Passing a nil
// Registerer is valid (tests, or a deployment that doesn't expose /metrics);
// every metric then becomes a local no-op-backed collector that is simply
// never scraped.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arbengine_scan_duration_seconds",
			Help:    "Wall-clock duration of one full scan.",
			Buckets: prometheus.DefBuckets,
		}),
		cyclesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbengine_cycles_found_total",
			Help: "Cycles enumerated by internal/cycle, across all scans.",
		}),
		candidatesRanked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbengine_candidates_ranked_total",
			Help: "Cycles surviving internal/filter's suspicion screen, across all scans.",
		}),
		simulationsRun: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbengine_simulations_run_total",
			Help: "Candidates actually re-priced by internal/simulator.",
		}),
		opportunities: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbengine_opportunities_total",
			Help: "Simulated candidates that cleared min_profit_usd.",
		}),
		scanFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbengine_scan_failures_total",
			Help: "Transport-class scan failures (see internal/scanner's consecutive-failure policy).",
		}),
		lastGasGwei: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arbengine_last_gas_price_gwei",
			Help: "Gas price reported by the gas oracle on the most recent scan.",
		}),
	}
	for _, c := range []prometheus.Collector{m.scanDuration, m.cyclesFound, m.candidatesRanked, m.simulationsRun, m.opportunities, m.scanFailures, m.lastGasGwei} {
		reg.MustRegister(c)
	}
	return m
}

// Stats accumulates session-lifetime counters, grounded on
// original_source/main.rs's Stats struct.
type Stats struct {
	mu               sync.Mutex
	TotalScans       uint64
	TotalCycles      uint64
	SimulationsRun   uint64
	OpportunitiesFound uint64
	ExecutionsAttempted uint64
	StartedAt        time.Time
	LastGasGwei      float64
	LastGasSource    string
	LastBestGrossUSD float64
	LastBestPath     string
}

func newStats(now time.Time) *Stats {
	return &Stats{StartedAt: now}
}

func (s *Stats) uptime(now time.Time) time.Duration {
	return now.Sub(s.StartedAt)
}

// ScanResult is the compact outcome of one scan, grounded on
// original_source/main.rs's ScanResult.
type ScanResult struct {
	CyclesFound         int
	CandidatesRanked    int
	CandidatesSimulated int
	ProfitableCount     int
	BestGrossProfitUSD  float64
	BestNetProfitUSD    float64
	BestPathSymbols     string
	GasGwei             float64
	GasGated            bool
	Elapsed             time.Duration
	Opportunities       []Opportunity
}

// Opportunity is one simulated candidate that cleared min_profit_usd and was
// handed to internal/execution.
type Opportunity struct {
	Cycle      cycle.Cycle
	Simulation simulator.Result
	Outcome    execution.Outcome
}

// OpportunityRecord is the optional append-only JSONL record spec.md §6
// describes.
type OpportunityRecord struct {
	Timestamp      string   `json:"timestamp"`
	Path           []string `json:"path"`
	Dexes          []string `json:"dexes"`
	GrossProfitUSD float64  `json:"grossProfitUsd"`
	NetProfitUSD   float64  `json:"netProfitUsd"`
	AfterBribeUSD  float64  `json:"afterBribeUsd"`
	GasGwei        float64  `json:"gasGwei"`
	NativePriceUSD float64  `json:"nativeTokenPriceUsd"`
	ReturnMultiplier float64 `json:"returnMultiplier"`
}

// Scanner drives the fixed-cadence scan loop described in the package
// comment. It owns the per-scan graph and candidate list; internal/fetcher
// owns the longer-lived pool caches (see internal/fetcher's package
// comment).
type Scanner struct {
	cfg       *config.Config
	tokens    map[uint64]types.Token
	poolRefs  []types.PoolRef
	baseIdx   []int // dense graph-node seeds, resolved lazily against the built graph

	fetcher  Fetcher
	registry *adapter.Registry
	gasOracle GasOracle
	filter   *filter.Filter
	simulator *simulator.Simulator
	prices   simulator.PriceSource
	engine   *execution.Engine

	logger types.Logger
	metrics *Metrics

	opportunityLogPath string

	special          *special.Detector
	lastSpecialOpps  []special.Opportunity

	scanCount            uint64
	consecutiveFailures  int
	stats                *Stats
}

// Option configures a Scanner at construction time, mirroring the teacher's
// funcOption pattern used throughout chains/ethereum and internal/config.
type Option interface{ apply(*Scanner) }

type funcOption func(*Scanner)

func (f funcOption) apply(s *Scanner) { f(s) }

// WithOpportunityLog enables the optional JSONL opportunity log at path.
func WithOpportunityLog(path string) Option {
	return funcOption(func(s *Scanner) { s.opportunityLogPath = path })
}

// WithMetrics overrides the default no-op-backed metrics with one registered
// against a real prometheus.Registerer.
func WithMetrics(m *Metrics) Option {
	return funcOption(func(s *Scanner) { s.metrics = m })
}

// WithSpecialDetector enables the NAV-deviation/yield-drift side channel
// (internal/special) alongside the main cyclic-arbitrage search. Every scan
// that loads at least one basket or vault pool is also checked against a
// tradable secondary quote (see secondaryQuoteForToken).
func WithSpecialDetector(d *special.Detector) Option {
	return funcOption(func(s *Scanner) { s.special = d })
}

// New builds a Scanner for the given configuration and already-dialed
// collaborators. tokens/poolRefs are typically produced by
// config.Config.BuildTokenIDsByAddress/ToToken/ToPoolRef during startup.
func New(cfg *config.Config, tokens map[uint64]types.Token, poolRefs []types.PoolRef, f Fetcher, gasOracle GasOracle, prices simulator.PriceSource, execEngine *execution.Engine, logger types.Logger, opts ...Option) *Scanner {
	registry := adapter.NewRegistry()

	var baseIdx []int
	for id, t := range tokens {
		if t.IsBase {
			baseIdx = append(baseIdx, int(id))
		}
	}
	sort.Ints(baseIdx)

	s := &Scanner{
		cfg:      cfg,
		tokens:   tokens,
		poolRefs: poolRefs,
		baseIdx:  baseIdx,
		fetcher:  f,
		registry: registry,
		gasOracle: gasOracle,
		filter: filter.New(filter.Config{
			MinProfitUSD:    cfg.MinProfitUSD,
			DefaultInputUSD: cfg.TargetTradeUSD,
			GasPriceGwei:    cfg.GasPriceGweiFallback,
			ETHPriceUSD:     cfg.ETHPriceUSDFallback,
			MaxReasonableReturn: 1.10,
			MaxProfitUSD:        10_000,
			MaxHopCount:         6,
		}),
		simulator: simulator.New(registry, simulator.Config{
			GasPriceGwei: cfg.GasPriceGweiFallback,
			ETHPriceUSD:  cfg.ETHPriceUSDFallback,
			TargetUSD:    cfg.TargetTradeUSD,
		}),
		prices: prices,
		engine: execEngine,
		logger: logger,
		metrics: NewMetrics(nil),
		stats:   newStats(time.Now()),
	}
	for _, opt := range opts {
		opt.apply(s)
	}
	return s
}

// RunScan executes exactly one pass of the state machine documented in the
// package comment and returns its compact summary. Any transport-class
// error bubbles up; state/suspicion-class problems are absorbed per hop/pool
// and simply reduce the candidate set.
func (s *Scanner) RunScan(ctx context.Context, currentBlock uint64) (ScanResult, error) {
	start := time.Now()
	s.scanCount++
	s.stats.mu.Lock()
	s.stats.TotalScans++
	s.stats.mu.Unlock()

	if s.cfg.EmergencyStop {
		return ScanResult{GasGated: false}, nil
	}

	gasGwei := s.gasOracle.Current(ctx)
	s.metrics.lastGasGwei.Set(gasGwei)
	s.stats.mu.Lock()
	s.stats.LastGasGwei = gasGwei
	s.stats.mu.Unlock()

	if gasGwei > s.cfg.MaxGasGwei {
		if s.logger != nil {
			s.logger.Info("scanner: gas-gated skip", "gas_gwei", gasGwei, "max_gas_gwei", s.cfg.MaxGasGwei)
		}
		return ScanResult{GasGwei: gasGwei, GasGated: true, Elapsed: time.Since(start)}, nil
	}

	pools, err := s.fetcher.Refresh(ctx, s.poolRefs, s.scanCount)
	if err != nil {
		return ScanResult{}, fmt.Errorf("scanner: fetch failed: %w", err)
	}

	g := s.buildGraph(pools)

	if s.special != nil {
		s.lastSpecialOpps = s.runSpecialScan(pools)
		if s.logger != nil {
			for _, opp := range s.lastSpecialOpps {
				s.logger.Info("scanner: special-channel opportunity", "kind", opp.Kind.String(), "token_id", opp.TokenID, "deviation_bps", opp.DeviationBPS, "secondary_pool", opp.SecondaryPoolID)
			}
		}
	}

	allCycles := s.findCycles(g)
	s.metrics.cyclesFound.Add(float64(len(allCycles)))
	s.stats.mu.Lock()
	s.stats.TotalCycles += uint64(len(allCycles))
	s.stats.mu.Unlock()

	result := ScanResult{CyclesFound: len(allCycles), GasGwei: gasGwei, Elapsed: time.Since(start)}
	if len(allCycles) == 0 {
		result.Elapsed = time.Since(start)
		return result, nil
	}

	analyses := s.filter.FilterCandidates(allCycles)
	s.metrics.candidatesRanked.Add(float64(len(analyses)))
	result.CandidatesRanked = len(analyses)

	n := len(analyses)
	if n > topK {
		n = topK
	}

	for _, a := range analyses[:n] {
		sim := s.simulator.Simulate(a.Cycle, pools, s.tokens, s.prices)
		s.metrics.simulationsRun.Add(1)
		result.CandidatesSimulated++
		s.stats.mu.Lock()
		s.stats.SimulationsRun++
		s.stats.mu.Unlock()

		if !sim.Success {
			if s.logger != nil {
				s.logger.Debug("scanner: simulation failed", "reason", sim.FailureReason)
			}
			continue
		}

		if sim.GrossProfitUSD > result.BestGrossProfitUSD {
			result.BestGrossProfitUSD = sim.GrossProfitUSD
			result.BestNetProfitUSD = sim.NetProfitUSD
			result.BestPathSymbols = s.pathSymbols(a.Cycle)
		}

		if sim.NetProfitUSD < s.cfg.MinProfitUSD {
			continue
		}

		result.ProfitableCount++
		s.metrics.opportunities.Add(1)
		s.stats.mu.Lock()
		s.stats.OpportunitiesFound++
		s.stats.mu.Unlock()

		outcome, execErr := s.engine.Execute(ctx, a.Cycle, sim, currentBlock)
		if execErr != nil && s.logger != nil {
			s.logger.Error("scanner: execution engine error", "error", execErr)
		}
		opp := Opportunity{Cycle: a.Cycle, Simulation: sim, Outcome: outcome}
		result.Opportunities = append(result.Opportunities, opp)

		if err := s.logOpportunity(opp, gasGwei); err != nil && s.logger != nil {
			s.logger.Warn("scanner: failed to write opportunity log", "error", err)
		}
	}

	s.stats.mu.Lock()
	if result.BestGrossProfitUSD > s.stats.LastBestGrossUSD {
		s.stats.LastBestGrossUSD = result.BestGrossProfitUSD
		s.stats.LastBestPath = result.BestPathSymbols
	}
	s.stats.mu.Unlock()

	result.Elapsed = time.Since(start)
	s.metrics.scanDuration.Observe(result.Elapsed.Seconds())
	return result, nil
}

func (s *Scanner) buildGraph(pools map[uint64]graph.PoolState) *graph.Graph {
	tokenList := make([]types.Token, 0, len(s.tokens))
	for _, t := range s.tokens {
		tokenList = append(tokenList, t)
	}
	sort.Slice(tokenList, func(i, j int) bool { return tokenList[i].ID < tokenList[j].ID })

	poolStates := make([]graph.PoolState, 0, len(pools))
	for _, ps := range pools {
		poolStates = append(poolStates, ps)
	}
	return graph.Build(tokenList, poolStates, s.registry)
}

func (s *Scanner) findCycles(g *graph.Graph) []cycle.Cycle {
	params := cycle.DefaultParams()
	params.MaxHops = s.cfg.MaxHops
	if s.cfg.MinExpectedReturn > 0 {
		params.MinExpectedReturn = s.cfg.MinExpectedReturn
	}

	var startIdx []int
	for _, tokenID := range s.baseIdx {
		if idx, ok := g.TokenIndex(uint64(tokenID)); ok {
			startIdx = append(startIdx, idx)
		}
	}
	return cycle.FindAll(g, startIdx, params)
}

// runSpecialScan evaluates every basket/vault pool loaded this scan against
// a tradable secondary quote of its basket/share token,
// implementing the NAV-deviation and yield-drift side channel internal/special
// describes. It never touches the graph or cycle search the main arbitrage
// path uses.
func (s *Scanner) runSpecialScan(pools map[uint64]graph.PoolState) []special.Opportunity {
	var opps []special.Opportunity
	for _, ps := range pools {
		switch state := ps.State.(type) {
		case basket.Basket:
			secondary, ok := s.secondaryQuoteForToken(state.BasketToken, pools)
			if !ok {
				continue
			}
			if opp, ok := s.special.EvaluateBasket(state, secondary); ok {
				opps = append(opps, opp)
			}
		case vault4626.Pool:
			secondary, ok := s.secondaryQuoteForToken(state.ShareToken, pools)
			if !ok {
				continue
			}
			if opp, ok := s.special.EvaluateVault(state, secondary); ok {
				opps = append(opps, opp)
			}
		}
	}
	return opps
}

// secondaryQuoteForToken finds a two-sided, non-basket/vault pool that trades
// tokenID against some other priced token, probes its current quote the same
// way internal/graph does, and converts it to a USD price plus a coarse
// liquidity estimate. It returns the first qualifying pool it meets while
// ranging over the pool map, so when several qualify, which one is used is
// not fixed and prices are not compared. It returns ok=false if no such pool
// is loaded or the counter-token has no known USD price.
func (s *Scanner) secondaryQuoteForToken(tokenID uint64, pools map[uint64]graph.PoolState) (special.SecondaryQuote, bool) {
	tokenInfo, ok := s.tokens[tokenID]
	if !ok {
		return special.SecondaryQuote{}, false
	}

	for _, ps := range pools {
		if ps.Ref.Family == types.FamilyBasketToken || ps.Ref.Family == types.FamilyERC4626Vault {
			continue
		}
		if len(ps.Ref.Tokens) != 2 {
			continue
		}
		var counterID uint64
		var found bool
		for _, t := range ps.Ref.Tokens {
			if t == tokenID {
				found = true
			} else {
				counterID = t
			}
		}
		if !found {
			continue
		}
		counterInfo, ok := s.tokens[counterID]
		if !ok {
			continue
		}
		counterPrice, ok := s.prices.USDPerWholeToken(counterID)
		if !ok || counterPrice <= 0 {
			continue
		}

		adp, ok := s.registry.Resolve(ps.Ref.Family)
		if !ok {
			continue
		}
		probeAmount := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(tokenInfo.Decimals)), nil)
		probeAmount.Div(probeAmount, big.NewInt(1000))
		if probeAmount.Sign() <= 0 {
			probeAmount = big.NewInt(1)
		}
		out, err := adp.QuoteExactIn(probeAmount, tokenID, counterID, ps.State)
		if err != nil || out == nil || out.Sign() <= 0 {
			continue
		}

		inF := new(big.Float).Quo(new(big.Float).SetInt(probeAmount), pow10(tokenInfo.Decimals))
		outF := new(big.Float).Quo(new(big.Float).SetInt(out), pow10(counterInfo.Decimals))
		priceF := new(big.Float).Quo(outF, inF)
		priceRatio, _ := priceF.Float64()
		if priceRatio <= 0 {
			continue
		}
		priceUSD := priceRatio * counterPrice

		liquidityUSD := 0.0
		if cp, ok := ps.State.(cpamm.Pool); ok {
			var reserveCounter *big.Int
			switch counterID {
			case cp.Token0:
				reserveCounter = cp.Reserve0
			case cp.Token1:
				reserveCounter = cp.Reserve1
			}
			if reserveCounter != nil {
				reserveF := new(big.Float).Quo(new(big.Float).SetInt(reserveCounter), pow10(counterInfo.Decimals))
				half, _ := reserveF.Float64()
				liquidityUSD = 2 * half * counterPrice
			}
		}

		return special.SecondaryQuote{
			TokenID:      tokenID,
			PoolID:       ps.Ref.ID,
			PriceUSD:     priceUSD,
			LiquidityUSD: liquidityUSD,
		}, true
	}
	return special.SecondaryQuote{}, false
}

func pow10(decimals uint8) *big.Float {
	return new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

func (s *Scanner) pathSymbols(c cycle.Cycle) string {
	out := ""
	for i, tokenID := range c.TokenPath {
		if i > 0 {
			out += "->"
		}
		if t, ok := s.tokens[tokenID]; ok && t.Symbol != "" {
			out += t.Symbol
		} else {
			out += fmt.Sprintf("0x%x", tokenID)
		}
	}
	return out
}

func (s *Scanner) logOpportunity(opp Opportunity, gasGwei float64) error {
	if s.opportunityLogPath == "" {
		return nil
	}
	rec := OpportunityRecord{
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		Path:             symbolsOf(s.tokens, opp.Cycle.TokenPath),
		GrossProfitUSD:   opp.Simulation.GrossProfitUSD,
		NetProfitUSD:     opp.Simulation.NetProfitUSD,
		AfterBribeUSD:    opp.Simulation.NetProfitUSD * (1 - s.cfg.MinerBribePct/100.0),
		GasGwei:          gasGwei,
		NativePriceUSD:   s.cfg.ETHPriceUSDFallback,
		ReturnMultiplier: opp.Simulation.ReturnMultiplier,
	}
	for _, fam := range opp.Cycle.FamilyPath {
		rec.Dexes = append(rec.Dexes, fam.String())
	}

	f, err := os.OpenFile(s.opportunityLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("scanner: opening opportunity log: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	return enc.Encode(rec)
}

func symbolsOf(tokens map[uint64]types.Token, path []uint64) []string {
	out := make([]string, len(path))
	for i, id := range path {
		if t, ok := tokens[id]; ok {
			out[i] = t.Symbol
		}
	}
	return out
}

// Summary renders the compact per-scan log line plus, every heartbeatEvery
// scans, a fuller heartbeat block — both grounded on
// original_source/main.rs's print_scan_summary/print_heartbeat.
func (s *Scanner) Summary(r ScanResult) string {
	switch {
	case r.GasGated:
		return fmt.Sprintf("#%d gas-gated skip (gas %.2f gwei > max %.2f)", s.scanCount, r.GasGwei, s.cfg.MaxGasGwei)
	case r.ProfitableCount > 0:
		return fmt.Sprintf("#%d gas=%.3fgwei cycles=%d sims=%d PROFITABLE=%d best=%s net=$%.2f (%.1fs)",
			s.scanCount, r.GasGwei, r.CyclesFound, r.CandidatesSimulated, r.ProfitableCount, r.BestPathSymbols, r.BestNetProfitUSD, r.Elapsed.Seconds())
	case r.CandidatesSimulated > 0:
		return fmt.Sprintf("#%d gas=%.3fgwei cycles=%d sims=%d best=%s net=$%.2f (%.1fs)",
			s.scanCount, r.GasGwei, r.CyclesFound, r.CandidatesSimulated, r.BestPathSymbols, r.BestNetProfitUSD, r.Elapsed.Seconds())
	default:
		return fmt.Sprintf("#%d gas=%.3fgwei cycles=%d no candidates (%.1fs)", s.scanCount, r.GasGwei, r.CyclesFound, r.Elapsed.Seconds())
	}
}

// Heartbeat renders the periodic fuller status block, due every
// heartbeatEvery scans.
func (s *Scanner) Heartbeat() string {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()
	uptime := s.stats.uptime(time.Now())
	return fmt.Sprintf("uptime=%.1fh scans=%d cycles=%d sims=%d opportunities=%d gas=%.2fgwei best-seen=%s ($%.2f)",
		uptime.Hours(), s.stats.TotalScans, s.stats.TotalCycles, s.stats.SimulationsRun, s.stats.OpportunitiesFound,
		s.stats.LastGasGwei, s.stats.LastBestPath, s.stats.LastBestGrossUSD)
}

// DueForHeartbeat reports whether the scan count just completed a multiple
// of heartbeatEvery.
func (s *Scanner) DueForHeartbeat() bool {
	return s.scanCount > 0 && s.scanCount%heartbeatEvery == 0
}

// Loop runs RunScan on a fixed cadence until ctx is cancelled, implementing
// the consecutive-failure backoff policy from spec.md §7 /
// original_source/main.rs's loop: a transport-class failure increments a
// counter; crossing MaxConsecutiveFailures pauses FailurePauseSecs before
// resuming the normal cadence.
func (s *Scanner) Loop(ctx context.Context, currentBlock func() uint64) {
	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result, err := s.RunScan(ctx, currentBlock())
		if err != nil {
			s.consecutiveFailures++
			s.metrics.scanFailures.Add(1)
			if s.logger != nil {
				s.logger.Error("scanner: scan failed", "error", err, "consecutive_failures", s.consecutiveFailures)
			}
			if s.consecutiveFailures >= s.cfg.MaxConsecutiveFailures {
				if s.logger != nil {
					s.logger.Warn("scanner: too many consecutive failures, backing off", "pause_secs", s.cfg.FailurePauseSecs)
				}
				select {
				case <-time.After(time.Duration(s.cfg.FailurePauseSecs) * time.Second):
				case <-ctx.Done():
					return
				}
				s.consecutiveFailures = 0
			}
		} else {
			s.consecutiveFailures = 0
			if s.logger != nil {
				s.logger.Info(s.Summary(result))
			}
			if s.DueForHeartbeat() {
				if s.logger != nil {
					s.logger.Info(s.Heartbeat())
				}
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

var _ GasOracle = (*gasoracle.Oracle)(nil)
var _ Fetcher = (*fetcher.Fetcher)(nil)
