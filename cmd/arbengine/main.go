// Command arbengine runs the on-chain arbitrage scan loop: load the YAML
// runtime configuration, dial the RPC endpoint, and drive internal/scanner
// on a fixed cadence until an interrupt or termination signal arrives.
// Grounded on cmd/client/main.go's shape (slog JSON handler, a
// prometheus.DefaultRegisterer, signal.NotifyContext, a flag-driven config
// path) generalized from a single-chain streaming client to the scan loop's
// request/response RPC model.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arbcore/arbengine/internal/config"
	"github.com/arbcore/arbengine/internal/execution"
	"github.com/arbcore/arbengine/internal/fetcher"
	"github.com/arbcore/arbengine/internal/gasoracle"
	"github.com/arbcore/arbengine/internal/rpcclient"
	"github.com/arbcore/arbengine/internal/scanner"
	"github.com/arbcore/arbengine/internal/simulator"
	"github.com/arbcore/arbengine/internal/special"
	"github.com/arbcore/arbengine/internal/types"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file.")
	opportunityLog := flag.String("opportunity-log", "", "Optional path to an append-only JSONL opportunity log.")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.DefaultRegisterer

	rpcCfg := rpcclient.Config{
		URL:    cfg.RPCURL,
		Logger: logger.With("component", "rpcclient"),
	}
	if cfg.Multicall3Address != "" {
		rpcCfg.Multicall3Addr = common.HexToAddress(cfg.Multicall3Address)
	}
	rpc, err := rpcclient.Dial(ctx, rpcCfg)
	if err != nil {
		logger.Error("failed to dial RPC endpoint", "error", err, "url", cfg.RPCURL)
		os.Exit(1)
	}

	mode, err := cfg.ExecutionModeValue()
	if err != nil {
		logger.Error("invalid executionMode", "error", err)
		os.Exit(1)
	}

	tokensByID := make(map[uint64]types.Token, len(cfg.Tokens))
	for i, t := range cfg.Tokens {
		tokensByID[uint64(i)] = t.ToToken(uint64(i))
	}

	tokenIDsByAddress := cfg.BuildTokenIDsByAddress()
	poolRefs := make([]types.PoolRef, 0, len(cfg.Pools))
	for i, p := range cfg.Pools {
		ref, err := p.ToPoolRef(uint64(i), tokenIDsByAddress)
		if err != nil {
			logger.Error("failed to build pool reference from configuration", "error", err, "pool", p.Address)
			os.Exit(1)
		}
		poolRefs = append(poolRefs, ref)
	}

	prices := make(simulator.StaticPriceTable, len(cfg.Tokens))
	for i, t := range cfg.Tokens {
		prices[uint64(i)] = t.USDPrice
	}

	gasOracle := gasoracle.New(cfg.GasOracleURL, rpc, cfg.GasPriceGweiFallback, logger.With("component", "gasoracle"))

	engine := &execution.Engine{
		Mode:          mode,
		EmergencyStop: cfg.EmergencyStop,
		MinProfitUSD:  cfg.MinProfitUSD,
		Logger:        logger.With("component", "execution"),
	}

	f := fetcher.New(rpc, logger.With("component", "fetcher"))

	metrics := scanner.NewMetrics(registry)
	opts := []scanner.Option{
		scanner.WithMetrics(metrics),
		scanner.WithSpecialDetector(special.New(special.DefaultConfig())),
	}
	if *opportunityLog != "" {
		opts = append(opts, scanner.WithOpportunityLog(*opportunityLog))
	}

	s := scanner.New(cfg, tokensByID, poolRefs, f, gasOracle, prices, engine, logger.With("component", "scanner"), opts...)

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	logger.Info("arbengine starting", "chain_id", cfg.ChainID, "tokens", len(cfg.Tokens), "pools", len(cfg.Pools), "execution_mode", cfg.ExecutionMode)
	s.Loop(ctx, func() uint64 { return latestBlock(ctx, rpc, logger) })
	logger.Info("arbengine stopped")
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}

func latestBlock(ctx context.Context, rpc *rpcclient.Client, logger *slog.Logger) uint64 {
	header, err := rpc.HeaderByNumber(ctx, nil)
	if err != nil {
		logger.Warn("failed to fetch latest header, assuming block 0", "error", err)
		return 0
	}
	return header.Number.Uint64()
}
