// Package config loads the engine's YAML runtime configuration and exposes
// functional options for programmatic overrides, grounded on the teacher's
// own conventions: cmd/client/main.go's flag-driven config path plus
// go.yaml.in/yaml/v2 for the file format, and chains/ethereum/client.go's
// funcOption pattern for overriding fields after load (used by tests;
// cmd/arbengine calls Load with no options).
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	yaml "go.yaml.in/yaml/v2"

	"github.com/arbcore/arbengine/internal/execution"
	"github.com/arbcore/arbengine/internal/types"
)

// TokenConfig seeds the token universe the engine trades across.
type TokenConfig struct {
	Address              string  `yaml:"address"`
	Symbol               string  `yaml:"symbol"`
	Decimals             uint8   `yaml:"decimals"`
	IsBase               bool    `yaml:"isBase"`
	FeeOnTransferPercent float64 `yaml:"feeOnTransferPercent"`
	GasForTransfer       uint64  `yaml:"gasForTransfer"`
	USDPrice             float64 `yaml:"usdPrice"` // coarse static price, used by internal/simulator's PriceSource
}

// PoolConfig seeds one pool the fetcher should track.
type PoolConfig struct {
	Address string   `yaml:"address"`
	Family  string   `yaml:"family"` // one of: constant-product, concentrated, weighted, stableswap, stableswap-ng, erc4626-vault, basket-token
	Tokens  []string `yaml:"tokens"` // token addresses, venue-defined order
	FeePPM  uint32   `yaml:"feePpm"`
}

// Config is the engine's full runtime configuration.
type Config struct {
	ChainID      int64         `yaml:"chainId"`
	RPCURL       string        `yaml:"rpcUrl"`
	GasOracleURL string        `yaml:"gasOracleUrl"` // optional REST gas-price source; empty disables it
	MetricsAddr  string        `yaml:"metricsAddr"`
	LogLevel     string        `yaml:"logLevel"`

	ScanInterval time.Duration `yaml:"scanInterval"`
	MaxHops              int     `yaml:"maxHops"`
	MinExpectedReturn    float64 `yaml:"minExpectedReturn"`
	MinProfitUSD         float64 `yaml:"minProfitUsd"`
	TargetTradeUSD       float64 `yaml:"targetTradeUsd"`
	GasPriceGweiFallback float64 `yaml:"gasPriceGweiFallback"`
	ETHPriceUSDFallback  float64 `yaml:"ethPriceUsdFallback"`
	MaxConsecutiveFailures int   `yaml:"maxConsecutiveFailures"`
	FailurePauseSecs       int   `yaml:"failurePauseSecs"`

	// MaxGasGwei short-circuits a scan before any pool refresh or
	// simulation work if the current gas price clears this ceiling (spec.md
	// §6's max_gas_gwei / §4.6's state machine gas-gate).
	MaxGasGwei float64 `yaml:"maxGasGwei"`
	// ExecutionMode selects how far internal/execution.Engine is allowed to
	// go: "simulation", "dry-run", or "production".
	ExecutionMode string `yaml:"executionMode"`
	// MinerBribePct is the proportion (0..100) of net profit ceded to the
	// block builder; the engine itself does not construct the bribe
	// transfer (that is the execution engine's job), it only reports the
	// after-bribe figure in the JSONL opportunity log records.
	MinerBribePct float64 `yaml:"minerBribePct"`
	// EmergencyStop pauses the scan loop without scanning when true.
	EmergencyStop bool `yaml:"emergencyStop"`

	Multicall3Address string `yaml:"multicall3Address"`

	Tokens []TokenConfig `yaml:"tokens"`
	Pools  []PoolConfig  `yaml:"pools"`
}

func (c *Config) validate() error {
	if c.RPCURL == "" {
		return errors.New("config: rpcUrl is required")
	}
	if c.ChainID == 0 {
		return errors.New("config: chainId is required")
	}
	if len(c.Tokens) == 0 {
		return errors.New("config: at least one token must be configured")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.ScanInterval <= 0 {
		c.ScanInterval = 12 * time.Second
	}
	if c.MaxHops <= 0 {
		c.MaxHops = 5
	}
	if c.MinExpectedReturn <= 0 {
		c.MinExpectedReturn = 0.95
	}
	if c.MinProfitUSD <= 0 {
		c.MinProfitUSD = 10
	}
	if c.TargetTradeUSD <= 0 {
		c.TargetTradeUSD = 10_000
	}
	if c.GasPriceGweiFallback <= 0 {
		c.GasPriceGweiFallback = 0.5
	}
	if c.ETHPriceUSDFallback <= 0 {
		c.ETHPriceUSDFallback = 3000
	}
	if c.MaxConsecutiveFailures <= 0 {
		c.MaxConsecutiveFailures = 5
	}
	if c.FailurePauseSecs <= 0 {
		c.FailurePauseSecs = 30
	}
	if c.MaxGasGwei <= 0 {
		c.MaxGasGwei = 150
	}
	if c.ExecutionMode == "" {
		c.ExecutionMode = "simulation"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// ExecutionModeValue parses ExecutionMode into an execution.Mode.
func (c *Config) ExecutionModeValue() (execution.Mode, error) {
	switch c.ExecutionMode {
	case "simulation":
		return execution.ModeSimulation, nil
	case "dry-run":
		return execution.ModeDryRun, nil
	case "production":
		return execution.ModeProduction, nil
	default:
		return execution.ModeSimulation, fmt.Errorf("config: unknown executionMode %q", c.ExecutionMode)
	}
}

// BaseTokenIDs returns the dense registry IDs of every token flagged
// IsBase, the seeds spec.md §6's base_token_addresses names for cycle
// search.
func (c *Config) BaseTokenIDs() []uint64 {
	var out []uint64
	for i, t := range c.Tokens {
		if t.IsBase {
			out = append(out, uint64(i))
		}
	}
	return out
}

// Option overrides a Config field after it has been loaded from YAML,
// mirroring the teacher's funcOption pattern in chains/ethereum/client.go.
type Option interface {
	apply(*Config)
}

type funcOption func(*Config)

func (f funcOption) apply(c *Config) { f(c) }

func WithRPCURL(url string) Option {
	return funcOption(func(c *Config) { c.RPCURL = url })
}

func WithScanInterval(d time.Duration) Option {
	return funcOption(func(c *Config) { c.ScanInterval = d })
}

func WithMinProfitUSD(usd float64) Option {
	return funcOption(func(c *Config) { c.MinProfitUSD = usd })
}

func WithMetricsAddr(addr string) Option {
	return funcOption(func(c *Config) { c.MetricsAddr = addr })
}

// Load reads and parses a YAML config file from path, applies defaults, and
// validates the result.
func Load(path string, opts ...Option) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	for _, opt := range opts {
		opt.apply(&cfg)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FamilyValue parses the pool's YAML family string into a types.Family.
func (p PoolConfig) FamilyValue() (types.Family, error) {
	switch p.Family {
	case "constant-product":
		return types.FamilyConstantProduct, nil
	case "concentrated":
		return types.FamilyConcentrated, nil
	case "weighted":
		return types.FamilyWeighted, nil
	case "stableswap":
		return types.FamilyStableSwap, nil
	case "stableswap-ng":
		return types.FamilyStableSwapNG, nil
	case "erc4626-vault":
		return types.FamilyERC4626Vault, nil
	case "basket-token":
		return types.FamilyBasketToken, nil
	default:
		return types.FamilyUnknown, fmt.Errorf("config: unknown pool family %q", p.Family)
	}
}

// ChainIDBig returns the configured chain ID as a *big.Int, for passing to
// go-ethereum APIs that expect one.
func (c *Config) ChainIDBig() *big.Int {
	return big.NewInt(c.ChainID)
}

// ToPoolRef converts a parsed PoolConfig into the engine's canonical
// internal/types.PoolRef, assigning it the given dense registry ID and
// resolving its token addresses against the already-built address-to-ID
// table (see BuildTokenIDsByAddress).
func (p PoolConfig) ToPoolRef(id uint64, tokenIDsByAddress map[common.Address]uint64) (types.PoolRef, error) {
	family, err := p.FamilyValue()
	if err != nil {
		return types.PoolRef{}, err
	}
	tokens := make([]uint64, len(p.Tokens))
	for i, addr := range p.Tokens {
		tokenID, ok := tokenIDsByAddress[common.HexToAddress(addr)]
		if !ok {
			return types.PoolRef{}, fmt.Errorf("config: pool %s references unconfigured token %s", p.Address, addr)
		}
		tokens[i] = tokenID
	}
	return types.PoolRef{
		ID:      id,
		Address: common.HexToAddress(p.Address),
		Tokens:  tokens,
		Family:  family,
		FeePPM:  p.FeePPM,
	}, nil
}

// BuildTokenIDsByAddress assigns each configured token a dense ID (its index
// in Tokens) and returns the address-to-ID lookup ToPoolRef needs.
func (c *Config) BuildTokenIDsByAddress() map[common.Address]uint64 {
	out := make(map[common.Address]uint64, len(c.Tokens))
	for i, t := range c.Tokens {
		out[common.HexToAddress(t.Address)] = uint64(i)
	}
	return out
}

// ToToken converts a parsed TokenConfig into the engine's canonical
// internal/types.Token, assigning it the given dense registry ID.
func (t TokenConfig) ToToken(id uint64) types.Token {
	return types.Token{
		ID:                   id,
		Address:              common.HexToAddress(t.Address),
		Symbol:               t.Symbol,
		Decimals:             t.Decimals,
		IsBase:               t.IsBase,
		FeeOnTransferPercent: t.FeeOnTransferPercent,
		GasForTransfer:       t.GasForTransfer,
	}
}
