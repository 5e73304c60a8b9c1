// Package filter applies the profit/sanity screen to enumerated cycles
// before they reach the (expensive) swap simulator. Grounded directly on
// original_source/src/brain/filter.rs: per-family gas unit estimates, a
// fixed ETH/gas price assumption taken from Config (internal/scanner passes
// the configured fallback prices), and a set
// of "this smells wrong" suspicion checks that exist because a log-price
// cycle search can surface false positives from stale or mispriced pools.
package filter

import (
	"fmt"
	"math"

	"github.com/arbcore/arbengine/internal/cycle"
	"github.com/arbcore/arbengine/internal/types"
)

// gas unit estimates per pool family, carried over from filter.rs's
// per-dex constants (a flash-loan-funded cycle also pays a fixed envelope
// for the loan itself, see envelopeGasUnits below).
const (
	gasPerSwapConstantProduct = 100_000
	gasPerSwapConcentrated    = 150_000
	gasPerSwapWeighted        = 120_000
	gasPerSwapStableSwap      = 200_000
	gasPerSwapERC4626Vault    = 130_000
	envelopeGasUnits          = 50_000

	defaultMaxReasonableReturn = 1.10   // >10% gross return in one cycle is suspicious, not real
	defaultMaxProfitUSD        = 10_000 // a single-cycle profit above this is suspicious, not real
	defaultMaxHopCount         = 6
)

// Config carries the external inputs the filter needs in order to convert a
// Cycle's abstract ExpectedReturn into a dollar profit estimate.
type Config struct {
	MinProfitUSD        float64
	GasPriceGwei        float64
	ETHPriceUSD         float64
	DefaultInputUSD     float64
	MaxReasonableReturn float64
	MaxProfitUSD        float64
	MaxHopCount         int
}

// DefaultConfig mirrors filter.rs's ProfitFilter::new defaults.
func DefaultConfig() Config {
	return Config{
		MinProfitUSD:        10,
		GasPriceGwei:        0.5,
		ETHPriceUSD:         3000,
		DefaultInputUSD:     10_000,
		MaxReasonableReturn: defaultMaxReasonableReturn,
		MaxProfitUSD:        defaultMaxProfitUSD,
		MaxHopCount:         defaultMaxHopCount,
	}
}

// Analysis is the per-cycle verdict: is it even worth handing to the
// simulator, and if the simulator already ran, is the result too good to be
// true.
type Analysis struct {
	Cycle           cycle.Cycle
	InputUSD        float64
	GrossProfitUSD  float64
	GasCostUSD      float64
	NetProfitUSD    float64
	IsCandidate     bool
	IsSuspicious    bool
	SuspicionReason string
}

// Filter holds the runtime-tunable gas/price assumptions used to turn a
// Cycle's log-price-derived ExpectedReturn into an actionable USD estimate.
type Filter struct {
	cfg Config
}

func New(cfg Config) *Filter {
	return &Filter{cfg: cfg}
}

// calculateGasCost sums per-family gas units for every hop plus a fixed
// flash-loan envelope, then converts to USD via the current gas price and
// ETH price.
func (f *Filter) calculateGasCost(c cycle.Cycle) float64 {
	totalUnits := int64(envelopeGasUnits)
	for _, fam := range c.FamilyPath {
		totalUnits += gasUnitsFor(fam)
	}
	gasCostWei := float64(totalUnits) * f.cfg.GasPriceGwei * 1e9
	gasCostETH := gasCostWei / 1e18
	return gasCostETH * f.cfg.ETHPriceUSD
}

func gasUnitsFor(f types.Family) int64 {
	switch f {
	case types.FamilyConcentrated:
		return gasPerSwapConcentrated
	case types.FamilyWeighted:
		return gasPerSwapWeighted
	case types.FamilyStableSwap, types.FamilyStableSwapNG:
		return gasPerSwapStableSwap
	case types.FamilyERC4626Vault:
		return gasPerSwapERC4626Vault
	default:
		return gasPerSwapConstantProduct
	}
}

// Analyze converts a cycle's compounded price return into a dollar
// estimate and screens it for implausibility.
func (f *Filter) Analyze(c cycle.Cycle) Analysis {
	inputUSD := f.cfg.DefaultInputUSD
	grossProfitUSD := inputUSD * (c.ExpectedReturn - 1)
	gasCostUSD := f.calculateGasCost(c)
	netProfitUSD := grossProfitUSD - gasCostUSD

	a := Analysis{
		Cycle:          c,
		InputUSD:       inputUSD,
		GrossProfitUSD: grossProfitUSD,
		GasCostUSD:     gasCostUSD,
		NetProfitUSD:   netProfitUSD,
	}
	a.IsSuspicious, a.SuspicionReason = f.checkSuspicious(c, grossProfitUSD)
	a.IsCandidate = !a.IsSuspicious && netProfitUSD >= f.cfg.MinProfitUSD
	return a
}

// checkSuspicious flags cycles whose numbers are too good, too broken, or
// too long a hop-chain to trust without deeper (and costlier) verification.
func (f *Filter) checkSuspicious(c cycle.Cycle, grossProfitUSD float64) (bool, string) {
	if c.ExpectedReturn > f.cfg.MaxReasonableReturn {
		return true, fmt.Sprintf("expected return %.4f exceeds max reasonable return %.4f", c.ExpectedReturn, f.cfg.MaxReasonableReturn)
	}
	if grossProfitUSD > f.cfg.MaxProfitUSD {
		return true, fmt.Sprintf("gross profit $%.2f exceeds max plausible profit $%.2f", grossProfitUSD, f.cfg.MaxProfitUSD)
	}
	if math.IsNaN(c.ExpectedReturn) || math.IsInf(c.ExpectedReturn, 0) || c.ExpectedReturn <= 0 {
		return true, "non-finite or non-positive expected return"
	}
	if !c.IsValid() {
		return true, "cycle failed structural validation"
	}
	if len(c.PoolPath) > f.cfg.MaxHopCount {
		return true, fmt.Sprintf("hop count %d exceeds max %d", len(c.PoolPath), f.cfg.MaxHopCount)
	}
	return false, ""
}

// FilterCandidates analyzes every cycle and returns the ones that clear
// IsCandidate (not suspicious, net profit at least MinProfitUSD), sorted by
// descending net profit.
func (f *Filter) FilterCandidates(cycles []cycle.Cycle) []Analysis {
	analyses := make([]Analysis, 0, len(cycles))
	for _, c := range cycles {
		a := f.Analyze(c)
		if !a.IsCandidate {
			continue
		}
		analyses = append(analyses, a)
	}
	sortByNetProfitDesc(analyses)
	return analyses
}

func sortByNetProfitDesc(a []Analysis) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j].NetProfitUSD > a[j-1].NetProfitUSD; j-- {
			a[j], a[j-1] = a[j-1], a[j]
		}
	}
}
