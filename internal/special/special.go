// Package special surfaces opportunities that cannot be expressed as a
// sequence of atomic pair swaps and therefore never enter internal/graph:
// NAV-deviation arbitrage on basket/index tokens (Curve LP shares, Sky
// Savings-style reserve tokens) and share-price drift on ERC-4626 yield
// vaults. Grounded on original_source/src/cartographer/curve_lp/market_discovery.rs
// (NAV-vs-secondary-market discount/premium banding) and
// cartographer/sky_ecosystem.rs / usd3_reserve.rs (yield-vault drift),
// reimplemented from their doc-comment-level description since their bodies
// were truncated in the retrieval pack. Per spec.md §9, only opportunities
// reducible to atomic pair swaps enter the main graph — everything here is a
// one-way signal for a human or a separate LP-aware executor, never an edge.
package special

import (
	"github.com/arbcore/arbengine/internal/pools/basket"
	"github.com/arbcore/arbengine/internal/pools/vault4626"
)

// Kind tags which detector produced an Opportunity.
type Kind int

const (
	KindNAVDeviation Kind = iota
	KindVaultYieldDrift
)

func (k Kind) String() string {
	if k == KindVaultYieldDrift {
		return "vault-yield-drift"
	}
	return "nav-deviation"
}

// Opportunity is one side-channel signal: a basket or vault token whose fair
// value (NAV or share price) diverges from where it is quoted on a
// secondary market, beyond a configured band.
type Opportunity struct {
	Kind            Kind
	TokenID         uint64 // the basket or vault share token
	FairValueUSD    float64
	SecondaryUSD    float64
	DeviationBPS    float64 // (secondary - fair) / fair * 1e4; negative means secondary trades at a discount to fair value
	SecondaryPoolID uint64
}

// Config bounds the NAV/drift side channel, grounded on
// market_discovery.rs's MIN_NAV_DISCOUNT_BPS / MAX_NAV_PREMIUM_BPS constants
// and a minimum secondary-market liquidity floor so a thinly-traded pool
// doesn't produce noise.
type Config struct {
	MinDiscountBPS       float64 // a discount (secondary below fair) at least this large is reportable
	MaxPremiumBPS        float64 // a premium (secondary above fair) at least this large is reportable
	MinSecondaryLiquidityUSD float64
	MaxTradePctOfLiquidity   float64 // cap on how much of secondary liquidity a detected trade may consume, 0..1
}

// DefaultConfig mirrors the original's documented thresholds: a 30bps
// discount or a 50bps premium is worth flagging, and the secondary pool must
// carry at least $50k of liquidity before its quote is trusted.
func DefaultConfig() Config {
	return Config{
		MinDiscountBPS:           30,
		MaxPremiumBPS:            50,
		MinSecondaryLiquidityUSD: 50_000,
		MaxTradePctOfLiquidity:   0.05,
	}
}

// Detector evaluates basket and vault tokens against their secondary-market
// quotes every scan. It is owned by internal/scanner and never touches
// internal/graph or internal/cycle.
type Detector struct {
	cfg Config
}

func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// SecondaryQuote is a secondary-market (Uniswap-family) observation of a
// basket/vault share token's price and the liquidity backing that quote.
type SecondaryQuote struct {
	TokenID       uint64
	PoolID        uint64
	PriceUSD      float64
	LiquidityUSD  float64
}

// EvaluateBasket compares a basket's NAV-per-share to a secondary-market
// quote and emits an Opportunity if the deviation clears the configured
// band and the secondary pool has enough liquidity to trust.
func (d *Detector) EvaluateBasket(b basket.Basket, secondary SecondaryQuote) (Opportunity, bool) {
	if secondary.LiquidityUSD < d.cfg.MinSecondaryLiquidityUSD {
		return Opportunity{}, false
	}
	navF, err := basket.NAVPerShareUSD(b)
	if err != nil {
		return Opportunity{}, false
	}
	nav, _ := navF.Float64()
	if nav <= 0 {
		return Opportunity{}, false
	}
	return d.evaluate(KindNAVDeviation, secondary, nav)
}

// EvaluateVault compares an ERC-4626 vault's totalAssets/totalSupply share
// price to a secondary-market quote of its share token.
func (d *Detector) EvaluateVault(v vault4626.Pool, secondary SecondaryQuote) (Opportunity, bool) {
	if secondary.LiquidityUSD < d.cfg.MinSecondaryLiquidityUSD {
		return Opportunity{}, false
	}
	shareF := vault4626.SharePrice(v)
	share, _ := shareF.Float64()
	if share <= 0 {
		return Opportunity{}, false
	}
	return d.evaluate(KindVaultYieldDrift, secondary, share)
}

func (d *Detector) evaluate(kind Kind, secondary SecondaryQuote, fairValue float64) (Opportunity, bool) {
	deviationBPS := (secondary.PriceUSD - fairValue) / fairValue * 10_000
	discount := deviationBPS < 0 && -deviationBPS >= d.cfg.MinDiscountBPS
	premium := deviationBPS > 0 && deviationBPS >= d.cfg.MaxPremiumBPS
	if !discount && !premium {
		return Opportunity{}, false
	}
	return Opportunity{
		Kind:            kind,
		TokenID:         secondary.TokenID,
		FairValueUSD:    fairValue,
		SecondaryUSD:    secondary.PriceUSD,
		DeviationBPS:    deviationBPS,
		SecondaryPoolID: secondary.PoolID,
	}, true
}

// MaxTradeAmountUSD bounds how large a redemption/mint trade against an
// Opportunity's secondary pool the engine should consider pursuing, so a
// detector signal never implies draining a thin pool.
func (d *Detector) MaxTradeAmountUSD(secondary SecondaryQuote) float64 {
	return secondary.LiquidityUSD * d.cfg.MaxTradePctOfLiquidity
}
