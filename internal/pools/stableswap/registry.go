// Package stableswap implements the Curve-style StableSwap invariant used by
// pools of tokens expected to trade near parity (stablecoins, liquid-staking
// derivatives). Pool also models the "NG" variant via RatePPM per-asset rate
// oracles (wrapped/rebasing tokens priced relative to their underlying).
package stableswap

import "math/big"

// Asset is one token's pool balance, expressed in the pool's internal
// 18-decimal accounting precision, and its external rate (RatePPM == 1e6
// means 1:1 with the accounting unit; used by the NG variant for
// rate-oracle-adjusted assets such as wrapped/rebasing tokens).
type Asset struct {
	TokenID uint64   `json:"tokenId"`
	Balance *big.Int `json:"balance"`
	RatePPM uint64   `json:"ratePpm"`
}

// Pool is the mutable state of a StableSwap pool.
type Pool struct {
	ID         uint64  `json:"id"`
	Assets     []Asset `json:"assets"`
	AmplificationFactor uint64 `json:"amplificationFactor"` // "A"
	SwapFeePPM uint32  `json:"swapFeePpm"`
	// NG marks the StableSwapNG variant, which applies per-asset RatePPM
	// oracles before running the same invariant math.
	NG bool `json:"ng"`
	// OffpegFeeMultiplierPPM is NG's offpeg_fee_multiplier, ppm-scaled like
	// SwapFeePPM (1_000_000 == 1x). Values at or below 1_000_000 leave the
	// fee flat; above that, GetAmountOut widens the effective fee as the two
	// rate-adjusted balances on either side of the trade diverge. Unused by
	// plain StableSwap pools.
	OffpegFeeMultiplierPPM uint64 `json:"offpegFeeMultiplierPpm"`
}

func (p Pool) indexOf(tokenID uint64) (int, bool) {
	for i, a := range p.Assets {
		if a.TokenID == tokenID {
			return i, true
		}
	}
	return 0, false
}

func (p Pool) Tokens() []uint64 {
	ids := make([]uint64, len(p.Assets))
	for i, a := range p.Assets {
		ids[i] = a.TokenID
	}
	return ids
}
