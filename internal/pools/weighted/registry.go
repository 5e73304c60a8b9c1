// Package weighted implements Balancer-style weighted-pool AMMs: N tokens
// with arbitrary normalized weights (summing to 1) priced by the generalized
// constant-mean invariant prod(balance_i ^ weight_i) = k.
package weighted

import "math/big"

// Asset is one token's balance and weight within a weighted pool.
type Asset struct {
	TokenID uint64   `json:"tokenId"`
	Balance *big.Int `json:"balance"`
	// WeightPPM is the token's normalized weight in parts-per-million; the
	// Assets of a Pool must sum to 1_000_000.
	WeightPPM uint32 `json:"weightPpm"`
}

// Pool is the mutable state of a weighted pool.
type Pool struct {
	ID       uint64  `json:"id"`
	Assets   []Asset `json:"assets"`
	SwapFeePPM uint32 `json:"swapFeePpm"`
}

func (p Pool) assetByToken(tokenID uint64) (Asset, int, bool) {
	for i, a := range p.Assets {
		if a.TokenID == tokenID {
			return a, i, true
		}
	}
	return Asset{}, -1, false
}

func (p Pool) Tokens() []uint64 {
	ids := make([]uint64, len(p.Assets))
	for i, a := range p.Assets {
		ids[i] = a.TokenID
	}
	return ids
}
