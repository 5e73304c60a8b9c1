// Package clmm implements the concentrated-liquidity AMM family (Uniswap V3
// and its forks): tick-indexed liquidity with Q64.96 fixed-point pricing.
//
// The tick/sqrt-price/swap-step math in the liquiditymath, sqrtpricemath,
// swapmath and tickmath subpackages is the protocol's own published
// fixed-point specification, not domain logic, so it is carried over from
// the teacher's Uniswap V3 port. tickbitmap is adapted: it searches a sorted
// slice of the initialized ticks the fetcher loads rather than on-chain
// bitmap words. The pool/registry/calculator layer that consumes all of it
// is specific to this engine.
package clmm

import (
	"math/big"

	"github.com/arbcore/arbengine/internal/pools/clmm/tickbitmap"
)

// TickInfo is the liquidity delta recorded at a single initialized tick.
// Defined in internal/pools/clmm/tickbitmap (which the bitmap search and
// this registry both need) and aliased here so callers can keep writing
// clmm.TickInfo.
type TickInfo = tickbitmap.TickInfo

// Pool is the mutable state of a concentrated-liquidity pool: its current
// price/tick/active-liquidity plus every initialized tick within the window
// the fetcher has chosen to load (see internal/fetcher's discovery policy).
type Pool struct {
	ID           uint64     `json:"id"`
	Token0       uint64     `json:"token0"`
	Token1       uint64     `json:"token1"`
	FeePPM       uint32     `json:"feePpm"`
	TickSpacing  int64      `json:"tickSpacing"`
	Tick         int64      `json:"tick"`
	Liquidity    *big.Int   `json:"liquidity"`
	SqrtPriceX96 *big.Int   `json:"sqrtPriceX96"`
	Ticks        []TickInfo `json:"ticks"`
}

func (p Pool) Tokens() (uint64, uint64) { return p.Token0, p.Token1 }
