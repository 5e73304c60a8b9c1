// Package adapter provides the uniform quoting surface internal/graph and
// internal/simulator use to treat all six tradable pool families
// identically. It mirrors the teacher's chains.ProtocolResolver: a
// family-keyed dispatch table resolved once per scan, not re-resolved per
// quote.
package adapter

import (
	"fmt"
	"math/big"

	"github.com/arbcore/arbengine/internal/pools/cpamm"
	"github.com/arbcore/arbengine/internal/pools/clmm"
	"github.com/arbcore/arbengine/internal/pools/stableswap"
	"github.com/arbcore/arbengine/internal/pools/vault4626"
	"github.com/arbcore/arbengine/internal/pools/weighted"
	"github.com/arbcore/arbengine/internal/types"
)

// QuoteExactInFunc computes the output amount of an exact-input swap
// against a specific pool's current state. The pool state is passed as
// `any` and type-asserted internally to the concrete family's Pool type;
// callers get the concrete type back from the registry that built the
// dispatch table, so this is always a same-package round trip, never a
// blind assertion from untyped data.
type QuoteExactInFunc func(amountIn *big.Int, tokenIn, tokenOut uint64, state any) (*big.Int, error)

// Adapter is the per-family set of operations the rest of the engine needs.
// "Discover" and "Refresh" are implemented by internal/fetcher directly
// against go-ethereum (they need chain I/O, not just math), so this
// interface only covers the pure, chain-free quoting step — the one piece
// every family must provide identically for internal/graph and
// internal/simulator to stay family-agnostic.
type Adapter interface {
	Family() types.Family
	QuoteExactIn(amountIn *big.Int, tokenIn, tokenOut uint64, state any) (*big.Int, error)
}

type funcAdapter struct {
	family types.Family
	quote  QuoteExactInFunc
}

func (f funcAdapter) Family() types.Family { return f.family }
func (f funcAdapter) QuoteExactIn(amountIn *big.Int, tokenIn, tokenOut uint64, state any) (*big.Int, error) {
	return f.quote(amountIn, tokenIn, tokenOut, state)
}

// Registry resolves a Family to its Adapter. Built once per scan (pool
// families are a fixed, small set; there's no need to rebuild this per
// pool).
type Registry struct {
	byFamily map[types.Family]Adapter
}

// NewRegistry wires every pool family's calculator behind the uniform
// Adapter interface. Basket tokens are deliberately excluded: per the
// engine's design they are never a tradable graph edge (see
// internal/special), so there is no quote function for FamilyBasketToken.
func NewRegistry() *Registry {
	r := &Registry{byFamily: make(map[types.Family]Adapter, 5)}

	r.byFamily[types.FamilyConstantProduct] = funcAdapter{
		family: types.FamilyConstantProduct,
		quote: func(amountIn *big.Int, tokenIn, tokenOut uint64, state any) (*big.Int, error) {
			pool, ok := state.(cpamm.Pool)
			if !ok {
				return nil, fmt.Errorf("adapter: expected cpamm.Pool, got %T", state)
			}
			return cpamm.GetAmountOut(amountIn, tokenIn, tokenOut, pool)
		},
	}

	r.byFamily[types.FamilyConcentrated] = funcAdapter{
		family: types.FamilyConcentrated,
		quote: func(amountIn *big.Int, tokenIn, tokenOut uint64, state any) (*big.Int, error) {
			pool, ok := state.(clmm.Pool)
			if !ok {
				return nil, fmt.Errorf("adapter: expected clmm.Pool, got %T", state)
			}
			return clmm.GetAmountOut(amountIn, nil, tokenIn, pool)
		},
	}

	r.byFamily[types.FamilyWeighted] = funcAdapter{
		family: types.FamilyWeighted,
		quote: func(amountIn *big.Int, tokenIn, tokenOut uint64, state any) (*big.Int, error) {
			pool, ok := state.(weighted.Pool)
			if !ok {
				return nil, fmt.Errorf("adapter: expected weighted.Pool, got %T", state)
			}
			return weighted.GetAmountOut(amountIn, tokenIn, tokenOut, pool)
		},
	}

	stableQuote := func(amountIn *big.Int, tokenIn, tokenOut uint64, state any) (*big.Int, error) {
		pool, ok := state.(stableswap.Pool)
		if !ok {
			return nil, fmt.Errorf("adapter: expected stableswap.Pool, got %T", state)
		}
		return stableswap.GetAmountOut(amountIn, tokenIn, tokenOut, pool)
	}
	r.byFamily[types.FamilyStableSwap] = funcAdapter{family: types.FamilyStableSwap, quote: stableQuote}
	r.byFamily[types.FamilyStableSwapNG] = funcAdapter{family: types.FamilyStableSwapNG, quote: stableQuote}

	r.byFamily[types.FamilyERC4626Vault] = funcAdapter{
		family: types.FamilyERC4626Vault,
		quote: func(amountIn *big.Int, tokenIn, tokenOut uint64, state any) (*big.Int, error) {
			pool, ok := state.(vault4626.Pool)
			if !ok {
				return nil, fmt.Errorf("adapter: expected vault4626.Pool, got %T", state)
			}
			return vault4626.GetAmountOut(amountIn, tokenIn, tokenOut, pool)
		},
	}

	return r
}

// Resolve returns the Adapter registered for a Family, or false if the
// family has no tradable-edge quote function (e.g. FamilyBasketToken).
func (r *Registry) Resolve(f types.Family) (Adapter, bool) {
	a, ok := r.byFamily[f]
	return a, ok
}
