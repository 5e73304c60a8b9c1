// Package graph builds the directed log-price graph the cycle search walks.
// Construction is intentionally cheap: one small-amount probe quote per pool
// per direction, not a full path simulation — expensive, slippage-accurate
// evaluation of a candidate cycle happens later, in internal/simulator,
// after internal/cycle and internal/filter have narrowed the field. This
// mirrors original_source's cartographer/graph.rs: reject pools with no
// liquidity, skip edges whose raw price falls outside a sane band, and store
// weight = -ln(effective_price) so a profitable cycle is a negative-weight
// cycle (sum of -ln(price_i) < 0 iff product of prices > 1).
package graph

import (
	"math"
	"math/big"

	"github.com/arbcore/arbengine/internal/adapter"
	"github.com/arbcore/arbengine/internal/types"
)

const (
	minRawPrice = 1e-12
	maxRawPrice = 1e9

	// probeDenominator sizes the small probe trade used to read a pool's
	// current price: one thousandth of a whole token unit.
	probeDenominator = 1000
)

// Edge is one directed, pool-specific price quote from the node it hangs off
// of to another token.
type Edge struct {
	To             int
	PoolID         uint64
	Family         types.Family
	RawPrice       float64 // decimal-normalized price of 1 unit of the source token, in destination-token units
	FeeRate        float64 // fraction, e.g. 0.003 for 30bps
	EffectivePrice float64 // RawPrice * (1 - FeeRate)
	Weight         float64 // -ln(EffectivePrice)
}

// Graph is the token-indexed adjacency structure cycle search operates on.
// Tokens are addressed by dense index (0..len(Nodes)-1), not by their
// registry ID, so that internal/cycle and the bitset package can use plain
// slices/bitsets instead of maps on the hot path.
type Graph struct {
	Nodes     []uint64 // index -> token registry ID
	indexOf   map[uint64]int
	Adjacency [][]Edge // index -> outgoing edges

	// PoolEdgeCount records how many tradable edges were actually built
	// from each pool (0 if the pool was skipped for having no liquidity),
	// for scan-summary logging.
	PoolEdgeCount map[uint64]int
}

// TokenIndex returns the dense node index for a token registry ID.
func (g *Graph) TokenIndex(tokenID uint64) (int, bool) {
	i, ok := g.indexOf[tokenID]
	return i, ok
}

// PoolState bundles a pool's identity with its current decoded state, ready
// to be quoted through the adapter registry.
type PoolState struct {
	Ref   types.PoolRef
	State any
}

// Build constructs a Graph from the token universe and the current pool
// states. A pool is skipped entirely (not added as an edge in either
// direction) if every pairwise probe quote fails or returns zero — this is
// the "zero liquidity" exclusion from the spec's data model invariants.
func Build(tokens []types.Token, pools []PoolState, registry *adapter.Registry) *Graph {
	g := &Graph{
		indexOf:       make(map[uint64]int, len(tokens)),
		PoolEdgeCount: make(map[uint64]int, len(pools)),
	}
	g.Nodes = make([]uint64, len(tokens))
	decimalsByToken := make(map[uint64]uint8, len(tokens))
	for i, t := range tokens {
		g.Nodes[i] = t.ID
		g.indexOf[t.ID] = i
		decimalsByToken[t.ID] = t.Decimals
	}
	g.Adjacency = make([][]Edge, len(tokens))

	for _, ps := range pools {
		adp, ok := registry.Resolve(ps.Ref.Family)
		if !ok {
			continue // e.g. FamilyBasketToken: never a tradable edge
		}
		addPoolEdges(g, ps, adp, decimalsByToken)
	}
	return g
}

func addPoolEdges(g *Graph, ps PoolState, adp adapter.Adapter, decimalsByToken map[uint64]uint8) {
	tokens := ps.Ref.Tokens
	feeRate := float64(ps.Ref.FeePPM) / 1_000_000.0

	for i := range tokens {
		for j := range tokens {
			if i == j {
				continue
			}
			tokenIn, tokenOut := tokens[i], tokens[j]
			fromIdx, ok := g.indexOf[tokenIn]
			if !ok {
				continue
			}
			toIdx, ok := g.indexOf[tokenOut]
			if !ok {
				continue
			}

			rawPrice, ok := probePrice(adp, tokenIn, tokenOut, decimalsByToken[tokenIn], decimalsByToken[tokenOut], ps.State)
			if !ok || rawPrice < minRawPrice || rawPrice > maxRawPrice {
				continue
			}

			effective := rawPrice * (1 - feeRate)
			if effective <= 0 {
				continue
			}

			g.Adjacency[fromIdx] = append(g.Adjacency[fromIdx], Edge{
				To:             toIdx,
				PoolID:         ps.Ref.ID,
				Family:         ps.Ref.Family,
				RawPrice:       rawPrice,
				FeeRate:        feeRate,
				EffectivePrice: effective,
				Weight:         -math.Log(effective),
			})
			g.PoolEdgeCount[ps.Ref.ID]++
		}
	}
}

// probePrice reads a pool's current price by quoting a small trade (one
// thousandth of a whole token unit of tokenIn) and normalizing the result by
// both tokens' decimals. Using the real per-family quote function (rather
// than a bespoke spot-price formula per family) keeps the graph's notion of
// "price" consistent with whatever the simulator will later compute.
func probePrice(adp adapter.Adapter, tokenIn, tokenOut uint64, decIn, decOut uint8, state any) (float64, bool) {
	probeAmount := scaledUnit(decIn, probeDenominator)
	if probeAmount.Sign() <= 0 {
		return 0, false
	}

	amountOut, err := adp.QuoteExactIn(probeAmount, tokenIn, tokenOut, state)
	if err != nil || amountOut == nil || amountOut.Sign() <= 0 {
		return 0, false
	}

	inF := new(big.Float).Quo(new(big.Float).SetInt(probeAmount), pow10Float(decIn))
	outF := new(big.Float).Quo(new(big.Float).SetInt(amountOut), pow10Float(decOut))
	price := new(big.Float).Quo(outF, inF)
	f, _ := price.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}

// scaledUnit returns 10^decimals / denominator, i.e. 1/denominator of a
// whole token unit, floored at 1 so zero-decimal tokens still probe.
func scaledUnit(decimals uint8, denominator int64) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	amount := new(big.Int).Div(scale, big.NewInt(denominator))
	if amount.Sign() == 0 {
		return big.NewInt(1)
	}
	return amount
}

func pow10Float(decimals uint8) *big.Float {
	return new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}
