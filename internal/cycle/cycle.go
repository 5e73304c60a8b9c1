// Package cycle enumerates simple arbitrage cycles in the price graph via
// bounded-depth depth-first search. This deliberately does NOT use the
// teacher's own "king of the hill" FindArbitrageCycles — that function's own
// comment in the teacher source says it stopped enumerating every path "because
// of the amount of wasted computations" and returns only the single best
// cycle per call. This package is grounded instead on
// original_source/src/brain/bellman_ford.rs's dfs_find_cycles, which performs
// full enumeration cheaply because it works over the graph's precomputed
// log-price edges rather than re-simulating swaps at every step.
package cycle

import (
	"math"
	"sort"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/arbcore/arbengine/bitset"
	"github.com/arbcore/arbengine/internal/graph"
	"github.com/arbcore/arbengine/internal/types"
)

// Cycle is one fully enumerated, validated candidate: a closed walk through
// the graph (TokenPath[0] == TokenPath[len-1]) with the pool and family used
// on each leg.
type Cycle struct {
	TokenPath      []uint64 // registry token IDs, closed
	PoolPath       []uint64
	FamilyPath     []types.Family
	TotalWeight    float64 // sum of -ln(effective_price) across the cycle
	ExpectedReturn float64 // exp(-TotalWeight): >1 means a profitable (before gas/slippage) loop
}

// IsValid re-checks the structural invariants a Cycle must satisfy,
// independent of how it was constructed — mirrors bellman_ford.rs's
// ArbitrageCycle::is_valid so a cycle can be sanity-checked again after
// passing through internal/filter or internal/simulator.
func (c Cycle) IsValid() bool {
	if len(c.TokenPath) < 3 || len(c.TokenPath) != len(c.PoolPath)+1 {
		return false
	}
	if c.TokenPath[0] != c.TokenPath[len(c.TokenPath)-1] {
		return false
	}
	seenTokens := make(map[uint64]struct{}, len(c.TokenPath))
	for _, t := range c.TokenPath[:len(c.TokenPath)-1] {
		if _, dup := seenTokens[t]; dup {
			return false
		}
		seenTokens[t] = struct{}{}
	}
	seenPools := make(map[uint64]struct{}, len(c.PoolPath))
	for _, p := range c.PoolPath {
		if _, dup := seenPools[p]; dup {
			return false
		}
		seenPools[p] = struct{}{}
	}
	if math.IsNaN(c.ExpectedReturn) || math.IsInf(c.ExpectedReturn, 0) {
		return false
	}
	return c.ExpectedReturn > 0 && c.ExpectedReturn <= maxValidExpectedReturn
}

// maxValidExpectedReturn is the structural ceiling on a single cycle's
// expected return: anything above a 100x loop is a priced/decoded edge gone
// wrong, not a real arbitrage, and is rejected at the same boundary as the
// other structural checks rather than left for internal/filter's separate,
// configurable suspicion threshold to catch.
const maxValidExpectedReturn = 100

// Params bounds the search: MaxHops caps cycle length (a "hop" is one
// pool swap), MinExpectedReturn prunes unpromising partial paths before they
// are even fully walked, and MaxResultsPerStart caps how many cycles a
// single starting token may contribute (a defensive bound against
// pathological graphs with very dense liquidity around one token).
type Params struct {
	MaxHops              int
	MinExpectedReturn    float64
	MaxResultsPerStart   int
}

// DefaultParams mirrors original_source's defaults: a 0.95 partial-path
// floor (so a cycle that is already badly underwater is abandoned before the
// DFS bothers walking it to completion) and a conservative hop bound.
func DefaultParams() Params {
	return Params{
		MaxHops:            5,
		MinExpectedReturn:  0.95,
		MaxResultsPerStart: 64,
	}
}

// FindFromStart enumerates every simple cycle starting and ending at
// startTokenIdx (a dense graph node index, see Graph.TokenIndex), up to
// params.MaxHops edges.
func FindFromStart(g *graph.Graph, startTokenIdx int, params Params) []Cycle {
	if params.MaxHops < 2 {
		params.MaxHops = 2
	}

	d := &dfsState{
		graph:      g,
		start:      startTokenIdx,
		params:     params,
		visited:    bitset.NewBitSet(uint64(len(g.Nodes))),
		usedPools:  make(map[uint64]struct{}, params.MaxHops),
		tokenPath:  make([]int, 0, params.MaxHops+1),
		poolPath:   make([]uint64, 0, params.MaxHops),
		familyPath: make([]types.Family, 0, params.MaxHops),
	}
	d.visited.Set(uint64(startTokenIdx))
	d.tokenPath = append(d.tokenPath, startTokenIdx)

	d.walk(startTokenIdx, 0, 0)
	return d.results
}

// FindAll runs FindFromStart for every token index in startTokenIndices and
// deduplicates results across starting points (the same physical cycle is
// found once per token it touches, since the DFS is re-rooted at each one).
func FindAll(g *graph.Graph, startTokenIndices []int, params Params) []Cycle {
	seen := mapset.NewSet[string]()
	var all []Cycle
	for _, start := range startTokenIndices {
		for _, c := range FindFromStart(g, start, params) {
			sig := signature(c.PoolPath)
			if seen.Contains(sig) {
				continue
			}
			seen.Add(sig)
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ExpectedReturn > all[j].ExpectedReturn })
	return all
}

func signature(poolPath []uint64) string {
	sorted := append([]uint64(nil), poolPath...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, p := range sorted {
		parts[i] = strconv.FormatUint(p, 10)
	}
	return strings.Join(parts, "-")
}

type dfsState struct {
	graph      *graph.Graph
	start      int
	params     Params
	visited    bitset.BitSet
	usedPools  map[uint64]struct{}
	tokenPath  []int
	poolPath   []uint64
	familyPath []types.Family
	results    []Cycle
}

func (d *dfsState) walk(current int, depth int, cumulativeWeight float64) {
	if len(d.results) >= d.params.MaxResultsPerStart {
		return
	}
	if depth >= d.params.MaxHops {
		return
	}

	for _, edge := range d.graph.Adjacency[current] {
		if _, used := d.usedPools[edge.PoolID]; used {
			continue
		}

		nextWeight := cumulativeWeight + edge.Weight
		partialReturn := math.Exp(-nextWeight)
		if partialReturn < d.params.MinExpectedReturn {
			continue // prune: this partial path is already not worth continuing
		}

		if edge.To == d.start && depth >= 1 {
			d.emit(edge, nextWeight, partialReturn)
			continue // closing the cycle never also extends it further
		}

		if d.visited.IsSet(uint64(edge.To)) {
			continue
		}

		d.visited.Set(uint64(edge.To))
		d.usedPools[edge.PoolID] = struct{}{}
		d.tokenPath = append(d.tokenPath, edge.To)
		d.poolPath = append(d.poolPath, edge.PoolID)
		d.familyPath = append(d.familyPath, edge.Family)

		d.walk(edge.To, depth+1, nextWeight)

		d.familyPath = d.familyPath[:len(d.familyPath)-1]
		d.poolPath = d.poolPath[:len(d.poolPath)-1]
		d.tokenPath = d.tokenPath[:len(d.tokenPath)-1]
		delete(d.usedPools, edge.PoolID)
		d.visited.Unset(uint64(edge.To))
	}
}

func (d *dfsState) emit(closingEdge graph.Edge, totalWeight, expectedReturn float64) {
	tokenIDs := make([]uint64, len(d.tokenPath)+1)
	for i, nodeIdx := range d.tokenPath {
		tokenIDs[i] = d.graph.Nodes[nodeIdx]
	}
	tokenIDs[len(tokenIDs)-1] = d.graph.Nodes[d.start]

	poolIDs := append(append([]uint64(nil), d.poolPath...), closingEdge.PoolID)
	families := append(append([]types.Family(nil), d.familyPath...), closingEdge.Family)

	c := Cycle{
		TokenPath:      tokenIDs,
		PoolPath:       poolIDs,
		FamilyPath:     families,
		TotalWeight:    totalWeight,
		ExpectedReturn: expectedReturn,
	}
	if c.IsValid() {
		d.results = append(d.results, c)
	}
}
