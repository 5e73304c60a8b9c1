// Package cpamm implements the constant-product AMM family (Uniswap V2 and
// its forks): x*y=k pools with a flat per-swap fee.
package cpamm

import "math/big"

// Pool is the mutable state of a constant-product pool. FeePPM is expressed
// in parts-per-million (3000 == 0.3%) rather than the teacher's basis points,
// so that very low fee forks (e.g. 1bps = 100ppm) and very high ones don't
// lose precision.
type Pool struct {
	ID       uint64   `json:"id"`
	Token0   uint64   `json:"token0"`
	Token1   uint64   `json:"token1"`
	Reserve0 *big.Int `json:"reserve0"`
	Reserve1 *big.Int `json:"reserve1"`
	FeePPM   uint32   `json:"feePpm"`
}

func (p Pool) Tokens() (uint64, uint64) { return p.Token0, p.Token1 }
