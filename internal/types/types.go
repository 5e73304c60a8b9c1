// Package types holds the engine-wide identifiers and value types shared by
// every other internal package: token/pool identity, pool family tags, and
// the block-header summary attached to a scan.
package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Family identifies the AMM invariant a pool implements. Unlike the teacher's
// ProtocolSchema (a string decode-contract for an externally streamed wire
// format), Family is a closed set we dispatch on directly: every pool loaded
// by the fetcher carries exactly one Family, and internal/adapter keys its
// dispatch table on it.
type Family uint8

const (
	FamilyUnknown Family = iota
	FamilyConstantProduct
	FamilyConcentrated
	FamilyWeighted
	FamilyStableSwap
	FamilyStableSwapNG
	FamilyERC4626Vault
	FamilyBasketToken
)

func (f Family) String() string {
	switch f {
	case FamilyConstantProduct:
		return "constant-product"
	case FamilyConcentrated:
		return "concentrated"
	case FamilyWeighted:
		return "weighted"
	case FamilyStableSwap:
		return "stableswap"
	case FamilyStableSwapNG:
		return "stableswap-ng"
	case FamilyERC4626Vault:
		return "erc4626-vault"
	case FamilyBasketToken:
		return "basket-token"
	default:
		return "unknown"
	}
}

// Token is the engine's canonical token record. Decimals/FeeOnTransferPercent
// mirror the teacher's tokenregistry.Token. GasForTransfer is carried from
// the configuration but is not read by the simulator's gas accounting.
type Token struct {
	ID                   uint64         `json:"id"`
	Address              common.Address `json:"address"`
	Symbol               string         `json:"symbol"`
	Decimals             uint8          `json:"decimals"`
	IsBase               bool           `json:"isBase"`
	FeeOnTransferPercent float64        `json:"feeOnTransferPercent"`
	GasForTransfer       uint64         `json:"gasForTransfer"`
}

// PoolRef is the family-agnostic identity of a pool: its registry ID, the two
// (or more, for basket tokens) tokens it prices, and which family it belongs
// to. Family-specific mutable state (reserves, sqrt price, weights, ...)
// lives in the corresponding internal/pools/<family> package, keyed by this
// same ID.
type PoolRef struct {
	ID      uint64         `json:"id"`
	Address common.Address `json:"address"`
	Tokens  []uint64       `json:"tokens"` // token registry IDs, venue-defined order
	Family  Family         `json:"family"`
	FeePPM  uint32         `json:"feePpm"` // parts-per-million, 0 if not fee-based
}

// BlockSummary captures the chain head a scan was performed against. Kept
// from the teacher's engine.BlockSummary; ReceiptHash/StateRoot are dropped
// since nothing in this engine verifies receipts. No other package in this
// tree constructs or reads a BlockSummary.
type BlockSummary struct {
	Number     *big.Int    `json:"number"`
	Hash       common.Hash `json:"hash"`
	Timestamp  uint64      `json:"timestamp"`
	ReceivedAt int64       `json:"receivedAt"` // unix nanos, stamped by the caller
	GasUsed    uint64      `json:"gasUsed"`
	GasLimit   uint64      `json:"gasLimit"`
}

// Logger is the structured leveled-logging interface shared across internal
// packages, identical in shape to the teacher's chains.Logger so that any
// log/slog.Logger satisfies it directly via slog's method set.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
