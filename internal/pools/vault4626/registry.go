// Package vault4626 implements ERC-4626 tokenized vaults: a share token
// convertible to/from an underlying asset at the vault's current
// totalAssets/totalSupply ratio.
package vault4626

import "math/big"

// Pool is the mutable state of an ERC-4626 vault, modeled as a pool between
// its underlying asset token and its share token.
type Pool struct {
	ID           uint64   `json:"id"`
	AssetToken   uint64   `json:"assetToken"`
	ShareToken   uint64   `json:"shareToken"`
	TotalAssets  *big.Int `json:"totalAssets"`
	TotalSupply  *big.Int `json:"totalSupply"`
	// DepositFeePPM / WithdrawFeePPM model vaults that charge an entry/exit
	// fee on top of the share ratio (most ERC-4626 vaults charge neither,
	// but some yield aggregators do).
	DepositFeePPM  uint32 `json:"depositFeePpm"`
	WithdrawFeePPM uint32 `json:"withdrawFeePpm"`
}

func (p Pool) Tokens() (uint64, uint64) { return p.AssetToken, p.ShareToken }
