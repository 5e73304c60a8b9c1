package basket

import (
	"errors"
	"math/big"
)

var ErrNoComponents = errors.New("basket: no components to price")

var (
	rayDivisor   = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(27), nil))
	microDivisor = big.NewFloat(1_000_000)
)

// NAVPerShareUSD computes the basket's fair value per share in USD.
//
// When the venue reports a virtual price directly (Curve-style pools),
// NAV-per-share is virtual_price * min(underlying component prices) — the
// conservative valuation used throughout the Curve LP research the engine's
// NAV-arbitrage side channel is grounded on: a basket token should never be
// worth more, per share, than its cheapest backing asset times the pool's
// own accounting of shares-to-assets.
//
// When no virtual price is available (plain index/basket tokens), NAV is
// the sum of component_balance*component_price divided by total supply.
func NAVPerShareUSD(b Basket) (*big.Float, error) {
	if len(b.Components) == 0 {
		return nil, ErrNoComponents
	}

	if b.VirtualPriceRay != nil && b.VirtualPriceRay.Sign() > 0 {
		minPrice := b.Components[0].PriceUSDMicros
		for _, c := range b.Components[1:] {
			if c.PriceUSDMicros < minPrice {
				minPrice = c.PriceUSDMicros
			}
		}
		virtualPrice := new(big.Float).Quo(new(big.Float).SetInt(b.VirtualPriceRay), rayDivisor)
		minPriceUSD := new(big.Float).Quo(big.NewFloat(float64(minPrice)), microDivisor)
		return new(big.Float).Mul(virtualPrice, minPriceUSD), nil
	}

	if b.TotalSupply == nil || b.TotalSupply.Sign() == 0 {
		return nil, ErrNoComponents
	}

	totalValue := new(big.Float)
	for _, c := range b.Components {
		priceUSD := new(big.Float).Quo(big.NewFloat(float64(c.PriceUSDMicros)), microDivisor)
		value := new(big.Float).Mul(new(big.Float).SetInt(c.Balance), priceUSD)
		totalValue.Add(totalValue, value)
	}
	return new(big.Float).Quo(totalValue, new(big.Float).SetInt(b.TotalSupply)), nil
}
