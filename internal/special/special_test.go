package special

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbcore/arbengine/internal/pools/basket"
	"github.com/arbcore/arbengine/internal/pools/vault4626"
)

func TestEvaluateBasketDiscount(t *testing.T) {
	d := New(DefaultConfig())
	b := basket.Basket{
		ID:          1,
		BasketToken: 7,
		TotalSupply: big.NewInt(1_000_000),
		Components: []basket.Component{
			{TokenID: 0, Balance: big.NewInt(1_000_000), PriceUSDMicros: 1_000_000},
		},
	}
	secondary := SecondaryQuote{TokenID: 7, PoolID: 42, PriceUSD: 0.99, LiquidityUSD: 100_000}

	opp, ok := d.EvaluateBasket(b, secondary)
	require.True(t, ok)
	assert.Equal(t, KindNAVDeviation, opp.Kind)
	assert.Less(t, opp.DeviationBPS, 0.0)
}

func TestEvaluateBasketWithinBandIsNotReported(t *testing.T) {
	d := New(DefaultConfig())
	b := basket.Basket{
		ID:          1,
		BasketToken: 7,
		TotalSupply: big.NewInt(1_000_000),
		Components: []basket.Component{
			{TokenID: 0, Balance: big.NewInt(1_000_000), PriceUSDMicros: 1_000_000},
		},
	}
	secondary := SecondaryQuote{TokenID: 7, PoolID: 42, PriceUSD: 1.0005, LiquidityUSD: 100_000}

	_, ok := d.EvaluateBasket(b, secondary)
	assert.False(t, ok)
}

func TestEvaluateBasketIgnoresThinLiquidity(t *testing.T) {
	d := New(DefaultConfig())
	b := basket.Basket{
		ID:          1,
		BasketToken: 7,
		TotalSupply: big.NewInt(1_000_000),
		Components: []basket.Component{
			{TokenID: 0, Balance: big.NewInt(1_000_000), PriceUSDMicros: 1_000_000},
		},
	}
	secondary := SecondaryQuote{TokenID: 7, PoolID: 42, PriceUSD: 0.5, LiquidityUSD: 1_000}

	_, ok := d.EvaluateBasket(b, secondary)
	assert.False(t, ok)
}

func TestEvaluateVaultPremium(t *testing.T) {
	d := New(DefaultConfig())
	v := vault4626.Pool{ID: 2, AssetToken: 0, ShareToken: 1, TotalAssets: big.NewInt(1_000_000), TotalSupply: big.NewInt(1_000_000)}
	secondary := SecondaryQuote{TokenID: 1, PoolID: 9, PriceUSD: 1.01, LiquidityUSD: 200_000}

	opp, ok := d.EvaluateVault(v, secondary)
	require.True(t, ok)
	assert.Equal(t, KindVaultYieldDrift, opp.Kind)
	assert.Greater(t, opp.DeviationBPS, 0.0)
}

func TestMaxTradeAmountUSD(t *testing.T) {
	d := New(Config{MaxTradePctOfLiquidity: 0.1})
	got := d.MaxTradeAmountUSD(SecondaryQuote{LiquidityUSD: 10_000})
	assert.InDelta(t, 1_000, got, 1e-9)
}
