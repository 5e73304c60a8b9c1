package basket

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNAVPerShareFromComponents(t *testing.T) {
	b := Basket{
		ID:          1,
		BasketToken: 99,
		TotalSupply: big.NewInt(2_000_000),
		Components: []Component{
			{TokenID: 0, Balance: big.NewInt(1_000_000), PriceUSDMicros: 1_000_000},
			{TokenID: 1, Balance: big.NewInt(1_000_000), PriceUSDMicros: 1_000_000},
		},
	}
	nav, err := NAVPerShareUSD(b)
	require.NoError(t, err)
	f, _ := nav.Float64()
	assert.InDelta(t, 1.0, f, 1e-6)
}

func TestNAVPerShareFromVirtualPrice(t *testing.T) {
	ray := new(big.Int).Exp(big.NewInt(10), big.NewInt(27), nil)
	virtualPrice := new(big.Int).Mul(big.NewInt(102), new(big.Int).Div(ray, big.NewInt(100))) // 1.02
	b := Basket{
		ID:              1,
		BasketToken:     99,
		VirtualPriceRay: virtualPrice,
		Components: []Component{
			{TokenID: 0, PriceUSDMicros: 1_000_000},
			{TokenID: 1, PriceUSDMicros: 990_000},
		},
	}
	nav, err := NAVPerShareUSD(b)
	require.NoError(t, err)
	f, _ := nav.Float64()
	assert.InDelta(t, 1.02*0.99, f, 1e-6)
}

func TestNAVNoComponents(t *testing.T) {
	_, err := NAVPerShareUSD(Basket{ID: 1})
	require.ErrorIs(t, err, ErrNoComponents)
}
