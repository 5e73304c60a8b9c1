package cpamm

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
)

var (
	feeDivisor = big.NewInt(1_000_000) // parts-per-million

	ErrInvalidAmount         = errors.New("cpamm: amount must be non-nil and non-negative")
	ErrNilAmount             = errors.New("cpamm: nil pointer passed as amount")
	ErrTokenMismatch         = errors.New("cpamm: token mismatch")
	ErrInvalidState          = errors.New("cpamm: invalid internal state")
	ErrInsufficientLiquidity = errors.New("cpamm: insufficient liquidity for swap")
)

// Calculator holds reusable big.Int scratch space so that a hot cycle-search
// loop calling GetAmountOut thousands of times per scan doesn't churn the
// allocator. Instances are pool-managed and must not be shared across
// goroutines directly; use the package-level functions below instead.
type Calculator struct {
	feeMultiplier   *big.Int
	amountInWithFee *big.Int
	numerator       *big.Int
	denominator     *big.Int
	numeratorIn     *big.Int
	denominatorIn   *big.Int
	newReserve0     *big.Int
	newReserve1     *big.Int
}

var calculatorPool = sync.Pool{
	New: func() any {
		return &Calculator{
			feeMultiplier:   new(big.Int),
			amountInWithFee: new(big.Int),
			numerator:       new(big.Int),
			denominator:     new(big.Int),
			numeratorIn:     new(big.Int),
			denominatorIn:   new(big.Int),
			newReserve0:     new(big.Int),
			newReserve1:     new(big.Int),
		}
	},
}

// GetAmountOut computes the output amount of a swap under the x*y=k
// invariant with a flat fee deducted from the input leg.
func GetAmountOut(amountIn *big.Int, tokenIn, tokenOut uint64, pool Pool) (*big.Int, error) {
	c := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(c)
	return c.getAmountOut(amountIn, tokenIn, tokenOut, pool)
}

// GetAmountIn computes the input amount required to receive amountOut.
func GetAmountIn(amountOut *big.Int, tokenIn, tokenOut uint64, pool Pool) (*big.Int, error) {
	c := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(c)
	return c.getAmountIn(amountOut, tokenIn, tokenOut, pool)
}

// SimulateSwap returns the output amount and the pool state that results
// from applying the swap.
func SimulateSwap(amountIn *big.Int, tokenIn, tokenOut uint64, pool Pool) (*big.Int, Pool, error) {
	c := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(c)
	return c.simulateSwap(amountIn, tokenIn, tokenOut, pool)
}

func (c *Calculator) getAmountOut(amountIn *big.Int, tokenIn, tokenOut uint64, pool Pool) (*big.Int, error) {
	if amountIn == nil {
		return nil, ErrNilAmount
	}
	if amountIn.Sign() < 0 {
		return nil, ErrInvalidAmount
	}

	reserveIn, reserveOut, err := GetReserves(tokenIn, tokenOut, pool)
	if err != nil {
		return nil, err
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return new(big.Int), nil
	}

	c.feeMultiplier.Sub(feeDivisor, big.NewInt(int64(pool.FeePPM)))
	c.amountInWithFee.Mul(amountIn, c.feeMultiplier)
	c.numerator.Mul(reserveOut, c.amountInWithFee)
	c.denominator.Mul(reserveIn, feeDivisor)
	c.denominator.Add(c.denominator, c.amountInWithFee)

	if c.denominator.Sign() == 0 {
		return nil, fmt.Errorf("%w: pool denominator is zero", ErrInvalidState)
	}
	return new(big.Int).Div(c.numerator, c.denominator), nil
}

func (c *Calculator) getAmountIn(amountOut *big.Int, tokenIn, tokenOut uint64, pool Pool) (*big.Int, error) {
	if amountOut == nil {
		return nil, ErrNilAmount
	}
	if amountOut.Sign() < 0 {
		return nil, ErrInvalidAmount
	}

	reserveIn, reserveOut, err := GetReserves(tokenIn, tokenOut, pool)
	if err != nil {
		return nil, err
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 || amountOut.Cmp(reserveOut) >= 0 {
		return nil, fmt.Errorf("%w: requested amountOut (%s) is >= reserveOut (%s)", ErrInsufficientLiquidity, amountOut, reserveOut)
	}

	c.numeratorIn.Mul(reserveIn, amountOut)
	c.numeratorIn.Mul(c.numeratorIn, feeDivisor)

	c.feeMultiplier.Sub(feeDivisor, big.NewInt(int64(pool.FeePPM)))
	c.denominatorIn.Sub(reserveOut, amountOut)
	c.denominatorIn.Mul(c.denominatorIn, c.feeMultiplier)

	if c.denominatorIn.Sign() == 0 {
		return nil, fmt.Errorf("%w: pool denominator is zero", ErrInvalidState)
	}

	amountIn := new(big.Int).Div(c.numeratorIn, c.denominatorIn)
	return amountIn.Add(amountIn, big.NewInt(1)), nil
}

func (c *Calculator) simulateSwap(amountIn *big.Int, tokenIn, tokenOut uint64, pool Pool) (*big.Int, Pool, error) {
	amountOut, err := c.getAmountOut(amountIn, tokenIn, tokenOut, pool)
	if err != nil {
		return nil, Pool{}, err
	}

	newState := pool
	if tokenIn == pool.Token0 {
		c.newReserve0.Add(pool.Reserve0, amountIn)
		c.newReserve1.Sub(pool.Reserve1, amountOut)
	} else {
		c.newReserve1.Add(pool.Reserve1, amountIn)
		c.newReserve0.Sub(pool.Reserve0, amountOut)
	}
	newState.Reserve0 = new(big.Int).Set(c.newReserve0)
	newState.Reserve1 = new(big.Int).Set(c.newReserve1)
	return amountOut, newState, nil
}

// GetReserves returns (reserveIn, reserveOut) for the requested direction.
func GetReserves(tokenIn, tokenOut uint64, pool Pool) (reserveIn, reserveOut *big.Int, err error) {
	switch {
	case tokenIn == pool.Token0 && tokenOut == pool.Token1:
		return pool.Reserve0, pool.Reserve1, nil
	case tokenIn == pool.Token1 && tokenOut == pool.Token0:
		return pool.Reserve1, pool.Reserve0, nil
	default:
		return nil, nil, fmt.Errorf("%w: pool %d does not contain pair %d->%d", ErrTokenMismatch, pool.ID, tokenIn, tokenOut)
	}
}
