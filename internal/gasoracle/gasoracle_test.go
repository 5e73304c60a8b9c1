package gasoracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	price float64
	err   error
	calls int
}

func (f *fakeSource) GasPriceGwei(ctx context.Context) (float64, error) {
	f.calls++
	return f.price, f.err
}

func TestCurrentPrefersRESTSource(t *testing.T) {
	o := &Oracle{
		rest:     &fakeSource{price: 1.5},
		fallback: &fakeSource{price: 99},
	}
	assert.Equal(t, 1.5, o.Current(context.Background()))
}

func TestCurrentFallsBackOnRESTError(t *testing.T) {
	o := &Oracle{
		rest:     &fakeSource{err: errors.New("boom")},
		fallback: &fakeSource{price: 2.2},
	}
	assert.Equal(t, 2.2, o.Current(context.Background()))
}

func TestCurrentUsesStaticFallbackWhenBothFail(t *testing.T) {
	o := &Oracle{
		rest:         &fakeSource{err: errors.New("rest down")},
		fallback:     &fakeSource{err: errors.New("rpc down")},
		fallbackOnly: 0.5,
	}
	assert.Equal(t, 0.5, o.Current(context.Background()))
}

func TestCurrentCachesWithinTTL(t *testing.T) {
	rest := &fakeSource{price: 3.0}
	o := &Oracle{rest: rest, fallback: &fakeSource{price: 99}}

	first := o.Current(context.Background())
	require.Equal(t, 3.0, first)
	assert.Equal(t, 1, rest.calls)

	rest.price = 7.0 // should not be observed until the cache expires
	second := o.Current(context.Background())
	assert.Equal(t, 3.0, second)
	assert.Equal(t, 1, rest.calls)
}

func TestCurrentRefreshesAfterTTLExpires(t *testing.T) {
	rest := &fakeSource{price: 3.0}
	o := &Oracle{rest: rest, fallback: &fakeSource{price: 99}}
	o.Current(context.Background())

	o.lastFetched = time.Now().Add(-cacheTTL - time.Second)
	rest.price = 9.0
	assert.Equal(t, 9.0, o.Current(context.Background()))
}
