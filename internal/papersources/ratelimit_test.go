package papersources

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewRateLimiter(t *testing.T) {
	t.Run("creates limiter with OpenAlex polite pool rate", func(t *testing.T) {
		rl := NewRateLimiter(10, 10)

		require.NotNil(t, rl)
		for i := 0; i < 10; i++ {
			assert.True(t, rl.Allow(), "should allow request %d within burst", i+1)
		}
		assert.False(t, rl.Allow())
		assert.Equal(t, 10.0, rl.Limit())
	})

	t.Run("zero rate disables pacing", func(t *testing.T) {
		rl := NewRateLimiter(0, 0)

		assert.Equal(t, float64(rate.Inf), rl.Limit())
		for i := 0; i < 1000; i++ {
			require.True(t, rl.Allow())
		}
	})

	t.Run("non-positive burst falls back to one", func(t *testing.T) {
		rl := NewRateLimiter(0.5, 0)

		assert.True(t, rl.Allow())
		assert.False(t, rl.Allow())
	})
}

func TestRateLimiter_Wait(t *testing.T) {
	t.Run("returns immediately within burst", func(t *testing.T) {
		rl := NewRateLimiter(1, 3)

		start := time.Now()
		for i := 0; i < 3; i++ {
			require.NoError(t, rl.Wait(context.Background()))
		}
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("honours context cancellation", func(t *testing.T) {
		rl := NewRateLimiter(0.1, 1)
		require.True(t, rl.Allow())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := rl.Wait(ctx)
		require.Error(t, err)
	})
}
