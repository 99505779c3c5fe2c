package resilience_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/miniapp-shop/internal/resilience"
)

func TestBreakerOpensOnFailureRatio(t *testing.T) {
	t.Parallel()
	b := resilience.NewBreaker(4, 0.5, time.Hour)

	for i := 0; i < 4; i++ {
		require.True(t, b.Allow())
		b.Report(false)
	}
	require.Equal(t, resilience.Open, b.CurrentState())
	require.False(t, b.Allow())
}

func TestBreakerStaysClosedUnderMinRequests(t *testing.T) {
	t.Parallel()
	b := resilience.NewBreaker(10, 0.5, time.Hour)

	for i := 0; i < 9; i++ {
		b.Report(false)
	}
	require.Equal(t, resilience.Closed, b.CurrentState())
	require.True(t, b.Allow())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	t.Parallel()
	b := resilience.NewBreaker(1, 0.5, 20*time.Millisecond)

	b.Report(false)
	require.Equal(t, resilience.Open, b.CurrentState())

	time.Sleep(30 * time.Millisecond)
	require.True(t, b.Allow(), "cool-off expiry must admit a probe")
	require.Equal(t, resilience.HalfOpen, b.CurrentState())

	b.Report(true)
	require.Equal(t, resilience.Closed, b.CurrentState())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	t.Parallel()
	b := resilience.NewBreaker(1, 0.5, 20*time.Millisecond)

	b.Report(false)
	time.Sleep(30 * time.Millisecond)
	require.True(t, b.Allow())

	b.Report(false)
	require.Equal(t, resilience.Open, b.CurrentState())
	require.False(t, b.Allow())
}

func TestBackoffGrowsExponentially(t *testing.T) {
	t.Parallel()
	base := 100 * time.Millisecond

	require.Equal(t, base, resilience.Backoff(base, 1, 0))
	require.Equal(t, 2*base, resilience.Backoff(base, 2, 0))
	require.Equal(t, 4*base, resilience.Backoff(base, 3, 0))

	jittered := resilience.Backoff(base, 2, 0.2)
	require.InDelta(t, float64(2*base), float64(jittered), float64(2*base)*0.2)
}
