package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoff_Exponential(t *testing.T) {
	t.Parallel()

	base, maxDelay := time.Second, 10*time.Second
	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second, // capped
		10 * time.Second,
	}
	for attempt, w := range want {
		require.Equal(t, w, Backoff(attempt, base, maxDelay, 0, nil), "attempt %d", attempt)
	}
}

func TestBackoff_JitterBoundedAndCapped(t *testing.T) {
	t.Parallel()

	base, maxDelay, jitter := time.Second, 10*time.Second, time.Second

	half := func() float64 { return 0.5 }
	require.Equal(t, 1500*time.Millisecond, Backoff(0, base, maxDelay, jitter, half))

	threeQuarters := func() float64 { return 0.75 }
	require.Equal(t, 8750*time.Millisecond, Backoff(3, base, maxDelay, jitter, threeQuarters))

	almostOne := func() float64 { return 0.999 }
	require.Equal(t, maxDelay, Backoff(4, base, maxDelay, jitter, almostOne))

	for attempt := 0; attempt < 8; attempt++ {
		d := Backoff(attempt, base, maxDelay, jitter, almostOne)
		require.LessOrEqual(t, d, maxDelay)
		require.GreaterOrEqual(t, d, base)
	}
}

// Large attempt numbers saturate instead of overflowing.
func TestBackoff_Overflow(t *testing.T) {
	t.Parallel()

	require.Equal(t, time.Minute, Backoff(70, time.Second, time.Minute, 0, nil))
	require.Equal(t, time.Minute, Backoff(40, time.Second, time.Minute, 0, nil))
	require.Equal(t, time.Second, Backoff(-1, time.Second, time.Minute, 0, nil))
}
