package prom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IvanBrykalov/gridview/cache"
	"github.com/IvanBrykalov/gridview/preload"
	"github.com/IvanBrykalov/gridview/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCacheAdapter(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg, "gridview", "pages", prometheus.Labels{"instance": "test"})

	c := cache.New(cache.Options[string, int]{SweepInterval: -1, Metrics: m})
	t.Cleanup(func() { _ = c.Close() })

	c.Set("a", 1)
	c.SetWithTTL("b", 2, time.Nanosecond)
	time.Sleep(time.Millisecond)
	c.Get("a")
	c.Get("missing")
	c.Get("b") // expired: miss + ttl eviction

	require.Equal(t, 1.0, testutil.ToFloat64(m.hits))
	require.Equal(t, 2.0, testutil.ToFloat64(m.misses))
	require.Equal(t, 1.0, testutil.ToFloat64(m.evicts.WithLabelValues("ttl")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.sizeEnt))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	require.Equal(t, 4, n)
}

func TestPreloadAdapter(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewPreload(reg, "gridview", "preload", nil)

	loader := preload.LoaderFunc(func(_ context.Context, id string) error {
		if id == "bad" {
			return errors.New("404")
		}
		return nil
	})
	s := preload.New(loader, preload.Options{Metrics: m})
	t.Cleanup(func() { _ = s.Close() })

	err := s.PreloadImages(context.Background(), []string{"a", "b", "bad"}, preload.High)
	require.Error(t, err)
	s.QueueImagePreload("c")
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.results.WithLabelValues("ok")) == 3
	}, 2*time.Second, time.Millisecond)

	require.Equal(t, 1.0, testutil.ToFloat64(m.enqueued))
	require.Equal(t, 1.0, testutil.ToFloat64(m.results.WithLabelValues("error")))
	require.Equal(t, 1, testutil.CollectAndCount(m.latency))
}

func TestRetryAdapter(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewRetry(reg, "gridview", "retry", nil)
	cfg := &retry.Config{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Metrics: m}

	retry.Do(context.Background(), func(context.Context) (int, error) {
		return 0, retry.Network(nil, "reset")
	}, cfg)
	retry.Do(context.Background(), func(context.Context) (int, error) {
		return 1, nil
	}, cfg)

	require.Equal(t, 4.0, testutil.ToFloat64(m.attempts))
	require.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("failed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("succeeded")))
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg, "gridview", "pages", nil)
	require.Panics(t, func() { New(reg, "gridview", "pages", nil) })
}
