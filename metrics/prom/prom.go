// Package prom exports the engine's metric hooks to Prometheus.
package prom

import (
	"time"

	"github.com/IvanBrykalov/gridview/cache"
	"github.com/IvanBrykalov/gridview/preload"
	"github.com/IvanBrykalov/gridview/retry"
	"github.com/prometheus/client_golang/prometheus"
)

// CacheAdapter implements cache.Metrics and exports Prometheus counters/gauges.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type CacheAdapter struct {
	hits    prometheus.Counter
	misses  prometheus.Counter
	evicts  *prometheus.CounterVec
	sizeEnt prometheus.Gauge
}

// New constructs a cache metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *CacheAdapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &CacheAdapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Cache hits",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Cache misses",
			ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "evictions_total",
				Help:        "Expired entries removed, by reason",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
		sizeEnt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_entries",
			Help:        "Number of resident entries",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.sizeEnt)
	return a
}

// Hit increments the hit counter.
func (a *CacheAdapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *CacheAdapter) Miss() { a.misses.Inc() }

// Evict increments the eviction counter with a reason label.
func (a *CacheAdapter) Evict(r cache.EvictReason) {
	a.evicts.WithLabelValues(r.String()).Inc()
}

// Size updates the resident entries gauge.
func (a *CacheAdapter) Size(entries int) {
	a.sizeEnt.Set(float64(entries))
}

var _ cache.Metrics = (*CacheAdapter)(nil)

// PreloadAdapter implements preload.Metrics.
type PreloadAdapter struct {
	enqueued prometheus.Counter
	results  *prometheus.CounterVec
	latency  prometheus.Histogram
	inflight prometheus.Gauge
	pending  prometheus.Gauge
}

// NewPreload constructs a scheduler metrics adapter; arguments as for New.
func NewPreload(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *PreloadAdapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &PreloadAdapter{
		enqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "enqueued_total",
			Help:        "Resources accepted into the background queue",
			ConstLabels: constLabels,
		}),
		results: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "loads_total",
				Help:        "Finished loads by result",
				ConstLabels: constLabels,
			},
			[]string{"result"},
		),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "load_duration_seconds",
			Help:        "Duration of successful loads",
			Buckets:     prometheus.ExponentialBuckets(0.005, 2, 12),
			ConstLabels: constLabels,
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "in_flight",
			Help:        "Loads currently running",
			ConstLabels: constLabels,
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "pending",
			Help:        "Resources waiting in the queue",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.enqueued, a.results, a.latency, a.inflight, a.pending)
	return a
}

func (a *PreloadAdapter) Enqueued() { a.enqueued.Inc() }

func (a *PreloadAdapter) Loaded(elapsed time.Duration) {
	a.results.WithLabelValues("ok").Inc()
	a.latency.Observe(elapsed.Seconds())
}

func (a *PreloadAdapter) Failed() { a.results.WithLabelValues("error").Inc() }

func (a *PreloadAdapter) InFlight(n int) { a.inflight.Set(float64(n)) }

func (a *PreloadAdapter) Pending(n int) { a.pending.Set(float64(n)) }

var _ preload.Metrics = (*PreloadAdapter)(nil)

// RetryAdapter implements retry.Metrics.
type RetryAdapter struct {
	attempts prometheus.Counter
	backoff  prometheus.Histogram
	calls    *prometheus.CounterVec
}

// NewRetry constructs a retry metrics adapter; arguments as for New.
func NewRetry(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *RetryAdapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &RetryAdapter{
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "attempts_total",
			Help:        "Operation attempts, first attempts included",
			ConstLabels: constLabels,
		}),
		backoff: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "backoff_seconds",
			Help:        "Delay before each retry",
			Buckets:     prometheus.ExponentialBuckets(0.001, 2, 15),
			ConstLabels: constLabels,
		}),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "calls_total",
				Help:        "Completed retry.Do calls by outcome",
				ConstLabels: constLabels,
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(a.attempts, a.backoff, a.calls)
	return a
}

func (a *RetryAdapter) Attempt() { a.attempts.Inc() }

func (a *RetryAdapter) Backoff(delay time.Duration) { a.backoff.Observe(delay.Seconds()) }

func (a *RetryAdapter) Done(succeeded bool, _ int) {
	outcome := "failed"
	if succeeded {
		outcome = "succeeded"
	}
	a.calls.WithLabelValues(outcome).Inc()
}

var _ retry.Metrics = (*RetryAdapter)(nil)
