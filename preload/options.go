package preload

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultConcurrency is the number of background workers.
	DefaultConcurrency = 3
	// DefaultMaxCompleted bounds the completed set.
	DefaultMaxCompleted = 10_000
)

// Loader fetches one resource and reports whether it loaded.
type Loader interface {
	Load(ctx context.Context, id string) error
}

// LoaderFunc adapts a plain function to Loader.
type LoaderFunc func(ctx context.Context, id string) error

func (f LoaderFunc) Load(ctx context.Context, id string) error { return f(ctx, id) }

// Priority selects how PreloadImages schedules its batch.
type Priority int

const (
	// Low enqueues the batch for background workers and returns at once.
	Low Priority = iota
	// High loads the whole batch now and waits for it.
	High
)

func (p Priority) String() string {
	if p == High {
		return "high"
	}
	return "low"
}

// Metrics exposes scheduler-level observability hooks.
type Metrics interface {
	Enqueued()
	Loaded(elapsed time.Duration)
	Failed()
	InFlight(n int)
	Pending(n int)
}

// Options configures a Scheduler. Zero values are safe; defaults are
// applied in New():
//   - Concurrency <= 0        => 3
//   - MaxCompleted <= 0       => 10 000
//   - HighPriorityLimit <= 0  => no limit on High batches
//   - nil Metrics / Logger    => NoopMetrics / slog.Default()
type Options struct {
	Concurrency  int
	MaxCompleted int

	// HighPriorityLimit caps the goroutines one High batch uses. It does
	// not count against Concurrency.
	HighPriorityLimit int

	Metrics Metrics
	Logger  *slog.Logger
}
