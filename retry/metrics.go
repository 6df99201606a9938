package retry

import "time"

// Metrics exposes executor-level observability hooks.
type Metrics interface {
	// Attempt is called before every attempt, the first one included.
	Attempt()
	// Backoff is called with the delay before each retry.
	Backoff(delay time.Duration)
	// Done is called once per Do with the final outcome.
	Done(succeeded bool, attempts int)
}

// NoopMetrics discards all signals.
type NoopMetrics struct{}

func (NoopMetrics) Attempt()              {}
func (NoopMetrics) Backoff(time.Duration) {}
func (NoopMetrics) Done(bool, int)        {}

var _ Metrics = NoopMetrics{}
