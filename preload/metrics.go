package preload

import "time"

// NoopMetrics discards all signals.
type NoopMetrics struct{}

func (NoopMetrics) Enqueued()            {}
func (NoopMetrics) Loaded(time.Duration) {}
func (NoopMetrics) Failed()              {}
func (NoopMetrics) InFlight(int)         {}
func (NoopMetrics) Pending(int)          {}

var _ Metrics = NoopMetrics{}
