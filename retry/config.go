package retry

import (
	"log/slog"
	"time"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	DefaultMaxDelay   = 10 * time.Second
	DefaultMaxJitter  = time.Second
)

// Config controls retry behavior. A nil *Config passed to Do means
// DefaultConfig(). For a non-nil Config, normalized() applies:
//   - MaxRetries < 0         => 0 (a single attempt)
//   - BaseDelay <= 0         => DefaultBaseDelay
//   - MaxDelay <= 0          => DefaultMaxDelay; MaxDelay < BaseDelay => BaseDelay
//   - MaxJitter < 0          => 0 (no jitter)
//   - nil Classifier         => IsRetryable
//   - nil Metrics / Logger   => NoopMetrics / slog.Default()
type Config struct {
	// MaxRetries is the number of retries after the first attempt;
	// total attempts are MaxRetries+1.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// MaxJitter bounds the uniform random delay added to each backoff.
	MaxJitter time.Duration

	// AttemptTimeout bounds each attempt through its context. Zero means
	// no per-attempt timeout; only the backoff between attempts is capped.
	AttemptTimeout time.Duration

	// Classifier decides whether a failure is worth another attempt.
	Classifier func(error) bool

	Metrics Metrics
	Logger  *slog.Logger

	// Rand returns a float in [0,1) for jitter. Nil => math/rand/v2.
	Rand func() float64
}

// DefaultConfig returns the engine defaults: 3 retries, 1s base delay,
// 10s cap, up to 1s of jitter, no per-attempt timeout.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		MaxJitter:  DefaultMaxJitter,
	}
}

func (c *Config) normalized() Config {
	if c == nil {
		c = DefaultConfig()
	}
	n := *c
	if n.MaxRetries < 0 {
		n.MaxRetries = 0
	}
	if n.BaseDelay <= 0 {
		n.BaseDelay = DefaultBaseDelay
	}
	if n.MaxDelay <= 0 {
		n.MaxDelay = DefaultMaxDelay
	}
	if n.MaxDelay < n.BaseDelay {
		n.MaxDelay = n.BaseDelay
	}
	if n.MaxJitter < 0 {
		n.MaxJitter = 0
	}
	if n.AttemptTimeout < 0 {
		n.AttemptTimeout = 0
	}
	if n.Classifier == nil {
		n.Classifier = IsRetryable
	}
	if n.Metrics == nil {
		n.Metrics = NoopMetrics{}
	}
	if n.Logger == nil {
		n.Logger = slog.Default()
	}
	return n
}
