package retry

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	perrors "github.com/jmgilman/go/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/IvanBrykalov/gridview/retry"

// Result is the outcome of Do. Exactly one of Succeeded or Err is set.
type Result[T any] struct {
	Value     T
	Err       error
	Succeeded bool
	// Attempts is the number of times the operation ran.
	Attempts int
}

// Get unpacks the result into the usual (value, error) pair.
func (r Result[T]) Get() (T, error) {
	return r.Value, r.Err
}

// Do runs op until it succeeds, fails with a non-retryable error, or
// cfg.MaxRetries retries are spent. Between attempts it waits
// Backoff(attempt, ...). Cancellation of ctx stops retrying; the result
// then carries ctx's error joined with the last operation error.
//
// A panic in op is recovered and reported as a non-retryable failure.
func Do[T any](ctx context.Context, op func(context.Context) (T, error), cfg *Config) Result[T] {
	c := cfg.normalized()
	rnd := c.Rand
	if rnd == nil {
		rnd = rand.Float64
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "retry.Do")
	defer span.End()

	var res Result[T]
	for attempt := 0; ; attempt++ {
		res.Attempts = attempt + 1
		c.Metrics.Attempt()

		v, err := runAttempt(ctx, op, c.AttemptTimeout)
		if err == nil {
			res.Value, res.Err, res.Succeeded = v, nil, true
			break
		}
		res.Err = err
		kind := Classify(err)
		span.AddEvent("attempt failed", trace.WithAttributes(
			attribute.Int("retry.attempt", attempt),
			attribute.String("retry.kind", kind.String()),
		))

		if ctx.Err() != nil || !c.Classifier(err) || attempt >= c.MaxRetries {
			break
		}

		delay := Backoff(attempt, c.BaseDelay, c.MaxDelay, c.MaxJitter, rnd)
		c.Metrics.Backoff(delay)
		c.Logger.Debug("retrying operation",
			slog.Int("attempt", attempt),
			slog.String("kind", kind.String()),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)
		if werr := wait(ctx, delay); werr != nil {
			res.Err = errors.Join(werr, err)
			break
		}
	}

	span.SetAttributes(attribute.Int("retry.attempts", res.Attempts))
	if !res.Succeeded {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, "retry exhausted or fatal")
		c.Logger.Debug("operation failed",
			slog.Int("attempts", res.Attempts),
			slog.Any("error", res.Err),
		)
	}
	c.Metrics.Done(res.Succeeded, res.Attempts)
	return res
}

// runAttempt calls op once under the optional per-attempt timeout,
// converting a panic into an error.
func runAttempt[T any](ctx context.Context, op func(context.Context) (T, error), timeout time.Duration) (v T, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v = zero
			err = perrors.Newf(perrors.CodeInternal, "retry: operation panicked: %v", r)
		}
	}()
	return op(ctx)
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
