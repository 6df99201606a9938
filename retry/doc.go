// Package retry runs an operation with exponential backoff and jitter,
// retrying only failures classified as transient.
//
// Errors are classified structurally rather than by message text: the
// origin tags an error with a Kind (see Network, Timeout, Validation, ...),
// which is carried as a github.com/jmgilman/go/errors code and survives
// wrapping. Transport errors from the standard library (net.Error timeouts,
// *net.OpError, context.DeadlineExceeded) are recognised without tagging.
//
// Do never panics and never reports failure out of band: the outcome is
// always a Result carrying the value, the last error and the attempt count.
//
//	res := retry.Do(ctx, func(ctx context.Context) ([]catalog.Entry, error) {
//	    return src.FetchPage(ctx, 0, 60)
//	}, nil) // nil => DefaultConfig: 3 retries, 1s base, 10s cap, 1s jitter
//	if !res.Succeeded {
//	    return res.Err
//	}
package retry
