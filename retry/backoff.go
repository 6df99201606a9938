package retry

import "time"

// Backoff returns the delay before retry number attempt+1 (attempt is
// zero-based): min(base*2^attempt + jitter, maxDelay), where jitter is
// rnd()*maxJitter. rnd may be nil for no jitter.
func Backoff(attempt int, base, maxDelay, maxJitter time.Duration, rnd func() float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := maxDelay
	// Shifting past the cap (or overflowing) saturates at maxDelay.
	if attempt < 62 {
		if exp := base << uint(attempt); exp > 0 && exp>>uint(attempt) == base && exp < maxDelay {
			d = exp
		}
	}
	if maxJitter > 0 && rnd != nil {
		d += time.Duration(rnd() * float64(maxJitter))
	}
	if d > maxDelay {
		d = maxDelay
	}
	return d
}
