package reliability

import (
	"context"
	"time"
)

// IsRetryableHTTPStatus classifies status codes that indicate a transient
// upstream condition rather than a bad request.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// Backoff computes a deterministic capped exponential backoff duration for
// the given zero-based attempt.
func Backoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}

// Sleep waits for the backoff of the given attempt or until ctx is done.
// It reports false when the context ended the wait.
func Sleep(ctx context.Context, attempt int, base, cap time.Duration) bool {
	timer := time.NewTimer(Backoff(attempt, base, cap))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
