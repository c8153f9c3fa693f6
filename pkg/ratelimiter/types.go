package ratelimiter

import "time"

// Result is the bucket state after a check.
type Result struct {
	Limit     int       // bucket capacity
	Remaining int       // tokens left, negative when the check was refused
	ResetAt   time.Time // next refill
}

func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter returns how long to wait before the next attempt, zero when
// the check was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return max(time.Until(r.ResetAt), 0)
}

// Config defines a token bucket.
type Config struct {
	Capacity       int           // maximum tokens (burst)
	RefillRate     int           // tokens added per interval
	RefillInterval time.Duration // refill period
}
