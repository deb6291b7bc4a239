package quota

import (
	"time"

	"golang.org/x/time/rate"
)

const DefaultCooldown = 2 * time.Second

// Throttle accepts at most one call per interval. Calls inside the interval are
// rejected, not queued, and do not extend it.
type Throttle struct {
	limiter *rate.Limiter
	now     func() time.Time
}

// NewThrottle returns a throttle with the given minimum interval. A non-positive
// interval disables throttling.
func NewThrottle(interval time.Duration, now func() time.Time) *Throttle {
	if now == nil {
		now = time.Now
	}

	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Throttle{limiter: rate.NewLimiter(limit, 1), now: now}
}

// Allow reports whether a call may proceed now, consuming the slot if so.
func (t *Throttle) Allow() bool {
	return t.limiter.AllowN(t.now(), 1)
}
