package scorer

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// safetyMargin stretches the nominal period so the service never sees more
// than qps requests in any second
const safetyMargin = 1.001

// Limiter paces outbound calls. Wait blocks until the next call may be sent
// or ctx is done.
type Limiter interface {
	Wait(ctx context.Context, qps float64) error
}

// Interval returns the pause taken before each call at the given rate.
// Rates too slow to express as a time.Duration give the longest Duration.
func Interval(qps float64) time.Duration {
	d := math.Round(safetyMargin / qps * float64(time.Second))
	if d >= math.MaxInt64 || math.IsNaN(d) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// DelayLimiter sleeps Interval(qps) before every call. It assumes a single
// sequential caller and does not coordinate concurrent callers.
type DelayLimiter struct{}

// NewDelayLimiter creates the default fixed-delay limiter
func NewDelayLimiter() *DelayLimiter {
	return &DelayLimiter{}
}

// Wait sleeps for Interval(qps), returning early with ctx.Err() on cancellation
func (l *DelayLimiter) Wait(ctx context.Context, qps float64) error {
	timer := time.NewTimer(Interval(qps))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SharedLimiter is a token bucket with a burst of one, safe to share across
// goroutines. Unlike DelayLimiter the first call is not delayed; later calls
// are spaced at least Interval(qps) apart across all callers.
type SharedLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	qps     float64
}

// NewSharedLimiter creates a token bucket paced for qps
func NewSharedLimiter(qps float64) *SharedLimiter {
	return &SharedLimiter{
		limiter: rate.NewLimiter(rate.Limit(qps/safetyMargin), 1),
		qps:     qps,
	}
}

// Wait blocks until a token is available. A changed qps takes effect immediately.
func (l *SharedLimiter) Wait(ctx context.Context, qps float64) error {
	l.mu.Lock()
	if qps != l.qps {
		l.limiter.SetLimit(rate.Limit(qps / safetyMargin))
		l.qps = qps
	}
	l.mu.Unlock()

	return l.limiter.Wait(ctx)
}
