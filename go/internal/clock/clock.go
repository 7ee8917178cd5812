package clock

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the interface we use for time operations.
// In production, use New(). In tests, a clockwork.FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// New returns a clock backed by the system monotonic clock.
func New() Clock {
	return clockwork.NewRealClock()
}

// SleepUntil blocks until c reaches the absolute instant t or ctx is cancelled.
// The wait is always computed against t rather than as a relative delay, so
// late wake-ups never accumulate across successive calls.
func SleepUntil(ctx context.Context, c Clock, t time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	wait := t.Sub(c.Now())
	if wait <= 0 {
		return nil
	}

	timer := c.NewTimer(wait)
	defer stopAndDrainTimer(timer)

	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stopAndDrainTimer safely stops a timer and drains its channel.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
