package poll

import (
	"context"
	"time"
)

// Policy bounds a fixed-delay polling loop.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration

	// Sleep is swappable for tests. Defaults to a context-aware timer wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy matches the transcript wait used at session end.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 6, Delay: 400 * time.Millisecond}
}

// Until calls fn up to MaxAttempts times with a fixed delay between attempts,
// stopping early when fn reports done. It returns fn's last error, or nil when
// the attempt budget is exhausted without a hard failure: running out of
// attempts is a bounded wait expiring, not an error.
func (p Policy) Until(ctx context.Context, fn func(ctx context.Context) (done bool, err error)) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	sleep := p.Sleep
	if sleep == nil {
		sleep = waitTimer
	}

	for attempt := 0; attempt < attempts; attempt++ {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if attempt < attempts-1 {
			if err := sleep(ctx, p.Delay); err != nil {
				return err
			}
		}
	}

	return nil
}

func waitTimer(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
