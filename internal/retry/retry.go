// Package retry provides exponential backoff for transient store errors.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	perrors "github.com/p-blackswan/projectsync/internal/errors"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool

	// OnRetry is called before each new attempt with the attempt about to
	// run (starting at 2) and the error that caused it.
	OnRetry func(attempt int, err error)
}

// DefaultConfig returns defaults tuned for SQLite lock contention: a busy
// database usually clears within a few hundred milliseconds.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 4,
		BaseDelay:   50 * time.Millisecond,
		MaxDelay:    time.Second,
		Jitter:      true,
	}
}

// Do runs fn until it succeeds, fails with an error IsRetryable rejects, or
// MaxAttempts is used up. The last error is returned.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	attempts := max(cfg.MaxAttempts, 1)

	err := fn(ctx)
	for attempt := 2; attempt <= attempts && perrors.IsRetryable(err); attempt++ {
		timer := time.NewTimer(cfg.backoff(attempt - 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}
		err = fn(ctx)
	}
	return err
}

// backoff is the wait after the n-th failed attempt.
func (c Config) backoff(n int) time.Duration {
	delay := time.Duration(float64(c.BaseDelay) * math.Pow(2, float64(n-1)))
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	if c.Jitter {
		delay = time.Duration(float64(delay) * (0.5 + rand.Float64()*0.5))
	}
	return delay
}
