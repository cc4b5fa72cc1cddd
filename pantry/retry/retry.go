// retry/retry.go
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Config configures retry behavior.
type Config struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	// Default: 3.
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 100ms.
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 30 seconds.
	MaxDelay time.Duration

	// Multiplier increases the delay after each retry.
	// Default: 2.0 (exponential backoff).
	Multiplier float64

	// Jitter adds randomness to delays (0.0 to 1.0).
	Jitter float64

	// RetryIf determines whether to retry based on the error.
	// Default: retry all non-nil errors.
	RetryIf func(error) bool

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig returns sensible retry defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// Once returns a config that makes a single attempt and never retries.
func Once() Config {
	return Config{MaxAttempts: 1}
}

// Do executes a function with retries using the given configuration.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	_, err := DoWithResult(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoWithResult executes a function that returns a value with retries.
// It returns the last error once attempts are exhausted, RetryIf rejects
// an error, or ctx is done while waiting.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = withDefaults(cfg)

	var lastErr error
	var zero T
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, ctx.Err()
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if cfg.RetryIf != nil && !cfg.RetryIf(err) {
			return zero, err
		}

		// Don't wait after the last attempt
		if attempt >= cfg.MaxAttempts {
			break
		}

		actualDelay := addJitter(delay, cfg.Jitter)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, actualDelay)
		}

		timer := time.NewTimer(actualDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return zero, lastErr
}

// withDefaults applies default values to config.
func withDefaults(cfg Config) Config {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	return cfg
}

// addJitter adds +/- jitter% randomness to a duration.
func addJitter(d time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return d
	}
	delta := float64(d) * jitter
	lo := float64(d) - delta
	hi := float64(d) + delta
	return time.Duration(lo + rand.Float64()*(hi-lo))
}

// Permanent wraps an error to indicate it should not be retried.
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string {
	if p.Err == nil {
		return "permanent error"
	}
	return p.Err.Error()
}

func (p *Permanent) Unwrap() error {
	return p.Err
}

// PermanentError wraps an error to prevent retries.
func PermanentError(err error) error {
	if err == nil {
		return nil
	}
	return &Permanent{Err: err}
}

// IsPermanent returns true if the error is marked as permanent.
func IsPermanent(err error) bool {
	var p *Permanent
	return errors.As(err, &p)
}

// SkipPermanent is a RetryIf function that stops on permanent errors.
func SkipPermanent(err error) bool {
	return !IsPermanent(err)
}
