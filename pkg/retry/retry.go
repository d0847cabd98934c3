package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds retry configuration for startup dependencies
type Config struct {
	Name            string
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	MaxTotalTimeout time.Duration
}

// DefaultConfig returns the startup retry policy: a handful of attempts,
// capped at 30 seconds overall
func DefaultConfig(name string) Config {
	return Config{
		Name:            name,
		MaxAttempts:     5,
		InitialDelay:    200 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BackoffFactor:   2.0,
		MaxTotalTimeout: 30 * time.Second,
	}
}

// Do runs fn with exponential backoff until it succeeds, attempts run out or
// ctx is done. Each failed attempt is logged at warn level.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxTotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.MaxTotalTimeout)
		defer cancel()
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return aborted(cfg.Name, attempt-1, err, lastErr)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}

		log.Warn().
			Err(err).
			Str("dependency", cfg.Name).
			Int("attempt", attempt).
			Dur("next_delay", delay).
			Msg("Dependency not ready, retrying")

		select {
		case <-ctx.Done():
			return aborted(cfg.Name, attempt, ctx.Err(), lastErr)
		case <-time.After(delay):
		}

		delay = NextDelay(delay, cfg.BackoffFactor, cfg.MaxDelay)
	}

	return fmt.Errorf("%s: max retry attempts (%d) exceeded: %w", cfg.Name, cfg.MaxAttempts, lastErr)
}

// NextDelay applies the backoff factor and caps the result at max.
func NextDelay(current time.Duration, factor float64, max time.Duration) time.Duration {
	next := time.Duration(float64(current) * factor)
	if max > 0 && next > max {
		return max
	}
	return next
}

func aborted(name string, attempts int, ctxErr, lastErr error) error {
	if lastErr != nil {
		return fmt.Errorf("%s: retry aborted after %d attempts: %w (last error: %v)", name, attempts, ctxErr, lastErr)
	}
	return fmt.Errorf("%s: retry aborted: %w", name, ctxErr)
}
