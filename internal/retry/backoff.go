package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// Config configures retry behavior with exponential backoff
type Config struct {
	MaxRetries int           `koanf:"max_retries"` // Retries after the first attempt (default: 2)
	BaseDelay  time.Duration `koanf:"base_delay"`  // Delay before the first retry (default: 500ms)
	MaxDelay   time.Duration `koanf:"max_delay"`   // Upper bound for any delay (default: 10s)
	Multiplier float64       `koanf:"multiplier"`  // Exponential growth factor (default: 2.0)
	Jitter     bool          `koanf:"jitter"`      // Spread retries by up to +/-10% (default: true)

	// ShouldRetry decides whether an error is worth another attempt.
	// Nil retries every error.
	ShouldRetry func(error) bool `koanf:"-"`
}

// Result describes how an operation went
type Result struct {
	Attempts      int
	TotalDuration time.Duration
	LastError     error
	Success       bool
}

// DefaultConfig returns the backoff used for idempotent reads
func DefaultConfig() Config {
	return Config{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// None returns a config that runs the operation exactly once
func None() Config {
	return Config{MaxRetries: 0}
}

// Do runs op until it succeeds, returns a non-retryable error, runs out of
// attempts or ctx is done. Every attempt is logged at debug level.
func Do(ctx context.Context, cfg Config, logger zerolog.Logger, op func(ctx context.Context) error) Result {
	start := time.Now()
	var result Result

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result.Attempts = attempt + 1

		err := op(ctx)
		if err == nil {
			result.Success = true
			result.LastError = nil
			result.TotalDuration = time.Since(start)
			if attempt > 0 {
				logger.Debug().Int("attempts", result.Attempts).Dur("duration", result.TotalDuration).Msg("Operation succeeded after retry")
			}
			return result
		}
		result.LastError = err

		if attempt >= cfg.MaxRetries || (cfg.ShouldRetry != nil && !cfg.ShouldRetry(err)) {
			break
		}
		if ctx.Err() != nil {
			result.LastError = ctx.Err()
			break
		}

		delay := calculateDelay(cfg, attempt)
		logger.Debug().Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", cfg.MaxRetries+1).
			Dur("delay", delay).
			Msg("Operation failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(start)
			return result
		case <-timer.C:
		}
	}

	result.TotalDuration = time.Since(start)
	return result
}

// calculateDelay returns baseDelay * multiplier^attempt, capped and jittered
func calculateDelay(cfg Config, attempt int) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt))

	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	if cfg.Jitter {
		jitterRange := delay * 0.1
		delay += (rand.Float64() - 0.5) * 2 * jitterRange
		if delay < 0 {
			delay = float64(cfg.BaseDelay)
		}
	}

	return time.Duration(delay)
}
