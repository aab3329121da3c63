// Package resilience provides the retry primitive that guards the
// engine's outbound connections.
//
// [Do] runs an operation with bounded attempts and exponential backoff,
// honouring context cancellation between attempts. All functions are
// safe for concurrent use.
package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryConfig holds tuning knobs for [Do]. Zero-value fields are
// replaced with sensible defaults.
type RetryConfig struct {
	// Name is a human-readable label used in log messages.
	Name string

	// MaxAttempts is the total number of tries, including the first.
	// Default: 3.
	MaxAttempts int

	// InitialBackoff is the delay after the first failure. Each further
	// failure doubles it, capped at MaxBackoff. Default: 500ms.
	InitialBackoff time.Duration

	// MaxBackoff caps the per-attempt delay. Default: 5s.
	MaxBackoff time.Duration
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	return cfg
}

// Do runs fn until it succeeds, the attempt budget is spent, or ctx is
// cancelled. Between attempts it sleeps with exponential backoff. The
// returned error is the last attempt's error, or the context error when
// cancellation cut the wait short.
func Do[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}
		slog.Warn("attempt failed, retrying",
			"name", cfg.Name,
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"backoff", backoff,
			"error", err,
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	return zero, fmt.Errorf("%s: %d attempts failed: %w", cfg.Name, cfg.MaxAttempts, lastErr)
}
