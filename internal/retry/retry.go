// Package retry provides bounded exponential backoff for startup-critical
// operations, primarily the broker connection.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

var (
	jitterMu  sync.Mutex
	jitterRNG = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Config bounds a retry sequence
type Config struct {
	// MaxAttempts is the total number of tries, including the first
	MaxAttempts int
	// InitialDelay is the wait after the first failure
	InitialDelay time.Duration
	// MaxDelay caps the growing backoff
	MaxDelay time.Duration
	// Multiplier grows the delay between attempts, typically 2.0
	Multiplier float64
	// AddJitter spreads delays by up to 25% to avoid synchronized retries
	AddJitter bool
}

// DefaultConfig matches the broker connection defaults: five attempts with
// a doubling delay from one second, capped at thirty
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// normalize fills unset fields so a zero Config still terminates
func (c *Config) normalize() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.MaxDelay < c.InitialDelay {
		c.MaxDelay = c.InitialDelay
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2.0
	}
}

// Do runs op until it succeeds, attempts are exhausted, or ctx is done.
// Each failure is logged with the attempt number. The returned error wraps
// the last failure, so callers can inspect it with errors.Is.
func Do(ctx context.Context, cfg Config, name string, op func() error) error {
	cfg.normalize()

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s cancelled before attempt %d: %w", name, attempt, err)
		}

		if lastErr = op(); lastErr == nil {
			return nil
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		wait := delay
		if cfg.AddJitter {
			jitterMu.Lock()
			wait += time.Duration(jitterRNG.Int63n(int64(delay/4) + 1))
			jitterMu.Unlock()
		}

		slog.Warn("attempt failed, backing off",
			"operation", name,
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"retry_in", wait,
			"error", lastErr)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s cancelled during backoff: %w", name, ctx.Err())
		case <-timer.C:
		}

		next := float64(delay) * cfg.Multiplier
		if next > float64(cfg.MaxDelay) {
			delay = cfg.MaxDelay
		} else {
			delay = time.Duration(next)
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, cfg.MaxAttempts, lastErr)
}
