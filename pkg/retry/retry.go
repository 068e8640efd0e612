package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// maxMultiplier caps runaway growth factors from configuration.
const maxMultiplier = 1000

// NonRetryableError stops Do on the first failure.
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return "non-retryable: " + e.Err.Error()
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable marks err so Do returns it without another attempt.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable reports whether err was marked with NonRetryable.
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return errors.As(err, &nre)
}

// Config describes an exponential backoff.
type Config struct {
	MaxAttempts  int           // total attempts, values below one run once
	InitialDelay time.Duration // wait after the first failure
	MaxDelay     time.Duration // upper bound for any wait
	Multiplier   float64       // growth per attempt
	AddJitter    bool          // add up to a quarter of the delay at random

	// Retryable filters errors worth another attempt. Nil retries everything
	// not wrapped with NonRetryable.
	Retryable func(error) bool
}

// DefaultConfig is three attempts starting at 100ms.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

func (cfg Config) withDefaults() (Config, error) {
	switch {
	case cfg.InitialDelay < 0:
		return cfg, errors.New("retry: InitialDelay cannot be negative")
	case cfg.MaxDelay < 0:
		return cfg, errors.New("retry: MaxDelay cannot be negative")
	case cfg.Multiplier < 0:
		return cfg, errors.New("retry: Multiplier cannot be negative")
	}

	def := DefaultConfig()
	cfg.MaxAttempts = max(cfg.MaxAttempts, 1)
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = def.Multiplier
	}
	cfg.Multiplier = min(cfg.Multiplier, maxMultiplier)

	if cfg.MaxDelay < cfg.InitialDelay {
		return cfg, errors.New("retry: MaxDelay must be >= InitialDelay")
	}
	return cfg, nil
}

func (cfg Config) retryable(err error) bool {
	if IsNonRetryable(err) {
		return false
	}
	return cfg.Retryable == nil || cfg.Retryable(err)
}

// wait returns the pause before the next attempt, jittered when enabled.
func (cfg Config) wait(delay time.Duration) time.Duration {
	if !cfg.AddJitter || delay < 4 {
		return delay
	}
	return delay + rand.N(delay/4)
}

func (cfg Config) grow(delay time.Duration) time.Duration {
	next := float64(delay) * cfg.Multiplier
	if next > float64(cfg.MaxDelay) {
		return cfg.MaxDelay
	}
	return time.Duration(next)
}

// Do calls fn until it succeeds, returns an error the config will not
// retry, runs out of attempts or ctx ends.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return err
	}

	delay := cfg.InitialDelay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !cfg.retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry cancelled before attempt %d: %w", attempt, ctx.Err())
		}
		if attempt >= cfg.MaxAttempts {
			return fmt.Errorf("retry failed after %d attempts: %w", cfg.MaxAttempts, err)
		}

		timer := time.NewTimer(cfg.wait(delay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled during backoff for attempt %d: %w", attempt+1, ctx.Err())
		case <-timer.C:
		}
		delay = cfg.grow(delay)
	}
}

// DoWithResult is Do for functions that also return a value.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}
