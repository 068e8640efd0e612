package errors

import (
	"fmt"
	"time"

	"github.com/c360/semreason/pkg/retry"
)

// RetryConfig is the operator-facing backoff setting. It converts to a
// retry.Config that only retries transient errors.
type RetryConfig struct {
	MaxRetries    int           `json:"max_retries" yaml:"max_retries"`
	InitialDelay  time.Duration `json:"initial_delay" yaml:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay" yaml:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor" yaml:"backoff_factor"`
}

// DefaultRetryConfig returns the retry settings used for store writes.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Validate rejects settings the backoff loop cannot use.
func (rc RetryConfig) Validate() error {
	switch {
	case rc.MaxRetries < 0:
		return fmt.Errorf("%w: max_retries must not be negative", ErrInvalidConfig)
	case rc.InitialDelay < 0 || rc.MaxDelay < 0:
		return fmt.Errorf("%w: retry delays must not be negative", ErrInvalidConfig)
	case rc.MaxDelay > 0 && rc.MaxDelay < rc.InitialDelay:
		return fmt.Errorf("%w: max_delay must be >= initial_delay", ErrInvalidConfig)
	case rc.BackoffFactor != 0 && rc.BackoffFactor < 1:
		return fmt.Errorf("%w: backoff_factor must be >= 1", ErrInvalidConfig)
	}
	return nil
}

// ShouldRetry reports whether attempt (zero based) may be followed by another.
func (rc RetryConfig) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= rc.MaxRetries {
		return false
	}
	return IsTransient(err)
}

// ToRetryConfig converts to retry.Config. MaxRetries counts additional
// attempts, so the total is one more.
func (rc RetryConfig) ToRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  rc.MaxRetries + 1,
		InitialDelay: rc.InitialDelay,
		MaxDelay:     rc.MaxDelay,
		Multiplier:   rc.BackoffFactor,
		AddJitter:    true,
		Retryable:    IsTransient,
	}
}
