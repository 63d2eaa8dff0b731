// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxRetries      int                          // Maximum number of retry attempts
	InitialInterval time.Duration                // Delay before the first retry
	MaxInterval     time.Duration                // Upper bound for a single delay
	Multiplier      float64                      // Backoff growth per attempt
	Jitter          bool                         // Add up to 25% random jitter
	OnRetry         func(attempt int, err error) // Called before each retry
}

// DefaultRetryConfig is used for local work such as reading files.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		Jitter:          true,
	}
}

// RemoteOCRRetryConfig suits throttled cloud OCR calls.
func RemoteOCRRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     16 * time.Second,
		Multiplier:      2.0,
		Jitter:          true,
	}
}

// DatabaseRetryConfig suits short reconnect windows on the roster store.
func DatabaseRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     4 * time.Second,
		Multiplier:      2.0,
		Jitter:          true,
	}
}

// RetryableOperation represents an operation that can be retried.
type RetryableOperation func(ctx context.Context) error

// RetryWithBackoff runs operation until it succeeds, fails with a
// non-retryable error, exhausts MaxRetries or ctx is done.
// The delay before attempt n is InitialInterval * Multiplier^(n-1), capped
// at MaxInterval.
func RetryWithBackoff(ctx context.Context, config RetryConfig, operation RetryableOperation) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(config.delay(attempt)):
			}

			if config.OnRetry != nil {
				config.OnRetry(attempt, lastErr)
			}
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
	}

	return lastErr
}

func (c RetryConfig) delay(attempt int) time.Duration {
	d := float64(c.InitialInterval)
	for i := 1; i < attempt; i++ {
		d *= c.Multiplier
	}
	if c.Jitter {
		d += d * 0.25 * rand.Float64()
	}
	if c.MaxInterval > 0 {
		return min(time.Duration(d), c.MaxInterval)
	}
	return time.Duration(d)
}

// RetryWithResult is RetryWithBackoff for operations that produce a value.
func RetryWithResult[T any](ctx context.Context, config RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := RetryWithBackoff(ctx, config, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}

// RetryStats holds statistics about retry operations.
type RetryStats struct {
	TotalAttempts   int           `json:"total_attempts"`
	SuccessfulAfter int           `json:"successful_after"` // 0 if failed
	TotalDuration   time.Duration `json:"total_duration"`
	LastError       string        `json:"last_error,omitempty"`
	ErrorTypes      []string      `json:"error_types,omitempty"`
}

// RetryWithStats executes an operation with retry and collects statistics.
func RetryWithStats(ctx context.Context, config RetryConfig, operation RetryableOperation) (*RetryStats, error) {
	stats := &RetryStats{}
	start := time.Now()

	err := RetryWithBackoff(ctx, config, func(ctx context.Context) error {
		stats.TotalAttempts++
		err := operation(ctx)
		if err != nil {
			stats.LastError = err.Error()
			stats.ErrorTypes = append(stats.ErrorTypes, ClassifyError(err).Type.String())
		}
		return err
	})

	stats.TotalDuration = time.Since(start)
	if err == nil {
		stats.SuccessfulAfter = stats.TotalAttempts
	}
	return stats, err
}

// RetryManager maps operation names to retry policies.
type RetryManager struct {
	configs map[string]RetryConfig
}

// NewRetryManager creates a manager with the built-in policies registered
// under "file", "remote_ocr" and "database".
func NewRetryManager() *RetryManager {
	return &RetryManager{configs: map[string]RetryConfig{
		"file":       DefaultRetryConfig(),
		"remote_ocr": RemoteOCRRetryConfig(),
		"database":   DatabaseRetryConfig(),
	}}
}

// SetConfig overrides the policy for name.
func (rm *RetryManager) SetConfig(name string, config RetryConfig) {
	rm.configs[name] = config
}

// GetConfig returns the policy for name, falling back to DefaultRetryConfig.
func (rm *RetryManager) GetConfig(name string) RetryConfig {
	if config, ok := rm.configs[name]; ok {
		return config
	}
	return DefaultRetryConfig()
}

// Retry runs operation under the named policy.
func (rm *RetryManager) Retry(ctx context.Context, name string, operation RetryableOperation) error {
	return RetryWithBackoff(ctx, rm.GetConfig(name), operation)
}
