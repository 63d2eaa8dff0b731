// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	StateClosed   BreakerState = iota // calls pass through
	StateOpen                         // calls fail fast
	StateHalfOpen                     // one trial call is allowed
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// BreakerOpenError is returned while a breaker rejects calls.
type BreakerOpenError struct {
	Name     string
	Failures int
}

func (e *BreakerOpenError) Error() string {
	return fmt.Sprintf("circuit '%s' is open after %d consecutive failures", e.Name, e.Failures)
}

// Breaker stops calling a remote service after FailureThreshold consecutive
// retryable failures, and lets a single trial call through once Cooldown passes.
type Breaker struct {
	Name             string
	FailureThreshold int
	Cooldown         time.Duration

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
	now      func() time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(name string, failureThreshold int, cooldown time.Duration) *Breaker {
	return &Breaker{
		Name:             name,
		FailureThreshold: failureThreshold,
		Cooldown:         cooldown,
		now:              time.Now,
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute runs fn unless the breaker is open. A *BreakerOpenError is
// returned without calling fn while open; it is classified as permanent so
// retry loops give up immediately.
func (b *Breaker) Execute(ctx context.Context, fn RetryableOperation) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn(ctx)
	b.after(err)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.Cooldown {
			return NewPermanentError("", &BreakerOpenError{Name: b.Name, Failures: b.failures})
		}
		b.state = StateHalfOpen
		b.probing = true
		return nil
	case StateHalfOpen:
		if b.probing {
			return NewPermanentError("", &BreakerOpenError{Name: b.Name, Failures: b.failures})
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	switch {
	case err == nil:
		b.state = StateClosed
		b.failures = 0
	case !IsRetryable(err):
		// the service answered; only a half-open trial call learns from that
		if b.state == StateHalfOpen {
			b.state = StateClosed
			b.failures = 0
		}
	default:
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.FailureThreshold {
			b.state = StateOpen
			b.openedAt = b.now()
		}
	}
}
