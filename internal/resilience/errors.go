// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ErrorType tells callers how to react to a failure.
type ErrorType int

const (
	ErrorTypeUnknown            ErrorType = iota
	ErrorTypeTransient                    // dropped connections, resets
	ErrorTypePermanent                    // credentials, permissions
	ErrorTypeTimeout                      // deadlines
	ErrorTypeRateLimit                    // throttled by the OCR service
	ErrorTypeServiceUnavailable           // remote side down
	ErrorTypeInvalidInput                 // unreadable image, bad document
)

func (et ErrorType) String() string {
	switch et {
	case ErrorTypeTransient:
		return "Transient"
	case ErrorTypePermanent:
		return "Permanent"
	case ErrorTypeTimeout:
		return "Timeout"
	case ErrorTypeRateLimit:
		return "RateLimit"
	case ErrorTypeServiceUnavailable:
		return "ServiceUnavailable"
	case ErrorTypeInvalidInput:
		return "InvalidInput"
	case ErrorTypeUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(et))
	}
}

// ClassifiedError wraps an error with its handling class.
type ClassifiedError struct {
	Original  error
	Type      ErrorType
	Message   string
	Retryable bool
}

func (e *ClassifiedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Original != nil {
		return e.Original.Error()
	}
	return e.Type.String()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Original
}

// IsRetryable returns whether this error should be retried
func (e *ClassifiedError) IsRetryable() bool {
	return e.Retryable
}

// ClassifyError categorizes an error. Errors that are already classified
// anywhere in their chain keep their class.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.Canceled) {
		return classify(err, ErrorTypePermanent, "cancelled", false)
	}
	if isTimeoutError(err) {
		return classify(err, ErrorTypeTimeout, "timeout", true)
	}
	if isNetworkError(err) {
		return classify(err, ErrorTypeTransient, "network error", true)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "throttling", "rate exceeded", "rate limit", "provisionedthroughputexceeded", "too many requests"):
		return classify(err, ErrorTypeRateLimit, "rate limited", true)

	case containsAny(msg, "service unavailable", "internal server error", "internalservererror", "too many connections"):
		return classify(err, ErrorTypeServiceUnavailable, "service unavailable", true)

	case containsAny(msg, "access denied", "accessdenied", "unauthorized", "invalid credentials",
		"unrecognizedclient", "forbidden", "password authentication failed"):
		return classify(err, ErrorTypePermanent, "authentication/authorization error", false)

	case containsAny(msg, "unsupporteddocument", "baddocument", "documenttoolarge", "invalid", "malformed"):
		return classify(err, ErrorTypeInvalidInput, "invalid input", false)
	}

	return classify(err, ErrorTypeUnknown, "error", false)
}

func classify(err error, t ErrorType, label string, retryable bool) *ClassifiedError {
	return &ClassifiedError{
		Original:  err,
		Type:      t,
		Message:   fmt.Sprintf("%s: %v", label, err),
		Retryable: retryable,
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

// NewTransientError creates a retryable error.
func NewTransientError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypeTransient,
		Message:   message,
		Retryable: true,
	}
}

// NewPermanentError creates an error that is never retried.
func NewPermanentError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypePermanent,
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable reports whether an error should be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return ClassifyError(err).IsRetryable()
}
