package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// Provider resolution errors
	ErrProviderNotConfigured = errors.New("payment provider not configured")
	ErrUnknownProvider       = errors.New("unknown payment provider")
	ErrMethodNotSupported    = errors.New("payment method not supported by provider")
	ErrNoWorkingProvider     = errors.New("no working payment provider")

	// Provider call errors
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrProviderTimeout     = errors.New("provider request timeout")
	ErrUpstream            = errors.New("provider returned an error response")

	// Payment errors
	ErrPaymentNotFound = errors.New("payment not found")
	ErrInvalidAmount   = errors.New("invalid amount")

	// Environment errors
	ErrEnvironmentViolation = errors.New("operation not allowed in this environment")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// ConfigurationError reports a provider that was requested but has no usable credentials.
type ConfigurationError struct {
	Provider string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("provider %s is not configured: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("provider %s is not configured", e.Provider)
}

func (e *ConfigurationError) Unwrap() error { return ErrProviderNotConfigured }

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(provider, reason string) *ConfigurationError {
	return &ConfigurationError{Provider: provider, Reason: reason}
}

// CapabilityError reports a provider that does not support the requested method or operation.
type CapabilityError struct {
	Provider   string
	Capability string
}

func (e *CapabilityError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("no configured provider supports %s", e.Capability)
	}
	return fmt.Sprintf("provider %s does not support %s", e.Provider, e.Capability)
}

func (e *CapabilityError) Unwrap() error { return ErrMethodNotSupported }

// NewCapabilityError creates a new capability error.
func NewCapabilityError(provider, capability string) *CapabilityError {
	return &CapabilityError{Provider: provider, Capability: capability}
}

// TimeoutError reports an upstream call that exceeded its bound.
type TimeoutError struct {
	Provider  string
	Operation string
	Err       error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s: request timed out", e.Provider, e.Operation)
}

func (e *TimeoutError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProviderTimeout}
	}
	return []error{ErrProviderTimeout, e.Err}
}

// UpstreamError carries a non-success gateway response for diagnostics.
type UpstreamError struct {
	Provider   string
	Operation  string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s: upstream returned HTTP %d: %s", e.Provider, e.Operation, e.StatusCode, truncate(e.Body, 256))
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// NotFound reports whether the gateway answered 404.
func (e *UpstreamError) NotFound() bool { return e.StatusCode == 404 }

// Retriable reports whether repeating the call could succeed.
func (e *UpstreamError) Retriable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// EnvironmentViolationError is returned when a non-production operation is attempted in production.
type EnvironmentViolationError struct {
	Operation   string
	Environment string
}

func (e *EnvironmentViolationError) Error() string {
	return fmt.Sprintf("%s is not allowed in %s environment", e.Operation, e.Environment)
}

func (e *EnvironmentViolationError) Unwrap() error { return ErrEnvironmentViolation }

// LookupError aggregates per-provider failures of a status lookup that no provider could answer.
type LookupError struct {
	PaymentID string
	Failures  map[string]error
}

func (e *LookupError) Error() string {
	providers := make([]string, 0, len(e.Failures))
	for name := range e.Failures {
		providers = append(providers, name)
	}
	sort.Strings(providers)
	return fmt.Sprintf("payment %s not found in any provider (tried: %s)", e.PaymentID, strings.Join(providers, ", "))
}

func (e *LookupError) Unwrap() error { return ErrPaymentNotFound }

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Kind is the reaction a caller should take for an error.
type Kind string

const (
	// KindUnavailable: configuration or capability problem, show "service unavailable".
	KindUnavailable Kind = "unavailable"
	// KindRetry: timeout or upstream failure, show "try again".
	KindRetry Kind = "retry"
	// KindHidden: should not be reachable by real users.
	KindHidden Kind = "hidden"
	// KindInvalid: the request itself was rejected.
	KindInvalid Kind = "invalid"
	// KindNotFound: no provider knows the payment.
	KindNotFound Kind = "not_found"
	// KindInternal: anything else.
	KindInternal Kind = "internal"
)

// Classify maps an error onto the reaction expected from the caller.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEnvironmentViolation):
		return KindHidden
	case errors.Is(err, ErrValidationFailed), errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidInput):
		return KindInvalid
	case errors.Is(err, ErrProviderNotConfigured), errors.Is(err, ErrUnknownProvider),
		errors.Is(err, ErrMethodNotSupported), errors.Is(err, ErrNoWorkingProvider):
		return KindUnavailable
	case errors.Is(err, ErrPaymentNotFound):
		return KindNotFound
	case errors.Is(err, ErrProviderTimeout), errors.Is(err, ErrUpstream), errors.Is(err, ErrProviderUnavailable):
		return KindRetry
	default:
		return KindInternal
	}
}

// IsRetriable reports whether a provider call failure is worth repeating.
func IsRetriable(err error) bool {
	if errors.Is(err, ErrProviderTimeout) {
		return true
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Retriable()
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
