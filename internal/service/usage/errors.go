package usage

import (
	"errors"
	"fmt"
)

var (
	// ErrLimitReached is returned by Run when the user exhausted the quota of
	// a feature for the current window.
	ErrLimitReached = errors.New("usage limit reached")

	// ErrUnknownFeature is returned for a feature that is not metered.
	ErrUnknownFeature = errors.New("feature is not metered")

	// ErrUsageTrackingFailed marks a failure to record a successful
	// invocation. Run logs it and never returns it.
	ErrUsageTrackingFailed = errors.New("usage tracking failed")
)

// LimitReachedError carries the decision that denied an invocation.
type LimitReachedError struct {
	Decision Decision
}

// Error implements the error interface.
func (e *LimitReachedError) Error() string {
	return fmt.Sprintf("%v: %s (%d of %d used)",
		ErrLimitReached, e.Decision.FeatureID, e.Decision.Used, e.Decision.Limit)
}

// Unwrap returns ErrLimitReached so that errors.Is matches it.
func (e *LimitReachedError) Unwrap() error {
	return ErrLimitReached
}

// ServiceError wraps errors from the usage service with the failed operation.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("usage %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("usage %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
