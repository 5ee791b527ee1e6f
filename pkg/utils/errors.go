package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"
)

// ErrorCategory represents the category of an error
type ErrorCategory int

const (
	CategorySystem ErrorCategory = iota
	CategoryNetwork
	CategoryConfiguration
	CategoryProvider
	CategoryValidation
	CategoryExecution
)

// String returns the lowercase category name used in logs and API payloads
func (c ErrorCategory) String() string {
	switch c {
	case CategoryNetwork:
		return "network"
	case CategoryConfiguration:
		return "configuration"
	case CategoryProvider:
		return "provider"
	case CategoryValidation:
		return "validation"
	case CategoryExecution:
		return "execution"
	default:
		return "system"
	}
}

// ErrorContext provides additional context for errors
type ErrorContext struct {
	Component string
	Operation string
	Resource  string
	Metadata  map[string]interface{}
}

// StructuredError represents a standardized error with rich context
type StructuredError struct {
	Code      string
	Message   string
	Category  ErrorCategory
	Context   *ErrorContext
	RootCause error
	Timestamp int64
}

// Error implements the error interface
func (e *StructuredError) Error() string {
	if e.RootCause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.RootCause)
	}
	return e.Message
}

// Unwrap returns the underlying error for compatibility with errors.Is and errors.As
func (e *StructuredError) Unwrap() error {
	return e.RootCause
}

// NewStructuredError creates a new structured error
func NewStructuredError(code, message string, category ErrorCategory, rootCause error) *StructuredError {
	return &StructuredError{
		Code:      code,
		Message:   message,
		Category:  category,
		RootCause: rootCause,
		Timestamp: time.Now().Unix(),
	}
}

// NewNetworkError creates a network-related error. Network errors are transient.
func NewNetworkError(operation string, rootCause error) *StructuredError {
	return NewStructuredError(
		"NET_ERROR",
		fmt.Sprintf("network error during %s", operation),
		CategoryNetwork,
		rootCause,
	).WithContext(&ErrorContext{Operation: operation})
}

// NewConfigError creates a configuration-related error
func NewConfigError(key string, message string) *StructuredError {
	return NewStructuredError(
		"CFG_ERROR",
		message,
		CategoryConfiguration,
		nil,
	).WithContext(&ErrorContext{Resource: key})
}

// NewProviderError creates an error for a provider that answered but reported failure
func NewProviderError(provider, message string) *StructuredError {
	return NewStructuredError(
		"PROVIDER_ERROR",
		message,
		CategoryProvider,
		nil,
	).WithContext(&ErrorContext{Component: provider})
}

// NewValidationError creates a validation error
func NewValidationError(field, reason string) *StructuredError {
	return NewStructuredError(
		"VAL_ERROR",
		fmt.Sprintf("validation failed for %s: %s", field, reason),
		CategoryValidation,
		nil,
	).WithContext(&ErrorContext{Resource: field})
}

// NewExecutionError creates an execution error
func NewExecutionError(component, operation string, rootCause error) *StructuredError {
	return NewStructuredError(
		"EXEC_ERROR",
		fmt.Sprintf("execution failed in %s during %s", component, operation),
		CategoryExecution,
		rootCause,
	).WithContext(&ErrorContext{Component: component, Operation: operation})
}

// WithContext adds context to the error
func (e *StructuredError) WithContext(ctx *ErrorContext) *StructuredError {
	e.Context = ctx
	return e
}

// WithMetadata adds metadata to the error
func (e *StructuredError) WithMetadata(key string, value interface{}) *StructuredError {
	if e.Context == nil {
		e.Context = &ErrorContext{}
	}
	if e.Context.Metadata == nil {
		e.Context.Metadata = make(map[string]interface{})
	}
	e.Context.Metadata[key] = value
	return e
}

// IsConfigurationError reports whether err (or anything it wraps) is a configuration error
func IsConfigurationError(err error) bool {
	var structuredErr *StructuredError
	if errors.As(err, &structuredErr) {
		return structuredErr.Category == CategoryConfiguration
	}
	return false
}

// IsTransientError reports whether err is worth retrying: timeouts, cancellation and
// transport-level failures. Application-level failures are never transient.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	var structuredErr *StructuredError
	if errors.As(err, &structuredErr) {
		switch structuredErr.Category {
		case CategoryNetwork:
			return true
		case CategoryConfiguration, CategoryProvider, CategoryValidation:
			return false
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe")
}

// FormatError formats an error for display
func FormatError(err error) string {
	var structuredErr *StructuredError
	if !errors.As(err, &structuredErr) {
		return err.Error()
	}

	parts := []string{fmt.Sprintf("Error [%s]: %s", structuredErr.Code, structuredErr.Message)}
	if structuredErr.Context != nil {
		if structuredErr.Context.Component != "" {
			parts = append(parts, fmt.Sprintf("Component: %s", structuredErr.Context.Component))
		}
		if structuredErr.Context.Operation != "" {
			parts = append(parts, fmt.Sprintf("Operation: %s", structuredErr.Context.Operation))
		}
		if structuredErr.Context.Resource != "" {
			parts = append(parts, fmt.Sprintf("Resource: %s", structuredErr.Context.Resource))
		}
	}
	if structuredErr.RootCause != nil {
		parts = append(parts, fmt.Sprintf("Root Cause: %v", structuredErr.RootCause))
	}
	return strings.Join(parts, " | ")
}
