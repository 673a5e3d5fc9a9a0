// Package errs provides structured error types and helpers for the back-office core.
package errs

import (
	"errors"
	"strconv"
	"strings"
)

// Code identifies an error category raised by the order lifecycle core.
type Code string

const (
	// CodeInvalid indicates invalid input provided by the caller.
	CodeInvalid Code = "invalid_request"
	// CodeInvalidTransition indicates a fulfillment move out of a terminal state.
	CodeInvalidTransition Code = "invalid_transition"
	// CodePaymentRegression indicates a backward payment-status move.
	CodePaymentRegression Code = "payment_regression"
	// CodeUnknownStatus indicates a status value outside the closed variant set.
	CodeUnknownStatus Code = "unknown_status"
	// CodeNotFound indicates a missing resource.
	CodeNotFound Code = "not_found"
	// CodeConflict indicates a concurrent mutation conflict.
	CodeConflict Code = "conflict"
	// CodeIo indicates a failure surfaced from an external persistence collaborator.
	CodeIo Code = "io"
	// CodeUnavailable indicates the component is shut down or temporarily unavailable.
	CodeUnavailable Code = "unavailable"
)

// E captures structured error information produced across the back-office stack.
type E struct {
	Scope       string
	Code        Code
	Message     string
	OrderID     string
	Remediation string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the scope and error code.
func New(scope string, code Code, opts ...Option) *E {
	e := &E{
		Scope:       strings.TrimSpace(scope),
		Code:        code,
		Message:     "",
		OrderID:     "",
		Remediation: "",
		cause:       nil,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithOrder records the order the failure relates to.
func WithOrder(orderID string) Option {
	trimmed := strings.TrimSpace(orderID)
	return func(e *E) {
		e.OrderID = trimmed
	}
}

// WithRemediation attaches remediation guidance to the error.
func WithRemediation(remediation string) Option {
	trimmed := strings.TrimSpace(remediation)
	return func(e *E) {
		e.Remediation = trimmed
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	scope := strings.TrimSpace(e.Scope)
	if scope == "" {
		scope = "unknown"
	}
	parts = append(parts, "scope="+scope)

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if e.OrderID != "" {
		parts = append(parts, "order="+e.OrderID)
	}
	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.Remediation != "" {
		parts = append(parts, "remediation="+strconv.Quote(e.Remediation))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// CodeOf extracts the structured code from err, or empty when err is not an *E.
func CodeOf(err error) Code {
	var envelope *E
	if errors.As(err, &envelope) {
		return envelope.Code
	}
	return ""
}

// HasCode reports whether err carries the given structured code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
