// Package apperr defines the typed error taxonomy shared by both services.
// Domain code raises these; infrastructure adapters convert transport failures
// into them exactly once at the boundary, and the HTTP layer maps kinds to
// status codes.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable, machine-readable error class.
type Kind string

const (
	KindValidation              Kind = "VALIDATION_ERROR"
	KindCustomerNotActive       Kind = "CUSTOMER_NOT_ACTIVE"
	KindAccountNotActive        Kind = "ACCOUNT_NOT_ACTIVE"
	KindInvalidAmount           Kind = "INVALID_AMOUNT"
	KindCustomerNotFound        Kind = "CUSTOMER_NOT_FOUND"
	KindAccountNotFound         Kind = "ACCOUNT_NOT_FOUND"
	KindMovementNotFound        Kind = "MOVEMENT_NOT_FOUND"
	KindDuplicateTransaction    Kind = "DUPLICATE_TRANSACTION"
	KindDuplicateIdempotencyKey Kind = "DUPLICATE_IDEMPOTENCY_KEY"
	KindVersionConflict         Kind = "VERSION_CONFLICT"
	KindCustomerAlreadyExists   Kind = "CUSTOMER_ALREADY_EXISTS"
	KindInsufficientBalance     Kind = "INSUFFICIENT_BALANCE"
	KindBusinessRuleViolation   Kind = "BUSINESS_RULE_VIOLATION"
	KindInvalidReversal         Kind = "INVALID_REVERSAL"
	KindServiceUnavailable      Kind = "SERVICE_UNAVAILABLE"
	KindInternal                Kind = "INTERNAL"
)

// FieldError describes a single field-level validation failure.
type FieldError struct {
	Field         string `json:"field"`
	Message       string `json:"message"`
	RejectedValue any    `json:"rejectedValue"`
}

// Error is a typed domain error. Details carries structured context that the
// HTTP layer surfaces in the response body (e.g. overdraft figures or the
// movement id an idempotency key is already bound to).
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two apperr values by kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithDetails attaches structured context and returns the same error.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// WithFields attaches field-level validation failures and returns the same error.
func (e *Error) WithFields(fields ...FieldError) *Error {
	e.Fields = append(e.Fields, fields...)
	return e
}

// KindOf extracts the kind from any error chain; unclassified errors are INTERNAL.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As extracts the typed error from a chain, or nil.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// HTTPStatus maps a kind to its default HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindCustomerNotActive, KindAccountNotActive, KindInvalidAmount:
		return 400
	case KindCustomerNotFound, KindAccountNotFound, KindMovementNotFound:
		return 404
	case KindDuplicateTransaction, KindDuplicateIdempotencyKey, KindVersionConflict, KindCustomerAlreadyExists, KindInvalidReversal:
		return 409
	case KindInsufficientBalance, KindBusinessRuleViolation:
		return 422
	case KindServiceUnavailable:
		return 503
	default:
		return 500
	}
}
