package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an application error. The HTTP layer maps each kind
// to exactly one status code.
type ErrorKind string

const (
	KindNotFound        ErrorKind = "NOT_FOUND"
	KindInvalidInput    ErrorKind = "INVALID_INPUT"
	KindUnauthenticated ErrorKind = "UNAUTHENTICATED"
	KindForbidden       ErrorKind = "FORBIDDEN"
	KindConflict        ErrorKind = "CONFLICT"
	KindIllegalState    ErrorKind = "ILLEGAL_STATE"
	KindInternal        ErrorKind = "INTERNAL"
)

// AppError is a structured application error.
type AppError struct {
	Kind    ErrorKind `json:"code"`
	Message string    `json:"error"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error constructors.

func ErrNotFound(msg string) *AppError {
	return &AppError{Kind: KindNotFound, Message: msg}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Kind: KindUnauthenticated, Message: msg}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Kind: KindForbidden, Message: msg}
}

func ErrBadRequest(msg string) *AppError {
	return &AppError{Kind: KindInvalidInput, Message: msg}
}

// ErrValidation reports a request that failed struct validation.
func ErrValidation(msg string) *AppError {
	return &AppError{Kind: KindInvalidInput, Message: msg}
}

// ErrConflict reports a write blocked by dependent records, e.g. deleting a
// troop that still has active scouts.
func ErrConflict(msg string) *AppError {
	return &AppError{Kind: KindConflict, Message: msg}
}

// ErrIllegalState reports a premature or repeated state transition.
func ErrIllegalState(msg string) *AppError {
	return &AppError{Kind: KindIllegalState, Message: msg}
}

func ErrInternal(msg string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: msg, Err: err}
}

// AsAppError attempts to extract an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind == kind
}

// ErrDuplicateKey is returned by stores when a unique constraint rejects a
// write.
var ErrDuplicateKey = errors.New("duplicate key")

// Unique violations that callers resolve differently. Both match
// ErrDuplicateKey under errors.Is.
var (
	ErrActiveSubscriptionExists = fmt.Errorf("%w: user already has an active subscription", ErrDuplicateKey)
	ErrIdempotencyKeyUsed       = fmt.Errorf("%w: idempotency key already used", ErrDuplicateKey)
)
