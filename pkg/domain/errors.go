package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies ledger failures.
type ErrorKind string

// Failure taxonomy returned by every ledger operation.
const (
	KindInvalidInput ErrorKind = "invalid_input"
	KindNotFound     ErrorKind = "not_found"
	KindOverflow     ErrorKind = "overflow"
	KindUnauthorized ErrorKind = "unauthorized"
	// KindStorage reports a durable backend that could not record a commit.
	// The ledger state is unchanged when it is returned.
	KindStorage ErrorKind = "storage"
)

// Sentinel errors matched with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrOverflow     = errors.New("overflow")
	ErrUnauthorized = errors.New("unauthorized")
	ErrStorage      = errors.New("storage unavailable")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindNotFound:
		return ErrNotFound
	case KindOverflow:
		return ErrOverflow
	case KindUnauthorized:
		return ErrUnauthorized
	case KindStorage:
		return ErrStorage
	default:
		return nil
	}
}

// Error is the typed failure returned by ledger operations.
type Error struct {
	Kind    ErrorKind
	Entity  EntityType
	ID      uint64
	Field   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindNotFound:
		return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	case e.Field != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// Unwrap exposes the sentinel for the error's kind and the cause, if any.
func (e *Error) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// NotFound reports a missing record, including a dangling foreign key.
func NotFound(entity EntityType, id uint64) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id}
}

// InvalidInput reports a field that violates its declared range or invariant.
func InvalidInput(field, message string) *Error {
	return &Error{Kind: KindInvalidInput, Field: field, Message: message}
}

// Overflow reports an accumulator addition beyond the representable range.
func Overflow(field, message string) *Error {
	return &Error{Kind: KindOverflow, Field: field, Message: message}
}

// Unauthorized reports a caller the active policy refuses.
func Unauthorized(caller Principal, message string) *Error {
	return &Error{Kind: KindUnauthorized, Field: "caller", Message: fmt.Sprintf("%q %s", string(caller), message)}
}

// Storage reports a commit the durable backend refused.
func Storage(message string, cause error) *Error {
	return &Error{Kind: KindStorage, Message: message, Cause: cause}
}

// KindOf returns the failure kind carried by err, or "" when err is nil or
// not a ledger failure.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	for _, kind := range []ErrorKind{KindInvalidInput, KindNotFound, KindOverflow, KindUnauthorized, KindStorage} {
		if errors.Is(err, kind.sentinel()) {
			return kind
		}
	}
	return ""
}
