package auth

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the machine-readable error type reported to clients.
type Kind string

const (
	KindValidation      Kind = "Validation/ValidationError"
	KindInvalidRole     Kind = "Auth/InvalidRole"
	KindConflict        Kind = "Auth/Conflict"
	KindNotFound        Kind = "Auth/NotFound"
	KindForbidden       Kind = "Auth/Forbidden"
	KindAlreadyVerified Kind = "Auth/AlreadyVerified"
	KindExpired         Kind = "Auth/CodeExpired"
	KindMismatch        Kind = "Auth/CodeMismatch"
	KindCodeNotFound    Kind = "Auth/CodeNotFound"
	KindCodeIncorrect   Kind = "Auth/CodeIncorrect"
	KindTokenMissing    Kind = "Auth/InvalidToken"
	KindTokenMalformed  Kind = "Auth/InvalidTokenType"
	KindTokenInvalid    Kind = "Auth/TokenInvalid"
	KindTooManyRequests Kind = "Auth/TooManyRequests"
)

var (
	// ErrDuplicateIdentity is returned by stores when the email or phone is taken.
	ErrDuplicateIdentity = errors.New("identity already registered")
	// ErrAccountNotFound is returned by stores on updates of unknown ids.
	ErrAccountNotFound = errors.New("account not found")
)

// Error is a domain failure. Key names the localised message.
type Error struct {
	Kind       Kind
	Key        string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.Key, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Kind, e.Key)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, key string) *Error {
	return &Error{Kind: kind, Key: key}
}

// KindOf returns the Kind of a domain error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var v *ValidationError
	if errors.As(err, &v) {
		return KindValidation
	}
	return ""
}

// ValidationError lists rejected request fields and the message key for each.
type ValidationError struct {
	Fields map[string]string
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(v.Fields))
}

func (v *ValidationError) add(field, key string) {
	if v.Fields == nil {
		v.Fields = make(map[string]string)
	}
	if _, ok := v.Fields[field]; !ok {
		v.Fields[field] = key
	}
}

func (v *ValidationError) orNil() error {
	if len(v.Fields) == 0 {
		return nil
	}
	return v
}
