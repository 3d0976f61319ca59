package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure. Handlers map kinds to transport status
// codes; the core only ever reports a kind plus a human-readable message.
type Kind string

const (
	KindNotFound              Kind = "NotFound"
	KindInvalidTime           Kind = "InvalidTime"
	KindInvalidRange          Kind = "InvalidRange"
	KindInvalidDuration       Kind = "InvalidDuration"
	KindOutsideBusinessHours  Kind = "OutsideBusinessHours"
	KindIdempotencyInProgress Kind = "IdempotencyInProgress"
	KindOverlapConflict       Kind = "OverlapConflict"
	KindConflict              Kind = "Conflict"
	KindStorageError          Kind = "InternalStorageError"
)

type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapStorage classifies an unrecognized storage failure while keeping the
// original error reachable through errors.Unwrap.
func WrapStorage(err error) *Error {
	return &Error{Kind: KindStorageError, Message: "internal storage error", cause: err}
}

// KindOf returns the classified kind of err, or KindStorageError for
// anything that does not carry a *Error in its chain.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindStorageError
}
