// Package shellerr classifies the errors dump and load operations raise so
// callers can decide whether to retry, abort before any I/O, or keep a
// partial artifact around for resume.
package shellerr

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// Kind is the error taxonomy used across dump and load.
type Kind int

const (
	// Unknown wraps errors that were not classified; treated like ServerError.
	Unknown Kind = iota
	ArgumentError
	PreconditionError
	TransientIO
	PersistentIO
	ServerError
	ConsistencyError
	CompatibilityError
	LoadGrantError
	IntegrityError
)

func (k Kind) String() string {
	switch k {
	case ArgumentError:
		return "ArgumentError"
	case PreconditionError:
		return "PreconditionError"
	case TransientIO:
		return "TransientIO"
	case PersistentIO:
		return "PersistentIO"
	case ServerError:
		return "ServerError"
	case ConsistencyError:
		return "ConsistencyError"
	case CompatibilityError:
		return "CompatibilityError"
	case LoadGrantError:
		return "LoadGrantError"
	case IntegrityError:
		return "IntegrityError"
	default:
		return "Unknown"
	}
}

// Error is a classified error carrying its Kind alongside the wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error with no wrapped cause.
func New(k Kind, msg string) *Error {
	return &Error{Kind: k, Msg: msg}
}

// Wrap classifies an existing error under the given Kind.
func Wrap(k Kind, msg string, err error) *Error {
	return &Error{Kind: k, Msg: msg, Err: err}
}

// Wrapf is Wrap with fmt.Sprintf-style formatting.
func Wrapf(k Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the Kind of err, or Unknown if err was never classified.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return Unknown
}

// IsFatal reports whether err should stop the whole operation rather than
// being retried or merely logged.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case TransientIO:
		return false
	default:
		return true
	}
}

// MySQL error numbers relevant to ServerError classification.
const (
	errDeadlock        = 1213
	errLockWaitTimeout = 1205
	errAccessDenied    = 1045
	errSyntax          = 1064
	errTableAccessDenied = 1142
)

// ClassifyServerError maps a raw MySQL driver error to a shellerr.Kind
// following the retry-chunk-on-contention, fail-on-syntax-or-privilege rule.
func ClassifyServerError(err error) *Error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDeadlock, errLockWaitTimeout:
			return Wrap(TransientIO, "retriable server contention", err)
		case errAccessDenied, errSyntax, errTableAccessDenied:
			return Wrap(ServerError, "fatal server error", err)
		}
	}
	return Wrap(ServerError, "server error", err)
}
