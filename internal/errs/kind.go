package errs

import (
	"errors"
	"fmt"
)

// Kind is the caller-visible class of a failure.
type Kind int

// Failure classes surfaced to API callers.
const (
	KindInternal Kind = iota
	KindUnauthorized
	KindBadRequest
	KindNotFound
	KindConflict
)

var kindNames = map[Kind]string{
	KindInternal:     "internal",
	KindUnauthorized: "unauthorized",
	KindBadRequest:   "bad_request",
	KindNotFound:     "not_found",
	KindConflict:     "conflict",
}

// String returns the machine-stable name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidRange):
		return KindBadRequest
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindInternal
	}
}

// Message returns the text safe to show to a caller for err.
// Internal failures never leak their cause.
func Message(err error) string {
	switch KindOf(err) {
	case KindUnauthorized:
		return "unauthorized"
	case KindBadRequest:
		if errors.Is(err, ErrInvalidRange) {
			return ErrInvalidRange.Error()
		}
		return err.Error()
	case KindNotFound:
		return ErrNotFound.Error()
	case KindConflict:
		var ce *conflictError
		if errors.As(err, &ce) {
			return ce.msg
		}
		return ErrConflict.Error()
	default:
		return "internal error"
	}
}
