package engine

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")
var ErrInvalidState = errors.New("invalid state")
var ErrInvalidArgument = errors.New("invalid argument")
var ErrUnauthorized = errors.New("unauthorized")
var ErrInternal = errors.New("internal error")

// RejectError is a command rejection that is reported back to the caller.
// Message is user facing; Kind is one of the sentinel errors above.
type RejectError struct {
	Kind    error
	Message string
}

func (e *RejectError) Error() string { return e.Message }

func (e *RejectError) Unwrap() error { return e.Kind }

func Reject(kind error, msg string) error {
	return &RejectError{Kind: kind, Message: msg}
}

func Rejectf(kind error, format string, args ...any) error {
	return &RejectError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Message returns the user facing text of err. Rejections keep their own
// message; anything else collapses to a generic one so internals never leak
// to clients.
func Message(err error) string {
	var rej *RejectError
	if errors.As(err, &rej) {
		return rej.Message
	}
	return "Internal error"
}
