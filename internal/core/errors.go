package core

import (
	"errors"
	"fmt"
)

// Kind classifies domain errors so the HTTP layer can map them to status codes.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindInvalidArgument Kind = "invalid_argument"
	KindAlreadyRecorded Kind = "already_recorded"
	KindStorage         Kind = "storage_failure"
)

// Error is a domain error carrying a Kind. A sentinel (empty Message) matches
// every Error of the same Kind through errors.Is.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrAlreadyRecorded = &Error{Kind: KindAlreadyRecorded}
	ErrStorage         = &Error{Kind: KindStorage}
)

var (
	ErrInvalidYear        = &Error{Kind: KindInvalidArgument, Message: "invalid year"}
	ErrInvalidMonth       = &Error{Kind: KindInvalidArgument, Message: "invalid month"}
	ErrInvalidAmount      = &Error{Kind: KindInvalidArgument, Message: "invalid amount"}
	ErrInvalidPrice       = &Error{Kind: KindInvalidArgument, Message: "price must be greater than 0 and at most 1000"}
	ErrEmptyDescription   = &Error{Kind: KindInvalidArgument, Message: "empty description"}
	ErrInvalidCheckInCode = &Error{Kind: KindInvalidArgument, Message: "invalid check-in code"}
	ErrInvalidRole        = &Error{Kind: KindInvalidArgument, Message: "invalid role"}
	ErrInvalidPaymentType = &Error{Kind: KindInvalidArgument, Message: "invalid payment type"}
)

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Invalidf(format string, args ...any) error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func AlreadyRecordedf(format string, args ...any) error {
	return &Error{Kind: KindAlreadyRecorded, Message: fmt.Sprintf(format, args...)}
}

// StorageError wraps a persistence failure, keeping the driver message.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: KindStorage, Message: op, Err: err}
}

// KindOf reports the Kind of err, or "" for non-domain errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
