package model

import (
	"errors"
	"fmt"
)

// Kind classifies failures so the transport layer can pick a status code.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindDuplicate
	KindNotFound
	KindNotVerified
	KindPrecondition
	KindAuth
	KindForbidden
	KindStorage
	KindNetwork
)

var kindNames = map[Kind]string{
	KindValidation:   "validation",
	KindDuplicate:    "duplicate",
	KindNotFound:     "not found",
	KindNotVerified:  "not verified",
	KindPrecondition: "precondition failed",
	KindAuth:         "unauthenticated",
	KindForbidden:    "forbidden",
	KindStorage:      "storage",
	KindNetwork:      "network",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error carries a Kind and a message that is safe to show to a user.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind when target is one of the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrDuplicate    = &Error{Kind: KindDuplicate}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrNotVerified  = &Error{Kind: KindNotVerified}
	ErrPrecondition = &Error{Kind: KindPrecondition}
	ErrAuth         = &Error{Kind: KindAuth}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrStorage      = &Error{Kind: KindStorage}
	ErrNetwork      = &Error{Kind: KindNetwork}
)

func Validation(msg string) error   { return &Error{Kind: KindValidation, Message: msg} }
func Duplicate(msg string) error    { return &Error{Kind: KindDuplicate, Message: msg} }
func NotFound(msg string) error     { return &Error{Kind: KindNotFound, Message: msg} }
func NotVerified(msg string) error  { return &Error{Kind: KindNotVerified, Message: msg} }
func Precondition(msg string) error { return &Error{Kind: KindPrecondition, Message: msg} }
func Auth(msg string) error         { return &Error{Kind: KindAuth, Message: msg} }
func Forbidden(msg string) error    { return &Error{Kind: KindForbidden, Message: msg} }

func Storage(msg string, err error) error {
	return &Error{Kind: KindStorage, Message: msg, Err: err}
}

func Network(msg string, err error) error {
	return &Error{Kind: KindNetwork, Message: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Message returns the user-facing message of err, falling back to fallback for
// errors that are not *Error or that carry an internal cause.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
