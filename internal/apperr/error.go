package apperr

import (
	"errors"
	"fmt"
)

// Error is the typed error every classifier produces. It carries a resolved
// taxonomy code, so the HTTP status is always derivable via Status.
//
// WithX helpers return shallow copies; an *Error may be shared across
// goroutines.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Cause   error

	stack []byte
}

// New builds an Error. An empty msg falls back to the code's default message.
func New(c Code, msg string) *Error {
	if msg == "" {
		msg = DefaultMessage(c)
	}
	return &Error{Code: c, Message: msg}
}

// Newf is New with fmt formatting.
func Newf(c Code, format string, args ...any) *Error {
	return New(c, fmt.Sprintf(format, args...))
}

// Wrap builds an Error that keeps cause for errors.Is / errors.As.
func Wrap(cause error, c Code, msg string) *Error {
	e := New(c, msg)
	e.Cause = cause
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Status is the HTTP status resolved from the code.
func (e *Error) Status() int { return StatusOf(e.Code) }

// Is matches another *Error by code, so errors.Is(err, apperr.New(CodeNotFound, ""))
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithStack returns a copy of e carrying the stack captured where the fault
// happened, e.g. a recovered panic.
func (e *Error) WithStack(stack []byte) *Error {
	cp := *e
	cp.stack = stack
	return &cp
}

// Stack is the captured origin stack, or nil.
func (e *Error) Stack() []byte { return e.stack }

// WithDetail returns a copy of e with k=v added to Details.
func (e *Error) WithDetail(k string, v any) *Error {
	cp := *e
	m := make(map[string]any, len(e.Details)+1)
	for k0, v0 := range e.Details {
		m[k0] = v0
	}
	m[k] = v
	cp.Details = m
	return &cp
}

// WithDetails returns a copy of e with kv merged into Details.
func (e *Error) WithDetails(kv map[string]any) *Error {
	if len(kv) == 0 {
		return e
	}
	cp := *e
	m := make(map[string]any, len(e.Details)+len(kv))
	for k, v := range e.Details {
		m[k] = v
	}
	for k, v := range kv {
		m[k] = v
	}
	cp.Details = m
	return &cp
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

// CodeOf returns the taxonomy code carried by err, or SYS_001.
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeInternal
}

// Convenience constructors for the codes handlers raise directly.

func Unauthorized(msg string) *Error { return New(CodeUnauthorized, msg) }
func Forbidden(msg string) *Error    { return New(CodeForbidden, msg) }
func Validation(msg string) *Error   { return New(CodeValidation, msg) }
func NotFound(msg string) *Error     { return New(CodeNotFound, msg) }
func Internal(cause error) *Error    { return Wrap(cause, CodeInternal, "") }
