// Package rpc turns a synchronous call into a request/reply exchange over the
// message bus and reports every non-success outcome as a *Failure.
//
// The pieces, leaves first:
//   - Bus: the minimal publish/subscribe surface (NatsBus in production)
//   - Mux: correlates replies with pending calls over one shared inbox
//   - Client: one per downstream domain; encodes requests, decodes replies,
//     enforces the per-call timeout, logs and instruments every call
//   - Classify: maps a *Failure onto the apperr taxonomy
package rpc

import (
	"errors"
	"fmt"
)

// FailureKind enumerates the ways a call can fail.
type FailureKind int

const (
	// KindUnknown covers malformed replies and anything unrecognized.
	KindUnknown FailureKind = iota
	// KindTimeout means no reply arrived before the call deadline.
	KindTimeout
	// KindConnection means the bus is unreachable or the connection dropped.
	KindConnection
	// KindUpstream means the downstream domain replied with an error envelope.
	KindUpstream
	// KindCanceled means the caller went away before the call resolved.
	KindCanceled
)

func (k FailureKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection"
	case KindUpstream:
		return "upstream"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Failure describes why a call did not produce a payload.
//
// For KindUpstream, Code/Status/Message/Details are copied from the
// downstream error envelope as-is; Classify decides what they mean.
type Failure struct {
	Kind      FailureKind
	Domain    string
	Operation string

	Code    string
	Status  int
	Message string
	Details map[string]any

	Cause error
	// Stack is the goroutine stack of the caller when the call failed.
	Stack []byte
}

func (f *Failure) Error() string {
	if f == nil {
		return "<nil>"
	}
	msg := f.Message
	if msg == "" && f.Cause != nil {
		msg = f.Cause.Error()
	}
	if f.Code != "" {
		return fmt.Sprintf("rpc %s %s: %s [%s]: %s", f.Domain, f.Operation, f.Kind, f.Code, msg)
	}
	return fmt.Sprintf("rpc %s %s: %s: %s", f.Domain, f.Operation, f.Kind, msg)
}

func (f *Failure) Unwrap() error { return f.Cause }

// AsFailure extracts the first *Failure in err's chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) && f != nil {
		return f, true
	}
	return nil, false
}

// Bus-level sentinel errors. The Mux resolves pending calls with these and the
// Client turns them into the matching FailureKind.
var (
	ErrDisconnected = errors.New("rpc: bus not connected")
	ErrNoResponders = errors.New("rpc: no responders for subject")
	ErrClosed       = errors.New("rpc: connection closed")
)
