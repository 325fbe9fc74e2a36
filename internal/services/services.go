// Package services holds one thin wrapper per downstream domain. Each
// wrapper names the bus operations of its domain, picks the timeout class of
// every call, and forwards the caller's token and locale. Business rules live
// downstream; the only rule enforced here is the admin role gate.
package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/parkgolf/golf-bff/internal/rpc"
)

// Caller is the part of *rpc.Client the services use.
type Caller interface {
	Call(ctx context.Context, req rpc.Request) (json.RawMessage, error)
	Domain() string
}

// Principal is the caller identity and preferences forwarded with every
// request.
type Principal struct {
	Token  string
	Locale string
}

// Params are forwarded to the downstream service verbatim.
type Params = map[string]any

// base is embedded by every domain service.
type base struct {
	rpc      Caller
	timeouts rpc.Timeouts
}

func newBase(c Caller, t rpc.Timeouts) base {
	if t.Quick <= 0 {
		t.Quick = rpc.DefaultTimeouts.Quick
	}
	if t.List <= 0 {
		t.List = rpc.DefaultTimeouts.List
	}
	if t.Analytics <= 0 {
		t.Analytics = rpc.DefaultTimeouts.Analytics
	}
	return base{rpc: c, timeouts: t}
}

func (b base) call(ctx context.Context, p Principal, op string, params Params, timeout func(rpc.Timeouts) time.Duration) (json.RawMessage, error) {
	return b.rpc.Call(ctx, rpc.Request{
		Operation: op,
		Params:    params,
		Token:     p.Token,
		Locale:    p.Locale,
		Timeout:   timeout(b.timeouts),
	})
}

func quick(t rpc.Timeouts) time.Duration     { return t.Quick }
func list(t rpc.Timeouts) time.Duration      { return t.List }
func analytics(t rpc.Timeouts) time.Duration { return t.Analytics }

// Payload keys read by the downstream handlers. By-id operations name the
// entity ("courseId", "bookingId") and writes carry the record under "data".
const (
	keyCourseID       = "courseId"
	keyBookingID      = "bookingId"
	keyNotificationID = "notificationId"
	keyData           = "data"
)

// record wraps a write body as {"data": body}, optionally next to an id.
func record(body Params, kv ...any) Params {
	if body == nil {
		body = Params{}
	}
	return with(nil, append([]any{keyData, body}, kv...)...)
}

// with returns a copy of params with extra entries set.
func with(params Params, kv ...any) Params {
	out := make(Params, len(params)+len(kv)/2)
	for k, v := range params {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			out[k] = kv[i+1]
		}
	}
	return out
}
