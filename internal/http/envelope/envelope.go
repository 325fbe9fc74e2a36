// Package envelope defines the single response shape of the public API and
// the writers that produce it.
//
// Success:
//
//	{"success":true,"data":{...},"timestamp":"...","path":"/api/courses","method":"GET","requestId":"..."}
//
// Failure:
//
//	{"success":false,"error":{"code":"BUS_002","message":"..."},"timestamp":"...","path":"...","method":"...","requestId":"..."}
//
// Exactly one of data and error is present, and success is true iff data is.
package envelope

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parkgolf/golf-bff/internal/apperr"
)

// HeaderRequestID is echoed into every envelope.
const HeaderRequestID = "X-Request-ID"

const contentType = "application/json; charset=utf-8"

// Fallback is written when an error envelope cannot be encoded.
var Fallback = []byte(`{"success":false,"error":{"code":"SYS_001","message":"internal server error"}}`)

// test seams
var (
	marshal = json.Marshal
	now     = time.Now
)

// ErrorBody is the error member of a failure envelope.
type ErrorBody struct {
	Code    apperr.Code    `json:"code" example:"BUS_002"`
	Message string         `json:"message" example:"resource not found"`
	Details map[string]any `json:"details,omitempty"`
}

// Envelope is the response body of every endpoint.
type Envelope struct {
	Success   bool       `json:"success" example:"true"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorBody `json:"error,omitempty"`
	Timestamp string     `json:"timestamp" example:"2025-01-01T09:00:00.000Z"`
	Path      string     `json:"path" example:"/api/courses"`
	Method    string     `json:"method" example:"GET"`
	RequestID string     `json:"requestId,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
}

type meta struct {
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
	Method    string `json:"method"`
	RequestID string `json:"requestId,omitempty"`
}

// MarshalJSON enforces data/error exclusivity regardless of which fields
// the caller filled in. A success envelope always carries "data" (possibly
// null); a failure envelope always carries "error".
func (e Envelope) MarshalJSON() ([]byte, error) {
	m := meta{Timestamp: e.Timestamp, Path: e.Path, Method: e.Method, RequestID: e.RequestID}
	if e.Success {
		return json.Marshal(struct {
			Success bool `json:"success"`
			Data    any  `json:"data"`
			meta
		}{true, e.Data, m})
	}
	body := e.Error
	if body == nil {
		body = &ErrorBody{Code: apperr.CodeInternal, Message: apperr.DefaultMessage(apperr.CodeInternal)}
	}
	return json.Marshal(struct {
		Success bool       `json:"success"`
		Error   *ErrorBody `json:"error"`
		meta
	}{false, body, m})
}

func newEnvelope(c *gin.Context) Envelope {
	env := Envelope{
		Timestamp: now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		RequestID: c.Writer.Header().Get(HeaderRequestID),
	}
	if c.Request != nil {
		env.Method = c.Request.Method
		if c.Request.URL != nil {
			env.Path = c.Request.URL.Path
		}
	}
	return env
}

// Success writes a success envelope around data.
func Success(c *gin.Context, status int, data any) {
	env := newEnvelope(c)
	env.Success = true
	env.Data = data
	b, err := marshal(env)
	if err != nil {
		// The payload itself could not be encoded; that is our bug, not the caller's.
		Failure(c, apperr.Wrap(err, apperr.CodeInternal, ""))
		return
	}
	c.Data(status, contentType, b)
}

// Failure writes the error envelope for e and aborts the chain. It returns
// the status actually written, which is 500 when encoding fell back.
func Failure(c *gin.Context, e *apperr.Error) int {
	if e == nil {
		e = apperr.New(apperr.CodeInternal, "")
	}
	env := newEnvelope(c)
	env.Error = &ErrorBody{Code: e.Code, Message: e.Message, Details: e.Details}
	if env.Error.Message == "" {
		env.Error.Message = apperr.DefaultMessage(e.Code)
	}
	status := e.Status()

	b, err := marshal(env)
	if err != nil {
		status = http.StatusInternalServerError
		b = Fallback
	}
	c.Abort()
	c.Data(status, contentType, b)
	return status
}

// Raw writes a stored envelope verbatim (idempotent replays).
func Raw(c *gin.Context, status int, body []byte) {
	c.Data(status, contentType, body)
}
