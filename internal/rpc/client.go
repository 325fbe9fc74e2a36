package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Requester is what a Client needs from the transport. *Mux implements it.
type Requester interface {
	Request(ctx context.Context, subject string, header map[string][]string, data []byte) (*Message, error)
}

// Timeouts are the per-call deadline classes used by domain services.
type Timeouts struct {
	Quick     time.Duration // single-entity reads and writes
	List      time.Duration // paginated listings
	Analytics time.Duration // statistics and aggregates
}

// DefaultTimeouts mirrors the values the downstream services are sized for.
var DefaultTimeouts = Timeouts{
	Quick:     5 * time.Second,
	List:      10 * time.Second,
	Analytics: 15 * time.Second,
}

// Request is the envelope for one call. The Client fills in its own domain.
type Request struct {
	Operation string         // "<domain>.<verb>", e.g. "courses.list"
	Params    map[string]any // forwarded verbatim
	Token     string         // bearer token, optional
	Locale    string         // negotiated caller locale, optional
	Timeout   time.Duration  // <= 0 uses the client default
}

// Client performs calls against one downstream domain over a shared,
// long-lived connection. It never retries.
type Client struct {
	domain  string
	req     Requester
	timeout time.Duration
	tracer  trace.Tracer
}

// NewClient returns a Client for domain. defaultTimeout applies when a
// Request does not set one; values <= 0 fall back to DefaultTimeouts.Quick.
func NewClient(domain string, r Requester, defaultTimeout time.Duration) *Client {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeouts.Quick
	}
	return &Client{
		domain:  domain,
		req:     r,
		timeout: defaultTimeout,
		tracer:  otel.Tracer("github.com/parkgolf/golf-bff/internal/rpc"),
	}
}

// Domain returns the downstream domain name.
func (c *Client) Domain() string { return c.domain }

// Call sends req and returns the reply payload, or a *Failure.
//
// A success reply shaped like {"success":true,"data":X} yields X; any other
// JSON value is returned untouched.
func (c *Client) Call(ctx context.Context, req Request) (json.RawMessage, error) {
	start := time.Now()
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	ctx, span := c.tracer.Start(ctx, req.Operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("messaging.system", "nats"),
			attribute.String("messaging.destination.name", req.Operation),
			attribute.String("rpc.domain", c.domain),
		),
	)
	defer span.End()

	payload, err := c.call(ctx, req, timeout)

	outcome := "ok"
	var f *Failure
	if err != nil {
		f, _ = AsFailure(err)
		if f.Kind != KindCanceled {
			f.Stack = debug.Stack()
		}
		outcome = f.Kind.String()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	elapsed := time.Since(start)
	rpcCalls.WithLabelValues(c.domain, req.Operation, outcome).Inc()
	rpcLatency.WithLabelValues(c.domain, req.Operation).Observe(elapsed.Seconds())

	lg := loggerFrom(ctx)
	if f == nil {
		lg.Info().
			Str("domain", c.domain).
			Str("operation", req.Operation).
			Str("outcome", outcome).
			Dur("latency", elapsed).
			Msg("rpc call")
		return payload, nil
	}
	ev := lg.Warn()
	if f.Kind == KindUnknown {
		ev = lg.Error()
	}
	ev.
		Str("domain", c.domain).
		Str("operation", req.Operation).
		Str("outcome", outcome).
		Str("upstream_code", f.Code).
		Dur("latency", elapsed).
		Err(f.Cause).
		Msg("rpc call failed")
	return nil, f
}

func (c *Client) call(ctx context.Context, req Request, timeout time.Duration) (json.RawMessage, error) {
	if !validOperation(req.Operation) {
		return nil, c.fail(req, KindUnknown, fmt.Sprintf("invalid operation %q", req.Operation), nil)
	}

	body, err := encodeRequest(req)
	if err != nil {
		return nil, c.fail(req, KindUnknown, "cannot encode request", err)
	}

	hdr := http.Header{}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(hdr))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg, err := c.req.Request(ctx, req.Operation, hdr, body)
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		return nil, c.fail(req, KindTimeout, fmt.Sprintf("%s did not reply within %s", req.Operation, timeout), err)
	case errors.Is(err, context.Canceled):
		return nil, c.fail(req, KindCanceled, "caller canceled the request", err)
	case errors.Is(err, ErrDisconnected), errors.Is(err, ErrClosed), errors.Is(err, ErrNoResponders):
		return nil, c.fail(req, KindConnection, c.domain+" service is unreachable", err)
	default:
		return nil, c.fail(req, KindConnection, "bus error", err)
	}

	payload, up, err := decodeReply(msg.Data)
	if err != nil {
		return nil, c.fail(req, KindUnknown, "malformed reply", err)
	}
	if up != nil {
		up.Domain = c.domain
		up.Operation = req.Operation
		return nil, up
	}
	return payload, nil
}

func (c *Client) fail(req Request, kind FailureKind, msg string, cause error) *Failure {
	return &Failure{
		Kind:      kind,
		Domain:    c.domain,
		Operation: req.Operation,
		Message:   msg,
		Cause:     cause,
	}
}

// validOperation accepts non-empty, dot-namespaced subjects without
// whitespace or wildcards.
func validOperation(op string) bool {
	if op == "" || strings.ContainsAny(op, " \t\r\n*>") {
		return false
	}
	i := strings.IndexByte(op, '.')
	return i > 0 && i < len(op)-1 && !strings.Contains(op, "..")
}

// encodeRequest produces the wire body {...params, token?, locale?}.
func encodeRequest(req Request) ([]byte, error) {
	body := make(map[string]any, len(req.Params)+2)
	for k, v := range req.Params {
		body[k] = v
	}
	if req.Token != "" {
		body["token"] = req.Token
	}
	if req.Locale != "" {
		body["locale"] = req.Locale
	}
	return json.Marshal(body)
}

// loggerFrom returns the request-scoped logger attached to ctx, or the
// global logger.
func loggerFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
