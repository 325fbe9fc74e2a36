// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotent replays for unsafe requests (e.g. POST
// /bookings). A client retrying with the same Idempotency-Key receives the
// stored response of the first successful attempt instead of creating a
// second booking downstream.
//
// Persistence is kept behind IdempotencyStore; the router adapts the
// gorm-backed repo functions to it.
package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parkgolf/golf-bff/internal/apperr"
	"github.com/parkgolf/golf-bff/internal/http/envelope"
)

// HeaderIdempotencyKey is the canonical request header that clients use to
// convey an idempotency key for unsafe operations (e.g., POST).
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotentReplay marks a response served from the store.
const HeaderIdempotentReplay = "Idempotent-Replay"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
)

// ErrNoReplay is returned by IdempotencyStore.Lookup when nothing live is stored.
var ErrNoReplay = errors.New("no stored response")

// Replay is a stored response.
type Replay struct {
	Status int
	Body   []byte
}

// IdempotencyStore persists completed responses keyed by (scope, route, key).
// The scope is a fingerprint of the caller's bearer token.
type IdempotencyStore interface {
	Lookup(ctx context.Context, scope, route, key string, now time.Time) (*Replay, error)
	Save(ctx context.Context, scope, route, key string, r Replay, ttl time.Duration) error
}

// GetIdempotencyKey returns the validated idempotency key stored in the Gin
// context by Idempotency. The second return value indicates presence.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// isReplay reports whether the response was served from the store.
func isReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures Idempotency.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. If nil, a conservative RFC7230-like
	// token pattern is used: ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
	// TTL is how long a stored response is replayed. Values <= 0 default to 24h.
	TTL time.Duration
}

// Idempotency serves stored replays and records first successful responses.
//
// Behavior:
//   - No header: no-op.
//   - Invalid header: BUS_001.
//   - Live stored response for (token, route, key): written verbatim with
//     Idempotent-Replay: true; the handler does not run.
//   - Otherwise the handler runs; a 2xx response is stored for TTL.
//
// Lookup failures are recorded for ErrorNormalizer; save failures are only
// logged because the client already has its response. Install after
// RequireBearer so the key is scoped to the caller's token. Token claims are
// never trusted here: two tokens naming the same subject do not share replays.
func Idempotency(store IdempotencyStore, opts IdempotencyOptions) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			_ = c.Error(apperr.Validation("invalid Idempotency-Key").WithDetail("header", HeaderIdempotencyKey))
			c.Abort()
			return
		}
		c.Set(ctxKeyIdemKey, key)

		scope := callerScope(c)
		route := c.Request.Method + " " + routeOf(c)
		ctx := c.Request.Context()

		rep, err := store.Lookup(ctx, scope, route, key, time.Now().UTC())
		switch {
		case err == nil:
			c.Set(ctxKeyIdemReplay, true)
			c.Header(HeaderIdempotentReplay, "true")
			envelope.Raw(c, rep.Status, rep.Body)
			c.Abort()
			return
		case !errors.Is(err, ErrNoReplay):
			_ = c.Error(err)
			c.Abort()
			return
		}

		rec := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()
		c.Writer = rec.ResponseWriter

		status := rec.Status()
		if status < 200 || status >= 300 || len(c.Errors) > 0 {
			return
		}
		if err := store.Save(ctx, scope, route, key, Replay{Status: status, Body: rec.body.Bytes()}, ttl); err != nil {
			LoggerFrom(c).Warn().Err(err).Str("idempotency_key", key).Msg("idempotency save failed")
		}
	}
}

// captureWriter tees the response body so it can be stored.
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func routeOf(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

// callerScope returns a fingerprint of the bearer token, or "anonymous".
func callerScope(c *gin.Context) string {
	if tok := Token(c); tok != "" {
		return "token:" + tokenFingerprint(tok)
	}
	return "anonymous"
}

func tokenFingerprint(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}
