package middleware

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures RedactingLogger.
//
// MaskHeaders and MaskQueryKeys name headers and query parameters whose values
// are replaced with "[REDACTED]". Matching is case-insensitive and adds to the
// built-in sets.
type RedactOptions struct {
	MaskHeaders   []string
	MaskQueryKeys []string
}

const redacted = "[REDACTED]"

var (
	defaultMaskedHeaders = []string{"authorization", "cookie", "set-cookie"}
	// Credentials that clients sometimes put in query strings.
	defaultMaskedQueryKeys = []string{"token", "access_token", "refresh_token", "refreshtoken", "password"}
)

// redactor scrubs personal data and credentials out of free text.
type redactor struct {
	patterns []redactPattern
	headers  map[string]struct{}
	query    map[string]struct{}
}

type redactPattern struct {
	re   *regexp.Regexp
	repl string
}

// Patterns run in order; the phone pattern is the loosest so it goes last,
// after UUIDs and JWTs have already been replaced.
var redactPatterns = []redactPattern{
	{regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`), "[REDACTED:jwt]"},
	{regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`), "[REDACTED:id]"},
	{regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`), "[REDACTED:email]"},
	{regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`), "[REDACTED:phone]"},
}

func newRedactor(opts RedactOptions) *redactor {
	return &redactor{
		patterns: redactPatterns,
		headers:  lowerSet(defaultMaskedHeaders, opts.MaskHeaders),
		query:    lowerSet(defaultMaskedQueryKeys, opts.MaskQueryKeys),
	}
}

func lowerSet(lists ...[]string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, l := range lists {
		for _, s := range l {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				out[s] = struct{}{}
			}
		}
	}
	return out
}

func (r *redactor) text(s string) string {
	for _, p := range r.patterns {
		if s == "" {
			break
		}
		s = p.re.ReplaceAllString(s, p.repl)
	}
	return s
}

func (r *redactor) headerValues(h map[string][]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.headers[strings.ToLower(k)]; ok {
			out[k] = redacted
			continue
		}
		out[k] = r.text(strings.Join(vv, ", "))
	}
	return out
}

// queryValues decodes the raw query. An unparsable query is logged as
// one scrubbed string under "_raw".
func (r *redactor) queryValues(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return map[string]string{"_raw": r.text(raw)}
	}
	out := make(map[string]string, len(q))
	for k, vv := range q {
		if _, ok := r.query[strings.ToLower(k)]; ok {
			out[k] = redacted
			continue
		}
		out[k] = r.text(strings.Join(vv, ","))
	}
	return out
}

// RedactingLogger logs one line per request with credentials masked and
// emails, phone numbers, UUIDs and JWTs scrubbed from the query and headers.
// Bodies are never logged. It also installs the request-scoped logger used by
// handlers and RPC calls.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	rd := newRedactor(opts)

	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		reqID := c.Writer.Header().Get(requestIDHeader)
		if reqID == "" {
			reqID = c.GetHeader(requestIDHeader)
		}
		setLogger(c, log.With().
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger())

		c.Next()

		status := c.Writer.Status()
		lg := LoggerFrom(c)
		ev := lg.Info()
		switch {
		case status >= 500:
			ev = lg.Error()
		case status >= 400:
			ev = lg.Warn()
		}
		if role := roleClaim(c); role != "" {
			ev = ev.Str("role", role)
		}
		if isReplay(c) {
			ev = ev.Bool("idempotent_replay", true)
		}
		ev.
			Str("user_id", UserID(c)).
			Interface("query", rd.queryValues(c.Request.URL.RawQuery)).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", rd.headerValues(c.Request.Header)).
			Msg("http_request")
	}
}
