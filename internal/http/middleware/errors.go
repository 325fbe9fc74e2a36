// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements ErrorNormalizer, the single place where a failed
// request becomes a response. Handlers and other middleware only record
// errors with c.Error; ErrorNormalizer resolves the last recorded error to an
// *apperr.Error and writes the failure envelope.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/parkgolf/golf-bff/internal/apperr"
	"github.com/parkgolf/golf-bff/internal/http/envelope"
	"github.com/parkgolf/golf-bff/internal/repo"
	"github.com/parkgolf/golf-bff/internal/rpc"
)

// StatusClientClosedRequest is recorded when the caller went away before the
// downstream call resolved. Nothing is written to the connection.
const StatusClientClosedRequest = 499

// NormalizerOptions configures ErrorNormalizer.
type NormalizerOptions struct {
	// LogStack attaches the origin stack of 5xx errors that captured one
	// (recovered panics, failed downstream calls) to the error log.
	LogStack bool
}

// Normalize resolves any error to an *apperr.Error:
//
//	*apperr.Error            as is
//	*rpc.Failure             rpc.ToError
//	persistence errors       repo.Translate
//	anything else            SYS_001
//
// The result is never nil; a nil err yields SYS_001.
func Normalize(err error) *apperr.Error {
	if err == nil {
		return apperr.New(apperr.CodeInternal, "")
	}
	if ae, ok := apperr.As(err); ok {
		return ae
	}
	if f, ok := rpc.AsFailure(err); ok {
		return rpc.ToError(f)
	}
	if ae, ok := apperr.As(repo.Translate(err)); ok {
		return ae
	}
	return apperr.Internal(err)
}

// ErrorNormalizer renders the last error recorded on the context as the
// failure envelope. It must run before Recovery so recovered panics are
// rendered as well.
//
// 5xx outcomes are logged at error level (with the origin stack when
// opts.LogStack and the error carries one),
// 4xx at warn. Bodies never carry stacks or causes. When a response was
// already written the error is logged only.
func ErrorNormalizer(opts NormalizerOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		lg := LoggerFrom(c)

		if f, ok := rpc.AsFailure(err); ok && f.Kind == rpc.KindCanceled {
			lg.Info().Str("domain", f.Domain).Str("operation", f.Operation).Msg("client went away")
			if !c.Writer.Written() {
				c.Status(StatusClientClosedRequest)
			}
			return
		}

		ae := Normalize(err)
		if c.Writer.Written() {
			ev := lg.Error().Err(err).Str("code", string(ae.Code))
			if opts.LogStack && len(ae.Stack()) > 0 {
				ev = ev.Bytes("stack", ae.Stack())
			}
			ev.Msg("error after response was written")
			return
		}

		status := envelope.Failure(c, ae)
		apiErrors.WithLabelValues(string(ae.Code)).Inc()

		if status >= 500 {
			ev := lg.Error().Err(err).
				Str("code", string(ae.Code)).
				Str("category", string(apperr.CategoryOf(ae.Code))).
				Int("status", status)
			if opts.LogStack && len(ae.Stack()) > 0 {
				ev = ev.Bytes("stack", ae.Stack())
			}
			ev.Msg("request failed")
			return
		}
		lg.Warn().Err(err).
			Str("code", string(ae.Code)).
			Str("category", string(apperr.CategoryOf(ae.Code))).
			Int("status", status).
			Msg("request rejected")
	}
}
