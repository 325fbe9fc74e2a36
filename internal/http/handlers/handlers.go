// Package handlers provides the HTTP handlers of the public API.
//
// Handlers are transport-thin: they collect path, query and body parameters,
// call one domain service and wrap the reply in the success envelope.
// Failures are recorded with c.Error and rendered by
// middleware.ErrorNormalizer; no handler builds an error body.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/parkgolf/golf-bff/internal/apperr"
	"github.com/parkgolf/golf-bff/internal/http/envelope"
	"github.com/parkgolf/golf-bff/internal/http/middleware"
	"github.com/parkgolf/golf-bff/internal/services"
	"github.com/parkgolf/golf-bff/internal/utils"
)

//
// Service contracts
//

// AuthService is implemented by *services.AuthService.
type AuthService interface {
	Login(ctx context.Context, p services.Principal, creds services.Params) (json.RawMessage, error)
	AdminLogin(ctx context.Context, p services.Principal, creds services.Params) (json.RawMessage, error)
	Refresh(ctx context.Context, p services.Principal, body services.Params) (json.RawMessage, error)
	Me(ctx context.Context, p services.Principal) (json.RawMessage, error)
	Logout(ctx context.Context, p services.Principal) (json.RawMessage, error)
}

// CourseService is implemented by *services.CourseService.
type CourseService interface {
	List(ctx context.Context, p services.Principal, query services.Params) (json.RawMessage, error)
	Get(ctx context.Context, p services.Principal, id any) (json.RawMessage, error)
	Create(ctx context.Context, p services.Principal, body services.Params) (json.RawMessage, error)
	Update(ctx context.Context, p services.Principal, id any, body services.Params) (json.RawMessage, error)
	Delete(ctx context.Context, p services.Principal, id any) (json.RawMessage, error)
	Stats(ctx context.Context, p services.Principal, query services.Params) (json.RawMessage, error)
	ListTimeSlots(ctx context.Context, p services.Principal, query services.Params) (json.RawMessage, error)
	CreateTimeSlot(ctx context.Context, p services.Principal, body services.Params) (json.RawMessage, error)
}

// BookingService is implemented by *services.BookingService.
type BookingService interface {
	List(ctx context.Context, p services.Principal, query services.Params) (json.RawMessage, error)
	Get(ctx context.Context, p services.Principal, id any) (json.RawMessage, error)
	Create(ctx context.Context, p services.Principal, body services.Params) (json.RawMessage, error)
	Cancel(ctx context.Context, p services.Principal, id any, body services.Params) (json.RawMessage, error)
	Stats(ctx context.Context, p services.Principal, query services.Params) (json.RawMessage, error)
}

// NotificationService is implemented by *services.NotificationService.
type NotificationService interface {
	List(ctx context.Context, p services.Principal, query services.Params) (json.RawMessage, error)
	Create(ctx context.Context, p services.Principal, body services.Params) (json.RawMessage, error)
	MarkRead(ctx context.Context, p services.Principal, id any) (json.RawMessage, error)
}

// HealthService is implemented by *services.HealthService.
type HealthService interface {
	Ready(ctx context.Context) services.Readiness
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints of every domain.
type Handlers struct {
	auth    AuthService
	courses CourseService
	book    BookingService
	notify  NotificationService
	health  HealthService
}

// Deps are the services the handlers call.
type Deps struct {
	Auth          AuthService
	Courses       CourseService
	Bookings      BookingService
	Notifications NotificationService
	Health        HealthService
}

// New constructs Handlers bound to d.
func New(d Deps) *Handlers {
	return &Handlers{
		auth:    d.Auth,
		courses: d.Courses,
		book:    d.Bookings,
		notify:  d.Notifications,
		health:  d.Health,
	}
}

//
// Helpers
//

// principal collects the caller identity set by the auth and locale middleware.
func principal(c *gin.Context) services.Principal {
	return services.Principal{
		Token:  middleware.Token(c),
		Locale: middleware.LocaleFrom(c),
	}
}

// respond wraps a service reply in the success envelope or records err.
func respond(c *gin.Context, status int, data json.RawMessage, err error) {
	if err != nil {
		_ = c.Error(err)
		return
	}
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	envelope.Success(c, status, data)
}

// bindBody decodes an optional JSON object body. An empty body yields empty
// params; anything else that is not a JSON object is BUS_001.
func bindBody(c *gin.Context) (services.Params, error) {
	out := services.Params{}
	if c.Request.Body == nil {
		return out, nil
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, apperr.Newf(apperr.CodeValidation, "request body too large (limit %d bytes)", tooBig.Limit).
				WithDetail("limit", tooBig.Limit)
		}
		return nil, apperr.Validation("unreadable request body")
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return nil, apperr.Validation("invalid JSON body")
	}
	return out, nil
}

// queryParams forwards the query string. Repeated keys become lists.
func queryParams(c *gin.Context) services.Params {
	q := c.Request.URL.Query()
	out := make(services.Params, len(q))
	for k, v := range q {
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = v
		}
	}
	return out
}

// listParams is queryParams with page and limit parsed and clamped. Absent
// values stay absent so the downstream defaults apply.
func listParams(c *gin.Context) services.Params {
	out := queryParams(c)
	rawPage, rawLimit := c.Query("page"), c.Query("limit")
	page, limit := utils.PageAndLimit(rawPage, rawLimit)
	if rawPage != "" {
		out["page"] = page
	}
	if rawLimit != "" {
		out["limit"] = limit
	}
	return out
}

// pathID returns the :id path parameter, as a number when it is one.
func pathID(c *gin.Context) (any, error) {
	id := c.Param("id")
	if id == "" {
		return nil, apperr.Validation("id is required")
	}
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n, nil
	}
	return id, nil
}
