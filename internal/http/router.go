// Package httpapi wires the HTTP transport (Gin) to the domain services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, error normalization,
// metrics, CORS, security headers, idempotency, and rate limiting.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/parkgolf/golf-bff/docs" // swagger doc registration

	"github.com/parkgolf/golf-bff/internal/apperr"
	"github.com/parkgolf/golf-bff/internal/config"
	"github.com/parkgolf/golf-bff/internal/http/handlers"
	"github.com/parkgolf/golf-bff/internal/http/middleware"
	"github.com/parkgolf/golf-bff/internal/repo"
)

// idempotencyStore adapts the repo free functions to middleware.IdempotencyStore.
type idempotencyStore struct{ db *gorm.DB }

// Lookup proxies repo.GetIdempotency.
func (s idempotencyStore) Lookup(ctx context.Context, scope, route, key string, now time.Time) (*middleware.Replay, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, scope, route, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, middleware.ErrNoReplay
	}
	if err != nil {
		return nil, err
	}
	return &middleware.Replay{Status: rec.Status, Body: rec.Body}, nil
}

// Save proxies repo.SaveIdempotency.
func (s idempotencyStore) Save(ctx context.Context, scope, route, key string, r middleware.Replay, ttl time.Duration) error {
	_, err := repo.SaveIdempotency(ctx, s.db, scope, route, key, r.Status, r.Body, ttl)
	return err
}

// Deps are the runtime dependencies of the router.
type Deps struct {
	// DB backs the idempotency store.
	DB *gorm.DB
	// Limiter is the rate limit backend; nil uses in-process token buckets.
	Limiter middleware.Limiter
	// Services are the domain services behind the handlers.
	Services handlers.Deps
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Access log (optionally redacting)
//  4. Metrics: sees the final status
//  5. Gzip, CORS and security headers
//  6. ErrorNormalizer: the only writer of error envelopes
//  7. Recovery: panics become SYS_001 through the normalizer
//  8. Body size limiter
//
// Locale negotiation and rate limiting apply to the API group only.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	if cfg.LogRedact {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{"X-API-Key", middleware.HeaderIdempotencyKey},
		}))
	} else {
		r.Use(middleware.Logger())
	}
	r.Use(middleware.Metrics())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/swagger"})))
	r.Use(corsMiddleware(cfg.CORS)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
		HTMLPrefixes: []string{"/swagger"},
	}))
	r.Use(middleware.ErrorNormalizer(middleware.NormalizerOptions{LogStack: cfg.LogStack}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(cfg.MaxBodyBytes))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperr.NotFound("route not found"))
	})
	r.NoMethod(func(c *gin.Context) {
		_ = c.Error(apperr.New(apperr.CodeMethodNotAllowed, ""))
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(deps.Services)
	idem := middleware.Idempotency(idempotencyStore{db: deps.DB}, middleware.IdempotencyOptions{
		MaxLen: 200,
		TTL:    cfg.IdempotencyTTL,
	})

	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(middleware.Locale())
	if cfg.Rate.RPS > 0 {
		limiter := deps.Limiter
		if limiter == nil {
			limiter = middleware.NewRateLimiter(cfg.Rate.RPS, cfg.Rate.Burst)
		}
		api.Use(middleware.RateLimit(limiter, middleware.KeyByIP(), cfg.Rate.RetryAfter))
	}

	// Health
	api.GET("/health", h.Health)
	api.GET("/health/ready", h.Ready)

	// Auth
	api.POST("/auth/login", h.Login)
	api.POST("/auth/refresh", h.Refresh)
	api.POST("/admin/auth/login", h.AdminLogin)

	// Public catalogue reads; a token is forwarded when present
	public := api.Group("", middleware.OptionalBearer())
	{
		public.GET("/courses", h.ListCourses)
		public.GET("/courses/:id", h.GetCourse)
		public.GET("/time-slots", h.ListTimeSlots)
	}

	authed := api.Group("", middleware.RequireBearer())
	{
		authed.GET("/auth/me", h.Me)
		authed.POST("/auth/logout", h.Logout)

		// Courses
		authed.GET("/courses/stats", h.CourseStats)
		authed.POST("/courses", h.CreateCourse)
		authed.PUT("/courses/:id", h.UpdateCourse)
		authed.DELETE("/courses/:id", h.DeleteCourse)
		authed.POST("/time-slots", h.CreateTimeSlot)

		// Bookings
		authed.GET("/bookings", h.ListBookings)
		authed.GET("/bookings/stats", h.BookingStats)
		authed.GET("/bookings/:id", h.GetBooking)
		authed.POST("/bookings", idem, h.CreateBooking)
		authed.POST("/bookings/:id/cancel", h.CancelBooking)

		// Notifications
		authed.GET("/notifications", h.ListNotifications)
		authed.POST("/notifications", h.CreateNotification)
		authed.PATCH("/notifications/:id/read", h.MarkNotificationRead)
	}
}

// corsMiddleware returns the CORS posture: allow all origins when none are
// configured, otherwise echo allowlisted origins.
func corsMiddleware(cfg config.CORSConfig) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization", middleware.HeaderIdempotencyKey},
		ExposeHeaders: []string{
			"X-Request-ID", "Content-Length", "Retry-After", middleware.HeaderIdempotentReplay,
		},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 0 {
		base.AllowAllOrigins = true // AllowCredentials must stay false
		return []gin.HandlerFunc{
			// ACAO: * even without an Origin header (health checks, curl).
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = cfg.AllowedOrigins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody caps the request body at maxBytes (1 MiB when unset). Handlers
// turn the resulting read error into BUS_001.
func limitBody(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
