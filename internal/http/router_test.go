package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/parkgolf/golf-bff/internal/config"
	"github.com/parkgolf/golf-bff/internal/http/handlers"
	"github.com/parkgolf/golf-bff/internal/http/middleware"
	"github.com/parkgolf/golf-bff/internal/repo"
	"github.com/parkgolf/golf-bff/internal/services"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// --- fake booking service counting downstream calls ---
type fakeBookings struct {
	creates atomic.Int32
	lists   atomic.Int32
}

func (f *fakeBookings) List(context.Context, services.Principal, services.Params) (json.RawMessage, error) {
	f.lists.Add(1)
	return json.RawMessage(`[]`), nil
}
func (f *fakeBookings) Get(context.Context, services.Principal, any) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}
func (f *fakeBookings) Create(context.Context, services.Principal, services.Params) (json.RawMessage, error) {
	n := f.creates.Add(1)
	return json.RawMessage(fmt.Sprintf(`{"id":%d,"status":"CONFIRMED"}`, n)), nil
}
func (f *fakeBookings) Cancel(context.Context, services.Principal, any, services.Params) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}
func (f *fakeBookings) Stats(context.Context, services.Principal, services.Params) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

type fakeHealth struct{}

func (fakeHealth) Ready(context.Context) services.Readiness {
	return services.Readiness{Ready: true, Domains: map[string]services.DomainStatus{}}
}

func baseConfig() config.Config {
	return config.Config{
		APIBasePath:    "/api",
		MaxBodyBytes:   1 << 20,
		IdempotencyTTL: time.Hour,
		Rate:           config.RateConfig{RPS: 100, Burst: 10, RetryAfter: time.Second},
		CORS:           config.CORSConfig{AllowedOrigins: nil},
		Security:       config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newRouter(t *testing.T, cfg config.Config, bookings *fakeBookings) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	RegisterRoutes(r, Deps{
		DB: db,
		Services: handlers.Deps{
			Bookings: bookings,
			Health:   fakeHealth{},
		},
	}, cfg)
	return r, db
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("body is not an envelope: %v (%s)", err, w.Body.String())
	}
	if env.Success {
		t.Fatalf("expected failure envelope, got %s", w.Body.String())
	}
	return env.Error.Code
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r, _ := newRouter(t, baseConfig(), &fakeBookings{})

	// /api/health works
	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	// /metrics is wired
	w = serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || len(w.Body.Bytes()) == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404 BUS_002
	w = serve(r, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "BUS_002" {
		t.Fatalf("GET /nope code = %s", code)
	}

	// NoMethod → 405 SYS_006
	w = serve(r, httptest.NewRequest(http.MethodPost, "/api/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /api/health expected 405, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "SYS_006" {
		t.Fatalf("POST /api/health code = %s", code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := baseConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	r, _ := newRouter(t, cfg, &fakeBookings{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://example.com")
	w := serve(r, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func TestRegisterRoutes_RouteTable(t *testing.T) {
	r, _ := newRouter(t, baseConfig(), &fakeBookings{})

	want := []string{
		"POST /api/auth/login", "POST /api/auth/refresh", "GET /api/auth/me", "POST /api/auth/logout",
		"POST /api/admin/auth/login",
		"GET /api/courses", "GET /api/courses/:id", "POST /api/courses", "PUT /api/courses/:id",
		"DELETE /api/courses/:id", "GET /api/courses/stats",
		"GET /api/time-slots", "POST /api/time-slots",
		"GET /api/bookings", "GET /api/bookings/:id", "POST /api/bookings",
		"POST /api/bookings/:id/cancel", "GET /api/bookings/stats",
		"GET /api/notifications", "POST /api/notifications", "PATCH /api/notifications/:id/read",
		"GET /api/health", "GET /api/health/ready", "GET /metrics",
	}
	have := map[string]bool{}
	for _, ri := range r.Routes() {
		have[ri.Method+" "+ri.Path] = true
	}
	for _, w := range want {
		if !have[w] {
			t.Errorf("route %s not registered", w)
		}
	}
	if have["GET /swagger/*any"] {
		t.Errorf("swagger must be off unless enabled")
	}
}

func TestRegisterRoutes_SwaggerWhenEnabled(t *testing.T) {
	cfg := baseConfig()
	cfg.SwaggerEnabled = true
	r, _ := newRouter(t, cfg, &fakeBookings{})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /swagger/doc.json = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("/bookings/{id}/cancel")) {
		t.Fatalf("swagger doc misses booking routes")
	}
}

func TestRegisterRoutes_AuthFailsFast(t *testing.T) {
	b := &fakeBookings{}
	r, _ := newRouter(t, baseConfig(), b)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/bookings", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("GET /api/bookings without token = %d", w.Code)
	}
	if code := errorCode(t, w); code != "AUT_001" {
		t.Fatalf("code = %s", code)
	}
	if b.lists.Load() != 0 {
		t.Fatalf("service must not be called without a token")
	}
}

func TestRegisterRoutes_IdempotentBookingReplay(t *testing.T) {
	b := &fakeBookings{}
	r, _ := newRouter(t, baseConfig(), b)

	post := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewBufferString(`{"timeSlotId":1}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer tok-1")
		if key != "" {
			req.Header.Set(middleware.HeaderIdempotencyKey, key)
		}
		return serve(r, req)
	}

	first := post("book-1")
	if first.Code != http.StatusCreated {
		t.Fatalf("first POST = %d %s", first.Code, first.Body.String())
	}
	second := post("book-1")
	if second.Code != http.StatusCreated {
		t.Fatalf("replayed POST = %d", second.Code)
	}
	if second.Header().Get(middleware.HeaderIdempotentReplay) != "true" {
		t.Fatalf("replay header missing")
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Fatalf("replay body differs:\n%s\n%s", first.Body.String(), second.Body.String())
	}
	if n := b.creates.Load(); n != 1 {
		t.Fatalf("downstream create called %d times, want 1", n)
	}

	// A different key or no key reaches the service again.
	post("book-2")
	post("")
	if n := b.creates.Load(); n != 3 {
		t.Fatalf("downstream create called %d times, want 3", n)
	}

	// Invalid key is rejected before the service.
	w := post("bad key!")
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "BUS_001" {
		t.Fatalf("invalid key = %d %s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_RateLimited(t *testing.T) {
	cfg := baseConfig()
	cfg.Rate = config.RateConfig{RPS: 0.001, Burst: 1, RetryAfter: 3 * time.Second}
	r, _ := newRouter(t, cfg, &fakeBookings{})

	req := func() *http.Request {
		q := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		q.RemoteAddr = "10.0.0.9:1234"
		return q
	}
	if w := serve(r, req()); w.Code != http.StatusOK {
		t.Fatalf("first request = %d", w.Code)
	}
	w := serve(r, req())
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", w.Code)
	}
	if code := errorCode(t, w); code != "SYS_005" {
		t.Fatalf("code = %s", code)
	}
	if got := w.Header().Get("Retry-After"); got != "3" {
		t.Fatalf("Retry-After = %q", got)
	}

	// /metrics is outside the API group and never limited.
	if w := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil)); w.Code != http.StatusOK {
		t.Fatalf("/metrics = %d", w.Code)
	}
}

func TestRegisterRoutes_OversizedBody(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxBodyBytes = 16
	r, _ := newRouter(t, cfg, &fakeBookings{})

	req := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewBufferString(`{"timeSlotId":123456789,"notes":"long"}`))
	req.Header.Set("Authorization", "Bearer tok")
	w := serve(r, req)
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "BUS_001" {
		t.Fatalf("oversized body = %d %s", w.Code, w.Body.String())
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := serve(r, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB"))) // 12 bytes
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
	w = serve(r, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123")))
	if w.Code != http.StatusOK {
		t.Fatalf("small body = %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	root1 := groupWithPrefix(r, "/")
	root1.GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	root2 := groupWithPrefix(r, "")
	root2.GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })

	// non-root prefix
	api := groupWithPrefix(r, "/api")
	api.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		rec := serve(r, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

// Smoke test that a request traverses otel, security headers and gzip.
func TestPipeline_Smoke(t *testing.T) {
	cfg := baseConfig()
	cfg.Security = config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: time.Hour}
	r, _ := newRouter(t, cfg, &fakeBookings{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := serve(r, req)

	if w.Code != http.StatusOK {
		t.Fatalf("pipeline GET /api/health = %d", w.Code)
	}
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("security headers missing, nosniff=%q", got)
	}
	if got := w.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("expected gzip response, got %q", got)
	}
}

func Test_idempotencyStore_Adapter(t *testing.T) {
	db := newTestDB(t)
	s := idempotencyStore{db: db}
	ctx := context.Background()

	if _, err := s.Lookup(ctx, "u1", "POST /api/bookings", "k1", time.Now()); !errors.Is(err, middleware.ErrNoReplay) {
		t.Fatalf("miss: want ErrNoReplay, got %v", err)
	}
	if err := s.Save(ctx, "u1", "POST /api/bookings", "k1", middleware.Replay{Status: 201, Body: []byte(`{"success":true}`)}, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	rep, err := s.Lookup(ctx, "u1", "POST /api/bookings", "k1", time.Now())
	if err != nil {
		t.Fatalf("hit: %v", err)
	}
	if rep.Status != 201 || string(rep.Body) != `{"success":true}` {
		t.Fatalf("hit returned %+v", rep)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	_ = sqlDB.Close()
	if _, err := s.Lookup(ctx, "u1", "POST /api/bookings", "k1", time.Now()); err == nil || errors.Is(err, middleware.ErrNoReplay) {
		t.Fatalf("closed db: want a store error, got %v", err)
	}
}
