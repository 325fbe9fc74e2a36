package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/rid", func(c *gin.Context) {
		seen = RequestIDFrom(c)
		c.Status(http.StatusNoContent)
	})

	cases := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"absent", "", false},
		{"well formed", "web-7f3a:42", true},
		{"uuid", "123e4567-e89b-12d3-a456-426614174000", true},
		{"spaces", "a b", false},
		{"injection", "x\"}{\"level\":\"error", false},
		{"too long", strings.Repeat("a", 129), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/rid", nil)
			if tc.incoming != "" {
				req.Header.Set(strings.ToLower(requestIDHeader), tc.incoming)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(requestIDHeader)
			if got != seen {
				t.Fatalf("context id %q != header id %q", seen, got)
			}
			if tc.keep {
				if got != tc.incoming {
					t.Fatalf("id = %q, want %q", got, tc.incoming)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("expected generated uuid, got %q", got)
			}
		})
	}
}

func TestLogger_LevelsByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger())
	r.GET("/api/courses/:id", func(c *gin.Context) { c.String(http.StatusOK, "lake") })
	r.GET("/api/bookings/stats", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

	for _, p := range []string{"/api/courses/1?page=2", "/missing", "/api/bookings/stats"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	want := map[string]string{
		"/api/courses/:id":    "info",
		"/missing":            "warn",
		"/api/bookings/stats": "error",
	}
	got := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		if rid, _ := m["request_id"].(string); rid == "" {
			t.Fatalf("line without request_id: %s", line)
		}
		got[m["path"].(string)] = m["level"].(string)
		if m["path"] == "/api/courses/:id" && m["query"] != "page=2" {
			t.Fatalf("query not logged: %s", line)
		}
	}
	for p, lvl := range want {
		if got[p] != lvl {
			t.Fatalf("level for %s = %q, want %q (logs: %s)", p, got[p], lvl, buf.String())
		}
	}
}

func TestRecovery_PanicBecomesSYS001(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger())
	r.Use(ErrorNormalizer(NormalizerOptions{}))
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })
	r.GET("/panic-error", func(c *gin.Context) { panic(errSentinel{}) })

	for _, p := range []string{"/panic", "/panic-error"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("%s: status = %d", p, w.Code)
		}
		var body struct {
			Success bool `json:"success"`
			Error   struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: invalid json body: %v", p, err)
		}
		if body.Success || body.Error.Code != "SYS_001" || body.Error.Message != "internal server error" {
			t.Fatalf("%s: unexpected body: %s", p, w.Body.String())
		}
		if strings.Contains(w.Body.String(), "kaboom") || strings.Contains(w.Body.String(), "boom") {
			t.Fatalf("%s: panic value leaked into body: %s", p, w.Body.String())
		}
	}
	if !strings.Contains(buf.String(), `"message":"panic recovered"`) || strings.Contains(buf.String(), `"stack"`) {
		t.Fatalf("expected panic log without stack when stacks are off, got:\n%s", buf.String())
	}
}

type errSentinel struct{}

func (errSentinel) Error() string { return "boom" }

func TestRecovery_PanicAfterWriteIsOnlyLogged(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger())
	r.Use(ErrorNormalizer(NormalizerOptions{}))
	r.Use(Recovery())
	r.GET("/stream", func(c *gin.Context) {
		c.String(http.StatusOK, "partial-body")
		panic("late kaboom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stream", nil))

	if strings.Contains(w.Body.String(), "SYS_001") {
		t.Fatalf("error envelope appended to a written response: %q", w.Body.String())
	}
	if !strings.Contains(buf.String(), "error after response was written") {
		t.Fatalf("expected late error log, got:\n%s", buf.String())
	}
}

func TestLoggerFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("fallback has no request fields", func(t *testing.T) {
		buf := captureLogger(t)
		r := gin.New()
		r.Use(RequestID())
		r.GET("/use", func(c *gin.Context) {
			LoggerFrom(c).Info().Msg("custom")
			c.Status(http.StatusOK)
		})
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/use", nil))
		if !strings.Contains(buf.String(), `"message":"custom"`) || strings.Contains(buf.String(), `"request_id"`) {
			t.Fatalf("unexpected fallback log: %s", buf.String())
		}
	})

	t.Run("request scoped via gin and context", func(t *testing.T) {
		buf := captureLogger(t)
		r := gin.New()
		r.Use(RequestID())
		r.Use(Logger())
		r.GET("/use", func(c *gin.Context) {
			LoggerFrom(c).Info().Msg("from handler")
			zerolog.Ctx(c.Request.Context()).Info().Msg("from service")
			c.Status(http.StatusOK)
		})
		req := httptest.NewRequest(http.MethodGet, "/use", nil)
		req.Header.Set(requestIDHeader, "rid-9")
		r.ServeHTTP(httptest.NewRecorder(), req)
		for _, msg := range []string{"from handler", "from service"} {
			if !strings.Contains(buf.String(), `"request_id":"rid-9","method":"GET","path":"/use","message":"`+msg+`"`) {
				t.Fatalf("%q missing request fields: %s", msg, buf.String())
			}
		}
	})
}
