// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes gateway settings
// such as server timeouts, logging, downstream bus connections, RPC timeout
// classes, the idempotency store, rate limiting, and observability.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/parkgolf/golf-bff/internal/sysutil"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "golf-bff")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// NATSConfig holds the connection policy shared by every domain connection.
type NATSConfig struct {
	URL            string        // NATS_URL
	MaxReconnects  int           // NATS_MAX_RECONNECTS
	ReconnectWait  time.Duration // NATS_RECONNECT_WAIT
	ConnectTimeout time.Duration // NATS_CONNECT_TIMEOUT
}

// DomainConfig describes one downstream domain. Each gets its own bus
// connection and RPC client.
type DomainConfig struct {
	Name  string // auth|course|booking|notify
	URL   string // NATS_<NAME>_URL, falls back to NATS_URL
	Queue string // queue group served by the downstream service (diagnostics only)
	Ping  string // NATS_<NAME>_PING, readiness subject
}

// RPCConfig holds the timeout classes of downstream calls.
type RPCConfig struct {
	Quick     time.Duration // RPC_TIMEOUT_QUICK
	List      time.Duration // RPC_TIMEOUT_LIST
	Analytics time.Duration // RPC_TIMEOUT_ANALYTICS
	Ping      time.Duration // RPC_TIMEOUT_PING
}

// RateConfig configures the edge rate limiter.
type RateConfig struct {
	RPS        float64       // RATE_RPS, tokens per second (>= 0)
	Burst      int           // RATE_BURST, bucket size (>= 1)
	Backend    string        // RATE_BACKEND: memory|redis
	RedisAddr  string        // REDIS_ADDR
	RedisDB    int           // REDIS_DB
	RetryAfter time.Duration // RATE_RETRY_AFTER
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	ShutdownTimeout   time.Duration // graceful drain budget
	MaxHeaderBytes    int           // bytes
	MaxBodyBytes      int64         // request body cap
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	LogStack       bool   // attach stacks to 5xx logs
	LogRedact      bool   // PII-scrubbing access logs
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Downstream
	NATS    NATSConfig
	Domains []DomainConfig
	RPC     RPCConfig

	// Idempotency store
	DBDriver       string        // sqlite|postgres
	DBDSN          string        // file path for sqlite, DSN for postgres
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Rate limiting
	Rate RateConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// defaultDomains lists the downstream services, the queue groups they
// subscribe with and the subjects they answer readiness pings on. The
// identity service namespaces its subjects under "iam.".
var defaultDomains = []DomainConfig{
	{Name: "auth", Queue: "auth-service", Ping: "iam.auth.ping"},
	{Name: "course", Queue: "course-service", Ping: "course.ping"},
	{Name: "booking", Queue: "booking-service", Ping: "booking.ping"},
	{Name: "notify", Queue: "notify-service", Ping: "notify.ping"},
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// without overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	ginMode := strings.ToLower(getenv("GIN_MODE", "release"))
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 15*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      int64(getint("MAX_BODY_BYTES", 1<<20)),
		GinMode:           ginMode,

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		LogStack:       getbool("LOG_STACK", ginMode != "release"),
		LogRedact:      getbool("LOG_REDACT", true),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		// Downstream
		NATS: NATSConfig{
			URL:            getenv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getint("NATS_MAX_RECONNECTS", 5),
			ReconnectWait:  getdur("NATS_RECONNECT_WAIT", time.Second),
			ConnectTimeout: getdur("NATS_CONNECT_TIMEOUT", 2*time.Second),
		},
		RPC: RPCConfig{
			Quick:     getdur("RPC_TIMEOUT_QUICK", 5*time.Second),
			List:      getdur("RPC_TIMEOUT_LIST", 10*time.Second),
			Analytics: getdur("RPC_TIMEOUT_ANALYTICS", 15*time.Second),
			Ping:      getdur("RPC_TIMEOUT_PING", 2*time.Second),
		},

		// Idempotency store
		DBDriver:       strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBDSN:          getenv("DB_DSN", "bff.db"),
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Rate limiting
		Rate: RateConfig{
			RPS:        getfloat("RATE_RPS", 5.0),
			Burst:      getint("RATE_BURST", 10),
			Backend:    strings.ToLower(getenv("RATE_BACKEND", "memory")),
			RedisAddr:  getenv("REDIS_ADDR", "localhost:6379"),
			RedisDB:    getint("REDIS_DB", 0),
			RetryAfter: getdur("RATE_RETRY_AFTER", time.Second),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "golf-bff"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	for _, d := range defaultDomains {
		prefix := "NATS_" + strings.ToUpper(d.Name)
		d.URL = sysutil.FirstNonEmpty(os.Getenv(prefix+"_URL"), cfg.NATS.URL)
		d.Ping = strings.TrimSpace(getenv(prefix+"_PING", d.Ping))
		cfg.Domains = append(cfg.Domains, d)
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return cfg, errors.New("MAX_BODY_BYTES must be > 0")
	}
	for _, d := range cfg.Domains {
		if !strings.HasPrefix(d.URL, "nats://") && !strings.HasPrefix(d.URL, "tls://") {
			return cfg, fmt.Errorf("NATS URL for %s must start with nats:// or tls://", d.Name)
		}
		if d.Ping == "" || strings.ContainsAny(d.Ping, " *>") {
			return cfg, fmt.Errorf("NATS_%s_PING must be a literal subject", strings.ToUpper(d.Name))
		}
	}
	if cfg.NATS.MaxReconnects < -1 {
		return cfg, errors.New("NATS_MAX_RECONNECTS must be >= -1")
	}
	if cfg.NATS.ReconnectWait <= 0 || cfg.NATS.ConnectTimeout <= 0 {
		return cfg, errors.New("NATS_RECONNECT_WAIT and NATS_CONNECT_TIMEOUT must be > 0")
	}
	if cfg.RPC.Quick <= 0 || cfg.RPC.List <= 0 || cfg.RPC.Analytics <= 0 || cfg.RPC.Ping <= 0 {
		return cfg, errors.New("RPC_TIMEOUT_* must be positive durations")
	}
	switch cfg.DBDriver {
	case "sqlite", "postgres":
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if strings.TrimSpace(cfg.DBDSN) == "" {
		return cfg, errors.New("DB_DSN must not be empty")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.Rate.RPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.Rate.Burst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	switch cfg.Rate.Backend {
	case "memory":
	case "redis":
		if strings.TrimSpace(cfg.Rate.RedisAddr) == "" {
			return cfg, errors.New("REDIS_ADDR must not be empty when RATE_BACKEND=redis")
		}
	default:
		return cfg, errors.New("RATE_BACKEND must be one of: memory, redis")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch {
		case sysutil.IsTruthy(v):
			return true
		case sysutil.IsFalsy(v):
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
