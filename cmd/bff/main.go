// Command bff runs the golf booking gateway: an HTTP API in front of the
// auth, course, booking and notification services reached over NATS.
//
// @title                      Golf BFF API
// @version                    1.0
// @description                Gateway in front of the auth, course, booking and notification services.
// @BasePath                   /api
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/parkgolf/golf-bff/internal/config"
	httpapi "github.com/parkgolf/golf-bff/internal/http"
	"github.com/parkgolf/golf-bff/internal/http/handlers"
	"github.com/parkgolf/golf-bff/internal/http/middleware"
	"github.com/parkgolf/golf-bff/internal/observability"
	"github.com/parkgolf/golf-bff/internal/repo"
	"github.com/parkgolf/golf-bff/internal/rpc"
	"github.com/parkgolf/golf-bff/internal/services"
	"github.com/parkgolf/golf-bff/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// purgeEvery is how often expired idempotency records are deleted.
const purgeEvery = time.Hour

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	sysutil.SetupLogger(os.Stdout, cfg.LogPretty, cfg.OTEL.ServiceName)
	sysutil.SetLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("bff stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("bff stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	gin.SetMode(cfg.GinMode)

	otelShutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer shutdownWithin(cfg.ShutdownTimeout, "otel", otelShutdown)

	db, err := repo.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.DBDriver, err)
	}
	defer closeDB(db)
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	clients, closeBus, err := dialDomains(cfg)
	if err != nil {
		return err
	}
	defer closeBus()

	limiter, closeLimiter, err := newLimiter(cfg.Rate)
	if err != nil {
		return err
	}
	defer closeLimiter()

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:       db,
		Limiter:  limiter,
		Services: domainServices(cfg, clients),
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info().Dur("budget", cfg.ShutdownTimeout).Msg("draining http server")
		return srv.Shutdown(sctx)
	})
	g.Go(func() error {
		purgeLoop(gctx, db, purgeEvery)
		return nil
	})
	return g.Wait()
}

// dialDomains opens one bus connection, one reply mux and one RPC client per
// downstream domain. The returned func closes them in reverse order.
func dialDomains(cfg config.Config) (map[string]*rpc.Client, func(), error) {
	clients := make(map[string]*rpc.Client, len(cfg.Domains))
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	for _, d := range cfg.Domains {
		bus, err := rpc.DialNats(rpc.NatsOptions{
			URL:            d.URL,
			Name:           "golf-bff/" + d.Name,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectTimeout: cfg.NATS.ConnectTimeout,
		})
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("dial %s bus: %w", d.Name, err)
		}
		mux, err := rpc.NewMux(d.Name, bus)
		if err != nil {
			_ = bus.Close()
			closeAll()
			return nil, nil, fmt.Errorf("%s reply mux: %w", d.Name, err)
		}
		name := d.Name
		closers = append(closers, func() {
			if err := mux.Close(); err != nil {
				log.Warn().Err(err).Str("domain", name).Msg("close reply mux")
			}
			if err := bus.Close(); err != nil {
				log.Warn().Err(err).Str("domain", name).Msg("close bus")
			}
		})
		clients[d.Name] = rpc.NewClient(d.Name, mux, cfg.RPC.Quick)
		log.Info().
			Str("domain", d.Name).
			Str("queue", d.Queue).
			Str("status", bus.Status()).
			Msg("downstream connection ready")
	}
	return clients, closeAll, nil
}

// domainServices builds the handler dependencies from the per-domain clients.
func domainServices(cfg config.Config, clients map[string]*rpc.Client) handlers.Deps {
	t := rpc.Timeouts{Quick: cfg.RPC.Quick, List: cfg.RPC.List, Analytics: cfg.RPC.Analytics}

	var probes []services.Probe
	for _, d := range cfg.Domains {
		if c, ok := clients[d.Name]; ok {
			probes = append(probes, services.Probe{Caller: c, Subject: d.Ping})
		}
	}
	return handlers.Deps{
		Auth:          services.NewAuthService(clients["auth"], t, nil),
		Courses:       services.NewCourseService(clients["course"], t),
		Bookings:      services.NewBookingService(clients["booking"], t),
		Notifications: services.NewNotificationService(clients["notify"], t),
		Health:        services.NewHealthService(cfg.RPC.Ping, probes...),
	}
}

// newLimiter returns the rate limit backend named by cfg.Backend.
func newLimiter(cfg config.RateConfig) (middleware.Limiter, func(), error) {
	if cfg.Backend != "redis" {
		return middleware.NewRateLimiter(cfg.RPS, cfg.Burst), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	pctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		// The limiter fails open, so an unreachable Redis is not fatal.
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable at start")
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis")
		}
	}
	return middleware.NewRedisLimiter(client, "golf-bff:rl:", cfg.RPS, cfg.Burst), closeFn, nil
}

// purgeLoop deletes expired idempotency records every interval until ctx ends.
func purgeLoop(ctx context.Context, db *gorm.DB, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("idempotency purge")
			}
		}
	}
}

func shutdownWithin(budget time.Duration, what string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Warn().Err(err).Str("component", what).Msg("shutdown")
	}
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
