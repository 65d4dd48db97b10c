// Command taskdesk hosts the task management core: it runs the database
// migrations, consumes the lifecycle event stream into the audit log and
// exposes the operational HTTP endpoints. The domain API itself is consumed
// as a library by embedding services.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskdesk/taskdesk/internal/adapter/catalog"
	tdhttp "github.com/taskdesk/taskdesk/internal/adapter/http"
	tdnats "github.com/taskdesk/taskdesk/internal/adapter/nats"
	"github.com/taskdesk/taskdesk/internal/adapter/natskv"
	"github.com/taskdesk/taskdesk/internal/adapter/postgres"
	"github.com/taskdesk/taskdesk/internal/adapter/ristretto"
	"github.com/taskdesk/taskdesk/internal/adapter/tiered"
	"github.com/taskdesk/taskdesk/internal/config"
	"github.com/taskdesk/taskdesk/internal/logger"
	"github.com/taskdesk/taskdesk/internal/port/cache"
	"github.com/taskdesk/taskdesk/internal/resilience"

	tdotel "github.com/taskdesk/taskdesk/internal/adapter/otel"
)

const version = "0.3.0"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	holder := config.NewHolder(cfg, cfgPath)

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	log.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
		"review_workflow", cfg.Security.ReviewWorkflow,
	)

	ctx := context.Background()

	shutdownOtel, err := tdotel.Init(ctx, cfg.Logging.Service, cfg.Telemetry.Endpoint)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOtel(shutdownCtx)
	}()

	// --- Infrastructure ---

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Info("migrations applied")

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	log.Info("postgres connected")

	queue, err := tdnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Drain() }()

	// --- Classification lookup path ---

	local, err := ristretto.New(int64(cfg.Cache.MaxSizeMB) << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer local.Close()

	var clfCache cache.Cache = local
	if kv, kvErr := queue.KeyValue(ctx, "classifications", cfg.Cache.TTL); kvErr == nil {
		clfCache = tiered.New(local, natskv.New(kv), cfg.Cache.TTL)
	} else {
		log.Warn("classification cache runs local-only", "error", kvErr)
	}

	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	classifications := catalog.NewClient(cfg.Classification.URL, cfg.Classification.Timeout)

	// --- Audit trail ---

	unsubTasks, err := subscribeAudit(ctx, queue, "tasks.>", log)
	if err != nil {
		return fmt.Errorf("audit subscriber: %w", err)
	}
	defer unsubTasks()

	unsubWorkbaskets, err := subscribeAudit(ctx, queue, "workbaskets.>", log)
	if err != nil {
		return fmt.Errorf("audit subscriber: %w", err)
	}
	defer unsubWorkbaskets()

	// --- Operational HTTP ---

	checks := map[string]tdhttp.Check{
		"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
		"nats": func(context.Context) error {
			if !queue.IsConnected() {
				return fmt.Errorf("not connected")
			}
			return nil
		},
		"cache": func(ctx context.Context) error {
			return clfCache.Set(ctx, "readiness-probe", []byte("ok"), time.Minute)
		},
		"classification": func(ctx context.Context) error {
			if state := breaker.State(); state != "closed" {
				return fmt.Errorf("circuit %s", state)
			}
			return breaker.Execute(func() error {
				return classifications.Health(ctx)
			})
		},
	}
	handlers := tdhttp.NewHandlers(log, version, checks)
	router := tdhttp.NewRouter(handlers, cfg.Logging.Service)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// --- Signals ---

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			if err := holder.Reload(); err != nil {
				log.Error("config reload failed", "error", err)
				continue
			}
			log.Info("config reloaded", "path", cfgPath)
		}
	}()

	go func() {
		log.Info("operational endpoints up", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "error", err)
		}
	}()

	<-done
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// subscribeAudit consumes lifecycle events and writes them to the log. The
// queue adapter already validated the payload and parked malformed messages
// on the dead-letter subject.
func subscribeAudit(ctx context.Context, queue *tdnats.Queue, subject string, log *slog.Logger) (func(), error) {
	return queue.Subscribe(ctx, subject, func(ctx context.Context, subject string, data []byte) error {
		log.InfoContext(ctx, "lifecycle event", "subject", subject, "payload", string(data))
		return nil
	})
}
