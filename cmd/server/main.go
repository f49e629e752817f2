package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/techradar/internal/adapters/http/api"
	"github.com/okian/techradar/internal/adapters/http/swagger"
	"github.com/okian/techradar/internal/adapters/repository"
	"github.com/okian/techradar/internal/adapters/repository/postgres"
	service "github.com/okian/techradar/internal/app"
	"github.com/okian/techradar/internal/config"
	"github.com/okian/techradar/pkg/logger"
	"github.com/okian/techradar/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Only the custom registry is exposed; drop the default collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	format, err := logger.ParseFormat(cfg.LogFormat)
	if err != nil {
		os.Stderr.WriteString("invalid log_format: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.InitWith(os.Stdout, format); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()

	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to open store", logger.String("driver", cfg.StoreDriver), logger.Error(err))
		os.Exit(1)
	}

	svc := service.New(
		service.WithLogger(log),
		service.WithStore(store),
		service.WithOperationTimeout(cfg.OperationTimeout()),
		service.WithMaxRetries(cfg.MaxUpdateRetries),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}
	defer svc.Stop()

	if err := seedCatalog(ctx, cfg, svc, log); err != nil {
		log.Error(ctx, "failed to seed technology catalog", logger.Error(err))
		os.Exit(1)
	}

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
}

// catalogSeeder is the part of the service seedCatalog needs.
type catalogSeeder interface {
	SeedTechnologies(ctx context.Context) (bool, error)
}

// seedCatalog installs the built-in technologies into an empty catalog
// when the configuration asks for it.
func seedCatalog(ctx context.Context, cfg *config.Config, svc catalogSeeder, log logger.Logger) error {
	if !cfg.SeedCatalog {
		return nil
	}
	seeded, err := svc.SeedTechnologies(ctx)
	if err != nil {
		return err
	}
	if seeded {
		log.Info(ctx, "technology catalog seeded with defaults")
	}
	return nil
}

// newMux wires the documentation and API routes.
func newMux(ctx context.Context, svc api.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc).Register(ctx, mux)
	return mux
}

// openStore builds the configured backend behind the circuit breaker.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	var inner repository.Store
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pg, err := postgres.Connect(ctx, cfg.PostgresDSN, log.Named("postgres"))
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		inner = pg
	default:
		inner = repository.NewMemoryStore(ctx)
	}
	return repository.NewGuarded(inner, breakerConfig(cfg), log.Named("store")), nil
}

func breakerConfig(cfg *config.Config) repository.BreakerConfig {
	return repository.BreakerConfig{
		Name:         cfg.StoreDriver,
		MaxRequests:  uint32(cfg.BreakerMaxRequests), //nolint:gosec // validated positive
		Interval:     cfg.BreakerInterval(),
		Timeout:      cfg.BreakerTimeout(),
		FailureRatio: cfg.BreakerFailureRatio,
		MinRequests:  uint32(cfg.BreakerMinRequests), //nolint:gosec // validated positive
	}
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
