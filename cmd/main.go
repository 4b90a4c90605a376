package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mowoo/SLG-Dashboard/internal/adapters/http/api"
	"github.com/mowoo/SLG-Dashboard/internal/adapters/http/swagger"
	app "github.com/mowoo/SLG-Dashboard/internal/app"
	"github.com/mowoo/SLG-Dashboard/internal/config"
	"github.com/mowoo/SLG-Dashboard/internal/domain/radar"
	"github.com/mowoo/SLG-Dashboard/pkg/logger"
	"github.com/mowoo/SLG-Dashboard/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 30 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 30 * time.Second
	nanosecondsPerMillisecond = 1e6

	logMaxSizeMB     = 50
	logMaxBackups    = 5
	logMaxAgeDays    = 14
	bytesPerMegabyte = 1 << 20
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logs: " + err.Error() + "\n")
		}
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Re-initialize with the configured format and optional rotated file.
	if err := logger.Init(
		logger.WithFormat(cfg.LogFormat),
		logger.WithFile(cfg.LogFile, logMaxSizeMB, logMaxBackups, logMaxAgeDays),
	); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	presets, err := presetsFromConfig(cfg.Presets)
	if err != nil {
		loggerInstance.Error(ctx, "invalid radar presets", logger.Error(err))
		return
	}

	svc := app.New(serviceOptions(cfg, presets, loggerInstance)...)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(ctx, cfg, svc, loggerInstance),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("dataDir", cfg.DataDir))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(context.Background(), "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(shutdownCtx, "server stopped")
}

// serviceOptions maps configuration onto service options.
func serviceOptions(cfg *config.Config, presets []radar.Preset, l logger.Logger) []app.Option {
	return []app.Option{
		app.WithLogger(l),
		app.WithDataDir(cfg.DataDir),
		app.WithExcludedGroups(cfg.ExcludedGroups),
		app.WithCache(cfg.CacheTTL, cfg.CacheCapacity),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithPrefsDir(cfg.PrefsDir),
		app.WithPresets(presets),
		app.WithEfficiencyMinPower(cfg.EfficiencyMinPower),
		app.WithBoardSize(cfg.DefaultBoardSize, cfg.MaxBoardSize),
	}
}

// presetsFromConfig converts configured presets, sorted by name.
func presetsFromConfig(in map[string]config.PresetConfig) ([]radar.Preset, error) {
	out := make([]radar.Preset, 0, len(in))
	for name, pc := range in {
		p := radar.Preset{Name: name, Description: pc.Description, Merit: pc.Merit, Power: pc.Power, Eff: pc.Eff}
		var err error
		if p.MeritOp, err = radar.ParseOp(pc.MeritOp); err != nil {
			return nil, err
		}
		if p.PowerOp, err = radar.ParseOp(pc.PowerOp); err != nil {
			return nil, err
		}
		if p.EffOp, err = radar.ParseOp(pc.EffOp); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// newRouter builds the HTTP handler: API routes first, since they install
// the middleware stack, then the docs.
func newRouter(ctx context.Context, cfg *config.Config, svc *app.Service, l logger.Logger) http.Handler {
	r := chi.NewRouter()
	api.NewServer(svc, svc,
		api.WithMaxUploadBytes(int64(cfg.MaxUploadMB)*bytesPerMegabyte),
		api.WithCORSOrigins(cfg.CORSOrigins),
		api.WithLogger(l.Named("http")),
	).Register(ctx, r)
	swagger.Register(ctx, r)
	return r
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
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

// startServiceMetricsUpdater periodically reloads the snapshot folder so its
// gauges follow files dropped in by hand.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = svc.GetStats()
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
