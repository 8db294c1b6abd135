// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bissquit/status-monitor/internal/config"
	"github.com/bissquit/status-monitor/internal/monitor"
	"github.com/bissquit/status-monitor/internal/pkg/httputil"
	"github.com/bissquit/status-monitor/internal/status"
	"github.com/bissquit/status-monitor/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	monitor       *monitor.Monitor
	monitorCtx    context.Context
	monitorCancel context.CancelFunc
	server        *http.Server
	metricsServer *http.Server
}

// New creates a new application instance. The monitor is created but not started.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	mon, err := monitor.NewMonitor(monitor.Config{
		PollInterval:        cfg.Status.PollInterval(),
		Timeout:             cfg.Status.Timeout(),
		SlowThreshold:       cfg.Status.SlowThreshold(),
		MaxIncidents:        cfg.Status.MaxIncidents,
		MaxConcurrentChecks: cfg.Status.MaxConcurrentChecks,
		ProbeRateLimit:      cfg.Status.ProbeRateLimit,
		Services:            cfg.Status.Definitions(),
	}, monitor.WithLogger(logger.With("component", "monitor")))
	if err != nil {
		return nil, fmt.Errorf("create monitor: %w", err)
	}

	monitorCtx, monitorCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		monitor:       mon,
		monitorCtx:    monitorCtx,
		monitorCancel: monitorCancel,
	}

	router, err := app.setupRouter()
	if err != nil {
		monitorCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the monitor loop and the HTTP servers. It blocks until the
// main server stops.
func (a *App) Run() error {
	a.monitor.Start(a.monitorCtx)

	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
		"version", version.Version,
	)

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown stops the monitor loop and gracefully shuts down both servers.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	a.monitorCancel()

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(3)

	go func() {
		defer wg.Done()
		a.monitor.Wait()
	}()

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// Monitor returns the monitor instance.
func (a *App) Monitor() *monitor.Monitor {
	return a.monitor
}

func (a *App) setupRouter() (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger, "/healthz", "/readyz"))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, "api/openapi/openapi.yaml")
	})

	statusHandler, err := status.NewHandler(a.monitor, a.monitor.PollInterval())
	if err != nil {
		return nil, fmt.Errorf("create status handler: %w", err)
	}

	statusHandler.RegisterPageRoutes(r)
	r.Route("/api", statusHandler.RegisterAPIRoutes)

	return r, nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyzHandler reports ready once the first pass has completed.
func (a *App) readyzHandler(w http.ResponseWriter, _ *http.Request) {
	if a.monitor.Snapshot().LastUpdated == nil {
		httputil.Text(w, http.StatusServiceUnavailable, "First poll pending")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
