package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"pricecomp/internal/config"
	apierrors "pricecomp/internal/errors"
	"pricecomp/internal/files"
	"pricecomp/internal/infrastructure"
	customMiddleware "pricecomp/internal/middleware"
	"pricecomp/internal/services"
	"pricecomp/internal/session"
	handlers "pricecomp/internal/transport/http"
	"pricecomp/internal/validation"
	"pricecomp/pkg/contracts"
	api "pricecomp/pkg/contracts/api/v1"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	ErrorHandler  *apierrors.ErrorHandler
	Sessions      *session.Store[services.RunResult]
	PriceComp     *services.PriceCompService
	Health        *services.HealthService
}

// NewApplication loads configuration, initializes logging and telemetry and
// wires the application together
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	paths, err := config.GetPaths(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	if paths.LogFile != "" {
		cfg.Logging.FilePath = paths.LogFile
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("commit", contracts.GitCommit))
	logger.Info("Application paths",
		slog.String("executable_dir", paths.ExecutableDir),
		slog.String("staging_dir", paths.StagingDir),
		slog.String("log_file", paths.LogFile))

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	return New(cfg, paths, logger, providers)
}

// New wires an application from already initialized dependencies
func New(cfg *config.Config, paths *config.Paths, logger *slog.Logger, providers *infrastructure.OTelProviders) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if paths == nil {
		paths = &config.Paths{StagingDir: cfg.Paths.StagingDir}
	}
	if providers == nil {
		var err error
		providers, err = infrastructure.InitializeOTel(config.TelemetryConfig{TraceExporter: "none", MetricExporter: "none"}, logger)
		if err != nil {
			return nil, err
		}
	}

	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Level == "debug"),
	}

	a.initializeServices()
	a.setupRouter()
	a.createServer()
	return a, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() {
	a.Sessions = session.NewStore[services.RunResult](a.Config.Session.TTL, nil, a.Logger)

	a.PriceComp = services.NewPriceCompService(
		files.NewManager(a.Paths.StagingDir, a.Logger),
		a.Logger,
		services.WithTelemetry(a.OTelProviders.Tracer, a.Metrics),
	)

	a.Health = services.NewHealthService(contracts.Version, contracts.BuildTime, contracts.GitCommit,
		a.Paths.StagingDir, a.Sessions, a.Logger)
}

// setupRouter builds the router. Middleware order:
// RequestID → RealIP → OTel → Logger → Recoverer → SecurityHeaders → RateLimit → MaxBodySize
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.ErrorHandler,
				a.Logger,
			).Handler)
		}
		r.Use(customMiddleware.MaxBodySize(a.Config.Upload.MaxBytes))

		a.setupAPIRoutes(r)
	})

	// Outside the middleware group so scrapes are not traced or rate limited
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		healthHandler := handlers.NewHealthHandler(a.Health, a.Logger)
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		r.Mount(strings.TrimPrefix(api.RunsPath, "/api"), a.priceCompHandler().Routes())
	})
}

func (a *Application) priceCompHandler() *handlers.PriceCompHandler {
	return handlers.NewPriceCompHandler(
		a.PriceComp,
		a.Sessions,
		validation.NewFileValidator(a.Logger),
		a.ErrorHandler,
		handlers.PriceCompHandlerConfig{
			CookieName:     a.Config.Session.CookieName,
			CookieTTL:      a.Config.Session.TTL,
			RunTimeout:     a.Config.Server.RunTimeout,
			MaxUploadBytes: a.Config.Upload.MaxBytes,
		},
		a.Logger,
	)
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run serves HTTP and sweeps expired sessions until ctx is cancelled, then
// shuts down gracefully
func (a *Application) Run(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "HTTP server listening",
			slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.Sessions.RunSweeper(gctx, a.Config.Session.SweepInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete",
		slog.Duration("shutdown_budget", a.Config.Server.ShutdownTimeout),
		slog.Time("stopped_at", time.Now()))
	return infrastructure.CloseLogFile()
}
