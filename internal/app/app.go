package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"navcli/internal/config"
	apierrors "navcli/internal/errors"
	"navcli/internal/infrastructure"
	customMiddleware "navcli/internal/middleware"
	"navcli/internal/operations"
	"navcli/internal/services"
	handlers "navcli/internal/transport/http"
	ws "navcli/internal/websocket"
)

const (
	// operationRetention is how long finished operations stay queryable.
	operationRetention = time.Hour
	cleanupInterval    = 10 * time.Minute
)

// Application wires the pipeline, the services and the HTTP server.
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics

	Pipeline         *Pipeline
	Manager          *operations.Manager
	WebSocketHub     *ws.Hub
	OperationService *services.OperationService
	DataService      *services.DataService
	HealthService    *services.HealthService

	ErrorHandler *apierrors.ErrorHandler
	Router       chi.Router
	Server       *http.Server
}

// NewApplication creates the application. A nil cfg is loaded from the
// config file and environment; a nil logger initializes the global one.
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}
	if logger == nil {
		l, err := infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
	}

	logger.InfoContext(ctx, "application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths, err := cfg.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := app.initializeServices(ctx); err != nil {
		app.release(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the pipeline and the services around it
func (a *Application) initializeServices(ctx context.Context) error {
	pipeline, err := NewPipeline(ctx, a.Config, a.Paths, a.Metrics, a.Logger)
	if err != nil {
		return err
	}
	a.Pipeline = pipeline

	hub := ws.NewHub(a.Metrics, a.Logger)
	hub.Start()
	a.WebSocketHub = hub

	a.Manager = operations.NewManager(
		hub,
		pipeline.Registry,
		operations.ConfigFrom(a.Config.Processing),
		operations.NewOperationTracer(a.OTelProviders.Tracer, a.Metrics),
		a.Logger,
	)
	a.OperationService = services.NewOperationService(a.Manager, a.Config.Processing.Timeout, a.Logger)
	a.DataService = services.NewDataService(pipeline.Files, pipeline.Latest(), a.Logger)

	a.HealthService = services.NewHealthService(
		config.AppVersion,
		a.Paths,
		a.DataService,
		a.OperationService,
		hub.ClientCount,
		a.Logger,
	)
	for name, check := range pipeline.Checks() {
		a.HealthService.AddCheck(name, check)
	}
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// The WebSocket route only gets middleware that leaves the
	// ResponseWriter hijackable.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	wsHandler := ws.NewHandler(a.WebSocketHub, a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.OTelProviders.Tracer, a.Logger)).Handle("/ws", wsHandler)

	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.ErrorHandler))

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
		r.Use(a.ErrorHandler.Recoverer)
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(a.corsConfig()))

		if rl := a.Config.Security.RateLimit; rl.Enabled {
			r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.ErrorHandler, a.Logger).Handler)
		}

		a.setupAPIRoutes(r)
	})

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	validator := customMiddleware.NewValidator()

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

		r.Mount("/health", handlers.NewHealthHandler(a.HealthService, a.Logger).Routes())
		r.Mount("/funds", handlers.NewDataHandler(a.DataService, validator, a.Logger, a.ErrorHandler).Routes())
		r.Mount("/operations", handlers.NewOperationsHandler(a.OperationService, validator, a.Logger, a.ErrorHandler).Routes())
	})
}

func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{"X-Request-ID", "Location"},
		MaxAge:         300,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start serves HTTP in the background. Listener failures cancel the
// application through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting server",
		slog.Int("port", a.Config.Server.Port),
		slog.String("input_dir", a.Paths.InputDir),
		slog.String("reports_dir", a.Paths.ReportsDir))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()
	go a.cleanupLoop(ctx)

	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// cleanupLoop drops finished operations past their retention.
func (a *Application) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.OperationService.Cleanup(ctx, operationRetention); n > 0 {
				a.Logger.DebugContext(ctx, "finished operations dropped", slog.Int("count", n))
			}
		}
	}
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	errs = append(errs, a.release(shutdownCtx))

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return errors.Join(errs...)
}

// release cancels running operations and closes sinks, the hub and the
// telemetry providers.
func (a *Application) release(ctx context.Context) error {
	var errs []error
	if a.Manager != nil {
		a.Manager.Shutdown()
	}
	if a.OperationService != nil {
		if err := a.OperationService.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("wait for operation: %w", err))
		}
	}
	if a.WebSocketHub != nil {
		a.WebSocketHub.Stop()
	}
	if a.Pipeline != nil {
		if err := a.Pipeline.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run serves until SIGINT or SIGTERM, then shuts down.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx, stop); err != nil {
		return err
	}
	<-ctx.Done()
	a.Logger.Info("received shutdown signal")

	return a.Stop(context.Background())
}
