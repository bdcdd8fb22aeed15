package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"leads/internal/api"
	"leads/internal/buyers"
	"leads/internal/config"
	"leads/internal/logger"
	"leads/internal/models"
	"leads/internal/observability"
	"leads/internal/ratelimit"
	"leads/internal/seed"
	"leads/internal/session"
	"leads/internal/storage"
	"leads/internal/version"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var (
	configFile   = flag.String("config", "", "Path to configuration file")
	dotEnvFile   = flag.String("dotenv", ".env", "Path to a .env file loaded before the environment is read")
	seedData     = flag.Bool("seed", false, "Load demo users and a sample buyer on startup")
	writeExample = flag.String("write-example", "", "Write an example configuration file to this path and exit")
	showVersion  = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	ver := version.GetInfo()
	if *showVersion {
		fmt.Println(ver.String())
		return
	}

	if *writeExample != "" {
		if err := config.SaveExample(*writeExample); err != nil {
			slog.Error("Failed to write example configuration", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Example configuration written to %s\n", *writeExample)
		return
	}

	if err := config.LoadDotEnv(*dotEnvFile); err != nil {
		slog.Error("Failed to load .env file", "error", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logging
	log, closer, err := logger.Setup(cfg.Logging, ver)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(log)
	if !ver.IsRelease() {
		slog.Warn("Running a development build", "version", ver.Version)
	}

	if err := observability.InitSentry(cfg.Observability.SentryDSN, cfg.Environment, ver.Release()); err != nil {
		slog.Error("Failed to initialize Sentry", "error", err)
		os.Exit(1)
	}
	defer observability.FlushSentry()

	// Initialize observability (OpenTelemetry)
	otelProvider, err := observability.Setup(cfg.Metrics, cfg.Observability, cfg.Environment, ver)
	if err != nil {
		slog.Error("Failed to initialize observability", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown observability", "error", err)
		}
	}()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), cfg.Storage.Database.ConnectRetry+30*time.Second)
	defer cancelStartup()

	// Initialize storage
	storageInstance, err := storage.NewFactory().Connect(startupCtx, cfg.Storage)
	if err != nil {
		slog.Error("Failed to initialize storage", "type", cfg.Storage.Type, "error", err)
		os.Exit(1)
	}
	defer storageInstance.Close()

	// Wrap storage with instrumentation if metrics are enabled
	activeStorage := storageInstance
	if cfg.Metrics.Enabled || cfg.Observability.Tracing.Enabled {
		instrumented, err := observability.NewInstrumentedStorage(storageInstance)
		if err != nil {
			slog.Error("Failed to create instrumented storage", "error", err)
			os.Exit(1)
		}
		activeStorage = instrumented
	}

	buyerService := buyers.NewService(activeStorage, cfg.Buyers.PageSize)

	if *seedData {
		if _, err := seed.Run(startupCtx, activeStorage, buyerService); err != nil {
			slog.Error("Failed to seed demo data", "error", err)
			os.Exit(1)
		}
	}

	// Sessions
	denylist, err := session.NewDenylist(startupCtx, cfg.Security.Session.Revocation)
	if err != nil {
		slog.Error("Failed to initialize session revocation", "error", err)
		os.Exit(1)
	}
	sessions, err := session.NewManager(cfg.Security.Session, denylist)
	if err != nil {
		slog.Error("Failed to initialize sessions", "error", err)
		os.Exit(1)
	}
	defer sessions.Close()

	if cfg.IsDevelopment() && cfg.Security.Session.Secret == models.DefaultSessionSecret {
		slog.Warn("Using the placeholder session secret; set LEADS_SESSION_SECRET outside local development")
	}

	handlers := api.NewHandlers(buyerService, sessions, activeStorage, ver.Version)

	// Setup routes with middleware
	routeOpts := []api.RouteOption{}
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName))
	}

	if cfg.Security.RateLimit.Enabled {
		limiter, err := ratelimit.New(cfg.Security.RateLimit)
		if err != nil {
			slog.Error("Failed to initialize rate limiter", "error", err)
			os.Exit(1)
		}
		defer limiter.Close()

		routeOpts = append(routeOpts, api.WithRateLimiter(ratelimit.Middleware(limiter)))
	}

	router := api.SetupRoutes(handlers, routeOpts...)

	// Start metrics server if enabled
	var metricsServer *observability.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = observability.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, otelProvider)
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server",
			"addr", server.Addr,
			"environment", cfg.Environment,
			"storage", cfg.Storage.Type,
			"tls", cfg.Server.TLSEnabled,
		)

		var err error
		if cfg.Server.TLSEnabled {
			err = server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-quit:
		slog.Info("Shutting down server", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			slog.Error("Server failed", "error", err)
			exitCode = 1
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			slog.Error("Metrics server forced to shutdown", "error", err)
		}
	}

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server shutdown complete")
	if exitCode != 0 {
		observability.FlushSentry()
		os.Exit(exitCode)
	}
}
