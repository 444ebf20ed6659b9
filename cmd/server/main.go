// Package main runs the Auscultify HTTP API.
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

	"auscultify/internal/config"
	"auscultify/internal/di"
	"auscultify/internal/handlers"
	"auscultify/internal/observability"
	contextutils "auscultify/internal/utils"
	"auscultify/internal/version"

	"github.com/gin-gonic/gin"
)

const serviceName = "auscultify"

// Application owns the container and the HTTP server built on top of it
type Application struct {
	container di.ServiceContainerInterface
	router    *gin.Engine
	server    *http.Server
}

// NewApplication builds the router from the services held by container
func NewApplication(container di.ServiceContainerInterface) (*Application, error) {
	userService, err := container.GetUserService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get user service")
	}
	categoryService, err := container.GetCategoryService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get category service")
	}
	questionService, err := container.GetQuestionService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get question service")
	}
	selectionService, err := container.GetSelectionService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get selection service")
	}
	statisticsService, err := container.GetStatisticsService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get statistics service")
	}
	socialService, err := container.GetSocialService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get social service")
	}

	router, err := handlers.NewRouter(
		container.GetConfig(),
		userService,
		categoryService,
		questionService,
		selectionService,
		statisticsService,
		socialService,
		container.GetLogger(),
	)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to build router")
	}

	return &Application{container: container, router: router}, nil
}

// Run serves HTTP on port until the server stops. It returns nil after a graceful Shutdown.
func (a *Application) Run(port string) error {
	a.server = &http.Server{
		Addr:              ":" + port,
		Handler:           a.router,
		ReadHeaderTimeout: config.ServerReadHeaderTimeout,
	}
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return contextutils.WrapError(err, "server failed")
	}
	return nil
}

// Shutdown drains in-flight requests and then releases the container
func (a *Application) Shutdown(ctx context.Context) error {
	var serverErr error
	if a.server != nil {
		serverErr = a.server.Shutdown(ctx)
	}
	return errors.Join(serverErr, a.container.Shutdown(ctx))
}

func main() {
	ctx := context.Background()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, serviceName, cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if sdk, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
			if err := sdk.Shutdown(flushCtx); err != nil {
				logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error()})
			}
		}
		if mp != nil {
			if err := mp.Shutdown(flushCtx); err != nil {
				logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error()})
			}
		}
		_ = logger.Sync()
	}()

	logger.Info(ctx, "Starting Auscultify", map[string]interface{}{
		"version":    version.Version,
		"commit":     version.Commit,
		"port":       cfg.Server.Port,
		"log_level":  cfg.Server.LogLevel,
		"audio_root": cfg.Storage.AudioRoot,
		"time_zone":  cfg.Location().String(),
	})

	container := di.NewServiceContainer(cfg, logger)
	if err := container.Initialize(ctx); err != nil {
		logger.Error(ctx, "Failed to initialize services", err)
		os.Exit(1)
	}

	if err := container.EnsureAdminUser(ctx); err != nil {
		logger.Error(ctx, "Failed to ensure admin user exists", err, map[string]interface{}{"admin_email": contextutils.MaskEmail(cfg.Server.AdminEmail)})
		_ = container.Shutdown(ctx)
		os.Exit(1)
	}

	app, err := NewApplication(container)
	if err != nil {
		logger.Error(ctx, "Failed to create application", err)
		_ = container.Shutdown(ctx)
		os.Exit(1)
	}

	appErr := make(chan error, 1)
	go func() {
		appErr <- app.Run(cfg.Server.Port)
	}()

	select {
	case sig := <-shutdownCh:
		logger.Info(ctx, "Received shutdown signal, shutting down gracefully", map[string]interface{}{"signal": sig.String()})
	case err := <-appErr:
		logger.Error(ctx, "Server stopped unexpectedly", err)
		_ = container.Shutdown(ctx)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Error during shutdown", err)
		os.Exit(1)
	}

	logger.Info(ctx, "Shutdown completed", nil)
}
