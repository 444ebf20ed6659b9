// Package main is the Auscultify admin CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"auscultify/cmd/adm/commands"
	"auscultify/internal/config"
	"auscultify/internal/database"
	"auscultify/internal/di"
	"auscultify/internal/observability"
	contextutils "auscultify/internal/utils"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// the CLI talks to nothing but the database; exporters would only add connection errors
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	_, _, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "auscultify-adm", "error")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}

	env := &commands.Env{
		Config:     cfg,
		Logger:     logger,
		Out:        os.Stdout,
		ReadLine:   commands.StdinLine,
		ReadSecret: commands.TerminalSecret,
	}

	// adm never migrates implicitly; `adm db migrate` does it on request
	open := func(ctx context.Context) (di.ServiceContainerInterface, error) {
		db, err := database.NewManager(logger).InitDBWithoutMigrations(cfg.Database)
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to connect to %s", contextutils.MaskDatabaseURL(cfg.Database.DSN()))
		}
		container := di.NewServiceContainer(cfg, logger)
		if err := container.InitializeWithDB(ctx, db); err != nil {
			return nil, err
		}
		return container, nil
	}

	rootCmd := commands.NewRootCommand(env, open)
	execErr := rootCmd.ExecuteContext(ctx)

	if env.Container != nil {
		if err := env.Container.Shutdown(ctx); err != nil {
			logger.Warn(ctx, "Failed to close database connection", map[string]interface{}{"error": err.Error()})
		}
	}
	_ = logger.Sync()

	if execErr != nil {
		os.Exit(1)
	}
}
