// Package database provides the MySQL connection pool and schema migrations.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"sync"

	"auscultify/internal/config"
	"auscultify/internal/observability"
	contextutils "auscultify/internal/utils"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.nhat.io/otelsql"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Manager handles database operations with proper logging
type Manager struct {
	logger *observability.Logger
}

var (
	otelDriverNameCache string
	otelDriverOnce      sync.Once
	otelDriverErr       error
)

// NewManager creates a new database manager with the provided logger
func NewManager(logger *observability.Logger) *Manager {
	return &Manager{
		logger: logger,
	}
}

// InitDB opens the pool and brings the schema up to date
func (dm *Manager) InitDB(cfg config.DatabaseConfig) (result0 *sql.DB, err error) {
	ctx, span := observability.TraceDatabaseFunction(context.Background(), "InitDB",
		attribute.String("db.system", "mysql"),
		attribute.Bool("migrations.enabled", true),
		attribute.Int("db.max_open_conns", cfg.MaxOpenConns),
	)
	defer observability.FinishSpan(span, &err)

	db, err := dm.InitDBWithoutMigrations(cfg)
	if err != nil {
		return nil, err
	}

	if err := dm.RunMigrations(ctx, cfg.DSN()); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			dm.logger.Error(ctx, "Failed to close database after migration failure", closeErr)
		}
		return nil, err
	}

	return db, nil
}

// InitDBWithoutMigrations opens an otelsql-instrumented pool and pings it
func (dm *Manager) InitDBWithoutMigrations(cfg config.DatabaseConfig) (result0 *sql.DB, err error) {
	dsn := cfg.DSN()
	ctx, span := observability.TraceDatabaseFunction(context.Background(), "InitDBWithoutMigrations",
		attribute.String("db.dsn", contextutils.MaskDatabaseURL(dsn)),
	)
	defer observability.FinishSpan(span, &err)

	otelDriverOnce.Do(func() {
		otelDriverNameCache, otelDriverErr = otelsql.Register("mysql",
			otelsql.WithDatabaseName(databaseName(dsn)),
			otelsql.TraceQueryWithArgs(),
			otelsql.WithSystem(semconv.DBSystemMySQL),
			otelsql.TraceRowsAffected(),
		)
	})
	if otelDriverErr != nil {
		return nil, contextutils.WrapError(otelDriverErr, "failed to register otelsql driver")
	}

	db, err := sql.Open(otelDriverNameCache, dsn)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to open database connection")
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, config.DatabasePingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			dm.logger.Error(ctx, "Failed to close database connection after ping failure", closeErr)
		}
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeDatabaseConnection, contextutils.SeverityError,
			"failed to ping database", contextutils.MaskDatabaseURL(dsn), err)
	}

	dm.logger.Info(ctx, "Database connection established", map[string]interface{}{
		"dsn":               contextutils.MaskDatabaseURL(dsn),
		"max_open_conns":    cfg.MaxOpenConns,
		"max_idle_conns":    cfg.MaxIdleConns,
		"conn_max_lifetime": cfg.ConnMaxLifetime.String(),
	})

	return db, nil
}

// RunMigrations applies the embedded migrations. Migration files hold several statements,
// so they run on a dedicated connection with multiStatements enabled; the request pool
// never has it.
func (dm *Manager) RunMigrations(ctx context.Context, dsn string) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "RunMigrations",
		attribute.String("db.system", "mysql"),
		attribute.String("migration.source", "embedded"),
	)
	defer observability.FinishSpan(span, &err)

	m, closeFn, err := newMigrator(dsn)
	if err != nil {
		return err
	}
	defer closeFn()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		dm.logger.Info(ctx, "No new migrations to apply")
		return nil
	}
	if err != nil {
		return contextutils.WrapError(err, "migrate up failed")
	}

	version, dirty, _ := m.Version()
	span.SetAttributes(attribute.Int("migration.version", int(version)))
	dm.logger.Info(ctx, "Migrations applied", map[string]interface{}{"version": version, "dirty": dirty})
	return nil
}

// ResetSchema rolls every migration back and applies them again, leaving empty tables
// with the seeded criteria
func (dm *Manager) ResetSchema(ctx context.Context, dsn string) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "ResetSchema",
		attribute.String("db.system", "mysql"),
	)
	defer observability.FinishSpan(span, &err)

	m, closeFn, err := newMigrator(dsn)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return contextutils.WrapError(err, "migrate down failed")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return contextutils.WrapError(err, "migrate up failed")
	}

	dm.logger.Warn(ctx, "Database schema reset", map[string]interface{}{"database": databaseName(dsn)})
	return nil
}

// MigrationVersion reports the applied schema version
func (dm *Manager) MigrationVersion(dsn string) (version uint, dirty bool, err error) {
	m, closeFn, err := newMigrator(dsn)
	if err != nil {
		return 0, false, err
	}
	defer closeFn()

	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func newMigrator(dsn string) (*migrate.Migrate, func(), error) {
	mysqlCfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid database DSN: %v", err)
	}
	mysqlCfg.MultiStatements = true

	db, err := sql.Open("mysql", mysqlCfg.FormatDSN())
	if err != nil {
		return nil, nil, contextutils.WrapError(err, "failed to open migration connection")
	}

	driver, err := migratemysql.WithInstance(db, &migratemysql.Config{})
	if err != nil {
		_ = db.Close()
		return nil, nil, contextutils.WrapError(err, "failed to create migration driver")
	}

	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, nil, contextutils.WrapError(err, "failed to read embedded migrations")
	}

	m, err := migrate.NewWithInstance("iofs", source, "mysql", driver)
	if err != nil {
		_ = db.Close()
		return nil, nil, contextutils.WrapError(err, "failed to initialize migrations")
	}

	return m, func() { _, _ = m.Close() }, nil
}

// databaseName extracts the schema name for span attributes
func databaseName(dsn string) string {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil || cfg.DBName == "" {
		return "auscultify"
	}
	return cfg.DBName
}
