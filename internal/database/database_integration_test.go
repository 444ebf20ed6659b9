//go:build integration

package database

import (
	"context"
	"os"
	"testing"

	"auscultify/internal/config"
	"auscultify/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDatabaseConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		url = "root:root@tcp(localhost:3306)/auscultify_test?parseTime=true"
	}
	return config.DatabaseConfig{URL: url, MaxOpenConns: 5, MaxIdleConns: 5, ConnMaxLifetime: config.DatabaseConnMaxLifetime}
}

func TestInitDB_Integration(t *testing.T) {
	dm := NewManager(observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}))

	db, err := dm.InitDB(testDatabaseConfig(t))
	require.NoError(t, err)
	defer db.Close()

	var criteria int
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM CriterioAlgoritmo").Scan(&criteria))
	assert.Equal(t, 7, criteria)

	version, dirty, err := dm.MigrationVersion(testDatabaseConfig(t).DSN())
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.EqualValues(t, 3, version)

	// second run is a no-op
	require.NoError(t, dm.RunMigrations(context.Background(), testDatabaseConfig(t).DSN()))
}

func TestInitDB_InvalidHost_Integration(t *testing.T) {
	dm := NewManager(observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}))

	db, err := dm.InitDBWithoutMigrations(config.DatabaseConfig{
		URL:          "root:root@tcp(127.0.0.1:1)/nope",
		MaxOpenConns: 1,
	})
	assert.Error(t, err)
	assert.Nil(t, db)
}
