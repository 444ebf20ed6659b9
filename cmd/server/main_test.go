package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"auscultify/internal/config"
	"auscultify/internal/di"
	"auscultify/internal/observability"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApplication_ServesHealth(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	cfg := &config.Config{
		Server:        config.ServerConfig{Port: config.DefaultPort, SessionSecret: "test-secret"},
		Storage:       config.StorageConfig{AudioRoot: t.TempDir(), MaxUploadBytes: config.DefaultMaxUploadBytes},
		OpenTelemetry: config.OpenTelemetryConfig{ServiceName: serviceName},
	}
	container := di.NewServiceContainer(cfg, observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}))
	require.NoError(t, container.InitializeWithDB(context.Background(), db))

	app, err := NewApplication(container)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"auscultify"}`, w.Body.String())

	mock.ExpectClose()
	require.NoError(t, app.Shutdown(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
