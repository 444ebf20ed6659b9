package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"auscultify/internal/config"
	"auscultify/internal/observability"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	cleanup := func() {
		mock.ExpectClose()
		require.NoError(t, db.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	}
	return db, mock, cleanup
}

func testLogger() *observability.Logger {
	return observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Selection.BatchSize = config.DefaultBatchSize
	cfg.Selection.Decoys = config.DefaultDecoys
	cfg.Server.TimeZone = "UTC"
	cfg.Server.AdminEmail = config.DefaultAdminEmail
	cfg.Server.AdminPassword = config.DefaultAdminPassword
	return cfg
}

var userColumns = []string{
	"idUsuario", "correoElectronico", "contrasena", "totalPreguntasAcertadas", "totalPreguntasFalladas",
	"totalPreguntasContestadas", "racha", "ultimoDiaPregunta", "esPublico", "idCriterioMasUsado",
}

type userRow struct {
	id       int
	email    string
	hash     string
	correct  int
	failed   int
	answered int
	streak   int
	lastDay  *time.Time
	public   bool
}

func (u userRow) rows() *sqlmock.Rows {
	var last driver.Value
	if u.lastDay != nil {
		last = *u.lastDay
	}
	return sqlmock.NewRows(userColumns).
		AddRow(u.id, u.email, u.hash, u.correct, u.failed, u.answered, u.streak, last, u.public, 1)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

// fakeStorage records calls and fails on demand
type fakeStorage struct {
	mu sync.Mutex

	ensureErr       error
	removeDirErr    error
	saveErr         error
	removeAudioErr  error
	categoryListErr error

	dirs            []string
	removedDirs     []string
	saved           map[string][]byte
	removed         []string
	categoryList    []string
	audioList       []string
	audioListWrites int
	added           []string
	unlisted        []string
}

var errFakeStorage = errors.New("disk full")

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: map[string][]byte{}}
}

func (f *fakeStorage) EnsureCategoryDir(_ context.Context, category string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ensureErr != nil {
		return f.ensureErr
	}
	f.dirs = append(f.dirs, category)
	return nil
}

func (f *fakeStorage) RemoveCategoryDir(_ context.Context, category string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeDirErr != nil {
		return f.removeDirErr
	}
	f.removedDirs = append(f.removedDirs, category)
	return nil
}

func (f *fakeStorage) SaveAudio(_ context.Context, category, filename string, r io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return "", f.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	rel := category + "/" + filename
	f.saved[rel] = data
	return rel, nil
}

func (f *fakeStorage) RemoveAudio(_ context.Context, rel string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeAudioErr != nil {
		return false, f.removeAudioErr
	}
	f.removed = append(f.removed, rel)
	_, ok := f.saved[rel]
	delete(f.saved, rel)
	return ok, nil
}

func (f *fakeStorage) WriteCategoryManifest(_ context.Context, names []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.categoryListErr != nil {
		return f.categoryListErr
	}
	f.categoryList = append([]string(nil), names...)
	return nil
}

func (f *fakeStorage) WriteAudioManifest(_ context.Context, paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audioList = append([]string(nil), paths...)
	f.audioListWrites++
	return nil
}

func (f *fakeStorage) AddAudioPath(_ context.Context, rel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, rel)
	return nil
}

func (f *fakeStorage) RemoveAudioPath(_ context.Context, rel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlisted = append(f.unlisted, rel)
	return nil
}
