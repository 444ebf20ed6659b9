package services

import (
	"context"
	"database/sql"

	"auscultify/internal/database"
	"auscultify/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// placeholderAudioPath marks a question row whose file has not been written yet
const placeholderAudioPath = "temp"

// ManifestServiceInterface regenerates the manifest files from the database
type ManifestServiceInterface interface {
	Rebuild(ctx context.Context) (categories int, audios int, err error)
}

// ManifestService rewrites categorias.txt and rutaAudios.txt on operator request
type ManifestService struct {
	db     *sql.DB
	store  AudioStorage
	logger *observability.Logger
}

// NewManifestServiceWithLogger creates a new ManifestService
func NewManifestServiceWithLogger(db *sql.DB, store AudioStorage, logger *observability.Logger) *ManifestService {
	return &ManifestService{db: db, store: store, logger: logger}
}

// Rebuild writes both manifests from the current rows
func (s *ManifestService) Rebuild(ctx context.Context) (categories int, audios int, err error) {
	ctx, span := observability.TraceStorageFunction(ctx, "rebuild_manifests")
	defer observability.FinishSpan(span, &err)

	if categories, err = refreshCategoryManifest(ctx, s.db, s.store); err != nil {
		return 0, 0, err
	}
	if audios, err = refreshAudioManifest(ctx, s.db, s.store); err != nil {
		return categories, 0, err
	}

	span.SetAttributes(attribute.Int("manifest.categories", categories), attribute.Int("manifest.audios", audios))
	s.logger.Info(ctx, "Manifests rebuilt", map[string]interface{}{"categories": categories, "audios": audios})
	return categories, audios, nil
}

func refreshCategoryManifest(ctx context.Context, q database.Querier, store AudioStorage) (int, error) {
	names, err := queryStrings(ctx, q, `SELECT nombreCategoria FROM Categorias ORDER BY nombreCategoria`)
	if err != nil {
		return 0, err
	}
	return len(names), store.WriteCategoryManifest(ctx, names)
}

func refreshAudioManifest(ctx context.Context, q database.Querier, store AudioStorage) (int, error) {
	paths, err := queryStrings(ctx, q, `SELECT urlAudio FROM Preguntas WHERE urlAudio <> ? ORDER BY idPregunta`, placeholderAudioPath)
	if err != nil {
		return 0, err
	}
	return len(paths), store.WriteAudioManifest(ctx, paths)
}

func queryStrings(ctx context.Context, q database.Querier, query string, args ...interface{}) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, database.ClassifyError(err, "failed to read list")
	}
	defer func() { _ = rows.Close() }()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, database.ClassifyError(err, "failed to scan list entry")
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, database.ClassifyError(err, "failed to read list")
	}
	return out, nil
}
