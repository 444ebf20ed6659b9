package services

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"auscultify/internal/database"
	"auscultify/internal/models"
	"auscultify/internal/observability"
	contextutils "auscultify/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/unicode/norm"
)

// CategoryServiceInterface defines the category lifecycle operations
type CategoryServiceInterface interface {
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	DeleteCategory(ctx context.Context, req models.DeleteCategoryRequest) (*models.CategoryDeletion, error)
}

// CategoryService keeps Categorias, the per-category folders and categorias.txt in step
type CategoryService struct {
	db      *sql.DB
	store   AudioStorage
	metrics *observability.DomainMetrics
	logger  *observability.Logger
}

const (
	categoryNameMin = 2
	categoryNameMax = 50
)

var categoryNamePattern = regexp.MustCompile(`^[a-zA-ZáéíóúÁÉÍÓÚüÜñÑ 0-9\-_.]+$`)

const (
	msgCategoryRequired     = "El nombre de la categoría es requerido"
	msgCategoryTooShort     = "El nombre de la categoría debe tener al menos 2 caracteres"
	msgCategoryTooLong      = "El nombre de la categoría no puede exceder 50 caracteres"
	msgCategoryInvalidChars = "El nombre contiene caracteres no válidos. Solo se permiten letras, números, espacios, guiones y puntos"
	msgCategoryExists       = "Ya existe una categoría con este nombre"
	msgCategoryNotFound     = "Categoría no encontrada"
	msgCategoryRef          = "Se requiere el ID o el nombre de la categoría"
	msgCategoryHasData      = "No se puede eliminar la categoría porque tiene datos relacionados"
)

// NewCategoryServiceWithLogger creates a new CategoryService
func NewCategoryServiceWithLogger(db *sql.DB, store AudioStorage, metrics *observability.DomainMetrics, logger *observability.Logger) *CategoryService {
	return &CategoryService{db: db, store: store, metrics: metrics, logger: logger}
}

// NormalizeCategoryName trims and NFC-normalises a submitted name and checks it against the naming rules
func NormalizeCategoryName(raw string) (string, error) {
	name := norm.NFC.String(strings.TrimSpace(raw))

	invalid := func(msg string) error {
		return contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityInfo, msg, "")
	}
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		return "", invalid(msgCategoryRequired)
	case n < categoryNameMin:
		return "", invalid(msgCategoryTooShort)
	case n > categoryNameMax:
		return "", invalid(msgCategoryTooLong)
	}
	// dot-only names would address the audio root or its parent
	if !categoryNamePattern.MatchString(name) || strings.Trim(name, ".") == "" {
		return "", invalid(msgCategoryInvalidChars)
	}
	return name, nil
}

// CreateCategory inserts the category, creates its folder and refreshes the manifest.
// The row is removed again when the folder cannot be created.
func (s *CategoryService) CreateCategory(ctx context.Context, rawName string) (result0 *models.Category, err error) {
	ctx, span := observability.TraceCategoryFunction(ctx, "create_category", observability.AttributeCategoryName(rawName))
	defer observability.FinishSpan(span, &err)

	name, err := NormalizeCategoryName(rawName)
	if err != nil {
		return nil, err
	}

	var existingID int
	err = s.db.QueryRowContext(ctx, `SELECT idCategorias FROM Categorias WHERE LOWER(nombreCategoria) = LOWER(?)`, name).Scan(&existingID)
	switch {
	case err == nil:
		return nil, contextutils.NewAppError(contextutils.ErrorCodeRecordExists, contextutils.SeverityInfo, msgCategoryExists, "")
	case !errors.Is(err, sql.ErrNoRows):
		return nil, database.ClassifyError(err, "failed to check category name")
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO Categorias (nombreCategoria) VALUES (?)`, name)
	if err != nil {
		if database.IsDuplicate(err) {
			return nil, contextutils.NewAppError(contextutils.ErrorCodeRecordExists, contextutils.SeverityInfo, msgCategoryExists, "")
		}
		return nil, database.ClassifyError(err, msgCategoryTooLong)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to read new category id")
	}
	category := &models.Category{ID: int(id), Name: name}
	span.SetAttributes(observability.AttributeCategoryID(category.ID))

	if storeErr := s.store.EnsureCategoryDir(ctx, name); storeErr != nil {
		return nil, s.compensateCreate(ctx, category, storeErr)
	}

	if _, err := refreshCategoryManifest(ctx, s.db, s.store); err != nil {
		s.logger.Warn(ctx, "Failed to refresh category manifest", map[string]interface{}{"error": err.Error()})
	}

	s.metrics.RecordCatalogChange(ctx, "category", "create")
	s.logger.Info(ctx, "Category created", map[string]interface{}{"category_id": category.ID, "name": name})
	return category, nil
}

// compensateCreate removes a category row whose folder could not be created
func (s *CategoryService) compensateCreate(ctx context.Context, category *models.Category, storeErr error) error {
	_, delErr := s.db.ExecContext(ctx, `DELETE FROM Categorias WHERE idCategorias = ?`, category.ID)
	if delErr != nil {
		s.logger.Error(ctx, "Compensating category delete failed", delErr, map[string]interface{}{
			"category_id": category.ID,
			"name":        category.Name,
		})
		return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeStorage, contextutils.SeverityError,
			"failed to create category folder and to remove the category row", category.Name, errors.Join(storeErr, delErr))
	}
	s.logger.Warn(ctx, "Category folder creation failed, row removed", map[string]interface{}{
		"category_id": category.ID,
		"error":       storeErr.Error(),
	})
	return contextutils.WrapErrorf(storeErr, "failed to create folder for category %s", category.Name)
}

// ListCategories returns every category ordered by name
func (s *CategoryService) ListCategories(ctx context.Context) (result0 []models.Category, err error) {
	ctx, span := observability.TraceCategoryFunction(ctx, "list_categories")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `SELECT idCategorias, nombreCategoria FROM Categorias ORDER BY nombreCategoria`)
	if err != nil {
		return nil, database.ClassifyError(err, "failed to list categories")
	}
	defer func() { _ = rows.Close() }()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, database.ClassifyError(err, "failed to scan category")
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, database.ClassifyError(err, "failed to list categories")
	}
	return categories, nil
}

// DeleteCategory removes a category with its questions and their history in one transaction,
// then removes the folder and refreshes both manifests. Filesystem steps are best effort.
func (s *CategoryService) DeleteCategory(ctx context.Context, req models.DeleteCategoryRequest) (result0 *models.CategoryDeletion, err error) {
	ctx, span := observability.TraceCategoryFunction(ctx, "delete_category")
	defer observability.FinishSpan(span, &err)

	byID := req.IDCategoria != nil && *req.IDCategoria > 0
	byName := req.NombreCategoria != nil && strings.TrimSpace(*req.NombreCategoria) != ""
	if !byID && !byName {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityInfo, msgCategoryRef, "")
	}

	result := &models.CategoryDeletion{}
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var row *sql.Row
		if byID {
			row = tx.QueryRowContext(ctx, `SELECT idCategorias, nombreCategoria FROM Categorias WHERE idCategorias = ? FOR UPDATE`, *req.IDCategoria)
		} else {
			row = tx.QueryRowContext(ctx, `SELECT idCategorias, nombreCategoria FROM Categorias WHERE nombreCategoria = ? FOR UPDATE`, strings.TrimSpace(*req.NombreCategoria))
		}
		if err := row.Scan(&result.Category.ID, &result.Category.Nombre); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return contextutils.NewAppError(contextutils.ErrorCodeRecordNotFound, contextutils.SeverityInfo, msgCategoryNotFound, "")
			}
			return database.ClassifyError(err, "failed to load category")
		}

		res, err := tx.ExecContext(ctx, `
			DELETE h FROM Usuarios_has_Preguntas h
			JOIN Preguntas p ON p.idPregunta = h.Preguntas_idPregunta
			WHERE p.Categorias_idCategorias = ?`, result.Category.ID)
		if err != nil {
			return database.ClassifyError(err, msgCategoryHasData)
		}
		if result.HistoryDeleted, err = res.RowsAffected(); err != nil {
			return contextutils.WrapError(err, "failed to count deleted history")
		}

		res, err = tx.ExecContext(ctx, `DELETE FROM Preguntas WHERE Categorias_idCategorias = ?`, result.Category.ID)
		if err != nil {
			return database.ClassifyError(err, msgCategoryHasData)
		}
		if result.QuestionsDeleted, err = res.RowsAffected(); err != nil {
			return contextutils.WrapError(err, "failed to count deleted questions")
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM Categorias WHERE idCategorias = ?`, result.Category.ID); err != nil {
			return database.ClassifyError(err, msgCategoryHasData)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		observability.AttributeCategoryID(result.Category.ID),
		attribute.Int64("category.questions_deleted", result.QuestionsDeleted),
	)

	if err := s.store.RemoveCategoryDir(ctx, result.Category.Nombre); err != nil {
		s.logger.Warn(ctx, "Failed to remove category folder", map[string]interface{}{
			"category_id": result.Category.ID,
			"error":       err.Error(),
		})
	} else {
		result.FolderRemoved = true
	}

	if _, err := refreshCategoryManifest(ctx, s.db, s.store); err != nil {
		s.logger.Warn(ctx, "Failed to refresh category manifest", map[string]interface{}{"error": err.Error()})
	}
	if result.QuestionsDeleted > 0 {
		if _, err := refreshAudioManifest(ctx, s.db, s.store); err != nil {
			s.logger.Warn(ctx, "Failed to refresh audio manifest", map[string]interface{}{"error": err.Error()})
		}
	}

	s.metrics.RecordCatalogChange(ctx, "category", "delete")
	s.logger.Info(ctx, "Category deleted", map[string]interface{}{
		"category_id":       result.Category.ID,
		"questions_deleted": result.QuestionsDeleted,
		"history_deleted":   result.HistoryDeleted,
	})
	return result, nil
}
