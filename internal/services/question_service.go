package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"auscultify/internal/database"
	"auscultify/internal/models"
	"auscultify/internal/observability"
	"auscultify/internal/storage"
	contextutils "auscultify/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/unicode/norm"
)

// QuestionServiceInterface defines the question lifecycle operations
type QuestionServiceInterface interface {
	CreateQuestion(ctx context.Context, q models.NewQuestion, audio io.Reader) (*models.QuestionRef, error)
	ListQuestions(ctx context.Context, category, baseURL string) ([]models.QuestionListItem, error)
	DeleteQuestion(ctx context.Context, id int) (*models.QuestionDeletion, error)
}

// QuestionService keeps Preguntas, the audio files and rutaAudios.txt in step
type QuestionService struct {
	db      *sql.DB
	store   AudioStorage
	metrics *observability.DomainMetrics
	logger  *observability.Logger
}

// CategoryPlaceholder is the value of the web form's category picker before a choice is made
const CategoryPlaceholder = "Elija una categoría"

const (
	answerMin = 2
	answerMax = 200
)

const (
	msgCategoryChoice    = "Debe seleccionar una categoría válida"
	msgAnswerRequired    = "La respuesta es requerida"
	msgAnswerTooShort    = "La respuesta debe tener al menos 2 caracteres"
	msgAnswerTooLong     = "La respuesta no puede exceder 200 caracteres"
	msgAnswerInvalid     = "La respuesta contiene caracteres no válidos"
	msgQuestionIDMissing = "El ID de la pregunta es requerido"
	msgQuestionNotFound  = "Pregunta no encontrada"
)

// NewQuestionServiceWithLogger creates a new QuestionService
func NewQuestionServiceWithLogger(db *sql.DB, store AudioStorage, metrics *observability.DomainMetrics, logger *observability.Logger) *QuestionService {
	return &QuestionService{db: db, store: store, metrics: metrics, logger: logger}
}

// ValidateQuestionFields checks the text fields of an upload and returns them normalised
func ValidateQuestionFields(category, answer string) (string, string, error) {
	invalid := func(msg string) error {
		return contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityInfo, msg, "")
	}

	category = strings.TrimSpace(category)
	if category == "" || category == CategoryPlaceholder {
		return "", "", invalid(msgCategoryChoice)
	}

	answer = norm.NFC.String(strings.TrimSpace(answer))
	switch n := utf8.RuneCountInString(answer); {
	case n == 0:
		return "", "", invalid(msgAnswerRequired)
	case n < answerMin:
		return "", "", invalid(msgAnswerTooShort)
	case n > answerMax:
		return "", "", invalid(msgAnswerTooLong)
	}
	// the answer ends up in a file name and a line of rutaAudios.txt
	if strings.IndexFunc(answer, unicode.IsControl) >= 0 {
		return "", "", invalid(msgAnswerInvalid)
	}
	return category, answer, nil
}

// CreateQuestion stores the row, writes the audio file under the category folder and appends
// the path to the audio manifest. The row is removed when the file cannot be stored.
func (s *QuestionService) CreateQuestion(ctx context.Context, q models.NewQuestion, audio io.Reader) (result0 *models.QuestionRef, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "create_question", observability.AttributeCategoryName(q.Category))
	defer observability.FinishSpan(span, &err)

	categoryName, answer, err := ValidateQuestionFields(q.Category, q.Answer)
	if err != nil {
		return nil, err
	}

	var categoryID int
	err = s.db.QueryRowContext(ctx, `SELECT idCategorias, nombreCategoria FROM Categorias WHERE nombreCategoria = ?`, categoryName).
		Scan(&categoryID, &categoryName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.NewAppError(contextutils.ErrorCodeRecordNotFound, contextutils.SeverityInfo, msgCategoryNotFound, "")
		}
		return nil, database.ClassifyError(err, "failed to load category")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO Preguntas (urlAudio, respuestaCorrecta, Categorias_idCategorias) VALUES (?, ?, ?)`,
		placeholderAudioPath, answer, categoryID)
	if err != nil {
		return nil, database.ClassifyError(err, msgAnswerTooLong)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to read new question id")
	}
	span.SetAttributes(observability.AttributeQuestionID(int(id)))

	rel, storeErr := s.store.SaveAudio(ctx, categoryName, storage.AudioFileName(answer, id, q.Extension), audio)
	if storeErr != nil {
		return nil, s.compensateCreate(ctx, id, storeErr)
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE Preguntas SET urlAudio = ? WHERE idPregunta = ?`, rel, id); err != nil {
		if _, rmErr := s.store.RemoveAudio(ctx, rel); rmErr != nil {
			s.logger.Warn(ctx, "Failed to remove orphaned audio file", map[string]interface{}{"path": rel, "error": rmErr.Error()})
		}
		return nil, s.compensateCreate(ctx, id, database.ClassifyError(err, "failed to store audio path"))
	}

	if err := s.store.AddAudioPath(ctx, rel); err != nil {
		s.logger.Warn(ctx, "Failed to update audio manifest", map[string]interface{}{"path": rel, "error": err.Error()})
	}

	s.metrics.RecordCatalogChange(ctx, "question", "create")
	s.logger.Info(ctx, "Question created", map[string]interface{}{"question_id": id, "category_id": categoryID, "path": rel})

	return &models.QuestionRef{
		ID:          int(id),
		RutaAudio:   rel,
		Respuesta:   answer,
		Categoria:   categoryName,
		IDCategoria: categoryID,
	}, nil
}

func (s *QuestionService) compensateCreate(ctx context.Context, id int64, cause error) error {
	if _, delErr := s.db.ExecContext(ctx, `DELETE FROM Preguntas WHERE idPregunta = ?`, id); delErr != nil {
		s.logger.Error(ctx, "Compensating question delete failed", delErr, map[string]interface{}{"question_id": id})
		return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeStorage, contextutils.SeverityError,
			"failed to store audio and to remove the question row", "", errors.Join(cause, delErr))
	}
	s.logger.Warn(ctx, "Audio storage failed, question row removed", map[string]interface{}{"question_id": id, "error": cause.Error()})
	return contextutils.WrapErrorf(cause, "failed to store audio for question %d", id)
}

// ListQuestions returns the catalog, optionally restricted to one category name
func (s *QuestionService) ListQuestions(ctx context.Context, category, baseURL string) (result0 []models.QuestionListItem, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "list_questions", observability.AttributeCategoryName(category))
	defer observability.FinishSpan(span, &err)

	query := `
		SELECT p.idPregunta, p.urlAudio, p.respuestaCorrecta, c.nombreCategoria, c.idCategorias
		FROM Preguntas p JOIN Categorias c ON p.Categorias_idCategorias = c.idCategorias`
	var args []interface{}
	if category != "" {
		query += ` WHERE c.nombreCategoria = ?`
		args = append(args, category)
	}
	query += ` ORDER BY c.nombreCategoria, p.idPregunta`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, database.ClassifyError(err, "failed to list questions")
	}
	defer func() { _ = rows.Close() }()

	items := []models.QuestionListItem{}
	for rows.Next() {
		var it models.QuestionListItem
		if err := rows.Scan(&it.IDPregunta, &it.RutaAudio, &it.RespuestaCorrecta, &it.NombreCategoria, &it.IDCategorias); err != nil {
			return nil, database.ClassifyError(err, "failed to scan question")
		}
		it.AudioURL = strings.TrimRight(baseURL, "/") + "/audio/" + storage.NormalizeRelPath(it.RutaAudio)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, database.ClassifyError(err, "failed to list questions")
	}

	span.SetAttributes(attribute.Int("questions.count", len(items)))
	return items, nil
}

// DeleteQuestion removes the question and its history in one transaction, then the file
// and its manifest line. Filesystem steps are best effort.
func (s *QuestionService) DeleteQuestion(ctx context.Context, id int) (result0 *models.QuestionDeletion, err error) {
	ctx, span := observability.TraceQuestionFunction(ctx, "delete_question", observability.AttributeQuestionID(id))
	defer observability.FinishSpan(span, &err)

	if id <= 0 {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityInfo, msgQuestionIDMissing, "")
	}

	result := &models.QuestionDeletion{Question: models.QuestionRef{ID: id}}
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			SELECT p.urlAudio, p.respuestaCorrecta, c.nombreCategoria, c.idCategorias
			FROM Preguntas p JOIN Categorias c ON p.Categorias_idCategorias = c.idCategorias
			WHERE p.idPregunta = ? FOR UPDATE`, id).
			Scan(&result.Question.RutaAudio, &result.Question.Respuesta, &result.Question.Categoria, &result.Question.IDCategoria)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return contextutils.NewAppError(contextutils.ErrorCodeRecordNotFound, contextutils.SeverityInfo, msgQuestionNotFound, "")
			}
			return database.ClassifyError(err, "failed to load question")
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM Usuarios_has_Preguntas WHERE Preguntas_idPregunta = ?`, id)
		if err != nil {
			return database.ClassifyError(err, "failed to delete question history")
		}
		if result.HistoryDeleted, err = res.RowsAffected(); err != nil {
			return contextutils.WrapError(err, "failed to count deleted history")
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM Preguntas WHERE idPregunta = ?`, id); err != nil {
			return database.ClassifyError(err, "failed to delete question")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rel := result.Question.RutaAudio
	if rel != "" && rel != placeholderAudioPath {
		removed, err := s.store.RemoveAudio(ctx, rel)
		if err != nil {
			s.logger.Warn(ctx, "Failed to remove audio file", map[string]interface{}{"path": rel, "error": err.Error()})
		}
		result.FileRemoved = removed

		if err := s.store.RemoveAudioPath(ctx, rel); err != nil {
			s.logger.Warn(ctx, "Failed to update audio manifest", map[string]interface{}{"path": rel, "error": err.Error()})
		}
	}

	s.metrics.RecordCatalogChange(ctx, "question", "delete")
	s.logger.Info(ctx, "Question deleted", map[string]interface{}{
		"question_id":     id,
		"history_deleted": result.HistoryDeleted,
		"file_removed":    result.FileRemoved,
	})
	return result, nil
}
