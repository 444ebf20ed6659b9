package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"auscultify/internal/config"
	"auscultify/internal/database"
	"auscultify/internal/models"
	"auscultify/internal/observability"
	contextutils "auscultify/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// SelectionServiceInterface builds quiz batches
type SelectionServiceInterface interface {
	Select(ctx context.Context, strategy models.Strategy, req models.SelectionRequest) (*models.SelectionResult, error)
	ListCriteria(ctx context.Context) ([]models.Criterion, error)
}

// SelectionService runs the question-selection strategies
type SelectionService struct {
	db        *sql.DB
	batchSize int
	decoys    int
	rng       randomSource
	metrics   *observability.DomainMetrics
	logger    *observability.Logger
}

// rankedHistoryLimit caps the candidates of the history-ranked strategies
const rankedHistoryLimit = 50

const (
	msgUnknownStrategy   = "Algoritmo no encontrado"
	msgUserIDRequired    = "Se debe proporcionar usuario_id en los datos de entrada"
	msgCategoryIDMissing = "Se debe proporcionar categoria_id en los datos de entrada"
)

// NewSelectionServiceWithLogger creates a new SelectionService
func NewSelectionServiceWithLogger(db *sql.DB, cfg *config.Config, metrics *observability.DomainMetrics, logger *observability.Logger) *SelectionService {
	s := &SelectionService{
		db:        db,
		batchSize: config.DefaultBatchSize,
		decoys:    config.DefaultDecoys,
		rng:       globalRand{},
		metrics:   metrics,
		logger:    logger,
	}
	if cfg != nil {
		if cfg.Selection.BatchSize > 0 {
			s.batchSize = cfg.Selection.BatchSize
		}
		if cfg.Selection.Decoys > 0 {
			s.decoys = cfg.Selection.Decoys
		}
	}
	return s
}

// Select runs one strategy. An empty batch is a valid result.
func (s *SelectionService) Select(ctx context.Context, strategy models.Strategy, req models.SelectionRequest) (result0 *models.SelectionResult, err error) {
	ctx, span := observability.TraceSelectionFunction(ctx, "select", observability.AttributeStrategy(string(strategy)))
	defer observability.FinishSpan(span, &err)

	if !strategy.Valid() {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeRecordNotFound, contextutils.SeverityInfo, msgUnknownStrategy, string(strategy))
	}
	if strategy.NeedsUser() {
		if req.UserID == nil {
			return nil, contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityInfo, msgUserIDRequired, "")
		}
		span.SetAttributes(observability.AttributeUserID(*req.UserID))
		ok, err := userExists(ctx, s.db, *req.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, contextutils.NewAppError(contextutils.ErrorCodeRecordNotFound, contextutils.SeverityInfo, msgUserNotFound, "")
		}
	}
	if strategy == models.StrategyFixedCategory && req.CategoryID == nil {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityInfo, msgCategoryIDMissing, "")
	}

	all, err := s.loadQuestions(ctx)
	if err != nil {
		return nil, err
	}

	result := &models.SelectionResult{
		Estrategia: strategy,
		Estado:     models.SelectionStateComplete,
		UsuarioID:  req.UserID,
	}

	var (
		picked []models.Question
		scores []float64
	)
	switch strategy {
	case models.StrategyRandom:
		picked = sampleWithReplacement(all, s.batchSize, s.rng)
		result.Mensaje = fmt.Sprintf("Algoritmo ejecutado correctamente - %d preguntas aleatorias seleccionadas", len(picked))

	case models.StrategyUnseen:
		unseen, err := s.loadUnseen(ctx, *req.UserID)
		if err != nil {
			return nil, err
		}
		picked = sampleWithoutReplacement(unseen, s.batchSize, s.rng)
		result.Mensaje = fmt.Sprintf("Algoritmo ejecutado correctamente - %d preguntas no respondidas seleccionadas", len(picked))

	case models.StrategyWeakest, models.StrategyStrongest:
		picked, err = s.selectByCategoryAccuracy(ctx, strategy, *req.UserID, all, result)
		if err != nil {
			return nil, err
		}

	case models.StrategyFixedCategory:
		exists, err := s.categoryExists(ctx, *req.CategoryID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, contextutils.NewAppError(contextutils.ErrorCodeRecordNotFound, contextutils.SeverityInfo, msgCategoryNotFound, "")
		}
		picked = sampleWithReplacement(filterByCategory(all, *req.CategoryID, true), s.batchSize, s.rng)
		result.CategoriaID = req.CategoryID
		result.Mensaje = fmt.Sprintf("Algoritmo ejecutado correctamente - %d preguntas de la categoría seleccionada", len(picked))

	case models.StrategyMostFailed, models.StrategyMostCorrect:
		failed := strategy == models.StrategyMostFailed
		ranked, err := s.loadRankedHistory(ctx, *req.UserID, failed)
		if err != nil {
			return nil, err
		}
		for _, r := range weightedWithoutReplacement(ranked, s.batchSize, s.rng) {
			picked = append(picked, r.Question)
		}
		kind := "acertado"
		if failed {
			kind = "fallado"
		}
		result.Mensaje = fmt.Sprintf("Algoritmo ejecutado correctamente - %d preguntas que has %s previamente", len(picked), kind)

	case models.StrategySimilarFailed, models.StrategySimilarRight:
		picked, scores, err = s.selectSimilarItems(ctx, strategy, *req.UserID, result)
		if err != nil {
			return nil, err
		}

	case models.StrategySimilarUsers:
		picked, scores, err = s.selectFromSimilarUsers(ctx, *req.UserID, result)
		if err != nil {
			return nil, err
		}
	}

	result.Preguntas = s.buildItems(picked, all, strategy, req.CategoryID)
	for i := range scores {
		score := scores[i]
		if strategy == models.StrategySimilarUsers {
			result.Preguntas[i].TasaFalloSimilares = &score
		} else {
			result.Preguntas[i].SimilitudMaxima = &score
		}
	}
	result.TotalPreguntas = len(result.Preguntas)

	span.SetAttributes(attribute.Int("selection.count", result.TotalPreguntas), attribute.Bool("selection.fallback", result.Fallback))
	s.metrics.RecordQuestionsServed(ctx, string(strategy), result.TotalPreguntas)
	s.logger.Debug(ctx, "Questions selected", map[string]interface{}{
		"strategy": string(strategy),
		"count":    result.TotalPreguntas,
		"fallback": result.Fallback,
	})
	return result, nil
}

// selectByCategoryAccuracy samples from the user's weakest or strongest category and falls
// back to a plain random batch when the user has no history
func (s *SelectionService) selectByCategoryAccuracy(ctx context.Context, strategy models.Strategy, userID int, all []models.Question, result *models.SelectionResult) ([]models.Question, error) {
	stats, err := loadCategoryAccuracy(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	weakest := strategy == models.StrategyWeakest
	chosen, ok := pickCategory(stats, weakest)
	if !ok {
		picked := sampleWithReplacement(all, s.batchSize, s.rng)
		result.Fallback = true
		result.Mensaje = fmt.Sprintf("Sin historial de respuestas - %d preguntas aleatorias seleccionadas", len(picked))
		return picked, nil
	}

	picked := sampleWithReplacement(filterByCategory(all, chosen.CategoryID, true), s.batchSize, s.rng)
	pct := chosen.Percentage()
	answered := chosen.Answered
	categoryID := chosen.CategoryID
	result.CategoriaID = &categoryID
	result.PorcentajeAciertos = &pct
	result.TotalRespondidasCategoria = &answered

	label := "mejor"
	if weakest {
		label = "peor"
	}
	result.Mensaje = fmt.Sprintf("Algoritmo ejecutado correctamente - %d preguntas de la categoría con %s porcentaje de aciertos (%s: %.2f%%)",
		len(picked), label, chosen.CategoryName, pct)
	return picked, nil
}

// buildItems attaches decoys. For a fixed category the decoys come from the same category
// first and are topped up from the rest of the catalog.
func (s *SelectionService) buildItems(picked, all []models.Question, strategy models.Strategy, categoryID *int) []models.QuizItem {
	items := make([]models.QuizItem, 0, len(picked))

	var primary, fallback []models.Question
	if strategy == models.StrategyFixedCategory && categoryID != nil {
		primary = filterByCategory(all, *categoryID, true)
		fallback = filterByCategory(all, *categoryID, false)
	} else {
		primary = all
	}

	for _, q := range picked {
		items = append(items, models.QuizItem{
			IDPregunta:            q.ID,
			URLAudio:              q.AudioPath,
			RespuestaCorrecta:     q.Answer,
			RespuestasIncorrectas: pickDecoys(q, primary, fallback, s.decoys, s.rng),
			CategoriaID:           q.CategoryID,
		})
	}
	return items
}

func (s *SelectionService) loadQuestions(ctx context.Context) ([]models.Question, error) {
	return queryQuestions(ctx, s.db, `
		SELECT idPregunta, urlAudio, respuestaCorrecta, Categorias_idCategorias
		FROM Preguntas ORDER BY idPregunta`)
}

func (s *SelectionService) loadUnseen(ctx context.Context, userID int) ([]models.Question, error) {
	return queryQuestions(ctx, s.db, `
		SELECT p.idPregunta, p.urlAudio, p.respuestaCorrecta, p.Categorias_idCategorias
		FROM Preguntas p
		WHERE NOT EXISTS (
			SELECT 1 FROM Usuarios_has_Preguntas h
			WHERE h.Preguntas_idPregunta = p.idPregunta AND h.Usuarios_idUsuario = ?
		)
		ORDER BY p.idPregunta`, userID)
}

// loadRankedHistory returns the questions the user failed (or got right), best candidates first
func (s *SelectionService) loadRankedHistory(ctx context.Context, userID int, failed bool) ([]rankedQuestion, error) {
	outcome := 1
	if failed {
		outcome = 0
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.idPregunta, p.urlAudio, p.respuestaCorrecta, p.Categorias_idCategorias,
			COUNT(*) AS intentos,
			SUM(CASE WHEN h.respuestaCorrecta = ? THEN 1 ELSE 0 END) AS coincidencias,
			MAX(h.fechaDeContestacion) AS ultima_fecha
		FROM Usuarios_has_Preguntas h
		JOIN Preguntas p ON p.idPregunta = h.Preguntas_idPregunta
		WHERE h.Usuarios_idUsuario = ?
		GROUP BY p.idPregunta, p.urlAudio, p.respuestaCorrecta, p.Categorias_idCategorias
		HAVING coincidencias > 0
		ORDER BY coincidencias / intentos DESC, coincidencias DESC, ultima_fecha ASC
		LIMIT ?`, outcome, userID, rankedHistoryLimit)
	if err != nil {
		return nil, database.ClassifyError(err, "failed to rank answer history")
	}
	defer func() { _ = rows.Close() }()

	out := []rankedQuestion{}
	for rows.Next() {
		var (
			r    rankedQuestion
			last sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.AudioPath, &r.Answer, &r.CategoryID, &r.Attempts, &r.Hits, &last); err != nil {
			return nil, database.ClassifyError(err, "failed to scan ranked question")
		}
		rate := 0.0
		if r.Attempts > 0 {
			rate = float64(r.Hits) / float64(r.Attempts)
		}
		r.Weight = historyWeight(rate, r.Hits)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, database.ClassifyError(err, "failed to rank answer history")
	}
	return out, nil
}

func (s *SelectionService) categoryExists(ctx context.Context, categoryID int) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM Categorias WHERE idCategorias = ?`, categoryID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, database.ClassifyError(err, "failed to check category")
	}
	return true, nil
}

// ListCriteria returns the static strategy catalog
func (s *SelectionService) ListCriteria(ctx context.Context) (result0 []models.Criterion, err error) {
	ctx, span := observability.TraceSelectionFunction(ctx, "list_criteria")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT idCriterioAlgoritmo, tituloCriterio, textoCriterio
		FROM CriterioAlgoritmo ORDER BY idCriterioAlgoritmo`)
	if err != nil {
		return nil, database.ClassifyError(err, "failed to list criteria")
	}
	defer func() { _ = rows.Close() }()

	criteria := []models.Criterion{}
	for rows.Next() {
		var c models.Criterion
		if err := rows.Scan(&c.ID, &c.Titulo, &c.Texto); err != nil {
			return nil, database.ClassifyError(err, "failed to scan criterion")
		}
		criteria = append(criteria, c)
	}
	if err := rows.Err(); err != nil {
		return nil, database.ClassifyError(err, "failed to list criteria")
	}
	return criteria, nil
}

func queryQuestions(ctx context.Context, q database.Querier, query string, args ...interface{}) ([]models.Question, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, database.ClassifyError(err, "failed to load questions")
	}
	defer func() { _ = rows.Close() }()

	out := []models.Question{}
	for rows.Next() {
		var qq models.Question
		if err := rows.Scan(&qq.ID, &qq.AudioPath, &qq.Answer, &qq.CategoryID); err != nil {
			return nil, database.ClassifyError(err, "failed to scan question")
		}
		out = append(out, qq)
	}
	if err := rows.Err(); err != nil {
		return nil, database.ClassifyError(err, "failed to load questions")
	}
	return out, nil
}
