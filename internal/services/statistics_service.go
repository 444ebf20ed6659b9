package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"auscultify/internal/config"
	"auscultify/internal/database"
	"auscultify/internal/models"
	"auscultify/internal/observability"
	contextutils "auscultify/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// StatisticsServiceInterface records quiz sessions and reports per-user statistics
type StatisticsServiceInterface interface {
	RecordSession(ctx context.Context, req models.SessionRequest) (*models.SessionOutcome, error)
	GetStatistics(ctx context.Context, userID int) (*models.UserStatistics, error)
	GetUserSummaryByEmail(ctx context.Context, email string) (*models.UserSummary, error)
}

// StatisticsService owns the user counters, the streak and the answer history
type StatisticsService struct {
	db      *sql.DB
	loc     *time.Location
	now     func() time.Time
	metrics *observability.DomainMetrics
	logger  *observability.Logger
}

// statisticsWindowDays is the length of the daily activity series
const statisticsWindowDays = 7

const (
	msgInvalidInput   = "Datos de entrada inválidos"
	msgEmailRequired  = "Correo electrónico es requerido"
	msgUnknownAnswer  = "La pregunta %d no existe"
	msgInvalidUserRef = "Identificador de usuario no válido"
)

// NewStatisticsServiceWithLogger creates a new StatisticsService. Calendar days are taken in the
// configured server time zone.
func NewStatisticsServiceWithLogger(db *sql.DB, cfg *config.Config, metrics *observability.DomainMetrics, logger *observability.Logger) *StatisticsService {
	loc := time.UTC
	if cfg != nil {
		loc = cfg.Location()
	}
	return &StatisticsService{db: db, loc: loc, now: time.Now, metrics: metrics, logger: logger}
}

func (s *StatisticsService) today() time.Time {
	return contextutils.StartOfDay(s.now(), s.loc)
}

// RecordSession adds a finished quiz to the user's counters, streak and history in one transaction
func (s *StatisticsService) RecordSession(ctx context.Context, req models.SessionRequest) (result0 *models.SessionOutcome, err error) {
	ctx, span := observability.TraceStatisticsFunction(ctx, "record_session")
	defer observability.FinishSpan(span, &err)

	invalid := contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityInfo, msgInvalidInput, "")
	if req.UsuarioID == nil || *req.UsuarioID <= 0 || req.PreguntasResultados == nil {
		return nil, invalid
	}
	userID := *req.UsuarioID
	span.SetAttributes(observability.AttributeUserID(userID), attribute.Int("session.answers", len(req.PreguntasResultados)))

	day := s.today()
	if req.FechaContestacion != nil && strings.TrimSpace(*req.FechaContestacion) != "" {
		day, err = contextutils.ParseDate(strings.TrimSpace(*req.FechaContestacion), s.loc)
		if err != nil {
			return nil, invalid
		}
	}

	stats := models.SessionStats{TotalPreguntasContestadas: len(req.PreguntasResultados)}
	for _, r := range req.PreguntasResultados {
		if r.Correct {
			stats.PreguntasAcertadas++
		} else {
			stats.PreguntasFalladas++
		}
	}

	var updated *models.User
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		user, err := getUserByQuery(ctx, tx, `SELECT `+userSelectFields+` FROM Usuarios WHERE idUsuario = ? FOR UPDATE`, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return contextutils.NewAppError(contextutils.ErrorCodeRecordNotFound, contextutils.SeverityInfo, msgUserNotFound, "")
		}

		streak := NextStreak(user.Streak, user.LastAnswerDate, day, stats.PreguntasAcertadas > 0)
		user.TotalCorrect += stats.PreguntasAcertadas
		user.TotalFailed += stats.PreguntasFalladas
		user.TotalAnswered += stats.TotalPreguntasContestadas
		user.Streak = streak
		user.LastAnswerDate = sql.NullTime{Time: day, Valid: true}

		_, err = tx.ExecContext(ctx, `
			UPDATE Usuarios SET totalPreguntasAcertadas = ?, totalPreguntasFalladas = ?,
				totalPreguntasContestadas = ?, racha = ?, ultimoDiaPregunta = ?
			WHERE idUsuario = ?`,
			user.TotalCorrect, user.TotalFailed, user.TotalAnswered, user.Streak,
			user.LastAnswerDate.Time.Format(contextutils.DateLayout), user.ID)
		if err != nil {
			return database.ClassifyError(err, "failed to update user counters")
		}

		dayStr := day.Format(contextutils.DateLayout)
		for _, r := range req.PreguntasResultados {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO Usuarios_has_Preguntas (Usuarios_idUsuario, Preguntas_idPregunta, fechaDeContestacion, respuestaCorrecta)
				VALUES (?, ?, ?, ?)`, user.ID, r.QuestionID, dayStr, r.Correct)
			if err != nil {
				return database.ClassifyError(err, fmt.Sprintf(msgUnknownAnswer, r.QuestionID))
			}
		}

		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSession(ctx, stats.TotalPreguntasContestadas)
	s.logger.Info(ctx, "Quiz session recorded", map[string]interface{}{
		"user_id": userID,
		"correct": stats.PreguntasAcertadas,
		"failed":  stats.PreguntasFalladas,
		"streak":  updated.Streak,
	})

	return &models.SessionOutcome{User: updated.Profile(), Stats: stats}, nil
}

// GetStatistics builds the statistics view. The user row, the per-category aggregate and the
// daily series are read concurrently.
func (s *StatisticsService) GetStatistics(ctx context.Context, userID int) (result0 *models.UserStatistics, err error) {
	ctx, span := observability.TraceStatisticsFunction(ctx, "get_statistics", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	if userID <= 0 {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityInfo, msgInvalidUserRef, "")
	}

	days := contextutils.TrailingDays(s.today(), statisticsWindowDays)

	var (
		user       *models.User
		categories []models.CategoryAccuracy
		daily      map[string]models.DailyCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = getUserByQuery(gctx, s.db, `SELECT `+userSelectFields+` FROM Usuarios WHERE idUsuario = ?`, userID)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = loadCategoryAccuracy(gctx, s.db, userID)
		return err
	})
	g.Go(func() error {
		var err error
		daily, err = s.loadDailyCounts(gctx, userID, days[0], days[len(days)-1])
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if user == nil {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeRecordNotFound, contextutils.SeverityInfo, msgUserNotFound, "")
	}

	out := &models.UserStatistics{
		PorcentajeGeneral:          models.Percentage(user.TotalCorrect, user.TotalAnswered),
		PorcentajeMejorCategoria:   0,
		PorcentajePeorCategoria:    100,
		PreguntasPor7Dias:          make([]int, len(days)),
		PreguntasAcertadasPor7Dias: make([]int, len(days)),
		PreguntasFalladasPor7Dias:  make([]int, len(days)),
		DatosUsuario: models.UserTotals{
			TotalPreguntasAcertadas:   user.TotalCorrect,
			TotalPreguntasFalladas:    user.TotalFailed,
			TotalPreguntasContestadas: user.TotalAnswered,
			Racha:                     user.Streak,
		},
	}

	if len(categories) > 0 {
		mostUsed := categories[0]
		out.PorcentajeMejorCategoria = categories[0].Percentage()
		out.PorcentajePeorCategoria = categories[0].Percentage()
		for _, c := range categories[1:] {
			if c.Answered > mostUsed.Answered {
				mostUsed = c
			}
			if p := c.Percentage(); p > out.PorcentajeMejorCategoria {
				out.PorcentajeMejorCategoria = p
			} else if p < out.PorcentajePeorCategoria {
				out.PorcentajePeorCategoria = p
			}
		}
		name := mostUsed.CategoryName
		out.CategoriaMasUsada = &name
	}

	for i, d := range days {
		c := daily[d.Format(contextutils.DateLayout)]
		out.PreguntasPor7Dias[i] = c.Answered
		out.PreguntasAcertadasPor7Dias[i] = c.Correct
		out.PreguntasFalladasPor7Dias[i] = c.Failed
	}

	return out, nil
}

// loadDailyCounts returns answer counts keyed by YYYY-MM-DD for days in [from, to]
func (s *StatisticsService) loadDailyCounts(ctx context.Context, userID int, from, to time.Time) (map[string]models.DailyCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fechaDeContestacion, COUNT(*) AS total,
			SUM(CASE WHEN respuestaCorrecta = 1 THEN 1 ELSE 0 END) AS aciertos
		FROM Usuarios_has_Preguntas
		WHERE Usuarios_idUsuario = ? AND fechaDeContestacion BETWEEN ? AND ?
		GROUP BY fechaDeContestacion`,
		userID, from.Format(contextutils.DateLayout), to.Format(contextutils.DateLayout))
	if err != nil {
		return nil, database.ClassifyError(err, "failed to aggregate daily history")
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]models.DailyCount, statisticsWindowDays)
	for rows.Next() {
		var c models.DailyCount
		if err := rows.Scan(&c.Day, &c.Answered, &c.Correct); err != nil {
			return nil, database.ClassifyError(err, "failed to scan daily history")
		}
		c.Failed = c.Answered - c.Correct
		out[c.Day.Format(contextutils.DateLayout)] = c
	}
	if err := rows.Err(); err != nil {
		return nil, database.ClassifyError(err, "failed to aggregate daily history")
	}
	return out, nil
}

// GetUserSummaryByEmail returns the compact summary shown next to followed users
func (s *StatisticsService) GetUserSummaryByEmail(ctx context.Context, email string) (result0 *models.UserSummary, err error) {
	email = strings.TrimSpace(email)
	ctx, span := observability.TraceStatisticsFunction(ctx, "get_user_summary", attribute.String("user.email", contextutils.MaskEmail(email)))
	defer observability.FinishSpan(span, &err)

	if email == "" {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityInfo, msgEmailRequired, "")
	}

	user, err := getUserByQuery(ctx, s.db, `SELECT `+userSelectFields+` FROM Usuarios WHERE correoElectronico = ?`, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeRecordNotFound, contextutils.SeverityInfo, msgUserNotFound, "")
	}

	return &models.UserSummary{
		IDUsuario:                 user.ID,
		TotalPreguntasContestadas: user.TotalAnswered,
		TotalPreguntasAcertadas:   user.TotalCorrect,
		Racha:                     user.Streak,
		PromedioGeneral:           models.Percentage(user.TotalCorrect, user.TotalAnswered),
	}, nil
}
