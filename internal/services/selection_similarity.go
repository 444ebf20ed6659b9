package services

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"auscultify/internal/database"
	"auscultify/internal/models"
)

// Thresholds of the collaborative-filtering strategies
const (
	minSeedQuestions     = 2
	minCommonUsers       = 3
	minItemSimilarity    = 0.1
	similarCandidatesCap = 50

	minUserAnswers      = 5
	minUserOverlap      = 5
	similarUsersLimit   = 10
	minNeighbourAnswers = 2
	minNeighbourFailure = 0.4
)

// outcomeMatrix holds the latest outcome (1 right, 0 wrong) of every user-question pair,
// indexed both ways
type outcomeMatrix struct {
	byUser     map[int]map[int]float64
	byQuestion map[int]map[int]float64
}

func newOutcomeMatrix() *outcomeMatrix {
	return &outcomeMatrix{byUser: map[int]map[int]float64{}, byQuestion: map[int]map[int]float64{}}
}

func (m *outcomeMatrix) set(userID, questionID int, correct bool) {
	v := 0.0
	if correct {
		v = 1
	}
	if m.byUser[userID] == nil {
		m.byUser[userID] = map[int]float64{}
	}
	if m.byQuestion[questionID] == nil {
		m.byQuestion[questionID] = map[int]float64{}
	}
	m.byUser[userID][questionID] = v
	m.byQuestion[questionID][userID] = v
}

// scoredQuestion is a recommendation candidate with the score it was ranked by
type scoredQuestion struct {
	models.Question
	Score float64
}

// pearson returns the correlation coefficient of xs and ys, or 0 when either side is constant
func pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n == 0 || n != len(ys) {
		return 0
	}
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= float64(n)
	my /= float64(n)

	var num, sx, sy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		num += dx * dy
		sx += dx * dx
		sy += dy * dy
	}
	den := math.Sqrt(sx * sy)
	if den == 0 {
		return 0
	}
	return num / den
}

// itemSimilarity correlates the outcomes of two questions across the users who answered both.
// Negative correlations count as no similarity.
func (m *outcomeMatrix) itemSimilarity(a, b int) float64 {
	colA, colB := m.byQuestion[a], m.byQuestion[b]
	if len(colA) < minCommonUsers || len(colB) < minCommonUsers {
		return 0
	}
	var xs, ys []float64
	for userID, va := range colA {
		if vb, ok := colB[userID]; ok {
			xs = append(xs, va)
			ys = append(ys, vb)
		}
	}
	if len(xs) < minCommonUsers {
		return 0
	}
	return max(0, pearson(xs, ys))
}

// similarQuestions scores each candidate by its best similarity to any seed and keeps the
// candidates above the threshold, best first
func (m *outcomeMatrix) similarQuestions(seeds []int, candidates []models.Question) []scoredQuestion {
	out := []scoredQuestion{}
	for _, c := range candidates {
		best := 0.0
		for _, seed := range seeds {
			best = max(best, m.itemSimilarity(seed, c.ID))
		}
		if best > minItemSimilarity {
			out = append(out, scoredQuestion{Question: c, Score: best})
		}
	}
	slices.SortFunc(out, func(a, b scoredQuestion) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(out) > similarCandidatesCap {
		out = out[:similarCandidatesCap]
	}
	return out
}

// similarUsers ranks the users whose outcomes correlate positively with userID's
func (m *outcomeMatrix) similarUsers(userID int) []int {
	mine := m.byUser[userID]
	if len(mine) < minUserAnswers {
		return nil
	}

	type neighbour struct {
		id  int
		sim float64
	}
	var ranked []neighbour
	for otherID, theirs := range m.byUser {
		if otherID == userID {
			continue
		}
		var xs, ys []float64
		for questionID, v := range mine {
			if w, ok := theirs[questionID]; ok {
				xs = append(xs, v)
				ys = append(ys, w)
			}
		}
		if len(xs) < minUserOverlap {
			continue
		}
		if sim := pearson(xs, ys); sim > 0 {
			ranked = append(ranked, neighbour{id: otherID, sim: sim})
		}
	}
	slices.SortFunc(ranked, func(a, b neighbour) int {
		if c := cmp.Compare(b.sim, a.sim); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	ids := make([]int, 0, similarUsersLimit)
	for i := 0; i < len(ranked) && i < similarUsersLimit; i++ {
		ids = append(ids, ranked[i].id)
	}
	return ids
}

// loadOutcomeMatrix reads the latest answer of every user-question pair
func (s *SelectionService) loadOutcomeMatrix(ctx context.Context) (*outcomeMatrix, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT h.Usuarios_idUsuario, h.Preguntas_idPregunta, h.respuestaCorrecta
		FROM Usuarios_has_Preguntas h
		JOIN (
			SELECT MAX(idRespuesta) AS ultima
			FROM Usuarios_has_Preguntas
			GROUP BY Usuarios_idUsuario, Preguntas_idPregunta
		) latest ON latest.ultima = h.idRespuesta`)
	if err != nil {
		return nil, database.ClassifyError(err, "failed to load answer outcomes")
	}
	defer func() { _ = rows.Close() }()

	m := newOutcomeMatrix()
	for rows.Next() {
		var (
			userID, questionID int
			correct            bool
		)
		if err := rows.Scan(&userID, &questionID, &correct); err != nil {
			return nil, database.ClassifyError(err, "failed to scan answer outcome")
		}
		m.set(userID, questionID, correct)
	}
	if err := rows.Err(); err != nil {
		return nil, database.ClassifyError(err, "failed to load answer outcomes")
	}
	return m, nil
}

// loadNeighbourFailures returns the questions userID never answered that the given users
// fail often, worst first
func (s *SelectionService) loadNeighbourFailures(ctx context.Context, userID int, neighbours []int) ([]rankedQuestion, error) {
	if len(neighbours) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(neighbours)), ",")
	args := make([]interface{}, 0, len(neighbours)+4)
	for _, id := range neighbours {
		args = append(args, id)
	}
	args = append(args, userID, minNeighbourAnswers, minNeighbourFailure, similarCandidatesCap)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT p.idPregunta, p.urlAudio, p.respuestaCorrecta, p.Categorias_idCategorias,
			COUNT(*) AS intentos,
			SUM(CASE WHEN h.respuestaCorrecta = 0 THEN 1 ELSE 0 END) AS fallos
		FROM Usuarios_has_Preguntas h
		JOIN Preguntas p ON p.idPregunta = h.Preguntas_idPregunta
		WHERE h.Usuarios_idUsuario IN (%s)
			AND NOT EXISTS (
				SELECT 1 FROM Usuarios_has_Preguntas mine
				WHERE mine.Preguntas_idPregunta = p.idPregunta AND mine.Usuarios_idUsuario = ?
			)
		GROUP BY p.idPregunta, p.urlAudio, p.respuestaCorrecta, p.Categorias_idCategorias
		HAVING intentos >= ? AND fallos / intentos >= ?
		ORDER BY fallos / intentos DESC, fallos DESC, p.idPregunta
		LIMIT ?`, placeholders), args...)
	if err != nil {
		return nil, database.ClassifyError(err, "failed to rank neighbour failures")
	}
	defer func() { _ = rows.Close() }()

	out := []rankedQuestion{}
	for rows.Next() {
		var r rankedQuestion
		if err := rows.Scan(&r.ID, &r.AudioPath, &r.Answer, &r.CategoryID, &r.Attempts, &r.Hits); err != nil {
			return nil, database.ClassifyError(err, "failed to scan neighbour failure")
		}
		if r.Attempts > 0 {
			r.Weight = float64(r.Hits) / float64(r.Attempts)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, database.ClassifyError(err, "failed to rank neighbour failures")
	}
	return out, nil
}

// selectSimilarItems recommends unanswered questions that behave like the ones the user
// failed (or got right)
func (s *SelectionService) selectSimilarItems(ctx context.Context, strategy models.Strategy, userID int, result *models.SelectionResult) ([]models.Question, []float64, error) {
	failed := strategy == models.StrategySimilarFailed
	kind := "acertado"
	if failed {
		kind = "fallado"
	}

	m, err := s.loadOutcomeMatrix(ctx)
	if err != nil {
		return nil, nil, err
	}
	var seeds []int
	for questionID, v := range m.byUser[userID] {
		if (v == 0) == failed {
			seeds = append(seeds, questionID)
		}
	}
	slices.Sort(seeds)
	base := len(seeds)
	result.PreguntasBase = &base
	if len(seeds) < minSeedQuestions {
		result.Mensaje = fmt.Sprintf("El usuario debe haber %s al menos %d preguntas para usar este algoritmo", kind, minSeedQuestions)
		return nil, nil, nil
	}

	unseen, err := s.loadUnseen(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	similar := m.similarQuestions(seeds, unseen)
	found := len(similar)
	result.PreguntasSimilares = &found
	if found == 0 {
		result.Mensaje = fmt.Sprintf("No se encontraron preguntas similares a las que has %s", kind)
		return nil, nil, nil
	}

	if len(similar) > s.batchSize {
		similar = similar[:s.batchSize]
	}
	picked := make([]models.Question, len(similar))
	scores := make([]float64, len(similar))
	for i, c := range similar {
		picked[i] = c.Question
		scores[i] = models.Round3(c.Score)
	}
	result.Mensaje = fmt.Sprintf("Algoritmo ejecutado correctamente - %d preguntas similares a las que has %s", len(picked), kind)
	return picked, scores, nil
}

// selectFromSimilarUsers recommends unanswered questions that users answering like this
// one tend to fail
func (s *SelectionService) selectFromSimilarUsers(ctx context.Context, userID int, result *models.SelectionResult) ([]models.Question, []float64, error) {
	m, err := s.loadOutcomeMatrix(ctx)
	if err != nil {
		return nil, nil, err
	}
	neighbours := m.similarUsers(userID)
	count := len(neighbours)
	result.UsuariosSimilares = &count
	if count == 0 {
		result.Mensaje = fmt.Sprintf("No se encontraron usuarios similares. El usuario debe haber respondido al menos %d preguntas.", minUserAnswers)
		return nil, nil, nil
	}

	ranked, err := s.loadNeighbourFailures(ctx, userID, neighbours)
	if err != nil {
		return nil, nil, err
	}
	if len(ranked) == 0 {
		result.Mensaje = "No se encontraron preguntas recomendadas basadas en usuarios similares."
		return nil, nil, nil
	}

	if len(ranked) > s.batchSize {
		ranked = ranked[:s.batchSize]
	}
	picked := make([]models.Question, len(ranked))
	rates := make([]float64, len(ranked))
	for i, r := range ranked {
		picked[i] = r.Question
		rates[i] = models.Round2(r.Weight)
	}
	result.Mensaje = fmt.Sprintf("Algoritmo ejecutado correctamente - %d preguntas recomendadas basadas en %d usuarios similares", len(picked), count)
	return picked, rates, nil
}
