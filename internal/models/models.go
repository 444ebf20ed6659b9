// Package models defines the data structures shared by services and handlers.
package models

import (
	"database/sql"
	"time"
)

// DateLayout is the calendar date format of DATE columns and wire dates
const DateLayout = "2006-01-02"

// User is a row of Usuarios
type User struct {
	ID                  int
	Email               string
	PasswordHash        string
	TotalCorrect        int
	TotalFailed         int
	TotalAnswered       int
	Streak              int
	LastAnswerDate      sql.NullTime
	IsPublic            bool
	FavoriteCriterionID int
}

// UserProfile is the public JSON view of a user returned by auth, profile and session endpoints
type UserProfile struct {
	ID                        int     `json:"id"`
	Email                     string  `json:"email"`
	TotalPreguntasAcertadas   int     `json:"totalPreguntasAcertadas"`
	TotalPreguntasFalladas    int     `json:"totalPreguntasFalladas"`
	TotalPreguntasContestadas int     `json:"totalPreguntasContestadas"`
	Racha                     int     `json:"racha"`
	UltimoDiaPregunta         *string `json:"ultimoDiaPregunta"`
	EsPublico                 int     `json:"esPublico"`
	IDCriterioMasUsado        int     `json:"idCriterioMasUsado"`
}

// Profile converts a user row into its JSON view
func (u User) Profile() UserProfile {
	p := UserProfile{
		ID:                        u.ID,
		Email:                     u.Email,
		TotalPreguntasAcertadas:   u.TotalCorrect,
		TotalPreguntasFalladas:    u.TotalFailed,
		TotalPreguntasContestadas: u.TotalAnswered,
		Racha:                     u.Streak,
		IDCriterioMasUsado:        u.FavoriteCriterionID,
	}
	if u.IsPublic {
		p.EsPublico = 1
	}
	if u.LastAnswerDate.Valid {
		d := u.LastAnswerDate.Time.Format(DateLayout)
		p.UltimoDiaPregunta = &d
	}
	return p
}

// Category is a row of Categorias
type Category struct {
	ID   int    `json:"idCategorias"`
	Name string `json:"nombreCategoria"`
}

// CategoryRef is the short category form embedded in mutation responses
type CategoryRef struct {
	ID     int    `json:"id"`
	Nombre string `json:"nombre"`
}

// Question is a row of Preguntas joined with its category name
type Question struct {
	ID           int
	AudioPath    string
	Answer       string
	CategoryID   int
	CategoryName string
}

// QuestionListItem is one entry of the question catalog listing
type QuestionListItem struct {
	IDPregunta        int    `json:"idPregunta"`
	RutaAudio         string `json:"rutaAudio"`
	AudioURL          string `json:"audioUrl"`
	RespuestaCorrecta string `json:"respuestaCorrecta"`
	NombreCategoria   string `json:"nombreCategoria"`
	IDCategorias      int    `json:"idCategorias"`
}

// AnswerResult is one answered question inside a quiz session
type AnswerResult struct {
	QuestionID int  `json:"id"`
	Correct    bool `json:"acertada"`
}

// SessionStats are the per-session deltas returned after recording a session
type SessionStats struct {
	PreguntasAcertadas        int `json:"preguntasAcertadas"`
	PreguntasFalladas         int `json:"preguntasFalladas"`
	TotalPreguntasContestadas int `json:"totalPreguntasContestadas"`
}

// SessionOutcome is the result of RecordSession
type SessionOutcome struct {
	User  UserProfile  `json:"usuario"`
	Stats SessionStats `json:"estadisticasSesion"`
}

// UserTotals is the counter block of the statistics view
type UserTotals struct {
	TotalPreguntasAcertadas   int `json:"totalPreguntasAcertadas"`
	TotalPreguntasFalladas    int `json:"totalPreguntasFalladas"`
	TotalPreguntasContestadas int `json:"totalPreguntasContestadas"`
	Racha                     int `json:"racha"`
}

// UserStatistics is the statistics view of one user
type UserStatistics struct {
	CategoriaMasUsada          *string    `json:"categoriaMasUsada"`
	PorcentajeGeneral          float64    `json:"porcentajeGeneral"`
	PorcentajeMejorCategoria   float64    `json:"porcentajeMejorCategoria"`
	PorcentajePeorCategoria    float64    `json:"porcentajePeorCategoria"`
	PreguntasPor7Dias          []int      `json:"preguntasPor7Dias"`
	PreguntasAcertadasPor7Dias []int      `json:"preguntasAcertadasPor7Dias"`
	PreguntasFalladasPor7Dias  []int      `json:"preguntasfalladasPor7Dias"`
	DatosUsuario               UserTotals `json:"datosUsuario"`
}

// UserSummary is the compact per-email summary used by the social screens
type UserSummary struct {
	IDUsuario                 int     `json:"idUsuario"`
	TotalPreguntasContestadas int     `json:"totalPreguntasContestadas"`
	TotalPreguntasAcertadas   int     `json:"totalPreguntasAcertadas"`
	Racha                     int     `json:"racha"`
	PromedioGeneral           float64 `json:"promedioGeneral"`
}

// CategoryAccuracy aggregates a user's history for one category
type CategoryAccuracy struct {
	CategoryID   int
	CategoryName string
	Answered     int
	Correct      int
}

// Percentage returns the rounded accuracy of the category, 0 when nothing was answered
func (c CategoryAccuracy) Percentage() float64 {
	return Percentage(c.Correct, c.Answered)
}

// DailyCount is the number of answers on one calendar day
type DailyCount struct {
	Day      time.Time
	Answered int
	Correct  int
	Failed   int
}

// Criterion is a row of CriterioAlgoritmo
type Criterion struct {
	ID     int    `json:"idCriterioAlgoritmo"`
	Titulo string `json:"tituloCriterio"`
	Texto  string `json:"textoCriterio"`
}

// FollowedUser is an entry of the following list
type FollowedUser struct {
	Email string `json:"email"`
}

// PublicUser is an entry of the public user directory
type PublicUser struct {
	Email string `json:"email"`
}
