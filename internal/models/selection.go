package models

// Strategy names a question-selection strategy as it appears in the URL
type Strategy string

// Selection strategies
const (
	StrategyRandom        Strategy = "aleatorio-simple"
	StrategyUnseen        Strategy = "preguntas-no-hechas"
	StrategyWeakest       Strategy = "categoria-peor"
	StrategyStrongest     Strategy = "categoria-mejor"
	StrategyFixedCategory Strategy = "categoria-concreta"
	StrategyMostFailed    Strategy = "preguntas-mas-falladas"
	StrategyMostCorrect   Strategy = "preguntas-mas-acertadas"
	StrategySimilarFailed Strategy = "algoritmo-item-positivo"
	StrategySimilarRight  Strategy = "algoritmo-item-negativo"
	StrategySimilarUsers  Strategy = "algoritmo-usuario-positivo"
)

// SelectionStateComplete is the "estado" of a successful strategy run
const SelectionStateComplete = "completado"

// Strategies lists every known strategy
var Strategies = []Strategy{
	StrategyRandom,
	StrategyUnseen,
	StrategyWeakest,
	StrategyStrongest,
	StrategyFixedCategory,
	StrategyMostFailed,
	StrategyMostCorrect,
	StrategySimilarFailed,
	StrategySimilarRight,
	StrategySimilarUsers,
}

// Valid reports whether s is a known strategy
func (s Strategy) Valid() bool {
	for _, known := range Strategies {
		if s == known {
			return true
		}
	}
	return false
}

// NeedsUser reports whether the strategy reads the caller's answer history
func (s Strategy) NeedsUser() bool {
	switch s {
	case StrategyUnseen, StrategyWeakest, StrategyStrongest, StrategyMostFailed, StrategyMostCorrect,
		StrategySimilarFailed, StrategySimilarRight, StrategySimilarUsers:
		return true
	}
	return false
}

// SelectionRequest is the JSON body of a strategy call
type SelectionRequest struct {
	UserID     *int `json:"usuario_id"`
	CategoryID *int `json:"categoria_id"`
}

// QuizItem is one question of a quiz batch with its decoy answers
type QuizItem struct {
	IDPregunta            int      `json:"idPregunta"`
	URLAudio              string   `json:"urlAudio"`
	RespuestaCorrecta     string   `json:"respuestaCorrecta"`
	RespuestasIncorrectas []string `json:"respuestasIncorrectas"`
	CategoriaID           int      `json:"Categorias_idCategorias"`
	// set by the similarity strategies only
	SimilitudMaxima    *float64 `json:"similitud_maxima,omitempty"`
	TasaFalloSimilares *float64 `json:"tasa_fallo_similares,omitempty"`
}

// SelectionResult is the "resultado" object of a strategy call
type SelectionResult struct {
	Preguntas                 []QuizItem `json:"preguntas"`
	TotalPreguntas            int        `json:"total_preguntas"`
	Estrategia                Strategy   `json:"estrategia"`
	Estado                    string     `json:"estado"`
	Fallback                  bool       `json:"fallback"`
	Mensaje                   string     `json:"mensaje"`
	UsuarioID                 *int       `json:"usuario_id,omitempty"`
	CategoriaID               *int       `json:"categoria_id,omitempty"`
	PorcentajeAciertos        *float64   `json:"porcentaje_aciertos,omitempty"`
	TotalRespondidasCategoria *int       `json:"total_respondidas_categoria,omitempty"`
	PreguntasBase             *int       `json:"preguntas_base,omitempty"`
	PreguntasSimilares        *int       `json:"preguntas_similares_encontradas,omitempty"`
	UsuariosSimilares         *int       `json:"usuarios_similares_encontrados,omitempty"`
}
