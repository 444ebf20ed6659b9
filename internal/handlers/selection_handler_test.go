package handlers

import (
	"net/http"
	"testing"

	"auscultify/internal/models"
	contextutils "auscultify/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSelectionHandler_Select(t *testing.T) {
	router, svc := newTestRouter(t, testConfig(t))
	pct := 40.0
	answered := 5
	svc.selection.On("Select", mock.Anything, models.StrategyWeakest, models.SelectionRequest{UserID: intPtr(5)}).
		Return(&models.SelectionResult{
			Preguntas: []models.QuizItem{{
				IDPregunta:            3,
				URLAudio:              "Pulmón/Crepitantes.wav",
				RespuestaCorrecta:     "Crepitantes",
				RespuestasIncorrectas: []string{"Sibilancias", "Roncus", "Estridor"},
				CategoriaID:           2,
			}},
			TotalPreguntas:            1,
			Estrategia:                models.StrategyWeakest,
			Estado:                    models.SelectionStateComplete,
			Mensaje:                   "Preguntas de la categoría con peor porcentaje de aciertos",
			UsuarioID:                 intPtr(5),
			CategoriaID:               intPtr(2),
			PorcentajeAciertos:        &pct,
			TotalRespondidasCategoria: &answered,
		}, nil)

	w := doRequest(router, http.MethodPost, "/algoritmos/categoria-peor", `{"usuario_id":5}`)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	resultado := body["resultado"].(map[string]interface{})
	assert.Equal(t, "categoria-peor", resultado["estrategia"])
	assert.Equal(t, float64(40), resultado["porcentaje_aciertos"])
	preguntas := resultado["preguntas"].([]interface{})
	require.Len(t, preguntas, 1)
	first := preguntas[0].(map[string]interface{})
	assert.Len(t, first["respuestasIncorrectas"], 3)
	assert.Equal(t, float64(2), first["Categorias_idCategorias"])
	svc.assertExpectations(t)
}

func TestSelectionHandler_Select_EmptyBody(t *testing.T) {
	router, svc := newTestRouter(t, testConfig(t))
	svc.selection.On("Select", mock.Anything, models.StrategyRandom, models.SelectionRequest{}).
		Return(&models.SelectionResult{Preguntas: []models.QuizItem{}, Estrategia: models.StrategyRandom, Estado: models.SelectionStateComplete}, nil)

	w := doRequest(router, http.MethodPost, "/algoritmos/aleatorio-simple", "")

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	svc.assertExpectations(t)
}

func TestSelectionHandler_Select_SchemaRejectsBody(t *testing.T) {
	router, svc := newTestRouter(t, testConfig(t))

	w := doRequest(router, http.MethodPost, "/algoritmos/categoria-concreta", `{"categoria_id":"dos"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(contextutils.ErrorCodeValidationFailed), decodeBody(t, w)["code"])
	svc.selection.AssertNotCalled(t, "Select", mock.Anything, mock.Anything, mock.Anything)
}

func TestSelectionHandler_Select_UnknownStrategy(t *testing.T) {
	router, svc := newTestRouter(t, testConfig(t))
	svc.selection.On("Select", mock.Anything, models.Strategy("genetico"), models.SelectionRequest{}).
		Return(nil, contextutils.NewAppError(contextutils.ErrorCodeRecordNotFound, contextutils.SeverityInfo, "Estrategia de selección no encontrada", "genetico"))

	w := doRequest(router, http.MethodPost, "/algoritmos/genetico", `{}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Estrategia de selección no encontrada", decodeBody(t, w)["mensaje"])
	svc.assertExpectations(t)
}

func TestSelectionHandler_ListCriteria(t *testing.T) {
	router, svc := newTestRouter(t, testConfig(t))
	svc.selection.On("ListCriteria", mock.Anything).Return([]models.Criterion{
		{ID: 1, Titulo: "Aleatorio", Texto: "Preguntas al azar"},
	}, nil)

	w := doRequest(router, http.MethodGet, "/obtener-algoritmos", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"algoritmos":[{"idCriterioAlgoritmo":1,"tituloCriterio":"Aleatorio","textoCriterio":"Preguntas al azar"}],"total":1}`, w.Body.String())
}
