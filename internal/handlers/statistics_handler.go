package handlers

import (
	"net/http"
	"strconv"

	"auscultify/internal/models"
	"auscultify/internal/observability"
	"auscultify/internal/services"
	contextutils "auscultify/internal/utils"

	"github.com/gin-gonic/gin"
)

const msgInvalidUserID = "Identificador de usuario no válido"

// StatisticsHandler serves session recording and the statistics views
type StatisticsHandler struct {
	statisticsService services.StatisticsServiceInterface
	logger            *observability.Logger
}

// NewStatisticsHandler creates a new StatisticsHandler instance
func NewStatisticsHandler(statisticsService services.StatisticsServiceInterface, logger *observability.Logger) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, logger: logger}
}

// RecordSession handles POST /actualizar-datos-usuario
func (h *StatisticsHandler) RecordSession(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "record_session")
	defer observability.FinishSpan(span, nil)

	var req models.SessionRequest
	if !bindJSON(c, &req) {
		return
	}

	outcome, err := h.statisticsService.RecordSession(ctx, req)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"mensaje":            "Datos de usuario actualizados correctamente",
		"usuario":            outcome.User,
		"estadisticasSesion": outcome.Stats,
	})
}

// GetStatistics handles GET /estadisticas-usuario/:usuarioId
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_statistics")
	defer observability.FinishSpan(span, nil)

	userID, err := strconv.Atoi(c.Param("usuarioId"))
	if err != nil || userID <= 0 {
		HandleAppError(c, contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityInfo, msgInvalidUserID, c.Param("usuarioId")))
		return
	}
	span.SetAttributes(observability.AttributeUserID(userID))

	stats, err := h.statisticsService.GetStatistics(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetUserSummary handles GET /obtener-usuario-correo?correo=
func (h *StatisticsHandler) GetUserSummary(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_user_summary")
	defer observability.FinishSpan(span, nil)

	summary, err := h.statisticsService.GetUserSummaryByEmail(ctx, c.Query("correo"))
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
