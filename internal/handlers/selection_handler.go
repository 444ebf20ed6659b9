package handlers

import (
	"net/http"

	"auscultify/internal/models"
	"auscultify/internal/observability"
	"auscultify/internal/services"

	"github.com/gin-gonic/gin"
)

// SelectionHandler serves the quiz-building routes
type SelectionHandler struct {
	selectionService services.SelectionServiceInterface
	logger           *observability.Logger
}

// NewSelectionHandler creates a new SelectionHandler instance
func NewSelectionHandler(selectionService services.SelectionServiceInterface, logger *observability.Logger) *SelectionHandler {
	return &SelectionHandler{selectionService: selectionService, logger: logger}
}

// Select handles POST /algoritmos/:estrategia
func (h *SelectionHandler) Select(c *gin.Context) {
	strategy := models.Strategy(c.Param("estrategia"))
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "select_questions",
		observability.AttributeStrategy(string(strategy)),
	)
	defer observability.FinishSpan(span, nil)

	var req models.SelectionRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.selectionService.Select(ctx, strategy, req)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "resultado": result})
}

// ListCriteria handles GET /obtener-algoritmos
func (h *SelectionHandler) ListCriteria(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_criteria")
	defer observability.FinishSpan(span, nil)

	criteria, err := h.selectionService.ListCriteria(ctx)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"algoritmos": criteria, "total": len(criteria)})
}
