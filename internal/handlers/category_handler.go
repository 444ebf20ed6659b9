package handlers

import (
	"net/http"

	"auscultify/internal/models"
	"auscultify/internal/observability"
	"auscultify/internal/services"

	"github.com/gin-gonic/gin"
)

// CategoryHandler serves the category catalog routes
type CategoryHandler struct {
	categoryService services.CategoryServiceInterface
	logger          *observability.Logger
}

// NewCategoryHandler creates a new CategoryHandler instance
func NewCategoryHandler(categoryService services.CategoryServiceInterface, logger *observability.Logger) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, logger: logger}
}

// CreateCategory handles POST /crear-categoria
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_category")
	defer observability.FinishSpan(span, nil)

	var req models.CreateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.CreateCategory(ctx, req.NombreCategoria)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"mensaje":   "Categoría creada correctamente",
		"categoria": models.CategoryRef{ID: category.ID, Nombre: category.Name},
	})
}

// ListCategories handles GET /obtener-categorias
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_categories")
	defer observability.FinishSpan(span, nil)

	categories, err := h.categoryService.ListCategories(ctx)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categorias": categories, "total": len(categories)})
}

// DeleteCategory handles DELETE /eliminar-categoria
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_category")
	defer observability.FinishSpan(span, nil)

	var req models.DeleteCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	deletion, err := h.categoryService.DeleteCategory(ctx, req)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"mensaje":             "Categoría eliminada correctamente",
		"categoria":           deletion.Category,
		"preguntasEliminadas": deletion.QuestionsDeleted,
		"historialEliminado":  deletion.HistoryDeleted,
		"carpetaEliminada":    deletion.FolderRemoved,
	})
}
