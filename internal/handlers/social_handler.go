package handlers

import (
	"net/http"

	"auscultify/internal/models"
	"auscultify/internal/observability"
	"auscultify/internal/services"

	"github.com/gin-gonic/gin"
)

// SocialHandler serves the follow graph routes
type SocialHandler struct {
	socialService services.SocialServiceInterface
	logger        *observability.Logger
}

// NewSocialHandler creates a new SocialHandler instance
func NewSocialHandler(socialService services.SocialServiceInterface, logger *observability.Logger) *SocialHandler {
	return &SocialHandler{socialService: socialService, logger: logger}
}

// Follow handles POST /seguir
func (h *SocialHandler) Follow(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "follow")
	defer observability.FinishSpan(span, nil)

	var req models.FollowRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.socialService.Follow(ctx, req.EmailSeguidor, req.EmailSeguido); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"mensaje": "Usuario seguido correctamente"})
}

// Unfollow handles DELETE /eliminar-siguiendo
func (h *SocialHandler) Unfollow(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "unfollow")
	defer observability.FinishSpan(span, nil)

	var req models.FollowRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.socialService.Unfollow(ctx, req.EmailSeguidor, req.EmailSeguido); err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"mensaje": "Has dejado de seguir al usuario exitosamente"})
}

// ListFollowing handles GET /obtener-siguiendo?email=
func (h *SocialHandler) ListFollowing(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_following")
	defer observability.FinishSpan(span, nil)

	following, err := h.socialService.ListFollowing(ctx, c.Query("email"))
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"siguiendo": following, "total": len(following)})
}

// ListPublicUsers handles GET /obtener-usuarios-publicos?busqueda=&usuarioActual=
func (h *SocialHandler) ListPublicUsers(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_public_users")
	defer observability.FinishSpan(span, nil)

	users, err := h.socialService.ListPublicUsers(ctx, c.Query("busqueda"), c.Query("usuarioActual"))
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"usuarios": users, "total": len(users)})
}
