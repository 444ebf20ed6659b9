package handlers

import (
	"errors"
	"net/http"
	"strings"

	"auscultify/internal/config"
	"auscultify/internal/middleware"
	"auscultify/internal/models"
	"auscultify/internal/observability"
	"auscultify/internal/services"
	contextutils "auscultify/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const msgLoginEmailTypo = "Te has equivocado a la hora de introducir el correo."

// AuthHandler handles registration, login and profile requests
type AuthHandler struct {
	userService services.UserServiceInterface
	config      *config.Config
	logger      *observability.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(userService services.UserServiceInterface, cfg *config.Config, logger *observability.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		config:      cfg,
		logger:      logger,
	}
}

// Register handles POST /registrarse
func (h *AuthHandler) Register(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "register")
	defer observability.FinishSpan(span, nil)

	var req models.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Register(ctx, req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeUserID(user.ID))

	c.JSON(http.StatusCreated, gin.H{
		"mensaje": "Usuario registrado correctamente",
		"usuario": user.Profile(),
	})
}

// Login handles POST /login and opens the cookie session
func (h *AuthHandler) Login(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "login")
	defer observability.FinishSpan(span, nil)

	var req models.CredentialsRequest
	if !bindJSON(c, &req) {
		return
	}

	email := strings.TrimSpace(req.Usuario)
	span.SetAttributes(
		attribute.String("auth.email", contextutils.MaskEmail(email)),
		attribute.Bool("auth.password_provided", req.Contrasena != ""),
	)
	if !contextutils.IsValidEmail(email) {
		HandleAppError(c, contextutils.NewAppError(contextutils.ErrorCodeInvalidInput, contextutils.SeverityInfo, msgLoginEmailTypo, ""))
		return
	}

	user, err := h.userService.Login(ctx, email, req.Contrasena)
	if err != nil {
		h.logger.Info(ctx, "Login rejected", map[string]interface{}{"email": contextutils.MaskEmail(email)})
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeUserID(user.ID))

	if err := middleware.SetSessionUser(c, user.ID, user.Email); err != nil {
		h.logger.Error(ctx, "Failed to save session", err, map[string]interface{}{"user_id": user.ID})
		HandleAppError(c, contextutils.WrapError(err, "failed to create session"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"mensaje": "Sesión iniciada correctamente",
		"usuario": user.Profile(),
	})
}

// Logout handles POST /cerrar-sesion
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "logout")
	defer observability.FinishSpan(span, nil)

	if userID, _, ok := middleware.SessionUser(c); ok {
		span.SetAttributes(observability.AttributeUserID(userID))
	}

	if err := middleware.ClearSession(c); err != nil {
		h.logger.Error(ctx, "Failed to clear session", err)
		HandleAppError(c, contextutils.WrapError(err, "failed to clear session"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"mensaje": "Sesión cerrada correctamente"})
}

// Session handles GET /sesion behind RequireAuth and returns the current profile
func (h *AuthHandler) Session(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "session")
	defer observability.FinishSpan(span, nil)

	userID := c.GetInt(middleware.UserIDKey)
	span.SetAttributes(observability.AttributeUserID(userID))

	user, err := h.userService.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, contextutils.ErrRecordNotFound) {
			// account removed while the cookie was still valid
			_ = middleware.ClearSession(c)
			HandleAppError(c, contextutils.ErrUnauthorized)
			return
		}
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"usuario": user.Profile()})
}

// UpdateProfile handles PUT /modificar-perfil behind RequireAuth. Only the session user may edit
// their own profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_profile")
	defer observability.FinishSpan(span, nil)

	var req models.ProfileUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	sessionID := c.GetInt(middleware.UserIDKey)
	span.SetAttributes(observability.AttributeUserID(req.UserID))

	if req.UserID != sessionID {
		h.logger.Warn(ctx, "Profile update for another user rejected", map[string]interface{}{
			"session_user_id": sessionID,
			"target_user_id":  req.UserID,
		})
		HandleAppError(c, contextutils.ErrForbidden)
		return
	}

	user, err := h.userService.UpdateProfile(ctx, req)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	if c.GetString(middleware.EmailKey) != user.Email {
		if err := middleware.SetSessionUser(c, user.ID, user.Email); err != nil {
			h.logger.Warn(ctx, "Failed to refresh session e-mail", map[string]interface{}{"user_id": user.ID, "error": err.Error()})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"mensaje": "Perfil actualizado correctamente",
		"usuario": user.Profile(),
	})
}

// DeleteAccount handles POST and DELETE /eliminar-cuenta
func (h *AuthHandler) DeleteAccount(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_account")
	defer observability.FinishSpan(span, nil)

	var req models.CredentialsRequest
	if !bindJSON(c, &req) {
		return
	}

	email := strings.TrimSpace(req.Usuario)
	if err := h.userService.DeleteAccount(ctx, email, req.Contrasena); err != nil {
		HandleAppError(c, err)
		return
	}

	if _, sessionEmail, ok := middleware.SessionUser(c); ok && sessionEmail == email {
		if err := middleware.ClearSession(c); err != nil {
			h.logger.Warn(ctx, "Failed to clear session of deleted account", map[string]interface{}{"error": err.Error()})
		}
	}

	c.JSON(http.StatusOK, gin.H{"mensaje": "Cuenta eliminada exitosamente"})
}

// Sync handles POST /sincronizar-datos: it makes sure the admin account exists
func (h *AuthHandler) Sync(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "sync")
	defer observability.FinishSpan(span, nil)

	var req models.SyncRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.userService.EnsureAdmin(ctx)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(attribute.Bool("admin.created", created))

	c.JSON(http.StatusOK, gin.H{
		"mensaje": "Datos sincronizados correctamente",
		"email":   req.Email,
	})
}
