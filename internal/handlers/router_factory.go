package handlers

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"auscultify/internal/config"
	"auscultify/internal/middleware"
	"auscultify/internal/observability"
	"auscultify/internal/services"
	contextutils "auscultify/internal/utils"
	"auscultify/internal/version"
)

const msgRouteNotFound = "Ruta no encontrada"

// NewRouter builds the gin engine with the shared middleware chain and every route
func NewRouter(
	cfg *config.Config,
	userService services.UserServiceInterface,
	categoryService services.CategoryServiceInterface,
	questionService services.QuestionServiceInterface,
	selectionService services.SelectionServiceInterface,
	statisticsService services.StatisticsServiceInterface,
	socialService services.SocialServiceInterface,
	logger *observability.Logger,
) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	schemas, err := middleware.NewSchemaLoader()
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.Use(middleware.RequestID(), middleware.RequestLogger(logger), middleware.ErrorRecoveryMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.OpenTelemetry.ServiceName})
	})

	router.Use(observability.GinMiddlewareWithErrorHandling(cfg.OpenTelemetry.ServiceName)...)

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept-Language", "X-Requested-With", middleware.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	secret := cfg.Server.SessionSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn(context.Background(), "server.session_secret is empty; sessions will not survive a restart")
	}
	store := cookie.NewStore([]byte(secret))
	sessionOpts := sessions.Options{
		Path:     config.SessionPath,
		MaxAge:   int(config.SessionMaxAge.Seconds()),
		HttpOnly: config.SessionHTTPOnly,
		Secure:   config.SessionSecure,
	}
	if cfg.Server.Debug {
		sessionOpts.SameSite = http.SameSiteDefaultMode
	} else {
		sessionOpts.SameSite = http.SameSiteLaxMode
	}
	store.Options(sessionOpts)
	router.Use(sessions.Sessions(config.SessionName, store))

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.IsDevelopment = cfg.Server.Debug
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Get(cfg.OpenTelemetry.ServiceName))
	})

	// Audio playback straight from the audio root, without directory listings
	audioFiles := otelhttp.NewHandler(
		http.StripPrefix("/audio", http.FileServer(gin.Dir(cfg.Storage.AudioRoot, false))),
		"audio",
	)
	router.GET("/audio/*filepath", gin.WrapH(audioFiles))
	router.HEAD("/audio/*filepath", gin.WrapH(audioFiles))

	categoryHandler := NewCategoryHandler(categoryService, logger)
	questionHandler := NewQuestionHandler(questionService, cfg, logger)
	selectionHandler := NewSelectionHandler(selectionService, logger)
	statisticsHandler := NewStatisticsHandler(statisticsService, logger)
	socialHandler := NewSocialHandler(socialService, logger)
	authHandler := NewAuthHandler(userService, cfg, logger)

	// Category and question catalog
	router.POST("/crear-categoria", categoryHandler.CreateCategory)
	router.GET("/obtener-categorias", categoryHandler.ListCategories)
	router.DELETE("/eliminar-categoria", categoryHandler.DeleteCategory)
	router.POST("/crear-pregunta", questionHandler.CreateQuestion)
	router.GET("/obtener-preguntas", questionHandler.ListQuestions)
	router.DELETE("/eliminar-pregunta", questionHandler.DeleteQuestion)

	// Quiz building
	router.GET("/obtener-algoritmos", selectionHandler.ListCriteria)
	router.POST("/algoritmos/:estrategia",
		middleware.RequestValidationMiddleware(schemas, middleware.SchemaSelectionRequest, logger),
		selectionHandler.Select)

	// Results and statistics
	router.POST("/actualizar-datos-usuario",
		middleware.RequestValidationMiddleware(schemas, middleware.SchemaSessionRequest, logger),
		statisticsHandler.RecordSession)
	router.GET("/estadisticas-usuario/:usuarioId", statisticsHandler.GetStatistics)
	router.GET("/obtener-usuario-correo", statisticsHandler.GetUserSummary)

	// Accounts
	router.POST("/registrarse", authHandler.Register)
	router.POST("/login", authHandler.Login)
	router.POST("/cerrar-sesion", authHandler.Logout)
	router.GET("/sesion", middleware.RequireAuth(), authHandler.Session)
	router.PUT("/modificar-perfil", middleware.RequireAuth(), authHandler.UpdateProfile)
	router.POST("/eliminar-cuenta", authHandler.DeleteAccount)
	router.DELETE("/eliminar-cuenta", authHandler.DeleteAccount)
	router.POST("/sincronizar-datos", authHandler.Sync)

	// Follow graph
	followValidation := middleware.RequestValidationMiddleware(schemas, middleware.SchemaFollowRequest, logger)
	router.POST("/seguir", followValidation, socialHandler.Follow)
	router.DELETE("/eliminar-siguiendo", followValidation, socialHandler.Unfollow)
	router.GET("/obtener-siguiendo", socialHandler.ListFollowing)
	router.GET("/obtener-usuarios-publicos", socialHandler.ListPublicUsers)

	router.NoRoute(func(c *gin.Context) {
		HandleAppError(c, contextutils.NewAppError(contextutils.ErrorCodeRecordNotFound, contextutils.SeverityInfo, msgRouteNotFound, c.Request.URL.Path))
	})

	return router, nil
}
