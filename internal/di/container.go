// Package di wires the database, the audio store and every service into one container.
package di

import (
	"context"
	"database/sql"
	"sync"

	"auscultify/internal/config"
	"auscultify/internal/database"
	"auscultify/internal/observability"
	"auscultify/internal/services"
	"auscultify/internal/storage"
	contextutils "auscultify/internal/utils"
)

// Service names used as container keys
const (
	serviceUser       = "user"
	serviceCategory   = "category"
	serviceQuestion   = "question"
	serviceSelection  = "selection"
	serviceStatistics = "statistics"
	serviceSocial     = "social"
	serviceManifest   = "manifest"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetUserService() (services.UserServiceInterface, error)
	GetCategoryService() (services.CategoryServiceInterface, error)
	GetQuestionService() (services.QuestionServiceInterface, error)
	GetSelectionService() (services.SelectionServiceInterface, error)
	GetStatisticsService() (services.StatisticsServiceInterface, error)
	GetSocialService() (services.SocialServiceInterface, error)
	GetManifestService() (services.ManifestServiceInterface, error)
	GetDatabase() *sql.DB
	GetAudioStore() *storage.AudioStore
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	Initialize(ctx context.Context) error
	InitializeWithDB(ctx context.Context, db *sql.DB) error
	Shutdown(ctx context.Context) error
	EnsureAdminUser(ctx context.Context) error
}

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg           *config.Config
	logger        *observability.Logger
	dbManager     *database.Manager
	db            *sql.DB
	store         *storage.AudioStore
	metrics       *observability.DomainMetrics
	services      map[string]interface{}
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
}

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger) *ServiceContainer {
	return &ServiceContainer{
		cfg:       cfg,
		logger:    logger,
		dbManager: database.NewManager(logger),
		services:  make(map[string]interface{}),
	}
}

// Initialize opens the database, applies migrations and builds every service
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	db, err := sc.dbManager.InitDB(sc.cfg.Database)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to initialize database")
	}
	return sc.InitializeWithDB(ctx, db)
}

// InitializeWithDB builds every service on an already open pool. The container takes
// ownership of db and closes it on Shutdown.
func (sc *ServiceContainer) InitializeWithDB(ctx context.Context, db *sql.DB) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.db = db
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return db.Close()
	})

	store, err := storage.NewAudioStore(sc.cfg.Storage.AudioRoot, sc.logger)
	if err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to open audio store")
	}
	sc.store = store
	// the static /audio route must serve the same directory the store writes to
	sc.cfg.Storage.AudioRoot = store.Root()

	metrics, err := observability.NewDomainMetrics()
	if err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to create domain metrics")
	}
	sc.metrics = metrics

	sc.initializeServices()

	sc.logger.Info(ctx, "Services initialized", map[string]interface{}{
		"audio_root": store.Root(),
		"services":   len(sc.services),
	})
	return nil
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetUserService returns the user service
func (sc *ServiceContainer) GetUserService() (services.UserServiceInterface, error) {
	return GetServiceAs[services.UserServiceInterface](sc, serviceUser)
}

// GetCategoryService returns the category service
func (sc *ServiceContainer) GetCategoryService() (services.CategoryServiceInterface, error) {
	return GetServiceAs[services.CategoryServiceInterface](sc, serviceCategory)
}

// GetQuestionService returns the question service
func (sc *ServiceContainer) GetQuestionService() (services.QuestionServiceInterface, error) {
	return GetServiceAs[services.QuestionServiceInterface](sc, serviceQuestion)
}

// GetSelectionService returns the selection service
func (sc *ServiceContainer) GetSelectionService() (services.SelectionServiceInterface, error) {
	return GetServiceAs[services.SelectionServiceInterface](sc, serviceSelection)
}

// GetStatisticsService returns the statistics service
func (sc *ServiceContainer) GetStatisticsService() (services.StatisticsServiceInterface, error) {
	return GetServiceAs[services.StatisticsServiceInterface](sc, serviceStatistics)
}

// GetSocialService returns the social service
func (sc *ServiceContainer) GetSocialService() (services.SocialServiceInterface, error) {
	return GetServiceAs[services.SocialServiceInterface](sc, serviceSocial)
}

// GetManifestService returns the manifest service
func (sc *ServiceContainer) GetManifestService() (services.ManifestServiceInterface, error) {
	return GetServiceAs[services.ManifestServiceInterface](sc, serviceManifest)
}

// GetDatabase returns the database instance
func (sc *ServiceContainer) GetDatabase() *sql.DB {
	return sc.db
}

// GetAudioStore returns the audio store
func (sc *ServiceContainer) GetAudioStore() *storage.AudioStore {
	return sc.store
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// Shutdown releases everything the container opened, newest first
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errs []error
	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			sc.logger.Error(ctx, "Shutdown step failed", err)
			errs = append(errs, err)
		}
	}
	sc.shutdownFuncs = nil

	if len(errs) > 0 {
		return contextutils.ErrorWithContextf("shutdown errors: %v", errs)
	}
	return nil
}

func (sc *ServiceContainer) initializeServices() {
	sc.services[serviceUser] = services.NewUserServiceWithLogger(sc.db, sc.cfg, sc.logger)
	sc.services[serviceCategory] = services.NewCategoryServiceWithLogger(sc.db, sc.store, sc.metrics, sc.logger)
	sc.services[serviceQuestion] = services.NewQuestionServiceWithLogger(sc.db, sc.store, sc.metrics, sc.logger)
	sc.services[serviceSelection] = services.NewSelectionServiceWithLogger(sc.db, sc.cfg, sc.metrics, sc.logger)
	sc.services[serviceStatistics] = services.NewStatisticsServiceWithLogger(sc.db, sc.cfg, sc.metrics, sc.logger)
	sc.services[serviceSocial] = services.NewSocialServiceWithLogger(sc.db, sc.logger)
	sc.services[serviceManifest] = services.NewManifestServiceWithLogger(sc.db, sc.store, sc.logger)
}

// EnsureAdminUser creates the configured admin account if it is missing
func (sc *ServiceContainer) EnsureAdminUser(ctx context.Context) error {
	userService, err := sc.GetUserService()
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to get user service")
	}

	created, err := userService.EnsureAdmin(ctx)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to ensure admin user")
	}
	if created {
		sc.logger.Info(ctx, "Admin user created", map[string]interface{}{"email": contextutils.MaskEmail(sc.cfg.Server.AdminEmail)})
	}
	return nil
}
