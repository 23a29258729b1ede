package routes

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/Wikid82/scirius/backend/internal/api/handlers"
	"github.com/Wikid82/scirius/backend/internal/config"
	"github.com/Wikid82/scirius/backend/internal/feeds"
	"github.com/Wikid82/scirius/backend/internal/services"
)

// referenceCacheSize bounds the parsed-reference LRU of the rule detail view.
const referenceCacheSize = 1024

// Services holds the long-lived application services shared by the HTTP
// layer and the background scheduler.
type Services struct {
	Store         *services.Store
	Sources       *services.SourceService
	Rulesets      *services.RulesetService
	Rules         *services.RuleService
	Notifications *services.NotificationService
	// Scheduler is nil when no sync schedule is configured.
	Scheduler *services.Scheduler
}

// NewServices builds the service graph on top of db. fetcher may be nil, in
// which case sources are downloaded according to their method.
func NewServices(db *gorm.DB, cfg config.Config, fetcher feeds.Fetcher) (*Services, error) {
	if fetcher == nil {
		fetcher = feeds.NewMethodFetcher(cfg.Sync.FetchTimeout, cfg.Sync.FetchesPerMinute)
	}
	store := services.NewStore(db)
	notifications := services.NewNotificationService(db, cfg.NotifyURLs)
	sources := services.NewSourceService(store, fetcher, services.NewStoreMerger(db), feeds.DiffComparer{}, notifications)
	refs, err := services.NewReferenceCache(referenceCacheSize)
	if err != nil {
		return nil, fmt.Errorf("reference cache: %w", err)
	}

	svc := &Services{
		Store:         store,
		Sources:       sources,
		Rulesets:      services.NewRulesetService(store, sources, cfg.Sync.Concurrency),
		Rules:         services.NewRuleService(store, refs),
		Notifications: notifications,
	}
	if cfg.Sync.Schedule != "" {
		svc.Scheduler, err = services.NewScheduler(sources, cfg.Sync.Schedule, cfg.Sync.Concurrency)
		if err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Register wires up API routes. registry, when set, is exposed on /metrics.
func Register(router *gin.Engine, svc *Services, registry *prometheus.Registry) error {
	if err := handlers.RegisterValidators(); err != nil {
		return fmt.Errorf("register validators: %w", err)
	}

	if registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))
	}

	router.GET("/api/v1/health", handlers.HealthHandler)

	api := router.Group("/api/v1")

	dashboardHandler := handlers.NewDashboardHandler(svc.Sources, svc.Rulesets)
	api.GET("/", dashboardHandler.Index)

	// Sources
	sourceHandler := handlers.NewSourceHandler(svc.Sources)
	api.GET("/sources", sourceHandler.List)
	api.POST("/sources", sourceHandler.Create)
	api.GET("/sources/:id", sourceHandler.Get)
	api.PUT("/sources/:id", sourceHandler.Update)
	api.POST("/sources/:id/update", sourceHandler.Refresh)
	api.GET("/sources/:id/diff", sourceHandler.Diff)

	// Catalog
	categoryHandler := handlers.NewCategoryHandler(svc.Rules)
	api.GET("/categories", categoryHandler.List)
	api.GET("/categories/:id", categoryHandler.Get)

	ruleHandler := handlers.NewRuleHandler(svc.Rules, svc.Rulesets)
	api.GET("/rules/:id", ruleHandler.Get)
	api.POST("/rules/:id/suppress", ruleHandler.Suppress)

	// Rulesets
	rulesetHandler := handlers.NewRulesetHandler(svc.Rulesets)
	api.GET("/rulesets", rulesetHandler.List)
	api.POST("/rulesets", rulesetHandler.Create)
	api.GET("/rulesets/:id", rulesetHandler.Get)
	api.DELETE("/rulesets/:id", rulesetHandler.Delete)
	api.GET("/rulesets/:id/edit", rulesetHandler.EditView)
	api.POST("/rulesets/:id/edit", rulesetHandler.Edit)
	api.POST("/rulesets/:id/suppressed", rulesetHandler.Suppressed)
	api.POST("/rulesets/:id/copy", rulesetHandler.Copy)
	api.POST("/rulesets/:id/update", rulesetHandler.Refresh)

	// Notifications
	notificationHandler := handlers.NewNotificationHandler(svc.Notifications)
	api.GET("/notifications", notificationHandler.List)
	api.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)
	api.POST("/notifications/:id/read", notificationHandler.MarkAsRead)

	return nil
}
