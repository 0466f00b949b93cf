package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/mediagrab/api/handler"
	"github.com/use-agent/mediagrab/api/middleware"
	"github.com/use-agent/mediagrab/cache"
	"github.com/use-agent/mediagrab/config"
	"github.com/use-agent/mediagrab/models"
)

// Deps are the services the routes call into.
type Deps struct {
	Service      handler.Service
	Packager     handler.Packager
	ScrapeCache  *cache.Cache[*models.ScrapeResponse]
	ExtractCache *cache.Cache[*models.ExtractResponse]
	StartTime    time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestLog → CORS
//	API:     Auth (if enabled) → RateLimit
//
// Health stays outside auth so monitoring probes always work.
func NewRouter(deps Deps, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLog())
	r.Use(middleware.CORS())

	v1 := r.Group("/api/v1")

	var cacheLen func() int
	if deps.ScrapeCache != nil {
		cacheLen = deps.ScrapeCache.Len
	}
	v1.GET("/health", handler.Health(deps.Service, cacheLen, deps.StartTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/scrape", handler.Scrape(deps.Service, deps.ScrapeCache))
	protected.POST("/extract", handler.Extract(deps.Service, deps.ExtractCache))
	protected.POST("/package", handler.Package(deps.Packager))
	protected.POST("/diag", handler.Diag(deps.Service))

	return r
}
