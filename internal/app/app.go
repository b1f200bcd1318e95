package app

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/avpulse/config"
	"github.com/guttosm/avpulse/internal/api"
	"github.com/guttosm/avpulse/internal/service"
	"github.com/guttosm/avpulse/internal/slicing"
	"github.com/guttosm/avpulse/internal/storage"
	"github.com/guttosm/avpulse/internal/transport"
)

// cacheOpener is an indirection for opening the bar cache; tests override it.
var cacheOpener = storage.NewBarsRepository

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Builds the upstream transport client from configuration.
//   - Opens the SQLite bar cache when CACHE_DB_PATH is set.
//   - Wires the slice planner and series service.
//   - Configures the Gin router with all API routes.
//   - Registers health and readiness probes.
//   - Provides a cleanup function to close resources.
//
// Returns:
//   - *gin.Engine: the configured Gin HTTP router.
//   - func(): cleanup function to be executed on shutdown.
//   - error: any initialization error that occurred.
func InitializeApp() (*gin.Engine, func(), error) {
	cfg := config.AppConfig

	client := transport.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.APIKey, cfg.Upstream.Timeout)

	var cache storage.BarsRepository
	var cachePing func() error
	if cfg.Cache.Path != "" {
		opened, err := cacheOpener(cfg.Cache.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open bar cache: %w", err)
		}
		cache = opened
		cachePing = opened.Ping
	}

	planner := slicing.NewPlanner(nil, cfg.Pipeline.SlicePadding)

	svc := service.NewSeriesService(client, service.Options{
		Planner:     planner,
		Cache:       cache,
		MaxParallel: cfg.Pipeline.MaxParallelSlices,
	})

	handler := api.NewHandler(svc)
	router := api.NewRouter(handler)

	healthHandler := api.NewHealthHandler(cachePing)
	healthHandler.Register(router)

	cleanup := func() {
		if cache != nil {
			_ = cache.Close()
		}
	}

	return router, cleanup, nil
}
