package api

import "github.com/gin-gonic/gin"

// HealthHandler provides liveness and readiness endpoints for the service.
//
// Responsibilities:
//   - /healthz: Basic liveness probe (always returns 200 OK).
//   - /readyz: Readiness probe (depends on bar-cache connectivity when a
//     cache is configured).
type HealthHandler struct {
	cachePing func() error // nil when no cache is configured
}

// NewHealthHandler constructs a HealthHandler with the provided cachePing
// function, typically BarsRepository.Ping. Pass nil when running cacheless.
func NewHealthHandler(cachePing func() error) *HealthHandler {
	return &HealthHandler{cachePing: cachePing}
}

// Register mounts the health and readiness endpoints into the provided router.
//
// Routes:
//   - GET /healthz: Always returns 200 OK.
//   - GET /readyz: 200 OK if the cache (when configured) is reachable, 503 otherwise.
func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/readyz", func(c *gin.Context) {
		if h.cachePing != nil && h.cachePing() != nil {
			c.JSON(503, gin.H{"status": "degraded"})
			return
		}
		c.JSON(200, gin.H{"status": "ready"})
	})
}
