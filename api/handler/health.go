package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/mediagrab/models"
)

// Version is reported by the health endpoint. It is set at build time.
var Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
func Health(svc Service, cacheLen func() int, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := models.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: Version,
			Engines: svc.Engines(),
		}
		if cacheLen != nil {
			resp.CacheEntries = cacheLen()
		}
		c.JSON(http.StatusOK, resp)
	}
}
