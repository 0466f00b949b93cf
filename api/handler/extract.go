package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/mediagrab/cache"
	"github.com/use-agent/mediagrab/models"
)

// Extract returns a handler for POST /api/v1/extract. It lists every
// media resource of the page grouped by kind, with per-kind counts.
func Extract(svc Service, cc *cache.Cache[*models.ExtractResponse]) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		req.Defaults()
		if err := req.Validate(); err != nil {
			badRequest(c, err)
			return
		}

		key := cache.Key("extract", req.URL, req.Headers)
		if cc != nil && req.MaxAge > 0 {
			if cached, hit := cc.Get(key, req.MaxAge); hit {
				resp := *cached
				resp.Timing = models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()}
				c.Header("X-Cache", "hit")
				c.JSON(http.StatusOK, resp)
				return
			}
		}

		resp, err := svc.ExtractResources(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err)
			return
		}
		if cc != nil && req.MaxAge > 0 && !resp.Blocked {
			cc.Set(key, resp)
			c.Header("X-Cache", "miss")
		}
		c.JSON(http.StatusOK, resp)
	}
}
