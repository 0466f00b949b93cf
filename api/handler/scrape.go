package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/mediagrab/cache"
	"github.com/use-agent/mediagrab/models"
)

// Scrape returns a handler for POST /api/v1/scrape.
//
// The URL is normalized, the page fetched and the video list extracted.
// With max_age set, a cached response for the same URL and headers that is
// young enough is served instead.
func Scrape(svc Service, cc *cache.Cache[*models.ScrapeResponse]) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		req.Defaults()
		if err := req.Validate(); err != nil {
			badRequest(c, err)
			return
		}

		key := cache.Key("scrape", req.URL, req.Headers)
		if cc != nil && req.MaxAge > 0 {
			if cached, hit := cc.Get(key, req.MaxAge); hit {
				resp := *cached
				resp.CacheStatus = "hit"
				resp.Timing = models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()}
				c.JSON(http.StatusOK, resp)
				return
			}
		}

		resp, err := svc.ScrapeVideos(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err)
			return
		}

		// Blocked pages are not cached so the next call retries.
		if cc != nil && req.MaxAge > 0 && !resp.Blocked {
			cc.Set(key, resp)
			out := *resp
			out.CacheStatus = "miss"
			c.JSON(http.StatusOK, out)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
