package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/mediagrab/models"
)

// Diag returns a handler for POST /api/v1/diag. The target is fetched
// once and described whatever it returned, so error statuses still yield
// a 200 with the upstream status in the body.
func Diag(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.DiagRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		req.Defaults()
		if err := req.Validate(); err != nil {
			badRequest(c, err)
			return
		}

		resp, err := svc.Diagnose(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
