package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/use-agent/mediagrab/models"
)

var errNoVideos = errors.New("no videos to package")

// Package returns a handler for POST /api/v1/package.
//
// The archive is returned base64-encoded inside JSON. With ?format=zip the
// raw archive is streamed as an attachment instead.
func Package(pk Packager) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.PackageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		urls := req.URLs()
		if len(urls) == 0 {
			badRequest(c, errNoVideos)
			return
		}

		res, err := pk.Package(c.Request.Context(), urls)
		if err != nil {
			respondError(c, err)
			return
		}

		if c.Query("format") == "zip" {
			c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
			c.Header("X-Success-Count", strconv.Itoa(res.Success))
			c.Header("X-Total-Count", strconv.Itoa(res.Total))
			c.Data(http.StatusOK, "application/zip", res.Data)
			return
		}

		c.JSON(http.StatusOK, models.PackageResponse{
			Success:      true,
			Message:      fmt.Sprintf("package complete, %d/%d succeeded", res.Success, res.Total),
			ZipData:      base64.StdEncoding.EncodeToString(res.Data),
			Filename:     res.Filename,
			Size:         len(res.Data),
			Human:        humanize.Bytes(uint64(len(res.Data))),
			SuccessCount: res.Success,
			TotalCount:   res.Total,
			Failed:       res.Failed,
			Timing:       models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
		})
	}
}
