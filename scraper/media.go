package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/use-agent/mediagrab/engine"
	"github.com/use-agent/mediagrab/extractor"
	"github.com/use-agent/mediagrab/models"
)

// Sources reported in ScrapeResponse.Source.
const (
	SourceVideo     = "video"
	SourceResources = "resources"
)

// NoVideoTips is returned when a page parsed cleanly but held no video.
var NoVideoTips = []string{
	"make sure the link is a product detail page, not a search page or a shop home page",
	"try another product link",
	"some product videos are loaded or encrypted dynamically by the page scripts",
}

// BlockedTips is returned when the page stayed a challenge page.
var BlockedTips = []string{
	"the site served a verification page instead of the product, try again in a few minutes",
	"enable the browser engine with MEDIAGRAB_BROWSER_ENABLED=true",
}

// ScrapeVideos fetches the product page and lists its videos. When the
// video profile finds nothing, the videos of the general profile are used
// instead. Blocked and empty pages are successful responses carrying tips.
func (s *Scraper) ScrapeVideos(ctx context.Context, req *models.ScrapeRequest) (*models.ScrapeResponse, error) {
	start := time.Now()

	page, err := s.Fetch(ctx, &engine.FetchRequest{
		URL:     req.URL,
		Headers: req.Headers,
		Timeout: time.Duration(req.Timeout) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	extractStart := time.Now()
	resp := &models.ScrapeResponse{
		Success:    true,
		URL:        req.URL,
		FinalURL:   page.FinalURL,
		StatusCode: page.StatusCode,
		PageTitle:  page.Title,
		Videos:     []string{},
		EngineUsed: page.EngineUsed,
	}

	switch {
	case page.Blocked:
		resp.Blocked = true
		resp.Signals = page.Signals
		resp.Message = "the page is an anti-bot verification page, no videos extracted"
		resp.Tips = BlockedTips
		resp.Error = &models.ErrorDetail{Code: models.ErrCodeBlocked, Message: resp.Message}
	default:
		videos, source := s.videosOf(page)
		resp.Videos = videos
		resp.Source = source
		if len(videos) == 0 {
			resp.Message = "page parsed but no downloadable video was found"
			resp.Tips = NoVideoTips
		} else {
			resp.Message = fmt.Sprintf("found %d videos", len(videos))
		}
	}
	resp.Count = len(resp.Videos)

	resp.Timing = models.TimingInfo{
		TotalMs:   time.Since(start).Milliseconds(),
		FetchMs:   page.FetchDuration.Milliseconds(),
		ExtractMs: time.Since(extractStart).Milliseconds(),
	}
	return resp, nil
}

// videosOf runs the video profile, falling back to the general profile.
func (s *Scraper) videosOf(page *Page) ([]string, string) {
	vr := s.extractor.Videos(page.HTML, page.FinalURL)
	if len(vr.URLs) > 0 {
		return vr.URLs, SourceVideo
	}

	res := s.extractor.Resources(page.HTML, page.FinalURL)
	if len(res.Videos) == 0 {
		return []string{}, ""
	}
	urls := make([]string, len(res.Videos))
	for i, v := range res.Videos {
		urls[i] = v.URL
	}
	return urls, SourceResources
}

// ExtractResources fetches the page and runs the general profile against
// its final URL.
func (s *Scraper) ExtractResources(ctx context.Context, req *models.ExtractRequest) (*models.ExtractResponse, error) {
	start := time.Now()

	page, err := s.Fetch(ctx, &engine.FetchRequest{
		URL:     req.URL,
		Headers: req.Headers,
		Timeout: time.Duration(req.Timeout) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	extractStart := time.Now()
	resp := &models.ExtractResponse{
		Success:    true,
		URL:        req.URL,
		FinalURL:   page.FinalURL,
		PageTitle:  page.Title,
		Resources:  models.NewExtractionResult(),
		EngineUsed: page.EngineUsed,
	}
	if page.Blocked {
		resp.Blocked = true
		resp.Signals = page.Signals
		resp.Message = "the page is an anti-bot verification page, no resources extracted"
		resp.Error = &models.ErrorDetail{Code: models.ErrCodeBlocked, Message: resp.Message}
	} else {
		resp.Resources = s.extractor.Resources(page.HTML, page.FinalURL)
		resp.Message = "resource extraction complete"
	}
	resp.Counts = resp.Resources.Counts()
	resp.Total = resp.Resources.Total()

	resp.Timing = models.TimingInfo{
		TotalMs:   time.Since(start).Milliseconds(),
		FetchMs:   page.FetchDuration.Milliseconds(),
		ExtractMs: time.Since(extractStart).Milliseconds(),
	}
	return resp, nil
}

// Diagnose fetches the target once, whatever its status or content type,
// and reports what the server returned and how much video data the body
// carries.
func (s *Scraper) Diagnose(ctx context.Context, req *models.DiagRequest) (*models.DiagResponse, error) {
	start := time.Now()

	res, err := s.fetchRaw(ctx, &engine.FetchRequest{
		URL:     req.URL,
		Timeout: time.Duration(req.Timeout) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	fetchMs := time.Since(start).Milliseconds()

	resp := &models.DiagResponse{
		Success:     true,
		Target:      req.URL,
		FinalURL:    res.FinalURL,
		StatusCode:  res.StatusCode,
		HTMLLength:  len(res.HTML),
		VideoTokens: extractor.CountVideoTokens(res.HTML),
		EngineUsed:  res.EngineName,
	}
	if res.Header != nil {
		resp.ContentType = res.Header.Get("Content-Type")
		resp.Server = res.Header.Get("Server")
		resp.ContentLength = res.Header.Get("Content-Length")
	}

	detector := s.extractor.Detector()
	if signals := detector.Signals(res.HTML); len(signals) > 0 {
		resp.Signals = signals
		resp.Blocked = len(signals) >= detector.Threshold()
	}

	summary := s.previewer.Summarize(res.HTML, res.FinalURL, res.Title)
	resp.Title = summary.Title
	resp.Preview = summary.Preview
	resp.Message = "diagnostics complete"

	resp.Timing = models.TimingInfo{
		TotalMs:   time.Since(start).Milliseconds(),
		FetchMs:   fetchMs,
		ExtractMs: time.Since(start).Milliseconds() - fetchMs,
	}
	return resp, nil
}
