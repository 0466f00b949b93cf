package handler

import (
	"context"

	"github.com/use-agent/mediagrab/models"
	"github.com/use-agent/mediagrab/packager"
)

// Service is the page-level work behind the API. *scraper.Scraper
// implements it.
type Service interface {
	ScrapeVideos(ctx context.Context, req *models.ScrapeRequest) (*models.ScrapeResponse, error)
	ExtractResources(ctx context.Context, req *models.ExtractRequest) (*models.ExtractResponse, error)
	Diagnose(ctx context.Context, req *models.DiagRequest) (*models.DiagResponse, error)
	Engines() []string
}

// Packager bundles downloads into an archive. *packager.Packager
// implements it.
type Packager interface {
	Package(ctx context.Context, urls []string) (*packager.Result, error)
}
