package engine

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "http", "http-insecure", "rod").
	Name() string

	// Fetch retrieves the page content for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration

	// Raw returns the response whatever its status or content type.
	// Diagnostics use it to report on pages that are not HTML.
	Raw bool
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string
	EngineName string

	// Header holds the response headers. Browser engines leave it nil.
	Header http.Header
}

// ErrUnexpectedResponse is returned for error statuses and non-HTML bodies
// unless the request is Raw.
var ErrUnexpectedResponse = errors.New("unexpected response")
