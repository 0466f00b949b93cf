package models

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"
)

// ScrapeRequest is the payload for POST /api/v1/scrape.
type ScrapeRequest struct {
	// URL is the product page. A missing scheme defaults to https. Required.
	URL string `json:"url" binding:"required"`

	// Timeout is the maximum duration in seconds for fetching the page,
	// including the anti-bot retry. Default: 30. Max: 120.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`

	// Headers are extra request headers sent with the page fetch.
	Headers map[string]string `json:"headers,omitempty"`

	// MaxAge is the maximum age in milliseconds of a cached response that
	// may be served instead of fetching again. 0 disables the cache.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// Defaults applies default values to unset fields and normalizes URL.
func (r *ScrapeRequest) Defaults() {
	r.URL = NormalizeInputURL(r.URL)
	if r.Timeout == 0 {
		r.Timeout = 30
	}
}

// Validate checks the normalized request.
func (r *ScrapeRequest) Validate() error {
	return validatePageURL(r.URL)
}

// ExtractRequest is the payload for POST /api/v1/extract. It shares the
// fetch options of ScrapeRequest.
type ExtractRequest struct {
	ScrapeRequest
}

// DiagRequest is the payload for POST /api/v1/diag.
type DiagRequest struct {
	URL     string `json:"url" binding:"required"`
	Timeout int    `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`
}

// Defaults applies default values to unset fields and normalizes URL.
func (r *DiagRequest) Defaults() {
	r.URL = NormalizeInputURL(r.URL)
	if r.Timeout == 0 {
		r.Timeout = 20
	}
}

// Validate checks the normalized request.
func (r *DiagRequest) Validate() error {
	return validatePageURL(r.URL)
}

// PackageRequest is the payload for POST /api/v1/package.
type PackageRequest struct {
	// Videos lists the URLs to download, either as plain strings or as
	// {"url": "..."} objects.
	Videos []VideoRef `json:"videos" binding:"required"`
}

// URLs returns the usable entries in request order. Entries that carried
// neither a string nor an object with a url string are dropped.
func (r *PackageRequest) URLs() []string {
	out := make([]string, 0, len(r.Videos))
	for _, v := range r.Videos {
		if v != "" {
			out = append(out, string(v))
		}
	}
	return out
}

// VideoRef is a video URL that decodes from either a JSON string or an
// object with a "url" string field. Any other shape decodes to "".
type VideoRef string

func (v *VideoRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = VideoRef(s)
		return nil
	}
	var obj struct {
		URL *string `json:"url"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.URL != nil {
		*v = VideoRef(*obj.URL)
		return nil
	}
	*v = ""
	return nil
}

// NormalizeInputURL trims raw and prefixes https:// when no http(s)
// scheme is present. Empty input stays empty.
func NormalizeInputURL(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}
	lower := strings.ToLower(v)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		v = "https://" + v
	}
	return v
}

var (
	errEmptyURL   = errors.New("url must not be empty")
	errInvalidURL = errors.New("url is not a valid http(s) address")
)

func validatePageURL(raw string) error {
	if raw == "" {
		return errEmptyURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errInvalidURL
	}
	return nil
}
