package models

// ScrapeResponse is the response for POST /api/v1/scrape.
type ScrapeResponse struct {
	// Success indicates whether the request completed without errors.
	// A blocked page or an empty result is still a success.
	Success bool `json:"success"`

	// Message is a short human-readable summary.
	Message string `json:"message,omitempty"`

	// URL is the normalized input URL.
	URL string `json:"url,omitempty"`

	// FinalURL is the URL after following all redirects.
	FinalURL string `json:"final_url,omitempty"`

	// StatusCode is the HTTP status code of the product page.
	StatusCode int `json:"status_code,omitempty"`

	// PageTitle is the <title> of the product page.
	PageTitle string `json:"page_title"`

	// Videos is the ordered, duplicate-free list of video URLs.
	Videos []string `json:"videos"`

	// Count is len(Videos).
	Count int `json:"count"`

	// Source names the profile that produced Videos: "video" or
	// "resources" when the general profile filled in.
	Source string `json:"source,omitempty"`

	// Blocked is set when the page was still a challenge page after the
	// warm-up retry.
	Blocked bool `json:"blocked"`

	// Signals lists the challenge markers found on a blocked page.
	Signals []string `json:"signals,omitempty"`

	// Tips suggests what to try when nothing was found.
	Tips []string `json:"tips,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// EngineUsed indicates which fetch engine produced the page.
	EngineUsed string `json:"engine_used,omitempty"`

	// Error is populated on failure, and on blocked pages with code
	// ANTI_BOT_BLOCKED.
	Error *ErrorDetail `json:"error,omitempty"`
}

// ExtractResponse is the response for POST /api/v1/extract.
type ExtractResponse struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message,omitempty"`
	URL        string           `json:"url,omitempty"`
	FinalURL   string           `json:"final_url,omitempty"`
	PageTitle  string           `json:"page_title"`
	Resources  ExtractionResult `json:"resources"`
	Counts     ResourceCounts   `json:"counts"`
	Total      int              `json:"total"`
	Blocked    bool             `json:"blocked"`
	Signals    []string         `json:"signals,omitempty"`
	Timing     TimingInfo       `json:"timing"`
	EngineUsed string           `json:"engine_used,omitempty"`
	Error      *ErrorDetail     `json:"error,omitempty"`
}

// PackageResponse is the response for POST /api/v1/package.
type PackageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`

	// ZipData is the base64-encoded archive.
	ZipData string `json:"zip_data,omitempty"`

	// Filename is the suggested archive name.
	Filename string `json:"filename,omitempty"`

	// Size is the archive size in bytes, Human the same in readable form.
	Size  int    `json:"size,omitempty"`
	Human string `json:"size_human,omitempty"`

	SuccessCount int `json:"success_count"`
	TotalCount   int `json:"total_count"`

	// Failed lists the URLs that could not be packaged and why.
	Failed []PackageFailure `json:"failed,omitempty"`

	Timing TimingInfo   `json:"timing"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// PackageFailure records one skipped download.
type PackageFailure struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// DiagResponse is the response for POST /api/v1/diag.
type DiagResponse struct {
	Success       bool             `json:"success"`
	Message       string           `json:"message,omitempty"`
	Target        string           `json:"target,omitempty"`
	FinalURL      string           `json:"final_url,omitempty"`
	StatusCode    int              `json:"status_code,omitempty"`
	ContentType   string           `json:"content_type"`
	Server        string           `json:"server"`
	ContentLength string           `json:"content_length"`
	HTMLLength    int              `json:"html_length"`
	VideoTokens   VideoTokenCounts `json:"video_tokens"`
	Blocked       bool             `json:"blocked"`
	Signals       []string         `json:"signals,omitempty"`

	// Title is the readability title, falling back to <title>.
	Title string `json:"title,omitempty"`

	// Preview is the start of the page text rendered as Markdown.
	Preview string `json:"preview,omitempty"`

	EngineUsed string       `json:"engine_used,omitempty"`
	Timing     TimingInfo   `json:"timing"`
	Error      *ErrorDetail `json:"error,omitempty"`
}

// VideoTokenCounts counts raw video-shaped fragments in a page, one field
// per literal form.
type VideoTokenCounts struct {
	VideoURL        int `json:"videoUrl"`
	EscapedVideoURL int `json:"escapedVideoUrl"`
	DirectMP4       int `json:"directMp4"`
	EscapedMP4      int `json:"escapedMp4"`
}

// TimingInfo provides duration breakdowns in milliseconds.
type TimingInfo struct {
	TotalMs   int64 `json:"total_ms"`
	FetchMs   int64 `json:"fetch_ms"`
	ExtractMs int64 `json:"extract_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status       string   `json:"status"`
	Uptime       string   `json:"uptime"`
	Version      string   `json:"version"`
	Engines      []string `json:"engines"`
	CacheEntries int      `json:"cache_entries"`
}

// ErrorResponse is the body of middleware rejections.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}
