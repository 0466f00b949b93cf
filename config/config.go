package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Fetch     FetchConfig
	Engine    EngineConfig
	Extractor ExtractorConfig
	Package   PackageConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// EngineConfig controls the multi-engine dispatcher.
type EngineConfig struct {
	// EscalationDelays is the staged start delay for each engine tier.
	EscalationDelays []time.Duration // default: [0s, 4s]

	// DomainMemoryTTL is how long the winning engine is remembered per domain.
	DomainMemoryTTL time.Duration // default: 24h
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the optional headless browser engine.
type BrowserConfig struct {
	// Enabled adds the stealth browser as a second engine tier.
	Enabled bool // default: false

	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is passed to the browser launcher.
	Proxy string

	// SettleTime is how long the DOM must stay unchanged before the page
	// HTML is read.
	SettleTime time.Duration // default: 300ms
}

// FetchConfig controls how product pages are requested.
type FetchConfig struct {
	// Timeout bounds a single page fetch, including the anti-bot retry.
	Timeout time.Duration // default: 30s

	// MaxBodySize caps the bytes read from a page response.
	MaxBodySize uint64 // default: 10 MB

	UserAgent      string
	AcceptLanguage string // default: "zh-CN,zh;q=0.9,en;q=0.8"
	Referer        string // default: "https://www.alibaba.com/"

	// WarmupURLs are requested, in order, before retrying a page that came
	// back as a challenge page.
	WarmupURLs []string

	// WarmupTimeout bounds each warm-up request.
	WarmupTimeout time.Duration // default: 12s

	// InsecureFallback retries with certificate verification disabled when
	// the first attempt fails TLS validation.
	InsecureFallback bool // default: true
}

// ExtractorConfig tunes the extraction heuristics. Zero values select the
// built-in defaults.
type ExtractorConfig struct {
	AntiBotMarkers     []string
	AntiBotThreshold   int
	StructuredDataKeys []string
	MaxJSONDepth       int
}

// PackageConfig controls the download packager.
type PackageConfig struct {
	// Concurrency is the number of parallel downloads.
	Concurrency int // default: 4

	// MaxFiles is the maximum number of URLs accepted per request.
	MaxFiles int // default: 50

	// MaxFileSize skips any single download larger than this.
	MaxFileSize uint64 // default: 200 MB

	// DownloadTimeout bounds each individual download.
	DownloadTimeout time.Duration // default: 120s

	// ArchiveName is the file name reported for the archive.
	ArchiveName string // default: "alibaba_videos.zip"
}

// CacheConfig controls the scrape response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 1000

	// TTL is the hard upper bound on entry age.
	TTL time.Duration // default: 1h
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// DefaultUserAgent is the desktop Chrome UA sent with every request.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// DefaultWarmupURLs prime the session cookies of the marketplace before a
// challenge-page retry.
var DefaultWarmupURLs = []string{
	"https://www.alibaba.com/",
	"https://www.alibaba.com/trade/search?fsb=y&IndexArea=product_en&SearchText=sunglasses",
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("MEDIAGRAB_HOST", "0.0.0.0"),
			Port: envIntOr("MEDIAGRAB_PORT", 8080),
			Mode: envOr("MEDIAGRAB_MODE", "release"),
		},
		Browser: BrowserConfig{
			Enabled:    envBoolOr("MEDIAGRAB_BROWSER_ENABLED", false),
			Headless:   envBoolOr("MEDIAGRAB_HEADLESS", true),
			NoSandbox:  envBoolOr("MEDIAGRAB_NO_SANDBOX", false),
			BrowserBin: os.Getenv("MEDIAGRAB_BROWSER_BIN"),
			Proxy:      os.Getenv("MEDIAGRAB_PROXY"),
			SettleTime: envDurationOr("MEDIAGRAB_BROWSER_SETTLE", 300*time.Millisecond),
		},
		Fetch: FetchConfig{
			Timeout:          envDurationOr("MEDIAGRAB_FETCH_TIMEOUT", 30*time.Second),
			MaxBodySize:      envBytesOr("MEDIAGRAB_MAX_BODY", 10*humanize.MByte),
			UserAgent:        envOr("MEDIAGRAB_USER_AGENT", DefaultUserAgent),
			AcceptLanguage:   envOr("MEDIAGRAB_ACCEPT_LANGUAGE", "zh-CN,zh;q=0.9,en;q=0.8"),
			Referer:          envOr("MEDIAGRAB_REFERER", "https://www.alibaba.com/"),
			WarmupURLs:       envSliceOr("MEDIAGRAB_WARMUP_URLS", DefaultWarmupURLs),
			WarmupTimeout:    envDurationOr("MEDIAGRAB_WARMUP_TIMEOUT", 12*time.Second),
			InsecureFallback: envBoolOr("MEDIAGRAB_INSECURE_FALLBACK", true),
		},
		Engine: EngineConfig{
			EscalationDelays: envDurationSliceOr("MEDIAGRAB_ESCALATION_DELAYS", []time.Duration{0, 4 * time.Second}),
			DomainMemoryTTL:  envDurationOr("MEDIAGRAB_DOMAIN_MEMORY_TTL", 24*time.Hour),
		},
		Extractor: ExtractorConfig{
			AntiBotMarkers:     envSliceOr("MEDIAGRAB_ANTIBOT_MARKERS", nil),
			AntiBotThreshold:   envIntOr("MEDIAGRAB_ANTIBOT_THRESHOLD", 0),
			StructuredDataKeys: envSliceOr("MEDIAGRAB_JSON_KEYS", nil),
			MaxJSONDepth:       envIntOr("MEDIAGRAB_JSON_MAX_DEPTH", 0),
		},
		Package: PackageConfig{
			Concurrency:     envIntOr("MEDIAGRAB_PACKAGE_CONCURRENCY", 4),
			MaxFiles:        envIntOr("MEDIAGRAB_PACKAGE_MAX_FILES", 50),
			MaxFileSize:     envBytesOr("MEDIAGRAB_PACKAGE_MAX_FILE_SIZE", 200*humanize.MByte),
			DownloadTimeout: envDurationOr("MEDIAGRAB_DOWNLOAD_TIMEOUT", 120*time.Second),
			ArchiveName:     envOr("MEDIAGRAB_ARCHIVE_NAME", "alibaba_videos.zip"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("MEDIAGRAB_AUTH_ENABLED", false),
			APIKeys: envSliceOr("MEDIAGRAB_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("MEDIAGRAB_RATE_RPS", 2.0),
			Burst:             envIntOr("MEDIAGRAB_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("MEDIAGRAB_CACHE_MAX_ENTRIES", 1000),
			TTL:        envDurationOr("MEDIAGRAB_CACHE_TTL", time.Hour),
		},
		Log: LogConfig{
			Level:  envOr("MEDIAGRAB_LOG_LEVEL", "info"),
			Format: envOr("MEDIAGRAB_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envBytesOr accepts human sizes such as "10MB" or "512 KiB".
func envBytesOr(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := humanize.ParseBytes(v); err == nil {
			return n
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]time.Duration, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if d, err := time.ParseDuration(trimmed); err == nil {
					result = append(result, d)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
