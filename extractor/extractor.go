// Package extractor recovers media resource URLs from raw product-page HTML.
//
// Candidates are harvested from tag attributes, JSON script blocks and
// literal text patterns, normalized to absolute URLs, classified by media
// kind and deduplicated at insertion, so the first discovery of a URL fixes
// its position in the output. Extraction is pure: no I/O, no shared mutable
// state, and it never returns an error.
package extractor

import (
	"strings"

	"github.com/use-agent/mediagrab/config"
	"github.com/use-agent/mediagrab/models"
)

// DefaultStructuredDataKeys is the key vocabulary of the structured-data walk.
var DefaultStructuredDataKeys = []string{"video", "videourl", "url", "src", "source", "playurl"}

// DefaultMaxJSONDepth bounds the structured-data walk.
const DefaultMaxJSONDepth = 10

// VideoResult is the output of the video-only profile.
type VideoResult struct {
	// URLs is the ordered, duplicate-free list of video links.
	URLs []string

	// Blocked is set when the page is an anti-automation challenge. URLs is
	// empty in that case.
	Blocked bool

	// Signals lists the challenge markers found on a blocked page.
	Signals []string
}

// Extractor runs the two extraction profiles. It holds only immutable
// configuration and is safe for concurrent use.
type Extractor struct {
	detector *Detector
	keys     map[string]struct{}
	maxDepth int
}

// New creates an Extractor from cfg; zero fields take the defaults.
func New(cfg config.ExtractorConfig) *Extractor {
	keys := cfg.StructuredDataKeys
	if len(keys) == 0 {
		keys = DefaultStructuredDataKeys
	}
	keySet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keySet[strings.ToLower(strings.TrimSpace(k))] = struct{}{}
	}

	depth := cfg.MaxJSONDepth
	if depth <= 0 {
		depth = DefaultMaxJSONDepth
	}

	return &Extractor{
		detector: NewDetector(cfg.AntiBotMarkers, cfg.AntiBotThreshold),
		keys:     keySet,
		maxDepth: depth,
	}
}

// Default returns an Extractor with the built-in heuristics.
func Default() *Extractor {
	return New(config.ExtractorConfig{})
}

// Detector returns the anti-bot detector used by the Videos profile.
func (e *Extractor) Detector() *Detector { return e.detector }

// Videos runs the video-only profile over html fetched from base.
//
// Strategy order: <video> and <source> attributes, JSON script blocks,
// literal patterns, then the compact-text fallback.
func (e *Extractor) Videos(html, base string) VideoResult {
	if signals := e.detector.Signals(html); len(signals) >= e.detector.Threshold() {
		return VideoResult{URLs: []string{}, Blocked: true, Signals: signals}
	}

	found := newURLSet()
	doc := parseDocument(html)

	// Tag attributes carry their own meaning; accept any http(s) result.
	scanAttrs(doc, videoSourceSel, []string{"src"}, func(raw string) {
		if u := Normalize(cleanCandidate(raw), base); hasHTTPScheme(u) {
			found.add(u)
		}
	})

	scanStructuredData(doc, e.keys, e.maxDepth, func(raw string) {
		if u := Normalize(cleanCandidate(raw), base); hasHTTPScheme(u) && IsPlayable(u) {
			found.add(u)
		}
	})

	fromText := func(raw string) {
		if u, ok := textCandidate(raw, base, IsPlayable); ok {
			found.add(u)
		}
	}
	findPatterns(html, videoPatterns, fromText)
	findCompact(html, func(raw string) {
		if u, ok := textCandidate(raw, base, IsPlayable); ok && IsPlayable(u) {
			found.add(u)
		}
	})

	urls := found.list
	if urls == nil {
		urls = []string{}
	}
	return VideoResult{URLs: urls}
}

// Resources runs the general-resource profile over html fetched from base.
//
// Strategy order: media tags, images, hyperlinks, JSON script blocks,
// literal patterns, the compact fallback, then a raw-text sweep for any
// http(s) URL. URLs taken from <video>, <audio> and <img> land in their
// element's bucket; everything else is classified by extension and dropped
// when the extension is unknown.
func (e *Extractor) Resources(html, base string) models.ExtractionResult {
	buckets := newBucketSet()
	doc := parseDocument(html)

	byElement := func(kind Kind) func(string) {
		return func(raw string) {
			if u := Normalize(cleanCandidate(raw), base); hasHTTPScheme(u) {
				buckets.add(kind, u)
			}
		}
	}
	scanAttrs(doc, videoSourceSel, []string{"src"}, byElement(KindVideo))
	scanAttrs(doc, audioSourceSel, []string{"src"}, byElement(KindAudio))
	scanAttrs(doc, imageSel, imageAttrs, byElement(KindImage))

	scanAttrs(doc, linkSel, []string{"href"}, func(raw string) {
		if u := Normalize(cleanCandidate(raw), base); hasHTTPScheme(u) {
			buckets.add(ClassifyLink(u, base), u)
		}
	})

	byExtension := func(raw string) {
		if u, ok := textCandidate(raw, base, isKnown); ok {
			buckets.add(Classify(u), u)
		}
	}
	scanStructuredData(doc, e.keys, e.maxDepth, byExtension)
	findPatterns(html, videoPatterns, byExtension)
	findCompact(html, byExtension)
	rawURLPattern.find(html, byExtension)

	return buckets.result()
}

// textCandidate cleans and normalizes a candidate scraped from text or
// structured data. Values that carry no host of their own are only trusted
// when the resolved URL passes accept; otherwise every key that happens to
// hold a bare word would turn into a same-site link.
func textCandidate(raw, base string, accept func(string) bool) (string, bool) {
	cleaned := cleanCandidate(raw)
	u := Normalize(cleaned, base)
	if !hasHTTPScheme(u) {
		return "", false
	}
	if !isProtocolAbsolute(cleaned) && !accept(u) {
		return "", false
	}
	return u, true
}

func isKnown(u string) bool { return Classify(u) != KindUnknown }

// ExtractVideos runs the video-only profile with the default heuristics.
func ExtractVideos(html, base string) VideoResult {
	return defaultExtractor.Videos(html, base)
}

// ExtractResources runs the general-resource profile with the default
// heuristics.
func ExtractResources(html, base string) models.ExtractionResult {
	return defaultExtractor.Resources(html, base)
}

var defaultExtractor = Default()
