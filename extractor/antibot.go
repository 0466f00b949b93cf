package extractor

import "strings"

// DefaultAntiBotMarkers are the substrings that mark a verification or
// punishment page served instead of the requested content.
var DefaultAntiBotMarkers = []string{
	"punish-component",
	"sufei-punish",
	"awsc.js",
	"captcha",
	"x5sec",
	"lib-windvane",
	"deny",
}

// DefaultAntiBotThreshold is the number of distinct markers that must be
// present before a page is treated as blocked.
const DefaultAntiBotThreshold = 3

// Detector recognises anti-automation challenge pages.
// A Detector is immutable and safe for concurrent use.
type Detector struct {
	markers   []string
	threshold int
}

// NewDetector creates a Detector. Empty markers or a non-positive threshold
// fall back to the defaults. Markers are matched case-insensitively and
// duplicates are counted once.
func NewDetector(markers []string, threshold int) *Detector {
	if len(markers) == 0 {
		markers = DefaultAntiBotMarkers
	}
	if threshold <= 0 {
		threshold = DefaultAntiBotThreshold
	}

	seen := make(map[string]struct{}, len(markers))
	normalized := make([]string, 0, len(markers))
	for _, m := range markers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		normalized = append(normalized, m)
	}
	return &Detector{markers: normalized, threshold: threshold}
}

// Signals returns the markers present in html, in marker order.
func (d *Detector) Signals(html string) []string {
	content := strings.ToLower(html)
	var found []string
	for _, m := range d.markers {
		if strings.Contains(content, m) {
			found = append(found, m)
		}
	}
	return found
}

// IsBlocked reports whether at least threshold distinct markers are present.
func (d *Detector) IsBlocked(html string) bool {
	return len(d.Signals(html)) >= d.threshold
}

// Threshold returns the configured marker threshold.
func (d *Detector) Threshold() int { return d.threshold }

var defaultDetector = NewDetector(nil, 0)

// IsAntiBotPage reports whether html looks like a challenge page using the
// default markers and threshold.
func IsAntiBotPage(html string) bool {
	return defaultDetector.IsBlocked(html)
}
