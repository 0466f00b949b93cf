package extractor

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// slashEscapes unfolds \/ and the JSON unicode escape for a slash.
var slashEscapes = strings.NewReplacer(`\/`, "/", "\x5cu002F", "/", "\x5cu002f", "/")

// unicodeEscape matches a JSON-style escape of one UTF-16 unit.
var unicodeEscape = regexp.MustCompile("\x5c\x5cu([0-9a-fA-F]{4})")

// unescape decodes unicode escapes, then unfolds escaped slashes.
func unescape(v string) string {
	if strings.Contains(v, "\x5c") {
		v = unicodeEscape.ReplaceAllStringFunc(v, func(m string) string {
			n, err := strconv.ParseUint(m[2:], 16, 32)
			if err != nil {
				return m
			}
			return string(rune(n))
		})
	}
	return slashEscapes.Replace(v)
}

// Normalize turns a raw candidate into an absolute URL.
//
// Unicode escapes and escaped slashes are unfolded until the value is
// stable, protocol-relative values get an https scheme, and anything
// without an http(s) scheme is resolved against base. Normalize never fails: when resolution is
// impossible the unfolded input is returned as-is, and an empty input gives
// "". Normalize(Normalize(x, b), b) == Normalize(x, b).
func Normalize(raw, base string) string {
	v := strings.TrimSpace(raw)
	for {
		next := strings.TrimSpace(unescape(v))
		if next == v {
			break
		}
		v = next
	}
	if v == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(v, "//"):
		return "https:" + v
	case hasHTTPScheme(v):
		return v
	}
	return resolve(v, base)
}

// resolve joins a root-relative or relative reference onto base.
func resolve(ref, base string) string {
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() || b.Host == "" {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// hasHTTPScheme reports whether v starts with http:// or https://,
// ignoring case.
func hasHTTPScheme(v string) bool {
	if len(v) < len("http://") {
		return false
	}
	lower := strings.ToLower(v[:min(len(v), len("https://"))])
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// cleanCandidate undoes the HTML entity and slash escaping that templated
// pages wrap around embedded URLs.
func cleanCandidate(raw string) string {
	return strings.TrimSpace(unescape(html.UnescapeString(raw)))
}

// isProtocolAbsolute reports whether a cleaned candidate carries its own
// host, either with a scheme or protocol-relative.
func isProtocolAbsolute(v string) bool {
	return strings.HasPrefix(v, "//") || hasHTTPScheme(v)
}

// nameFor returns the display name of a resource URL.
func nameFor(u string) string {
	segment := u
	if i := strings.LastIndex(segment, "/"); i >= 0 {
		segment = segment[i+1:]
	}
	if i := strings.IndexAny(segment, "?#"); i >= 0 {
		segment = segment[:i]
	}
	if segment == "" {
		return u
	}
	return segment
}
