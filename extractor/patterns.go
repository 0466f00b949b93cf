package extractor

import (
	"regexp"
	"strings"
)

// pattern is one literal-match strategy: every match of re contributes the
// text of capture group `group` (0 for the whole match).
type pattern struct {
	re    *regexp.Regexp
	group int
}

func newPattern(expr string, group int) pattern {
	return pattern{re: regexp.MustCompile(expr), group: group}
}

// find calls emit for every match in text, in match order.
func (p pattern) find(text string, emit func(string)) {
	for _, m := range p.re.FindAllStringSubmatch(text, -1) {
		if p.group < len(m) && m[p.group] != "" {
			emit(m[p.group])
		}
	}
}

// videoPatterns are evaluated in order over the raw page text. The second
// half matches the same shapes after a JSON blob has been serialised into a
// string once more, leaving \/ and \" behind. Escaped values may keep
// their \/ separators.
var videoPatterns = []pattern{
	newPattern(`https?://[^\s"'<>]+\.(?:mp4|webm|ogg|mov)`, 0),
	newPattern(`"videoUrl"\s*:\s*"([^"]+)"`, 1),
	newPattern(`"video"\s*:\s*"([^"]+)"`, 1),
	newPattern(`"playUrl"\s*:\s*"([^"]+)"`, 1),
	newPattern(`"previewVideoUrl"\s*:\s*"([^"]+)"`, 1),
	newPattern(`"mediaUrl"\s*:\s*"([^"]+)"`, 1),
	newPattern(`src=['"](https?://[^'"]+\.(?:mp4|webm|ogg|mov))['"]`, 1),
	newPattern(`https?:\\/\\/[^\s"'<>]+\.(?:mp4|webm|ogg|mov)`, 0),
	newPattern(`\\"videoUrl\\"\s*:\s*\\"((?:[^\\"]|\\/)+)\\"`, 1),
	newPattern(`\\"playUrl\\"\s*:\s*\\"((?:[^\\"]|\\/)+)\\"`, 1),
	newPattern(`\\"previewVideoUrl\\"\s*:\s*\\"((?:[^\\"]|\\/)+)\\"`, 1),
	newPattern(`\\"mediaUrl\\"\s*:\s*\\"((?:[^\\"]|\\/)+)\\"`, 1),
}

// compactKeys are the keys looked up once quotes have been encoded as
// unicode escapes by a template engine.
var compactKeys = []string{"videoUrl", "playUrl", "previewVideoUrl", "mediaUrl"}

// compactPatterns match key":"value" for each compact key.
var compactPatterns = func() []pattern {
	out := make([]pattern, 0, len(compactKeys))
	for _, k := range compactKeys {
		out = append(out, newPattern(regexp.QuoteMeta(k)+`\x5cu0022\s*:\s*\x5cu0022(.+?)\x5cu0022`, 1))
	}
	return out
}()

// escapedQuote is a double quote written as a JSON unicode escape.
const escapedQuote = "\x5cu0022"

// escapedNewline is the two-character sequence backslash-n left behind
// when multi-line text has been JSON encoded.
const escapedNewline = `\n`

// findCompact collapses escaped newlines and runs the compact patterns.
func findCompact(text string, emit func(string)) {
	if !strings.Contains(text, escapedQuote) {
		return
	}
	compact := strings.ReplaceAll(text, escapedNewline, " ")
	for _, p := range compactPatterns {
		p.find(compact, emit)
	}
}

// rawURLPattern is the catch-all used by the general-resource profile.
var rawURLPattern = newPattern(`https?://[^\s"'<>]+`, 0)
