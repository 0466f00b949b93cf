package extractor

import "github.com/use-agent/mediagrab/models"

// CountVideoTokens counts the raw video-shaped fragments in html without
// normalizing or deduplicating them. Diagnostics use it to tell a page that
// carries no video data apart from one the extractor fails to parse.
func CountVideoTokens(html string) models.VideoTokenCounts {
	count := func(p pattern) int {
		return len(p.re.FindAllStringIndex(html, -1))
	}
	return models.VideoTokenCounts{
		VideoURL:        count(videoPatterns[1]),
		EscapedVideoURL: count(videoPatterns[8]),
		DirectMP4:       count(videoPatterns[0]),
		EscapedMP4:      count(videoPatterns[7]),
	}
}
