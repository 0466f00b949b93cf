package cleaner

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
)

// DefaultPreviewLength is the rune budget of a preview.
const DefaultPreviewLength = 500

// Summary is a readable digest of a page used by diagnostics.
type Summary struct {
	// Title is the readability title, or fallbackTitle when readability
	// found none.
	Title string

	// Preview is the start of the main content as Markdown.
	Preview string

	// Readable reports whether readability located the main content.
	Readable bool
}

// Previewer turns raw pages into short Markdown previews. It is safe for
// concurrent use.
type Previewer struct {
	conv  *converter.Converter
	limit int
}

// NewPreviewer creates a Previewer cutting previews at limit runes.
// A limit <= 0 selects DefaultPreviewLength.
func NewPreviewer(limit int) *Previewer {
	if limit <= 0 {
		limit = DefaultPreviewLength
	}
	return &Previewer{conv: newMarkdownConverter(), limit: limit}
}

// Summarize extracts the title and a preview of rawHTML.
func (p *Previewer) Summarize(rawHTML, sourceURL, fallbackTitle string) Summary {
	article, ok := ExtractContent(rawHTML, sourceURL)

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = fallbackTitle
	}

	md, err := ToMarkdown(p.conv, article.Content, sourceURL)
	if err != nil {
		slog.Debug("preview: markdown conversion failed, using plain text", "url", sourceURL, "error", err)
		md = article.TextContent
	}

	return Summary{
		Title:    title,
		Preview:  truncateRunes(strings.TrimSpace(md), p.limit),
		Readable: ok,
	}
}

// truncateRunes cuts s to at most n runes, marking the cut with "…".
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "…"
}
