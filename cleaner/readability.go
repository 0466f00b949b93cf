package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the TextContent length below which the readability
// result is treated as a miss.
const minContentLength = 50

// ExtractContent runs Mozilla Readability on rawHTML. When readability
// fails or finds too little text, the pruned body stands in for Content and
// ok is false. Title is kept from readability whenever it produced one.
func ExtractContent(rawHTML string, sourceURL string) (article readability.Article, ok bool) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Warn("readability: invalid source URL", "url", sourceURL, "error", err)
		return prunedArticle(rawHTML, ""), false
	}

	article, err = readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability: extraction failed", "url", sourceURL, "error", err)
		return prunedArticle(rawHTML, ""), false
	}

	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		slog.Debug("readability: content too short, using pruned body",
			"url", sourceURL, "length", len(article.TextContent))
		return prunedArticle(rawHTML, article.Title), false
	}
	return article, true
}

func prunedArticle(rawHTML, title string) readability.Article {
	content, err := PruneContent(rawHTML)
	if err != nil {
		content = rawHTML
	}
	return readability.Article{
		Title:       title,
		Content:     content,
		TextContent: stripTags(content),
	}
}
