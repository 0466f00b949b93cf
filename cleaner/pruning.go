package cleaner

import (
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Block scoring weights. A block is kept when its score is positive.
const (
	wTextDensity = 3.0
	wLinkDensity = -2.0
	wTag         = 1.5
	wClassID     = 1.0
	wTextLength  = 0.5
)

var (
	contentHints     = []string{"content", "detail", "description", "product", "main", "article"}
	boilerplateHints = []string{"nav", "menu", "footer", "header", "sidebar", "banner", "cookie", "popup", "modal", "recommend", "login"}
)

// noiseSelector lists elements that never carry readable text.
const noiseSelector = "script, style, noscript, template, svg, iframe"

// PruneContent keeps the top-level body blocks that look like content and
// drops navigation and chrome. With no qualifying block the whole body is
// returned.
func PruneContent(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML, err
	}
	doc.Find(noiseSelector).Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		return rawHTML, nil
	}

	var kept []string
	body.Children().Each(func(_ int, el *goquery.Selection) {
		if scoreBlock(el) <= 0 {
			return
		}
		if h, err := goquery.OuterHtml(el); err == nil {
			kept = append(kept, h)
		}
	})
	if len(kept) == 0 {
		return body.Html()
	}
	return strings.Join(kept, "\n"), nil
}

func scoreBlock(el *goquery.Selection) float64 {
	outer, err := goquery.OuterHtml(el)
	if err != nil || outer == "" {
		return 0
	}
	text := strings.TrimSpace(el.Text())
	if text == "" {
		return 0
	}

	linkText := 0
	el.Find("a").Each(func(_ int, a *goquery.Selection) {
		linkText += len(strings.TrimSpace(a.Text()))
	})

	textDensity := float64(len(text)) / float64(len(outer))
	linkDensity := float64(linkText) / float64(len(text))

	return textDensity*wTextDensity +
		linkDensity*wLinkDensity +
		tagScore(goquery.NodeName(el))*wTag +
		hintScore(el)*wClassID +
		math.Log10(float64(len(text))+1)*wTextLength
}

func tagScore(tag string) float64 {
	switch tag {
	case "article", "main", "section":
		return 5
	case "nav", "footer", "aside", "header":
		return -5
	}
	return 0
}

// hintScore looks for content or boilerplate words in class and id.
func hintScore(el *goquery.Selection) float64 {
	class, _ := el.Attr("class")
	id, _ := el.Attr("id")
	attrs := strings.ToLower(class + " " + id)

	score := 0.0
	if containsAny(attrs, contentHints) {
		score += 3
	}
	if containsAny(attrs, boilerplateHints) {
		score -= 3
	}
	return score
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// stripTags returns the visible text of an HTML fragment.
func stripTags(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.TrimSpace(doc.Text())
}
