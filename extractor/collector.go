package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/tidwall/gjson"
	"github.com/use-agent/mediagrab/models"
)

// Selectors are compiled once; cascadia matchers are immutable.
var (
	videoSourceSel    = cascadia.MustCompile("video[src], video source[src]")
	audioSourceSel    = cascadia.MustCompile("audio[src], audio source[src]")
	imageSel          = cascadia.MustCompile("img")
	linkSel           = cascadia.MustCompile("a[href]")
	structuredDataSel = cascadia.MustCompile(`script[type="application/json"], script[type="application/ld+json"]`)
)

// imageAttrs are read in order from every <img>; lazy loaders keep the real
// source in data-* attributes.
var imageAttrs = []string{"src", "data-src", "data-original"}

// urlSet is an insertion-ordered set of normalized URLs. It is the single
// place where duplicates are dropped.
type urlSet struct {
	seen map[string]struct{}
	list []string
}

func newURLSet() *urlSet {
	return &urlSet{seen: make(map[string]struct{})}
}

// add appends u unless it is already present.
func (s *urlSet) add(u string) bool {
	if _, dup := s.seen[u]; dup {
		return false
	}
	s.seen[u] = struct{}{}
	s.list = append(s.list, u)
	return true
}

// bucketSet holds the five general-profile buckets, each deduplicated on
// its own.
type bucketSet struct {
	sets map[Kind]*urlSet
}

func newBucketSet() *bucketSet {
	return &bucketSet{sets: map[Kind]*urlSet{
		KindVideo:    newURLSet(),
		KindImage:    newURLSet(),
		KindAudio:    newURLSet(),
		KindDocument: newURLSet(),
		KindFolder:   newURLSet(),
	}}
}

func (b *bucketSet) add(kind Kind, u string) {
	if s, ok := b.sets[kind]; ok {
		s.add(u)
	}
}

func (b *bucketSet) result() models.ExtractionResult {
	res := models.NewExtractionResult()
	res.Videos = entries(b.sets[KindVideo].list)
	res.Images = entries(b.sets[KindImage].list)
	res.Audios = entries(b.sets[KindAudio].list)
	res.Files = entries(b.sets[KindDocument].list)
	res.Folders = entries(b.sets[KindFolder].list)
	return res
}

func entries(urls []string) []models.ResourceEntry {
	out := make([]models.ResourceEntry, 0, len(urls))
	for _, u := range urls {
		out = append(out, models.ResourceEntry{URL: u, Name: nameFor(u)})
	}
	return out
}

// parseDocument parses html for the DOM strategies. A nil document means
// the DOM strategies are skipped; the text strategies still run.
func parseDocument(html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil || len(doc.Nodes) == 0 {
		return nil
	}
	return doc
}

// scanAttrs emits the given attributes of every node matched by sel, in
// document order.
func scanAttrs(doc *goquery.Document, sel cascadia.Matcher, attrs []string, emit func(string)) {
	if doc == nil {
		return
	}
	nodes := cascadia.QueryAll(doc.Nodes[0], sel)
	doc.FindNodes(nodes...).Each(func(_ int, s *goquery.Selection) {
		for _, a := range attrs {
			if v, ok := s.Attr(a); ok && strings.TrimSpace(v) != "" {
				emit(v)
			}
		}
	})
}

// scanStructuredData walks every JSON script payload and emits string
// values stored under one of keys.
func scanStructuredData(doc *goquery.Document, keys map[string]struct{}, maxDepth int, emit func(string)) {
	if doc == nil {
		return
	}
	nodes := cascadia.QueryAll(doc.Nodes[0], structuredDataSel)
	doc.FindNodes(nodes...).Each(func(_ int, s *goquery.Selection) {
		walkJSON(s.Text(), keys, maxDepth, emit)
	})
}

// jsonFrame is one pending value of the structured-data walk.
type jsonFrame struct {
	key   string
	keyed bool // value sits directly under an object key
	value gjson.Result
	depth int
}

// walkJSON visits payload depth-first in document order using an explicit
// stack. Containers deeper than maxDepth are not expanded. Invalid payloads
// are ignored.
func walkJSON(payload string, keys map[string]struct{}, maxDepth int, emit func(string)) {
	payload = strings.TrimSpace(payload)
	if payload == "" || !gjson.Valid(payload) {
		return
	}

	stack := []jsonFrame{{value: gjson.Parse(payload)}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.value.Type == gjson.String {
			if f.keyed {
				if _, ok := keys[strings.ToLower(f.key)]; ok {
					emit(f.value.Str)
				}
			}
			continue
		}
		if !f.value.IsObject() && !f.value.IsArray() {
			continue
		}
		if f.depth > maxDepth {
			continue
		}

		var children []jsonFrame
		isObject := f.value.IsObject()
		f.value.ForEach(func(k, v gjson.Result) bool {
			children = append(children, jsonFrame{
				key:   k.String(),
				keyed: isObject,
				value: v,
				depth: f.depth + 1,
			})
			return true
		})
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// findPatterns runs each descriptor over text in order.
func findPatterns(text string, patterns []pattern, emit func(string)) {
	for _, p := range patterns {
		p.find(text, emit)
	}
}
