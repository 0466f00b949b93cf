package extractor

import (
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/use-agent/mediagrab/config"
	"github.com/use-agent/mediagrab/models"
)

func TestVideos_RelativeVideoTag(t *testing.T) {
	html := `<html><body><video src="/media/a.mp4"></video></body></html>`
	res := ExtractVideos(html, testBase)

	want := []string{"https://shop.example.com/media/a.mp4"}
	if res.Blocked {
		t.Fatal("page should not be reported as blocked")
	}
	if !reflect.DeepEqual(res.URLs, want) {
		t.Errorf("URLs = %v, want %v", res.URLs, want)
	}
}

func TestVideos_EscapedVideoURLOnce(t *testing.T) {
	html := `<script>window.__data = {"videoUrl":"https:\/\/cdn.x.com\/b.mp4"};</script>`
	res := ExtractVideos(html, testBase)

	want := []string{"https://cdn.x.com/b.mp4"}
	if !reflect.DeepEqual(res.URLs, want) {
		t.Errorf("URLs = %v, want %v", res.URLs, want)
	}
}

func TestVideos_UnicodeEscapesDecoded(t *testing.T) {
	html := `{"videoUrl":"https://cdn.x.com/v.mp4?auth=1` + "\x5cu0026" + `t=2"}`
	res := ExtractVideos(html, testBase)

	signed := "https://cdn.x.com/v.mp4?auth=1&t=2"
	found := false
	for _, u := range res.URLs {
		if strings.Contains(u, "\x5c") {
			t.Errorf("escape sequence left in %q", u)
		}
		if u == signed {
			found = true
		}
	}
	if !found {
		t.Errorf("URLs = %v, want %q among them", res.URLs, signed)
	}
}

func TestVideos_Blocked(t *testing.T) {
	html := `<div id="punish-component"><script src="awsc.js"></script>captcha x5sec</div>
<video src="https://cdn.x.com/a.mp4"></video>`
	res := ExtractVideos(html, testBase)

	if !res.Blocked {
		t.Fatal("expected blocked result")
	}
	if len(res.URLs) != 0 {
		t.Errorf("blocked result must not carry URLs, got %v", res.URLs)
	}
	if len(res.Signals) != 4 {
		t.Errorf("Signals = %v, want 4 markers", res.Signals)
	}
}

func TestVideos_StrategyOrder(t *testing.T) {
	html := `<html><body>
<p>inline https://cdn.x.com/text.mp4 link</p>
<video src="https://cdn.x.com/tag.mp4"><source src="/source.webm"></video>
<script type="application/json">{"item":{"media":[{"videoUrl":"https://cdn.x.com/json.mov"},{"url":"https://cdn.x.com/not-video.jpg"}]}}</script>
</body></html>`
	res := ExtractVideos(html, testBase)

	want := []string{
		"https://cdn.x.com/tag.mp4",
		"https://shop.example.com/source.webm",
		"https://cdn.x.com/json.mov",
		"https://cdn.x.com/text.mp4",
	}
	if !reflect.DeepEqual(res.URLs, want) {
		t.Errorf("URLs = %v, want %v", res.URLs, want)
	}
}

func TestVideos_NoDuplicates(t *testing.T) {
	html := `<video src="https://cdn.x.com/a.mp4"></video>
<video><source src="//cdn.x.com/a.mp4"></video>
<script>{"playUrl":"https://cdn.x.com/a.mp4","mediaUrl":"https:\/\/cdn.x.com\/a.mp4"}</script>
<a href='x' src='https://cdn.x.com/a.mp4'></a>`
	res := ExtractVideos(html, testBase)

	if len(res.URLs) != 1 || res.URLs[0] != "https://cdn.x.com/a.mp4" {
		t.Errorf("URLs = %v, want exactly one entry", res.URLs)
	}
}

func TestVideos_BareKeyValueIgnored(t *testing.T) {
	html := `<script>{"video":"true","playUrl":"/media/clip.mp4"}</script>`
	res := ExtractVideos(html, testBase)

	want := []string{"https://shop.example.com/media/clip.mp4"}
	if !reflect.DeepEqual(res.URLs, want) {
		t.Errorf("URLs = %v, want %v", res.URLs, want)
	}
}

func TestVideos_DoublyEscapedKeys(t *testing.T) {
	html := `<div data-state="{\"previewVideoUrl\":\"https:\/\/cdn.x.com\/p.mp4\",\"mediaUrl\":\"https:\/\/cdn.x.com\/live.m3u8\"}"></div>`
	res := ExtractVideos(html, testBase)

	want := []string{"https://cdn.x.com/p.mp4", "https://cdn.x.com/live.m3u8"}
	if !reflect.DeepEqual(res.URLs, want) {
		t.Errorf("URLs = %v, want %v", res.URLs, want)
	}
}

func TestVideos_CompactFallback(t *testing.T) {
	q, s := "\x5cu0022", "\x5cu002F"
	html := `<script>var tpl = "{` + q + `title` + q + `:` + q + `line\nbreak` + q + `,` +
		q + `videoUrl` + q + `:` + q + `https:` + s + s + `cdn.x.com` + s + `c.webm` + q + `,` +
		q + `playUrl` + q + `:` + q + `https:` + s + s + `cdn.x.com` + s + `no-ext` + q + `}";</script>`
	res := ExtractVideos(html, testBase)

	want := []string{"https://cdn.x.com/c.webm"}
	if !reflect.DeepEqual(res.URLs, want) {
		t.Errorf("URLs = %v, want %v", res.URLs, want)
	}
}

func TestVideos_MalformedJSONSkipped(t *testing.T) {
	html := `<script type="application/json">{"videoUrl": "https://cdn.x.com/a.mp4",</script>
<video src="https://cdn.x.com/b.mp4"></video>`
	res := ExtractVideos(html, testBase)

	// The broken payload is still visible to the literal patterns.
	want := []string{"https://cdn.x.com/b.mp4", "https://cdn.x.com/a.mp4"}
	if !reflect.DeepEqual(res.URLs, want) {
		t.Errorf("URLs = %v, want %v", res.URLs, want)
	}
}

func TestVideos_EmptyIsNotNil(t *testing.T) {
	res := ExtractVideos("<html><body>nothing here</body></html>", testBase)
	if res.URLs == nil || len(res.URLs) != 0 || res.Blocked {
		t.Errorf("got %+v, want empty non-nil URLs", res)
	}
}

func TestWalkJSON_DepthCap(t *testing.T) {
	keys := map[string]struct{}{"url": {}}

	nest := func(levels int) string {
		return strings.Repeat(`{"a":`, levels) + `{"url":"https://x.com/deep.mp4"}` + strings.Repeat("}", levels)
	}

	var got []string
	walkJSON(nest(10), keys, 10, func(s string) { got = append(got, s) })
	if len(got) != 1 {
		t.Errorf("value inside container at depth 10 should be emitted, got %v", got)
	}

	got = nil
	walkJSON(nest(11), keys, 10, func(s string) { got = append(got, s) })
	if len(got) != 0 {
		t.Errorf("value below the depth cap should not be emitted, got %v", got)
	}
}

func TestWalkJSON_OrderAndKeys(t *testing.T) {
	keys := map[string]struct{}{"src": {}, "videourl": {}}
	payload := `[{"SRC":"one"},{"nested":{"VideoUrl":"two","src":3}},"three",{"src":"four"}]`

	var got []string
	walkJSON(payload, keys, 10, func(s string) { got = append(got, s) })

	want := []string{"one", "two", "four"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("walkJSON = %v, want %v", got, want)
	}
}

func TestResources_Buckets(t *testing.T) {
	html := `<html><body>
<video src="/v/intro"></video>
<audio><source src="/a/theme.mp3"></audio>
<img src="//cdn.x.com/i.jpg" data-src="/lazy/big.png">
<a href="/docs/manual.pdf?x=1">manual</a>
<a href="/downloads/">downloads</a>
<a href="https://other.example.com/shared/">elsewhere</a>
<a href="/p/2">next product</a>
<p>mirror: https://cdn.x.com/pack.zip and https://cdn.x.com/song.wav</p>
</body></html>`
	res := ExtractResources(html, testBase)

	check := func(name string, got []models.ResourceEntry, want ...string) {
		t.Helper()
		urls := make([]string, 0, len(got))
		for _, e := range got {
			urls = append(urls, e.URL)
		}
		if len(want) == 0 {
			want = []string{}
		}
		if !reflect.DeepEqual(urls, want) {
			t.Errorf("%s = %v, want %v", name, urls, want)
		}
	}

	check("videos", res.Videos, "https://shop.example.com/v/intro")
	check("audios", res.Audios, "https://shop.example.com/a/theme.mp3", "https://cdn.x.com/song.wav")
	check("images", res.Images, "https://cdn.x.com/i.jpg", "https://shop.example.com/lazy/big.png")
	check("files", res.Files, "https://shop.example.com/docs/manual.pdf?x=1", "https://cdn.x.com/pack.zip")
	check("folders", res.Folders, "https://shop.example.com/downloads/")
}

func TestResources_UnicodeEscapesDecoded(t *testing.T) {
	html := `<script>var d = {"videoUrl":"https://cdn.x.com/v.mp4?auth=1` + "\x5cu0026" + `t=2"};</script>`
	res := ExtractResources(html, testBase)

	signed := "https://cdn.x.com/v.mp4?auth=1&t=2"
	found := false
	for _, e := range res.Videos {
		if strings.Contains(e.URL, "\x5c") {
			t.Errorf("escape sequence left in %q", e.URL)
		}
		if e.URL == signed {
			found = true
		}
	}
	if !found {
		t.Errorf("Videos = %+v, want %q among them", res.Videos, signed)
	}
}

func TestResources_EntryNames(t *testing.T) {
	res := ExtractResources(`<a href="/docs/manual.pdf?x=1">m</a><a href="/downloads/">d</a>`, testBase)

	if len(res.Files) != 1 || res.Files[0].Name != "manual.pdf" {
		t.Errorf("Files = %+v, want name manual.pdf", res.Files)
	}
	if len(res.Folders) != 1 || res.Folders[0].Name != res.Folders[0].URL {
		t.Errorf("Folders = %+v, want name equal to URL", res.Folders)
	}
}

func TestResources_ProtocolRelativeImage(t *testing.T) {
	res := ExtractResources(`<img src="//cdn.x.com/i.jpg">`, testBase)

	want := []models.ResourceEntry{{URL: "https://cdn.x.com/i.jpg", Name: "i.jpg"}}
	if !reflect.DeepEqual(res.Images, want) {
		t.Errorf("Images = %+v, want %+v", res.Images, want)
	}
	if res.Total() != 1 {
		t.Errorf("Total() = %d, want 1", res.Total())
	}
}

func TestResources_EmptyBucketsNotNil(t *testing.T) {
	res := ExtractResources("", testBase)
	if res.Videos == nil || res.Images == nil || res.Audios == nil || res.Files == nil || res.Folders == nil {
		t.Errorf("empty buckets must be non-nil: %+v", res)
	}
}

func TestResources_UnknownExtensionDropped(t *testing.T) {
	res := ExtractResources(`<a href="https://other.example.com/page">x</a> https://cdn.x.com/readme`, testBase)
	if res.Total() != 0 {
		t.Errorf("expected no resources, got %+v", res)
	}
}

func TestNew_CustomConfig(t *testing.T) {
	e := New(config.ExtractorConfig{
		AntiBotMarkers:     []string{"halt"},
		AntiBotThreshold:   1,
		StructuredDataKeys: []string{"clip"},
	})

	if !e.Videos("<p>halt</p>", testBase).Blocked {
		t.Error("custom marker should block")
	}

	html := `<script type="application/json">{"clip":"/c.mp4","url":"/u.mp4"}</script>`
	res := e.Videos(html, testBase)
	want := []string{"https://shop.example.com/c.mp4"}
	if !reflect.DeepEqual(res.URLs, want) {
		t.Errorf("URLs = %v, want %v", res.URLs, want)
	}
}

func TestExtractor_ConcurrentUse(t *testing.T) {
	html := `<video src="/media/a.mp4"></video><img src="/i.png">`
	e := Default()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v := e.Videos(html, testBase); len(v.URLs) != 1 {
				t.Errorf("Videos = %v", v.URLs)
			}
			if r := e.Resources(html, testBase); len(r.Images) != 1 {
				t.Errorf("Images = %v", r.Images)
			}
		}()
	}
	wg.Wait()
}
