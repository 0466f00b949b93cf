package scraper

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/use-agent/mediagrab/config"
	"github.com/use-agent/mediagrab/engine"
	"github.com/use-agent/mediagrab/models"
)

const challengePage = `<html><head><title>Verify</title><script src="//g.alicdn.com/AWSC/awsc.js"></script></head>
<body><div id="punish-component"></div><div class="captcha">slide to verify</div><script>var x5sec = 1;</script></body></html>`

func newTestScraper(t *testing.T, warmups ...string) *Scraper {
	t.Helper()
	jar := engine.NewSessionJar()
	primary := engine.NewHTTPEngine(engine.HTTPOptions{Jar: jar})
	d := engine.NewDispatcher([]engine.Engine{primary}, nil, engine.NewDomainMemory(time.Hour))
	s := New(Options{
		Dispatcher: d,
		Warmup:     primary,
		Fetch: config.FetchConfig{
			Timeout:       5 * time.Second,
			WarmupURLs:    warmups,
			WarmupTimeout: time.Second,
		},
	})
	t.Cleanup(s.Close)
	return s
}

func servePage(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, body)
	}
}

func TestScraper_ScrapeVideos_Found(t *testing.T) {
	srv := httptest.NewServer(servePage(`<html><head><title>Smart Watch</title></head>
<body><video src="/v/a.mp4"></video><script>var d = {"videoUrl":"https://cloud.video.example.com/b.mp4"};</script></body></html>`))
	defer srv.Close()

	s := newTestScraper(t)
	resp, err := s.ScrapeVideos(context.Background(), &models.ScrapeRequest{URL: srv.URL + "/p/1.html", Timeout: 5})
	if err != nil {
		t.Fatalf("ScrapeVideos: %v", err)
	}

	want := []string{srv.URL + "/v/a.mp4", "https://cloud.video.example.com/b.mp4"}
	if !reflect.DeepEqual(resp.Videos, want) {
		t.Errorf("Videos = %v, want %v", resp.Videos, want)
	}
	if resp.Count != 2 || resp.Source != SourceVideo {
		t.Errorf("Count = %d, Source = %q", resp.Count, resp.Source)
	}
	if resp.PageTitle != "Smart Watch" {
		t.Errorf("PageTitle = %q", resp.PageTitle)
	}
	if !resp.Success || resp.Blocked || resp.Tips != nil {
		t.Errorf("unexpected flags: %+v", resp)
	}
	if resp.EngineUsed != "http" {
		t.Errorf("EngineUsed = %q", resp.EngineUsed)
	}
}

func TestScraper_ScrapeVideos_FallsBackToResources(t *testing.T) {
	srv := httptest.NewServer(servePage(`<html><body><a href="/files/demo.webm">demo</a></body></html>`))
	defer srv.Close()

	s := newTestScraper(t)
	resp, err := s.ScrapeVideos(context.Background(), &models.ScrapeRequest{URL: srv.URL + "/p", Timeout: 5})
	if err != nil {
		t.Fatalf("ScrapeVideos: %v", err)
	}
	if want := []string{srv.URL + "/files/demo.webm"}; !reflect.DeepEqual(resp.Videos, want) {
		t.Errorf("Videos = %v, want %v", resp.Videos, want)
	}
	if resp.Source != SourceResources {
		t.Errorf("Source = %q, want %q", resp.Source, SourceResources)
	}
}

func TestScraper_ScrapeVideos_NothingFound(t *testing.T) {
	srv := httptest.NewServer(servePage(`<html><head><title>Shop</title></head><body><p>no media</p></body></html>`))
	defer srv.Close()

	s := newTestScraper(t)
	resp, err := s.ScrapeVideos(context.Background(), &models.ScrapeRequest{URL: srv.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("ScrapeVideos: %v", err)
	}
	if !resp.Success || resp.Count != 0 || len(resp.Videos) != 0 || resp.Videos == nil {
		t.Errorf("unexpected result: %+v", resp)
	}
	if !reflect.DeepEqual(resp.Tips, NoVideoTips) {
		t.Errorf("Tips = %v", resp.Tips)
	}
	if resp.PageTitle != "Shop" {
		t.Errorf("PageTitle = %q", resp.PageTitle)
	}
}

func TestScraper_Fetch_WarmupUnblocks(t *testing.T) {
	var warmHits int
	mux := http.NewServeMux()
	mux.HandleFunc("/warm", func(w http.ResponseWriter, r *http.Request) {
		warmHits++
		http.SetCookie(w, &http.Cookie{Name: "cna", Value: "ok", Path: "/"})
		io.WriteString(w, "<html></html>")
	})
	mux.HandleFunc("/product", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if c, err := r.Cookie("cna"); err == nil && c.Value == "ok" {
			io.WriteString(w, `<html><title>Drone</title><video src="https://v.example.com/drone.mp4"></video></html>`)
			return
		}
		io.WriteString(w, challengePage)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := newTestScraper(t, srv.URL+"/warm")
	resp, err := s.ScrapeVideos(context.Background(), &models.ScrapeRequest{URL: srv.URL + "/product", Timeout: 5})
	if err != nil {
		t.Fatalf("ScrapeVideos: %v", err)
	}
	if warmHits != 1 {
		t.Errorf("warm-up hits = %d, want 1", warmHits)
	}
	if resp.Blocked {
		t.Fatalf("still blocked: %+v", resp)
	}
	if want := []string{"https://v.example.com/drone.mp4"}; !reflect.DeepEqual(resp.Videos, want) {
		t.Errorf("Videos = %v, want %v", resp.Videos, want)
	}
}

func TestScraper_ScrapeVideos_StillBlocked(t *testing.T) {
	var pageHits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/product" {
			pageHits++
		}
		servePage(challengePage)(w, r)
	}))
	defer srv.Close()

	s := newTestScraper(t, srv.URL+"/")
	resp, err := s.ScrapeVideos(context.Background(), &models.ScrapeRequest{URL: srv.URL + "/product", Timeout: 5})
	if err != nil {
		t.Fatalf("ScrapeVideos: %v", err)
	}
	if pageHits != 2 {
		t.Errorf("page hits = %d, want 2 (one retry)", pageHits)
	}
	if !resp.Success || !resp.Blocked {
		t.Fatalf("Success = %v, Blocked = %v", resp.Success, resp.Blocked)
	}
	wantSignals := []string{"punish-component", "awsc.js", "captcha", "x5sec"}
	if !reflect.DeepEqual(resp.Signals, wantSignals) {
		t.Errorf("Signals = %v, want %v", resp.Signals, wantSignals)
	}
	if resp.Error == nil || resp.Error.Code != models.ErrCodeBlocked {
		t.Errorf("Error = %+v", resp.Error)
	}
	if resp.Count != 0 || resp.Videos == nil {
		t.Errorf("Videos = %#v", resp.Videos)
	}
}

func TestScraper_Fetch_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	s := newTestScraper(t)
	_, err := s.ScrapeVideos(context.Background(), &models.ScrapeRequest{URL: srv.URL, Timeout: 5})

	var se *models.ScrapeError
	if !errors.As(err, &se) || se.Code != models.ErrCodeFetch {
		t.Fatalf("err = %v, want FETCH_FAILED", err)
	}
	if !errors.Is(err, engine.ErrUnexpectedResponse) {
		t.Errorf("err does not wrap ErrUnexpectedResponse: %v", err)
	}
}

func TestScraper_ExtractResources(t *testing.T) {
	srv := httptest.NewServer(servePage(`<html><body>
<video src="/v/a.mp4"></video>
<img src="/img/1.jpg"><img data-src="//cdn.example.com/2.png">
<a href="/docs/manual.pdf">manual</a>
<a href="/downloads/">more</a>
</body></html>`))
	defer srv.Close()

	s := newTestScraper(t)
	resp, err := s.ExtractResources(context.Background(), &models.ExtractRequest{
		ScrapeRequest: models.ScrapeRequest{URL: srv.URL + "/p/1", Timeout: 5},
	})
	if err != nil {
		t.Fatalf("ExtractResources: %v", err)
	}

	want := models.ResourceCounts{Videos: 1, Images: 2, Audios: 0, Files: 1, Folders: 1}
	if resp.Counts != want {
		t.Errorf("Counts = %+v, want %+v", resp.Counts, want)
	}
	if resp.Total != 5 {
		t.Errorf("Total = %d, want 5", resp.Total)
	}
	if got := resp.Resources.Images[1].URL; got != "https://cdn.example.com/2.png" {
		t.Errorf("protocol-relative image = %q", got)
	}
}

func TestScraper_Diagnose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Server", "Tengine")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"videoUrl":"https://v.example.com/a.mp4"}`)
	}))
	defer srv.Close()

	s := newTestScraper(t)
	resp, err := s.Diagnose(context.Background(), &models.DiagRequest{URL: srv.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	if resp.ContentType != "application/json" || resp.Server != "Tengine" {
		t.Errorf("ContentType = %q, Server = %q", resp.ContentType, resp.Server)
	}
	if resp.HTMLLength != len(`{"videoUrl":"https://v.example.com/a.mp4"}`) {
		t.Errorf("HTMLLength = %d", resp.HTMLLength)
	}
	want := models.VideoTokenCounts{VideoURL: 1, DirectMP4: 1}
	if resp.VideoTokens != want {
		t.Errorf("VideoTokens = %+v, want %+v", resp.VideoTokens, want)
	}
	if resp.Blocked {
		t.Error("Blocked = true")
	}
}

func TestIsCertError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unknown authority", fmt.Errorf("do request: %w", x509.UnknownAuthorityError{}), true},
		{"hostname", x509.HostnameError{Host: "a.com", Certificate: &x509.Certificate{}}, true},
		{"browser", errors.New("navigation failed: net::ERR_CERT_AUTHORITY_INVALID"), true},
		{"refused", errors.New("dial tcp: connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isCertError(tt.err); got != tt.want {
				t.Errorf("isCertError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFetchError_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	se := fetchError(ctx, errors.New("read: i/o timeout"))
	if se.Code != models.ErrCodeTimeout {
		t.Errorf("Code = %q, want %q", se.Code, models.ErrCodeTimeout)
	}

	wrapped := models.NewScrapeError(models.ErrCodeBrowserCrash, "tab died", nil)
	if got := fetchError(context.Background(), wrapped); got != wrapped {
		t.Errorf("fetchError rewrapped an existing ScrapeError")
	}
}

// stubEngine returns a fixed page or error and counts its calls.
type stubEngine struct {
	name  string
	html  string
	err   error
	calls int
}

func (e *stubEngine) Name() string { return e.name }

func (e *stubEngine) Fetch(_ context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return &engine.FetchResult{HTML: e.html, StatusCode: 200, FinalURL: req.URL, EngineName: e.name}, nil
}

func TestScraper_Fetch_CertFallback(t *testing.T) {
	certErr := fmt.Errorf("http: do request: %w", x509.UnknownAuthorityError{})
	primary := &stubEngine{name: "http", err: certErr}
	insecure := &stubEngine{name: "http-insecure", html: `<video src="https://cdn.x.com/a.mp4"></video>`}

	mem := engine.NewDomainMemory(time.Hour)
	s := New(Options{
		Dispatcher: engine.NewDispatcher([]engine.Engine{primary}, nil, mem),
		Insecure:   insecure,
	})
	t.Cleanup(s.Close)

	resp, err := s.ScrapeVideos(context.Background(), &models.ScrapeRequest{URL: "https://self-signed.example.com/p/1", Timeout: 5})
	if err != nil {
		t.Fatalf("ScrapeVideos: %v", err)
	}
	if resp.EngineUsed != "http-insecure" {
		t.Errorf("EngineUsed = %q, want http-insecure", resp.EngineUsed)
	}
	if !reflect.DeepEqual(resp.Videos, []string{"https://cdn.x.com/a.mp4"}) {
		t.Errorf("Videos = %v", resp.Videos)
	}
	if primary.calls != 1 || insecure.calls != 1 {
		t.Errorf("calls: primary = %d, insecure = %d, want 1 and 1", primary.calls, insecure.calls)
	}
}

func TestScraper_Fetch_CertErrorWithoutFallback(t *testing.T) {
	primary := &stubEngine{name: "http", err: fmt.Errorf("http: do request: %w", x509.UnknownAuthorityError{})}

	mem := engine.NewDomainMemory(time.Hour)
	s := New(Options{Dispatcher: engine.NewDispatcher([]engine.Engine{primary}, nil, mem)})
	t.Cleanup(s.Close)

	_, err := s.Fetch(context.Background(), &engine.FetchRequest{URL: "https://self-signed.example.com/p/1"})
	var se *models.ScrapeError
	if !errors.As(err, &se) || se.Code != models.ErrCodeFetch {
		t.Fatalf("err = %v, want %s", err, models.ErrCodeFetch)
	}
}

func TestScraper_Fetch_NonCertErrorNotRetried(t *testing.T) {
	primary := &stubEngine{name: "http", err: errors.New("dial tcp: connection refused")}
	insecure := &stubEngine{name: "http-insecure", html: "<html></html>"}

	mem := engine.NewDomainMemory(time.Hour)
	s := New(Options{
		Dispatcher: engine.NewDispatcher([]engine.Engine{primary}, nil, mem),
		Insecure:   insecure,
	})
	t.Cleanup(s.Close)

	if _, err := s.Fetch(context.Background(), &engine.FetchRequest{URL: "https://down.example.com/"}); err == nil {
		t.Fatal("expected an error")
	}
	if insecure.calls != 0 {
		t.Errorf("insecure engine called %d times, want 0", insecure.calls)
	}
}
