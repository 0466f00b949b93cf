package engine

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
)

const productPage = `<html><head><title> Sunglasses 2024 </title></head><body><video src="/v.mp4"></video></body></html>`

func TestHTTPEngine_Fetch_FollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/product", http.StatusFound)
	})
	mux.HandleFunc("/product", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Server", "Tengine")
		io.WriteString(w, productPage)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := NewHTTPEngine(HTTPOptions{})
	res, err := e.Fetch(context.Background(), &FetchRequest{URL: srv.URL + "/old", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.FinalURL != srv.URL+"/product" {
		t.Errorf("FinalURL = %q", res.FinalURL)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", res.StatusCode)
	}
	if res.Title != "Sunglasses 2024" {
		t.Errorf("Title = %q", res.Title)
	}
	if res.Header.Get("Server") != "Tengine" {
		t.Errorf("Server header = %q", res.Header.Get("Server"))
	}
	if res.EngineName != "http" {
		t.Errorf("EngineName = %q", res.EngineName)
	}
}

func TestHTTPEngine_Fetch_SendsHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		io.WriteString(w, "<html></html>")
	}))
	defer srv.Close()

	e := NewHTTPEngine(HTTPOptions{
		UserAgent:      "test-agent",
		AcceptLanguage: "zh-CN,zh;q=0.9,en;q=0.8",
		Referer:        "https://www.alibaba.com/",
	})
	_, err := e.Fetch(context.Background(), &FetchRequest{
		URL:     srv.URL,
		Headers: map[string]string{"X-Trace": "abc"},
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	want := map[string]string{
		"User-Agent":      "test-agent",
		"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
		"Referer":         "https://www.alibaba.com/",
		"X-Trace":         "abc",
	}
	for k, v := range want {
		if got.Get(k) != v {
			t.Errorf("header %s = %q, want %q", k, got.Get(k), v)
		}
	}
}

func TestHTTPEngine_Fetch_DecodesBody(t *testing.T) {
	tests := []struct {
		name     string
		encoding string
		encode   func(w io.Writer) io.WriteCloser
	}{
		{"gzip", "gzip", func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) }},
		{"brotli", "br", func(w io.Writer) io.WriteCloser { return brotli.NewWriter(w) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			zw := tt.encode(&buf)
			io.WriteString(zw, productPage)
			zw.Close()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.Header().Set("Content-Encoding", tt.encoding)
				w.Write(buf.Bytes())
			}))
			defer srv.Close()

			res, err := NewHTTPEngine(HTTPOptions{}).Fetch(context.Background(), &FetchRequest{URL: srv.URL})
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if res.HTML != productPage {
				t.Errorf("HTML = %q", res.HTML)
			}
		})
	}
}

func TestHTTPEngine_Fetch_RejectsUnexpected(t *testing.T) {
	tests := []struct {
		name   string
		status int
		ct     string
	}{
		{"not found", http.StatusNotFound, "text/html"},
		{"json body", http.StatusOK, "application/json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.ct)
				w.WriteHeader(tt.status)
				io.WriteString(w, "{}")
			}))
			defer srv.Close()

			e := NewHTTPEngine(HTTPOptions{})
			_, err := e.Fetch(context.Background(), &FetchRequest{URL: srv.URL})
			if !errors.Is(err, ErrUnexpectedResponse) {
				t.Fatalf("err = %v, want ErrUnexpectedResponse", err)
			}

			res, err := e.Fetch(context.Background(), &FetchRequest{URL: srv.URL, Raw: true})
			if err != nil {
				t.Fatalf("raw Fetch: %v", err)
			}
			if res.StatusCode != tt.status || res.HTML != "{}" {
				t.Errorf("raw result = %d %q", res.StatusCode, res.HTML)
			}
		})
	}
}

func TestHTTPEngine_Fetch_BodyCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, strings.Repeat("a", 100))
	}))
	defer srv.Close()

	res, err := NewHTTPEngine(HTTPOptions{MaxBodySize: 10}).Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.HTML) != 10 {
		t.Errorf("len(HTML) = %d, want 10", len(res.HTML))
	}
}

func TestHTTPEngine_SharedJarKeepsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/warm", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok", Path: "/"})
		io.WriteString(w, "<html></html>")
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil && c.Value == "ok" {
			io.WriteString(w, "<html>welcome</html>")
			return
		}
		io.WriteString(w, "<html>captcha</html>")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	jar := NewSessionJar()
	warm := NewHTTPEngine(HTTPOptions{Jar: jar})
	page := NewHTTPEngine(HTTPOptions{Jar: jar, Insecure: true})

	if _, err := warm.Fetch(context.Background(), &FetchRequest{URL: srv.URL + "/warm"}); err != nil {
		t.Fatalf("warm: %v", err)
	}
	res, err := page.Fetch(context.Background(), &FetchRequest{URL: srv.URL + "/page"})
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if res.HTML != "<html>welcome</html>" {
		t.Errorf("HTML = %q, want session page", res.HTML)
	}
	if page.Name() != "http-insecure" {
		t.Errorf("Name() = %q", page.Name())
	}
}

func TestHTTPEngine_Open(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v.mp4", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte{0, 0, 0, 24, 'f', 't', 'y', 'p'})
	})
	mux.HandleFunc("/gone.mp4", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := NewHTTPEngine(HTTPOptions{})
	resp, err := e.Open(context.Background(), srv.URL+"/v.mp4")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if len(body) != 8 {
		t.Errorf("len(body) = %d, want 8", len(body))
	}

	if _, err := e.Open(context.Background(), srv.URL+"/gone.mp4"); !errors.Is(err, ErrUnexpectedResponse) {
		t.Errorf("Open(gone) err = %v, want ErrUnexpectedResponse", err)
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<title>A</title>", "A"},
		{"<html><head><title>\n  B \n</title></head></html>", "B"},
		{"<html><title></title></html>", ""},
		{"<p>no title</p>", ""},
	}
	for _, tt := range tests {
		if got := extractTitle(tt.in); got != tt.want {
			t.Errorf("extractTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
