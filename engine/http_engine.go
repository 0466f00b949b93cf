package engine

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	tls "github.com/refraction-networking/utls"
	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"
)

// HTTPEngine fetches pages over plain HTTP/1.1 with a Chrome-like TLS
// fingerprint. Cookies persist across requests, so a warm-up visit can
// prime the session before a retry.
type HTTPEngine struct {
	client *http.Client
	opts   HTTPOptions
	name   string
}

// HTTPOptions configures an HTTPEngine.
type HTTPOptions struct {
	UserAgent      string
	AcceptLanguage string
	Referer        string

	// MaxBodySize caps the bytes read from a response body.
	MaxBodySize int64

	// Insecure skips certificate verification.
	Insecure bool

	// Jar is shared between engines that should see the same session.
	// A fresh jar is created when nil.
	Jar http.CookieJar
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Go's http.Transport cannot speak h2 over a utls connection.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

const defaultMaxBody = 10 << 20

// NewSessionJar returns a cookie jar scoped by public suffix.
func NewSessionJar() http.CookieJar {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

// NewHTTPEngine creates an HTTPEngine.
func NewHTTPEngine(opts HTTPOptions) *HTTPEngine {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = defaultMaxBody
	}
	if opts.Jar == nil {
		opts.Jar = NewSessionJar()
	}

	insecure := opts.Insecure
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{
				ServerName:         host,
				InsecureSkipVerify: insecure,
			}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("http_engine: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2:   false,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	name := "http"
	if insecure {
		name = "http-insecure"
	}

	return &HTTPEngine{
		name: name,
		opts: opts,
		client: &http.Client{
			Transport: transport,
			Jar:       opts.Jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

func (e *HTTPEngine) Name() string { return e.name }

func (e *HTTPEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", e.name, err)
	}
	e.setHeaders(httpReq)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: do request: %w", e.name, err)
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%s: decode body: %w", e.name, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(io.LimitReader(body, e.opts.MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", e.name, err)
	}
	bodyStr := string(raw)

	ct := resp.Header.Get("Content-Type")
	if !req.Raw && (resp.StatusCode >= 400 || !isHTMLContentType(ct)) {
		return nil, fmt.Errorf("%s: %w: status %d (content-type: %s)", e.name, ErrUnexpectedResponse, resp.StatusCode, ct)
	}

	return &FetchResult{
		HTML:       bodyStr,
		Title:      extractTitle(bodyStr),
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
		EngineName: e.name,
		Header:     resp.Header,
	}, nil
}

// Open issues a GET for a binary resource and returns the live response.
// The caller must close the body. Error statuses are returned as errors.
func (e *HTTPEngine) Open(ctx context.Context, rawURL string) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", e.name, err)
	}
	e.setHeaders(httpReq)
	httpReq.Header.Set("Accept", "*/*")
	httpReq.Header.Del("Accept-Encoding")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: do request: %w", e.name, err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w: status %d", e.name, ErrUnexpectedResponse, resp.StatusCode)
	}
	return resp, nil
}

func (e *HTTPEngine) setHeaders(r *http.Request) {
	ua := e.opts.UserAgent
	if ua == "" {
		ua = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	}
	lang := e.opts.AcceptLanguage
	if lang == "" {
		lang = "en-US,en;q=0.9"
	}
	r.Header.Set("User-Agent", ua)
	r.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	r.Header.Set("Accept-Language", lang)
	r.Header.Set("Accept-Encoding", "gzip, br")
	if e.opts.Referer != "" {
		r.Header.Set("Referer", e.opts.Referer)
	}
}

// decodeBody unwraps the Content-Encoding we advertised.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	default:
		return io.NopCloser(resp.Body), nil
	}
}

// isHTMLContentType returns true if the content-type header looks like HTML.
// An empty header is given the benefit of the doubt.
func isHTMLContentType(ct string) bool {
	if ct == "" {
		return true
	}
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}

// extractTitle uses the Go HTML tokenizer to find the first <title> element.
func extractTitle(htmlStr string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlStr))
	inTitle := false
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(tokenizer.Text()))
			}
		case html.EndTagToken:
			if inTitle {
				return ""
			}
		}
	}
}
