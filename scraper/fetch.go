package scraper

import (
	"context"
	"crypto/x509"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/use-agent/mediagrab/engine"
	"github.com/use-agent/mediagrab/models"
)

const defaultFetchTimeout = 30 * time.Second

// Page is a fetched product page.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Title      string
	HTML       string
	Header     http.Header
	EngineUsed string

	// Blocked is set when the page was still a challenge page after the
	// warm-up retry. Signals lists the markers found on it.
	Blocked bool
	Signals []string

	FetchDuration time.Duration
}

// Fetch retrieves req.URL. A certificate failure is retried without
// verification; a challenge page triggers one session warm-up and one
// retry. Failures are returned as *models.ScrapeError.
func (s *Scraper) Fetch(ctx context.Context, req *engine.FetchRequest) (*Page, error) {
	start := time.Now()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.cfg.Timeout
	}
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r := *req
	r.Timeout = 0

	res, err := s.withCertFallback(ctx, &r, func() (*engine.FetchResult, error) {
		return s.dispatcher.Dispatch(ctx, &r)
	})
	if err != nil {
		return nil, fetchError(ctx, err)
	}

	detector := s.extractor.Detector()
	signals := detector.Signals(res.HTML)
	if len(signals) >= detector.Threshold() && s.warmup != nil {
		slog.Info("challenge page detected, warming up session", "url", r.URL, "signals", signals)
		s.warmUp(ctx)

		res, err = s.withCertFallback(ctx, &r, func() (*engine.FetchResult, error) {
			return s.dispatcher.Dispatch(ctx, &r)
		})
		if err != nil {
			return nil, fetchError(ctx, err)
		}
		signals = detector.Signals(res.HTML)
	}

	page := &Page{
		URL:           req.URL,
		FinalURL:      res.FinalURL,
		StatusCode:    res.StatusCode,
		Title:         res.Title,
		HTML:          res.HTML,
		Header:        res.Header,
		EngineUsed:    res.EngineName,
		FetchDuration: time.Since(start),
	}
	if page.FinalURL == "" {
		page.FinalURL = req.URL
	}
	if len(signals) >= detector.Threshold() {
		page.Blocked = true
		page.Signals = signals
		slog.Warn("page still blocked after warm-up", "url", r.URL, "signals", signals)
	}
	return page, nil
}

// fetchRaw fetches without the challenge retry and accepts any status and
// content type.
func (s *Scraper) fetchRaw(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r := *req
	r.Timeout = 0
	r.Raw = true
	res, err := s.withCertFallback(ctx, &r, func() (*engine.FetchResult, error) {
		return s.dispatcher.Dispatch(ctx, &r)
	})
	if err != nil {
		return nil, fetchError(ctx, err)
	}
	return res, nil
}

// warmUp requests each warm-up URL in order so the shared cookie jar picks
// up a session. Failures are ignored.
func (s *Scraper) warmUp(ctx context.Context) {
	for _, u := range s.cfg.WarmupURLs {
		if ctx.Err() != nil {
			return
		}
		wctx := ctx
		var cancel context.CancelFunc = func() {}
		if s.cfg.WarmupTimeout > 0 {
			wctx, cancel = context.WithTimeout(ctx, s.cfg.WarmupTimeout)
		}
		req := &engine.FetchRequest{URL: u, Raw: true}
		_, err := s.withCertFallback(wctx, req, func() (*engine.FetchResult, error) {
			return s.warmup.Fetch(wctx, req)
		})
		cancel()
		if err != nil {
			slog.Debug("warm-up request failed", "url", u, "error", err)
		}
	}
}

// withCertFallback runs fetch and, when it fails certificate verification,
// repeats the request on the insecure engine.
func (s *Scraper) withCertFallback(ctx context.Context, req *engine.FetchRequest, fetch func() (*engine.FetchResult, error)) (*engine.FetchResult, error) {
	res, err := fetch()
	if err == nil || s.insecure == nil || !isCertError(err) {
		return res, err
	}
	slog.Warn("certificate verification failed, retrying without verification", "url", req.URL, "error", err)
	return s.insecure.Fetch(ctx, req)
}

// isCertError reports whether err comes from certificate verification,
// either from a Go TLS stack or from the browser's net error codes.
func isCertError(err error) bool {
	var (
		unknownAuthority x509.UnknownAuthorityError
		hostname         x509.HostnameError
		invalid          x509.CertificateInvalidError
	)
	if errors.As(err, &unknownAuthority) || errors.As(err, &hostname) || errors.As(err, &invalid) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "x509:") || strings.Contains(msg, "ERR_CERT_")
}

// fetchError turns an engine failure into a ScrapeError.
func fetchError(ctx context.Context, err error) *models.ScrapeError {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.NewScrapeError(models.ErrCodeTimeout, "timed out fetching the page", err)
	}
	return models.NewScrapeError(models.ErrCodeFetch, "failed to fetch the page, check that the link is reachable", err)
}
