// Package packager downloads a list of video URLs concurrently and bundles
// the successful downloads into a single ZIP archive.
package packager

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/use-agent/mediagrab/config"
	"github.com/use-agent/mediagrab/models"
)

var (
	// ErrNoDownloads is wrapped when not a single URL could be packaged.
	ErrNoDownloads = errors.New("packager: all downloads failed")

	// ErrTooManyFiles is wrapped when the request exceeds MaxFiles.
	ErrTooManyFiles = errors.New("packager: too many files")

	errTooLarge = errors.New("exceeds the per-file size limit")
)

// Opener starts a GET for a binary resource. The caller closes the body.
type Opener interface {
	Open(ctx context.Context, rawURL string) (*http.Response, error)
}

// Packager builds ZIP archives from remote videos.
type Packager struct {
	opener Opener
	cfg    config.PackageConfig
}

// New creates a Packager. Zero config fields take their defaults.
func New(opener Opener, cfg config.PackageConfig) *Packager {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 50
	}
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = 200 * humanize.MByte
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 120 * time.Second
	}
	if cfg.ArchiveName == "" {
		cfg.ArchiveName = "alibaba_videos.zip"
	}
	return &Packager{opener: opener, cfg: cfg}
}

// Result is a finished archive.
type Result struct {
	Data     []byte
	Filename string

	// Success counts the archived files, Total every requested entry
	// including the skipped ones.
	Success int
	Total   int
	Failed  []models.PackageFailure
}

type download struct {
	name string
	data []byte
	err  error
}

// Package downloads urls and zips the successes in request order. Entries
// that are not http(s) URLs are skipped. A failed download never aborts
// the others; the call only fails when nothing could be archived.
func (p *Packager) Package(ctx context.Context, urls []string) (*Result, error) {
	if len(urls) > p.cfg.MaxFiles {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("at most %d videos can be packaged at once", p.cfg.MaxFiles), ErrTooManyFiles)
	}

	results := make([]download, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for i, u := range urls {
		if !isHTTP(u) {
			results[i].err = errors.New("not an http(s) URL")
			continue
		}
		results[i].name = FilenameFromURL(u, i+1)
		g.Go(func() error {
			results[i].data, results[i].err = p.fetch(gctx, u)
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{Filename: p.cfg.ArchiveName, Total: len(urls)}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, d := range results {
		if d.err != nil {
			slog.Debug("package: skipping video", "url", urls[i], "error", d.err)
			res.Failed = append(res.Failed, models.PackageFailure{URL: urls[i], Reason: d.err.Error()})
			continue
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     d.name,
			Method:   zip.Deflate,
			Modified: time.Now(),
		})
		if err == nil {
			_, err = w.Write(d.data)
		}
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeInternal, "failed to write archive", err)
		}
		res.Success++
	}
	if err := zw.Close(); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal, "failed to write archive", err)
	}

	if res.Success == 0 {
		return nil, models.NewScrapeError(models.ErrCodePackage, "all video downloads failed, nothing to package", ErrNoDownloads)
	}
	res.Data = buf.Bytes()

	slog.Info("package built",
		"success", res.Success, "total", res.Total,
		"size", humanize.Bytes(uint64(len(res.Data))))
	return res, nil
}

// fetch downloads one file, enforcing the size cap.
func (p *Packager) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.DownloadTimeout)
	defer cancel()

	resp, err := p.opener.Open(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	limit := p.cfg.MaxFileSize
	if resp.ContentLength > 0 && uint64(resp.ContentLength) > limit {
		return nil, fmt.Errorf("%s (%s)", errTooLarge, humanize.Bytes(uint64(resp.ContentLength)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(limit)+1))
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > limit {
		return nil, fmt.Errorf("%s (%s)", errTooLarge, humanize.Bytes(limit))
	}
	return data, nil
}

func isHTTP(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

var (
	lastSegment = regexp.MustCompile(`([^/?#]+)(?:\?.*)?$`)
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// FilenameFromURL names the archive entry for the index-th requested URL
// (1-based): the last path segment, ".mp4" appended when it has no dot,
// unsafe characters replaced by "_" and a two-digit index prefix.
func FilenameFromURL(rawURL string, index int) string {
	name := fmt.Sprintf("video_%d.mp4", index)
	if m := lastSegment.FindStringSubmatch(rawURL); m != nil {
		name = m[1]
	}
	if !strings.Contains(name, ".") {
		name += ".mp4"
	}
	name = unsafeChars.ReplaceAllString(name, "_")
	return fmt.Sprintf("%02d_%s", index, name)
}
