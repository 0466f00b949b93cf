package commands

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/use-agent/mediagrab/engine"
	"github.com/use-agent/mediagrab/models"
	"github.com/use-agent/mediagrab/scraper"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>",
	Short: "List and download the videos of a product page",
	Long: `Fetch a product page, list the videos it embeds and download them one
after another into the output directory.

A missing scheme defaults to https. Challenge pages are retried once after
a warm-up visit of the marketplace home page.`,
	Args: cobra.ExactArgs(1),
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	flags := scrapeCmd.Flags()
	flags.StringP("out", "o", "videos", "download directory")
	flags.Bool("list", false, "only list the videos, do not download")
	flags.Duration("pause", time.Second, "pause between downloads")
	flags.String("referer", "", "Referer header sent with every request")

	_ = viper.BindPFlag("referer", flags.Lookup("referer"))
}

func runScrape(cmd *cobra.Command, args []string) error {
	initLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := loadConfig()
	sc, err := scraper.NewFromConfig(cfg)
	if err != nil {
		logError("%v", err)
		return err
	}
	defer sc.Close()

	req := &models.ScrapeRequest{URL: args[0], Timeout: int(cfg.Fetch.Timeout / time.Second)}
	req.Defaults()
	if err := req.Validate(); err != nil {
		logError("%v", err)
		return err
	}

	logInfo("Fetching %s", req.URL)
	resp, err := sc.ScrapeVideos(ctx, req)
	if err != nil {
		logError("%v", err)
		return err
	}

	if resp.PageTitle != "" {
		logInfo("Page: %s", resp.PageTitle)
	}
	if resp.Blocked {
		logError("page blocked by anti-bot protection (%v)", resp.Signals)
		printTips(resp.Tips)
		return fmt.Errorf("blocked")
	}
	if resp.Count == 0 {
		logInfo("No videos found.")
		printTips(resp.Tips)
		return nil
	}

	for i, v := range resp.Videos {
		fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, v)
	}

	listOnly, _ := cmd.Flags().GetBool("list")
	if listOnly {
		return nil
	}

	outDir, _ := cmd.Flags().GetString("out")
	pause, _ := cmd.Flags().GetDuration("pause")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		logError("create %s: %v", outDir, err)
		return err
	}

	dl := engine.NewHTTPEngine(engine.HTTPOptions{
		UserAgent:      cfg.Fetch.UserAgent,
		AcceptLanguage: cfg.Fetch.AcceptLanguage,
		Referer:        cfg.Fetch.Referer,
	})

	sum, err := downloadAll(ctx, dl, resp.Videos, outDir, pause)
	if err != nil {
		return err
	}
	logInfo("%s to %s", sum, outDir)
	if sum.Success == 0 {
		return fmt.Errorf("no video downloaded")
	}
	return nil
}

// downloadSummary tallies a download run.
type downloadSummary struct {
	Success int
	Total   int
	Bytes   uint64
}

func (s downloadSummary) String() string {
	return fmt.Sprintf("Downloaded %d/%d videos (%s)", s.Success, s.Total, humanize.Bytes(s.Bytes))
}

// downloadAll fetches videos one after another into outDir, waiting pause
// between two downloads. A failed video is reported and skipped; only
// cancellation stops the run.
func downloadAll(ctx context.Context, dl *engine.HTTPEngine, videos []string, outDir string, pause time.Duration) (downloadSummary, error) {
	sum := downloadSummary{Total: len(videos)}
	for i, v := range videos {
		if i > 0 && pause > 0 {
			select {
			case <-ctx.Done():
				return sum, ctx.Err()
			case <-time.After(pause):
			}
		}

		dest := filepath.Join(outDir, videoFileName(v, i+1))
		n, err := download(ctx, dl, v, dest)
		if err != nil {
			logError("video %d: %v", i+1, err)
			continue
		}
		sum.Success++
		sum.Bytes += uint64(n)
	}
	return sum, nil
}

// download streams one file to path, showing a byte progress bar.
func download(ctx context.Context, dl *engine.HTTPEngine, rawURL, path string) (int64, error) {
	resp, err := dl.Open(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var w io.Writer = f
	if !viper.GetBool("quiet") {
		bar := progressbar.DefaultBytes(resp.ContentLength, filepath.Base(path))
		defer bar.Close()
		w = io.MultiWriter(f, bar)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		os.Remove(path)
		return 0, err
	}
	return n, nil
}

// videoFileName names the n-th download video_n with the extension of the
// URL path, .mp4 when there is none.
func videoFileName(rawURL string, n int) string {
	ext := ".mp4"
	if u, err := url.Parse(rawURL); err == nil {
		if e := path.Ext(u.Path); e != "" && len(e) <= 6 {
			ext = strings.ToLower(e)
		}
	}
	return fmt.Sprintf("video_%d%s", n, ext)
}

func printTips(tips []string) {
	for _, tip := range tips {
		logInfo("  - %s", tip)
	}
}
