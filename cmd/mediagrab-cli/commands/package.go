package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/use-agent/mediagrab/engine"
	"github.com/use-agent/mediagrab/packager"
)

var packageCmd = &cobra.Command{
	Use:   "package [url...]",
	Short: "Download video URLs into a single zip archive",
	Long: `Download the given URLs in parallel and write them into one zip archive.
URLs can also be read from a file, one per line. Failed downloads are
reported and skipped.`,
	RunE: runPackage,
}

func init() {
	rootCmd.AddCommand(packageCmd)

	flags := packageCmd.Flags()
	flags.StringP("file", "f", "", "read URLs from this file, one per line")
	flags.StringP("output", "o", "", "archive path (default: the configured archive name)")
}

func runPackage(cmd *cobra.Command, args []string) error {
	initLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	urls := append([]string(nil), args...)
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		fromFile, err := readLines(path)
		if err != nil {
			logError("read %s: %v", path, err)
			return err
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs given")
	}

	cfg := loadConfig()
	pk := packager.New(engine.NewHTTPEngine(engine.HTTPOptions{
		UserAgent:      cfg.Fetch.UserAgent,
		AcceptLanguage: cfg.Fetch.AcceptLanguage,
		Referer:        cfg.Fetch.Referer,
	}), cfg.Package)

	logInfo("Downloading %d file(s)", len(urls))
	res, err := pk.Package(ctx, urls)
	if err != nil {
		logError("%v", err)
		return err
	}

	for _, f := range res.Failed {
		logInfo("  skipped %s: %s", f.URL, f.Reason)
	}

	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		out = res.Filename
	}
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		logError("write %s: %v", out, err)
		return err
	}
	logInfo("Packaged %d/%d files into %s (%s)", res.Success, res.Total, out, humanize.Bytes(uint64(len(res.Data))))
	return nil
}

// readLines returns the non-empty, non-comment lines of a file.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, sc.Err()
}
