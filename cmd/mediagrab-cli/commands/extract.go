package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/use-agent/mediagrab/models"
	"github.com/use-agent/mediagrab/scraper"
)

var extractCmd = &cobra.Command{
	Use:   "extract <url>",
	Short: "List every media and file link of a page",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	flags := extractCmd.Flags()
	flags.String("format", "json", "output format: json, yaml")
	flags.StringP("output", "o", "", "output file (default: stdout)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	initLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	format, _ := cmd.Flags().GetString("format")
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unknown format %q", format)
	}

	cfg := loadConfig()
	sc, err := scraper.NewFromConfig(cfg)
	if err != nil {
		logError("%v", err)
		return err
	}
	defer sc.Close()

	req := &models.ExtractRequest{ScrapeRequest: models.ScrapeRequest{
		URL:     args[0],
		Timeout: int(cfg.Fetch.Timeout / time.Second),
	}}
	req.Defaults()
	if err := req.Validate(); err != nil {
		logError("%v", err)
		return err
	}

	resp, err := sc.ExtractResources(ctx, req)
	if err != nil {
		logError("%v", err)
		return err
	}
	if resp.Blocked {
		logInfo("Warning: page looks like an anti-bot challenge page (%v)", resp.Signals)
	}
	logInfo("Found %d resources", resp.Total)

	out := cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			logError("create %s: %v", path, err)
			return err
		}
		defer f.Close()
		out = f
	}
	return writeResult(out, format, resp)
}

func writeResult(w io.Writer, format string, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if format == "yaml" {
		// Round-trip through JSON so YAML keys follow the json tags.
		var generic any
		if err := sonic.ConfigStd.Unmarshal(data, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
