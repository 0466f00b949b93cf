// Package commands implements the CLI commands for mediagrab.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/use-agent/mediagrab/config"
)

var rootCmd = &cobra.Command{
	Use:   "mediagrab-cli",
	Short: "Find and download the videos of marketplace product pages",
	Long: `mediagrab-cli fetches a product page, lists the videos embedded in it
and optionally downloads them.

Examples:
  # List and download the videos of a product page
  mediagrab-cli scrape "https://www.alibaba.com/product-detail/x.html" -o ./videos

  # Only list them
  mediagrab-cli scrape "https://www.alibaba.com/product-detail/x.html" --list

  # Dump every media link of a page as YAML
  mediagrab-cli extract "https://example.com/gallery" --format yaml

  # Zip a set of video URLs
  mediagrab-cli package https://cdn.example.com/a.mp4 https://cdn.example.com/b.mp4`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.mediagrab.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "page fetch timeout")
	rootCmd.PersistentFlags().Bool("browser", false, "add the headless browser engine")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	_ = viper.BindPFlag("browser", rootCmd.PersistentFlags().Lookup("browser"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".mediagrab")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("MEDIAGRAB")
	viper.AutomaticEnv()

	// Missing config file is fine.
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig starts from the server configuration and applies the CLI
// overrides.
func loadConfig() *config.Config {
	cfg := config.Load()
	if d := viper.GetDuration("timeout"); d > 0 {
		cfg.Fetch.Timeout = d
	}
	if viper.GetBool("browser") {
		cfg.Browser.Enabled = true
	}
	if ref := viper.GetString("referer"); ref != "" {
		cfg.Fetch.Referer = ref
	}
	return cfg
}

// initLogger sends library logs to stderr so stdout stays machine-readable.
func initLogger() {
	level := slog.LevelWarn
	if viper.GetBool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
