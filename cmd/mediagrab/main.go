package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/mediagrab/api"
	"github.com/use-agent/mediagrab/cache"
	"github.com/use-agent/mediagrab/config"
	"github.com/use-agent/mediagrab/engine"
	"github.com/use-agent/mediagrab/models"
	"github.com/use-agent/mediagrab/packager"
	"github.com/use-agent/mediagrab/scraper"
)

func main() {
	cfg := config.Load()

	initLogger(cfg.Log)
	slog.Info("mediagrab starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"browser", cfg.Browser.Enabled,
	)

	sc, err := scraper.NewFromConfig(cfg)
	if err != nil {
		slog.Error("failed to initialise scraper", "error", err)
		os.Exit(1)
	}
	defer sc.Close()

	// Downloads get their own session so archive traffic never touches the
	// page-fetch cookies.
	downloader := engine.NewHTTPEngine(engine.HTTPOptions{
		UserAgent:      cfg.Fetch.UserAgent,
		AcceptLanguage: cfg.Fetch.AcceptLanguage,
		Referer:        cfg.Fetch.Referer,
	})
	pk := packager.New(downloader, cfg.Package)

	scrapeCache := cache.New[*models.ScrapeResponse](cfg.Cache.MaxEntries, cfg.Cache.TTL)
	defer scrapeCache.Close()
	extractCache := cache.New[*models.ExtractResponse](cfg.Cache.MaxEntries, cfg.Cache.TTL)
	defer extractCache.Close()

	router := api.NewRouter(api.Deps{
		Service:      sc,
		Packager:     pk,
		ScrapeCache:  scrapeCache,
		ExtractCache: extractCache,
		StartTime:    time.Now(),
	}, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Package requests can run long; give them a little more room.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	slog.Info("mediagrab stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
