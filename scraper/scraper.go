package scraper

import (
	"log/slog"

	"github.com/use-agent/mediagrab/cleaner"
	"github.com/use-agent/mediagrab/config"
	"github.com/use-agent/mediagrab/engine"
	"github.com/use-agent/mediagrab/extractor"
)

// Scraper fetches product pages and runs the extraction profiles over them.
// It is safe for concurrent use.
type Scraper struct {
	dispatcher *engine.Dispatcher
	insecure   engine.Engine
	warmup     engine.Engine
	extractor  *extractor.Extractor
	previewer  *cleaner.Previewer
	cfg        config.FetchConfig
}

// Options wires a Scraper. Only Dispatcher is required.
type Options struct {
	Dispatcher *engine.Dispatcher

	// Insecure re-fetches a page whose certificate failed verification.
	// Nil disables the fallback.
	Insecure engine.Engine

	// Warmup requests the warm-up URLs before a challenge-page retry.
	// It should share a cookie jar with the dispatcher's HTTP engine.
	// Nil disables the retry.
	Warmup engine.Engine

	Extractor *extractor.Extractor
	Previewer *cleaner.Previewer
	Fetch     config.FetchConfig
}

// New creates a Scraper from opts.
func New(opts Options) *Scraper {
	if opts.Extractor == nil {
		opts.Extractor = extractor.Default()
	}
	if opts.Previewer == nil {
		opts.Previewer = cleaner.NewPreviewer(0)
	}
	return &Scraper{
		dispatcher: opts.Dispatcher,
		insecure:   opts.Insecure,
		warmup:     opts.Warmup,
		extractor:  opts.Extractor,
		previewer:  opts.Previewer,
		cfg:        opts.Fetch,
	}
}

// NewFromConfig builds the engine stack described by cfg: the fingerprinted
// HTTP engine, the optional browser tier, the insecure fallback and a
// shared session jar for warm-ups.
func NewFromConfig(cfg *config.Config) (*Scraper, error) {
	httpOpts := engine.HTTPOptions{
		UserAgent:      cfg.Fetch.UserAgent,
		AcceptLanguage: cfg.Fetch.AcceptLanguage,
		Referer:        cfg.Fetch.Referer,
		MaxBodySize:    int64(cfg.Fetch.MaxBodySize),
		Jar:            engine.NewSessionJar(),
	}
	primary := engine.NewHTTPEngine(httpOpts)
	engines := []engine.Engine{primary}

	if cfg.Browser.Enabled {
		rod, err := engine.NewRodEngine(cfg.Browser)
		if err != nil {
			return nil, err
		}
		engines = append(engines, rod)
	}

	var insecure engine.Engine
	if cfg.Fetch.InsecureFallback {
		o := httpOpts
		o.Insecure = true
		insecure = engine.NewHTTPEngine(o)
	}

	memory := engine.NewDomainMemory(cfg.Engine.DomainMemoryTTL)
	d := engine.NewDispatcher(engines, cfg.Engine.EscalationDelays, memory)
	slog.Info("fetch engines ready", "engines", d.Names(), "insecure_fallback", insecure != nil)

	return New(Options{
		Dispatcher: d,
		Insecure:   insecure,
		Warmup:     primary,
		Extractor:  extractor.New(cfg.Extractor),
		Fetch:      cfg.Fetch,
	}), nil
}

// Engines lists the dispatcher's engines in tier order.
func (s *Scraper) Engines() []string {
	return s.dispatcher.Names()
}

// Close shuts down the engines. Call it on graceful shutdown so no
// browser process outlives the server.
func (s *Scraper) Close() {
	slog.Info("scraper shutting down")
	s.dispatcher.Close()
}
