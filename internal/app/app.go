// Package app wires configuration into collectors, the raw cache, the
// backtester and the optional LLM provider.
package app

import (
	"fmt"

	"github.com/newthinker/macross/internal/backtest"
	"github.com/newthinker/macross/internal/collector"
	"github.com/newthinker/macross/internal/collector/cached"
	"github.com/newthinker/macross/internal/collector/csvfile"
	"github.com/newthinker/macross/internal/collector/yahoo"
	"github.com/newthinker/macross/internal/config"
	"github.com/newthinker/macross/internal/core"
	"github.com/newthinker/macross/internal/llm"
	llmfactory "github.com/newthinker/macross/internal/llm/factory"
	"github.com/newthinker/macross/internal/metrics"
	"github.com/newthinker/macross/internal/storage/archive"
	"go.uber.org/zap"
)

// App is the main application orchestrator
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	collectors *collector.Registry
	metrics    *metrics.Registry
}

// Option configures an App
type Option func(*App)

// WithMetrics records loader and backtest metrics into reg
func WithMetrics(reg *metrics.Registry) Option {
	return func(a *App) { a.metrics = reg }
}

// New creates a new App instance with the built-in collectors registered
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) *App {
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		cfg:        cfg,
		logger:     logger,
		collectors: collector.NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.collectors.Register(yahoo.New(logger))
	a.collectors.Register(csvfile.New(cfg.Source.File, logger))
	return a
}

// Config returns the application configuration
func (a *App) Config() *config.Config {
	return a.cfg
}

// Collectors returns the collector registry
func (a *App) Collectors() *collector.Registry {
	return a.collectors
}

// Metrics returns the metrics registry, nil when metrics are off
func (a *App) Metrics() *metrics.Registry {
	return a.metrics
}

// Source returns the configured collector, initialised. Remote sources are
// wrapped with the raw cache unless caching is disabled or noCache is set.
func (a *App) Source(noCache bool) (collector.Collector, error) {
	src, err := a.collectors.MustGet(a.cfg.Source.Provider)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}

	err = src.Init(collector.Config{
		Timeout: a.cfg.Source.Timeout,
		Proxy:   a.cfg.Source.Proxy,
		BaseURL: a.cfg.Source.BaseURL,
		Extra:   map[string]any{"file": a.cfg.Source.File},
	})
	if err != nil {
		return nil, fmt.Errorf("initializing %s collector: %w", src.Name(), err)
	}

	// A local file is its own cache
	if noCache || !a.cfg.Cache.Enabled || src.Name() == "csv" {
		return src, nil
	}
	return a.Cached(src)
}

// Cached wraps src with the configured cache storage
func (a *App) Cached(src collector.Collector) (*cached.Cached, error) {
	store, err := archive.New(a.cfg.Cache)
	if err != nil {
		return nil, core.WrapError(core.ErrCacheFailed, err)
	}

	opts := []cached.Option{cached.WithLogger(a.logger)}
	if a.metrics != nil {
		opts = append(opts, cached.WithRecorder(a.metrics))
	}
	return cached.New(src, store, opts...), nil
}

// Backtester builds a backtester reading bars from provider
func (a *App) Backtester(provider backtest.OHLCVProvider) *backtest.Backtester {
	opts := []backtest.Option{backtest.WithLogger(a.logger)}
	if a.metrics != nil {
		opts = append(opts, backtest.WithRecorder(a.metrics))
	}
	return backtest.New(provider, opts...)
}

// Defaults returns the configured run parameters for symbol. An empty
// symbol uses the configured one.
func (a *App) Defaults(symbol string) (backtest.Params, error) {
	start, end, err := a.cfg.Backtest.Range()
	if err != nil {
		return backtest.Params{}, core.WrapError(core.ErrConfigInvalid, err)
	}
	if symbol == "" {
		symbol = a.cfg.Backtest.Symbol
	}
	return backtest.Params{
		Symbol:         symbol,
		Start:          start,
		End:            end,
		FastWindow:     a.cfg.Backtest.FastWindow,
		SlowWindow:     a.cfg.Backtest.SlowWindow,
		PeriodsPerYear: a.cfg.Backtest.PeriodsPerYear,
	}, nil
}

// LLM returns the configured commentary provider
func (a *App) LLM() (llm.Provider, error) {
	return llmfactory.New(a.cfg.LLM)
}
