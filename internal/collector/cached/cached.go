// Package cached keeps a raw CSV copy of every download so repeated runs
// over the same range do not hit the remote source again.
package cached

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/macross/internal/collector"
	"github.com/newthinker/macross/internal/collector/csvfile"
	"github.com/newthinker/macross/internal/core"
	"github.com/newthinker/macross/internal/storage/archive"
	"go.uber.org/zap"
)

// Recorder receives cache outcomes, typically the metrics registry
type Recorder interface {
	RecordCacheRequest(result string)
	RecordBarsLoaded(source string, n int)
}

// Cached wraps a collector with a raw CSV cache
type Cached struct {
	inner    collector.Collector
	store    archive.Storage
	logger   *zap.Logger
	recorder Recorder
}

// Option configures a Cached collector
type Option func(*Cached)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cached) { c.logger = logger }
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(c *Cached) { c.recorder = r }
}

// New wraps inner so that downloads are written to and served from store
func New(inner collector.Collector, store archive.Storage, opts ...Option) *Cached {
	c := &Cached{
		inner:  inner,
		store:  store,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("cache")
	return c
}

func (c *Cached) Name() string {
	return c.inner.Name()
}

func (c *Cached) Init(cfg collector.Config) error {
	return c.inner.Init(cfg)
}

// Key names the cache object for a download. Whole calendar years give
// SYMBOL_YYYY_YYYY.csv; any other range keeps the full dates.
func Key(symbol string, start, end time.Time) string {
	name := strings.ToUpper(strings.NewReplacer("/", "-", "\\", "-").Replace(symbol))
	if isNewYear(start) && isNewYear(end) {
		return fmt.Sprintf("%s_%d_%d.csv", name, start.Year(), end.Year())
	}
	return fmt.Sprintf("%s_%s_%s.csv", name, start.Format(time.DateOnly), end.Format(time.DateOnly))
}

func isNewYear(t time.Time) bool {
	return t.Month() == time.January && t.Day() == 1
}

// FetchHistory serves bars from the cache when present and downloads them
// otherwise. A damaged or unreadable cache entry is treated as a miss.
func (c *Cached) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	key := Key(symbol, start, end)

	data, err := c.store.Read(ctx, key)
	switch {
	case err == nil:
		bars, derr := csvfile.Decode(bytes.NewReader(data))
		if derr == nil && len(bars) > 0 {
			c.record("hit")
			c.logger.Debug("cache hit", zap.String("key", key), zap.Int("bars", len(bars)))
			return tag(bars, symbol), nil
		}
		c.record("error")
		c.logger.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(derr))
	case errors.Is(err, archive.ErrNotFound):
		c.record("miss")
	default:
		c.record("error")
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	return c.Refresh(ctx, symbol, start, end, interval)
}

// Refresh always downloads from the wrapped collector and rewrites the
// cache entry. A failed write is logged and the bars are still returned.
func (c *Cached) Refresh(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	bars, err := c.inner.FetchHistory(ctx, symbol, start, end, interval)
	if err != nil {
		return nil, err
	}
	if c.recorder != nil {
		c.recorder.RecordBarsLoaded(c.inner.Name(), len(bars))
	}
	if len(bars) == 0 {
		return bars, nil
	}

	key := Key(symbol, start, end)
	if err := c.write(ctx, key, bars); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		return bars, nil
	}
	c.logger.Info("cached download", zap.String("key", key), zap.Int("bars", len(bars)))
	return bars, nil
}

func (c *Cached) write(ctx context.Context, key string, bars []core.OHLCV) error {
	var buf bytes.Buffer
	if err := csvfile.Encode(&buf, bars); err != nil {
		return core.WrapError(core.ErrCacheFailed, err)
	}
	if err := c.store.Write(ctx, key, buf.Bytes()); err != nil {
		return core.WrapError(core.ErrCacheFailed, err)
	}
	return nil
}

func (c *Cached) record(result string) {
	if c.recorder != nil {
		c.recorder.RecordCacheRequest(result)
	}
}

func tag(bars []core.OHLCV, symbol string) []core.OHLCV {
	for i := range bars {
		bars[i].Symbol = symbol
		bars[i].Interval = "1d"
	}
	return bars
}
