package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/macross/internal/collector/cached"
	"github.com/newthinker/macross/internal/config"
	"github.com/newthinker/macross/internal/core"
	"github.com/newthinker/macross/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_RegistersCollectors(t *testing.T) {
	a := New(config.Defaults(), zap.NewNop())
	assert.Equal(t, []string{"csv", "yahoo"}, a.Collectors().Names())
	assert.Nil(t, a.Metrics())
}

func TestSource_YahooIsCached(t *testing.T) {
	cfg := config.Defaults()
	cfg.Cache.Path = t.TempDir()
	a := New(cfg, zap.NewNop(), WithMetrics(metrics.NewRegistry()))

	src, err := a.Source(false)
	require.NoError(t, err)
	assert.IsType(t, &cached.Cached{}, src)
	assert.Equal(t, "yahoo", src.Name())

	src, err = a.Source(true)
	require.NoError(t, err)
	_, isCached := src.(*cached.Cached)
	assert.False(t, isCached)
}

func TestSource_CSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spy.csv")
	require.NoError(t, os.WriteFile(path, []byte("Date,Close\n2024-01-02,472.65\n2024-01-03,468.79\n"), 0644))

	cfg := config.Defaults()
	cfg.Source.Provider = "csv"
	cfg.Source.File = path
	a := New(cfg, zap.NewNop())

	src, err := a.Source(false)
	require.NoError(t, err)
	_, isCached := src.(*cached.Cached)
	assert.False(t, isCached, "csv sources are read directly")

	params, err := a.Defaults("SPY")
	require.NoError(t, err)
	params.Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	params.End = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	params.FastWindow, params.SlowWindow = 1, 2

	result, err := a.Backtester(src).Run(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Series.Len())
}

func TestSource_UnknownProvider(t *testing.T) {
	cfg := config.Defaults()
	cfg.Source.Provider = "bloomberg"

	_, err := New(cfg, zap.NewNop()).Source(false)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestDefaults(t *testing.T) {
	a := New(config.Defaults(), zap.NewNop())

	p, err := a.Defaults("")
	require.NoError(t, err)
	assert.Equal(t, "SPY", p.Symbol)
	assert.Equal(t, time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), p.End)
	assert.Equal(t, 20, p.FastWindow)
	assert.Equal(t, 50, p.SlowWindow)
	assert.Equal(t, 252, p.PeriodsPerYear)

	p, err = a.Defaults("QQQ")
	require.NoError(t, err)
	assert.Equal(t, "QQQ", p.Symbol)
}

func TestLLM_NotConfigured(t *testing.T) {
	_, err := New(config.Defaults(), zap.NewNop()).LLM()
	assert.ErrorIs(t, err, core.ErrConfigMissing)
}
