package backtest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/newthinker/macross/internal/core"
	"github.com/newthinker/macross/internal/series"
	"github.com/newthinker/macross/internal/strategy/ma_crossover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// mockProvider implements OHLCVProvider for testing
type mockProvider struct {
	data []core.OHLCV
	err  error

	gotSymbol   string
	gotInterval string
}

func (m *mockProvider) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	m.gotSymbol = symbol
	m.gotInterval = interval
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

// mockRecorder captures metrics calls
type mockRecorder struct {
	statuses []string
	sharpe   float64
	winRate  float64
	symbol   string
}

func (m *mockRecorder) RecordBacktest(status string, duration float64) {
	m.statuses = append(m.statuses, status)
}

func (m *mockRecorder) RecordBacktestStats(symbol string, sharpe, winRate float64) {
	m.symbol, m.sharpe, m.winRate = symbol, sharpe, winRate
}

func bars(closes ...float64) []core.OHLCV {
	data := make([]core.OHLCV, len(closes))
	for i, c := range closes {
		data[i] = core.OHLCV{
			Symbol:   "SPY",
			Interval: "1d",
			Open:     c,
			High:     c,
			Low:      c,
			Close:    c,
			Time:     epoch.AddDate(0, 0, i).Add(14*time.Hour + 30*time.Minute),
		}
	}
	return data
}

func TestBacktester_Run(t *testing.T) {
	provider := &mockProvider{data: bars(10, 11, 12, 11, 10)}
	recorder := &mockRecorder{}
	bt := New(provider, WithRecorder(recorder))

	result, err := bt.Run(context.Background(), Params{
		Symbol:     "SPY",
		Start:      epoch,
		End:        epoch.AddDate(0, 0, 10),
		FastWindow: 2,
		SlowWindow: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, "SPY", provider.gotSymbol)
	assert.Equal(t, "1d", provider.gotInterval)
	assert.Equal(t, "MA Crossover (2/3)", result.Strategy)
	assert.Equal(t, DefaultPeriodsPerYear, result.Params.PeriodsPerYear)
	assert.Equal(t, []int{0, 0, 1, 1, 0}, result.Series.Signals())
	assert.Equal(t, 4, result.Stats.Periods)
	assert.Equal(t, 0.0, result.Stats.WinRate)

	require.Len(t, result.Events, 2)
	assert.Equal(t, core.ActionBuy, result.Events[0].Action)
	assert.Equal(t, core.ActionSell, result.Events[1].Action)

	assert.Equal(t, []string{"success"}, recorder.statuses)
	assert.Equal(t, "SPY", recorder.symbol)
	assert.Equal(t, 0.0, recorder.winRate)
}

func TestBacktester_Run_MissingCloseExcluded(t *testing.T) {
	data := bars(10, 11, 12)
	data[1].Close = 0

	result, err := New(&mockProvider{data: data}).Run(context.Background(), Params{Symbol: "SPY", FastWindow: 1, SlowWindow: 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 12}, result.Series.Closes())
}

func TestBacktester_Run_NoData(t *testing.T) {
	recorder := &mockRecorder{}
	bt := New(&mockProvider{data: []core.OHLCV{}}, WithRecorder(recorder))

	_, err := bt.Run(context.Background(), Params{Symbol: "SPY"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNoData))
	assert.Equal(t, []string{"failed"}, recorder.statuses)
}

func TestBacktester_Run_ProviderError(t *testing.T) {
	bt := New(&mockProvider{err: errors.New("provider error")})

	_, err := bt.Run(context.Background(), Params{Symbol: "SPY"})
	assert.Error(t, err)
}

func TestBacktester_Run_DuplicateDates(t *testing.T) {
	data := bars(10, 11)
	data[1].Time = data[0].Time

	_, err := New(&mockProvider{data: data}).Run(context.Background(), Params{Symbol: "SPY"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDuplicateDate))
}

func TestBacktester_Run_ShortHistory(t *testing.T) {
	obs, logs := observer.New(zap.WarnLevel)
	bt := New(&mockProvider{data: bars(10, 11, 12)}, WithLogger(zap.New(obs)))

	result, err := bt.Run(context.Background(), Params{Symbol: "SPY"})
	require.NoError(t, err)

	warned := logs.FilterMessage("not enough history for a full slow average").All()
	require.Len(t, warned, 1)
	assert.Contains(t, warned[0].ContextMap()["error"], "INSUFFICIENT_DATA")
	assert.Contains(t, warned[0].ContextMap()["error"], "3 bars, 50 required")

	for _, r := range result.Series.Rows {
		assert.False(t, r.SMASlow.Valid)
		assert.Equal(t, 0, r.Signal)
	}
	assert.Equal(t, 0.0, result.Stats.WinRate)
	assert.False(t, result.Stats.SharpeDefined())
}

func TestBacktester_Run_ContextCancellation(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 100
	}
	bt := New(&mockProvider{data: bars(closes...)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := bt.Run(ctx, Params{Symbol: "SPY"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluate_EmptySeries(t *testing.T) {
	s := series.FromCloses("SPY", epoch, nil)

	result, err := Evaluate(context.Background(), ma_crossover.New(20, 50), s, Params{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Series.Len())
	assert.Empty(t, result.Events)
	assert.True(t, math.IsNaN(result.Stats.Sharpe))
	assert.True(t, math.IsNaN(result.Stats.WinRate))
}
