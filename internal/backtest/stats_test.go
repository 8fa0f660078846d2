package backtest

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/newthinker/macross/internal/series"
	"github.com/newthinker/macross/internal/strategy/ma_crossover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeline(closes []float64, fast, slow int) *series.Series {
	s := ma_crossover.New(fast, slow).Apply(series.FromCloses("TEST", epoch, closes))
	return SimulateReturns(s)
}

func TestSummarize_Example(t *testing.T) {
	stats := Summarize(pipeline([]float64{10, 11, 12, 11, 10}, 2, 3), DefaultPeriodsPerYear)

	assert.Equal(t, 4, stats.Periods)
	assert.Equal(t, 0.0, stats.WinRate)
	assert.True(t, stats.SharpeDefined())
	assert.Less(t, stats.Sharpe, 0.0)
	assert.InDelta(t, 0.0, stats.MarketTotalReturn, 1e-12)
	assert.InDelta(t, -1.0/6, stats.StrategyTotalReturn, 1e-12)
	assert.InDelta(t, 1.0/6, stats.MaxDrawdown, 1e-12)
	assert.InDelta(t, 0.4, stats.Exposure, 1e-12)
}

func TestSummarize_ConstantSeries(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 100
	}

	stats := Summarize(pipeline(closes, 20, 50), DefaultPeriodsPerYear)

	assert.Equal(t, 99, stats.Periods)
	assert.Equal(t, 0.0, stats.WinRate)
	assert.False(t, stats.SharpeDefined(), "zero variance leaves Sharpe undefined")
	assert.Equal(t, 0.0, stats.Exposure)
}

func TestSummarize_Empty(t *testing.T) {
	stats := Summarize(pipeline(nil, 20, 50), DefaultPeriodsPerYear)

	assert.Equal(t, 0, stats.Periods)
	assert.False(t, stats.SharpeDefined())
	assert.False(t, stats.WinRateDefined())
	assert.True(t, math.IsNaN(stats.Exposure))
	assert.Equal(t, 0.0, stats.MaxDrawdown)
}

func TestCalculateSharpeRatio(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.02}

	mean := (0.01 - 0.01 + 0.02) / 3
	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	want := mean / math.Sqrt(ss/2) * math.Sqrt(252)

	assert.InDelta(t, want, calculateSharpeRatio(returns, 252), 1e-9)
	assert.InDelta(t, want/math.Sqrt(252)*math.Sqrt(52), calculateSharpeRatio(returns, 52), 1e-9)
}

func TestCalculateSharpeRatio_Undefined(t *testing.T) {
	tests := []struct {
		name    string
		returns []float64
	}{
		{"empty", nil},
		{"single", []float64{0.05}},
		{"constant", []float64{0.01, 0.01, 0.01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, math.IsNaN(calculateSharpeRatio(tt.returns, 252)))
		})
	}
}

func TestCalculateWinRate(t *testing.T) {
	tests := []struct {
		name    string
		returns []float64
		want    float64
	}{
		{"mixed", []float64{0.10, 0.05, -0.03, 0.02}, 0.75},
		{"zero is not a win", []float64{0, 0, 0.01, -0.01}, 0.25},
		{"all losses", []float64{-0.01, -0.02}, 0},
		{"all wins", []float64{0.01}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateWinRate(tt.returns)
			assert.InDelta(t, tt.want, got, 1e-12)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
	assert.True(t, math.IsNaN(calculateWinRate(nil)))
}

func TestCalculateMaxDrawdown(t *testing.T) {
	// Simulate: +10%, +5%, -20%, +10%
	// Peak at 1.155, trough at 0.924, DD = 20%
	s := series.FromCloses("TEST", epoch, make([]float64, 5))
	cum := 1.0
	for i, r := range []float64{0.10, 0.05, -0.20, 0.10} {
		cum *= 1 + r
		s.Rows[i+1].StrategyCum = cum
	}

	dd := calculateMaxDrawdown(s)
	assert.InDelta(t, 0.20, dd, 1e-9)
}

func TestStats_MarshalJSON(t *testing.T) {
	stats := Summarize(pipeline(nil, 2, 3), 252)

	b, err := json.Marshal(stats)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Nil(t, decoded["sharpe"])
	assert.Nil(t, decoded["win_rate"])
	assert.Equal(t, float64(252), decoded["periods_per_year"])
}
