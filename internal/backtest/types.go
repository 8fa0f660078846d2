package backtest

import (
	"encoding/json"
	"math"
	"time"

	"github.com/newthinker/macross/internal/core"
	"github.com/newthinker/macross/internal/series"
)

const (
	DefaultFastWindow     = 20
	DefaultSlowWindow     = 50
	DefaultPeriodsPerYear = 252
)

// Params selects the data and windows of a backtest run
type Params struct {
	Symbol         string    `json:"symbol"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	FastWindow     int       `json:"fast_window"`
	SlowWindow     int       `json:"slow_window"`
	PeriodsPerYear int       `json:"periods_per_year"`
}

// WithDefaults fills zero windows and periods with the standard values
func (p Params) WithDefaults() Params {
	if p.FastWindow == 0 {
		p.FastWindow = DefaultFastWindow
	}
	if p.SlowWindow == 0 {
		p.SlowWindow = DefaultSlowWindow
	}
	if p.PeriodsPerYear == 0 {
		p.PeriodsPerYear = DefaultPeriodsPerYear
	}
	return p
}

// Result holds the complete backtest output
type Result struct {
	Strategy string         `json:"strategy"`
	Params   Params         `json:"params"`
	Series   *series.Series `json:"-"`
	Events   []core.Signal  `json:"events"`
	Stats    Stats          `json:"stats"`
}

// Stats holds performance statistics. Undefined values are NaN.
type Stats struct {
	Sharpe              float64 // Annualized mean/stddev of strategy returns
	WinRate             float64 // Fraction of periods with a positive strategy return
	Periods             int     // Defined strategy returns
	PeriodsPerYear      int
	MarketTotalReturn   float64 // Buy and hold, final cumulative minus one
	StrategyTotalReturn float64
	MaxDrawdown         float64 // Largest peak-to-trough decline of the strategy curve
	Exposure            float64 // Fraction of rows holding a long signal
}

// SharpeDefined reports whether the Sharpe ratio could be computed
func (s Stats) SharpeDefined() bool {
	return !math.IsNaN(s.Sharpe)
}

// WinRateDefined reports whether any strategy return was available
func (s Stats) WinRateDefined() bool {
	return !math.IsNaN(s.WinRate)
}

// MarshalJSON encodes undefined statistics as null
func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Sharpe              series.Float `json:"sharpe"`
		WinRate             series.Float `json:"win_rate"`
		Periods             int          `json:"periods"`
		PeriodsPerYear      int          `json:"periods_per_year"`
		MarketTotalReturn   series.Float `json:"market_total_return"`
		StrategyTotalReturn series.Float `json:"strategy_total_return"`
		MaxDrawdown         series.Float `json:"max_drawdown"`
		Exposure            series.Float `json:"exposure"`
	}{
		Sharpe:              nanToNone(s.Sharpe),
		WinRate:             nanToNone(s.WinRate),
		Periods:             s.Periods,
		PeriodsPerYear:      s.PeriodsPerYear,
		MarketTotalReturn:   nanToNone(s.MarketTotalReturn),
		StrategyTotalReturn: nanToNone(s.StrategyTotalReturn),
		MaxDrawdown:         nanToNone(s.MaxDrawdown),
		Exposure:            nanToNone(s.Exposure),
	})
}

func nanToNone(v float64) series.Float {
	if math.IsNaN(v) {
		return series.None()
	}
	return series.Some(v)
}
