// Package series holds the working table threaded through the backtest
// pipeline. Each stage owns and writes its own columns only.
package series

import (
	"fmt"
	"sort"
	"time"

	"github.com/newthinker/macross/internal/core"
	"github.com/samber/lo"
)

// Row is one trading date of the working table
type Row struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`

	// Indicator engine
	SMAFast Float `json:"sma_fast"`
	SMASlow Float `json:"sma_slow"`

	// Signal generator: 0 flat, 1 long
	Signal int `json:"signal"`

	// Return simulator
	MarketReturn   Float   `json:"market_return"`
	StrategyReturn Float   `json:"strategy_return"`
	MarketCum      float64 `json:"market_cum"`
	StrategyCum    float64 `json:"strategy_cum"`
}

// Series is an ordered table of rows, ascending by date with unique dates
type Series struct {
	Symbol string `json:"symbol"`
	Rows   []Row  `json:"rows"`
}

// FromBars builds a series from loader output. Bars without a close are
// dropped and the rest sorted by date; a repeated date is an error.
func FromBars(symbol string, bars []core.OHLCV) (*Series, error) {
	usable := lo.Filter(bars, func(b core.OHLCV, _ int) bool {
		return b.HasClose()
	})
	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].Time.Before(usable[j].Time)
	})

	rows := make([]Row, 0, len(usable))
	for i, b := range usable {
		date := dateOf(b.Time)
		if i > 0 && date.Equal(rows[len(rows)-1].Date) {
			return nil, core.WrapError(core.ErrDuplicateDate,
				fmt.Errorf("%s on %s", symbol, date.Format(time.DateOnly)))
		}
		rows = append(rows, Row{
			Date:        date,
			Close:       b.Close,
			MarketCum:   1,
			StrategyCum: 1,
		})
	}

	return &Series{Symbol: symbol, Rows: rows}, nil
}

// FromCloses builds a series from closes on consecutive calendar days
// starting at start.
func FromCloses(symbol string, start time.Time, closes []float64) *Series {
	rows := make([]Row, len(closes))
	for i, c := range closes {
		rows[i] = Row{
			Date:        dateOf(start).AddDate(0, 0, i),
			Close:       c,
			MarketCum:   1,
			StrategyCum: 1,
		}
	}
	return &Series{Symbol: symbol, Rows: rows}
}

// Len returns the number of rows
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// Closes extracts the close column
func (s *Series) Closes() []float64 {
	return lo.Map(s.Rows, func(r Row, _ int) float64 { return r.Close })
}

// Signals extracts the signal column
func (s *Series) Signals() []int {
	return lo.Map(s.Rows, func(r Row, _ int) int { return r.Signal })
}

// StrategyReturns returns the defined strategy returns in date order
func (s *Series) StrategyReturns() []float64 {
	return definedValues(s.Rows, func(r Row) Float { return r.StrategyReturn })
}

// MarketReturns returns the defined market returns in date order
func (s *Series) MarketReturns() []float64 {
	return definedValues(s.Rows, func(r Row) Float { return r.MarketReturn })
}

// Last returns the final row, false when the series is empty
func (s *Series) Last() (Row, bool) {
	if s.Len() == 0 {
		return Row{}, false
	}
	return s.Rows[len(s.Rows)-1], true
}

// Head returns at most n leading rows
func (s *Series) Head(n int) []Row {
	if n > s.Len() {
		n = s.Len()
	}
	if n < 0 {
		n = 0
	}
	return s.Rows[:n]
}

// Tail returns at most n trailing rows
func (s *Series) Tail(n int) []Row {
	if n > s.Len() {
		n = s.Len()
	}
	if n < 0 {
		n = 0
	}
	return s.Rows[s.Len()-n:]
}

func definedValues(rows []Row, col func(Row) Float) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if v := col(r); v.Valid {
			out = append(out, v.Value)
		}
	}
	return out
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
