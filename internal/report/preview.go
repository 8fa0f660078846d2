package report

import (
	"io"
	"strconv"

	"github.com/newthinker/macross/internal/core"
	"github.com/newthinker/macross/internal/series"
	"github.com/samber/lo"
)

// Column selects a series field for preview tables
type Column int

const (
	ColClose Column = iota
	ColSMAFast
	ColSMASlow
	ColSignal
	ColMarketReturn
	ColStrategyReturn
	ColMarketCum
	ColStrategyCum
)

var (
	// SignalColumns shows the indicator and position columns
	SignalColumns = []Column{ColClose, ColSMAFast, ColSMASlow, ColSignal}
	// CumulativeColumns shows both growth curves
	CumulativeColumns = []Column{ColMarketCum, ColStrategyCum}
)

var columnNames = map[Column]string{
	ColClose:          "Close",
	ColSMAFast:        "sma_fast",
	ColSMASlow:        "sma_slow",
	ColSignal:         "signal",
	ColMarketReturn:   "market_return",
	ColStrategyReturn: "strategy_return",
	ColMarketCum:      "market_cum",
	ColStrategyCum:    "strategy_cum",
}

func (c Column) String() string {
	if name, ok := columnNames[c]; ok {
		return name
	}
	return "Column(" + strconv.Itoa(int(c)) + ")"
}

func (c Column) format(r series.Row) string {
	switch c {
	case ColClose:
		return formatFloat(r.Close, 6)
	case ColSMAFast:
		return r.SMAFast.Format(6)
	case ColSMASlow:
		return r.SMASlow.Format(6)
	case ColSignal:
		return strconv.Itoa(r.Signal)
	case ColMarketReturn:
		return r.MarketReturn.Format(6)
	case ColStrategyReturn:
		return r.StrategyReturn.Format(6)
	case ColMarketCum:
		return formatFloat(r.MarketCum, 6)
	case ColStrategyCum:
		return formatFloat(r.StrategyCum, 6)
	}
	return ""
}

// Preview writes the first n rows, or the last n when fromEnd is set, as a
// table. Undefined values print as NaN.
func Preview(w io.Writer, s *series.Series, cols []Column, n int, fromEnd bool) error {
	rows := s.Head(n)
	if fromEnd {
		rows = s.Tail(n)
	}

	header := append([]string{"Date"}, lo.Map(cols, func(c Column, _ int) string { return c.String() })...)
	cells := lo.Map(rows, func(r series.Row, _ int) []string {
		return append([]string{r.Date.Format("2006-01-02")}, lo.Map(cols, func(c Column, _ int) string { return c.format(r) })...)
	})
	return render(w, header, cells)
}

// RawHead writes the first n downloaded bars with every OHLCV field
func RawHead(w io.Writer, bars []core.OHLCV, n int) error {
	if n > len(bars) {
		n = len(bars)
	}
	if n < 0 {
		n = 0
	}

	cells := lo.Map(bars[:n], func(b core.OHLCV, _ int) []string {
		return []string{
			b.Time.Format("2006-01-02"),
			formatFloat(b.Open, 6), formatFloat(b.High, 6), formatFloat(b.Low, 6), formatFloat(b.Close, 6),
			strconv.FormatInt(b.Volume, 10),
		}
	})
	return render(w, []string{"Date", "Open", "High", "Low", "Close", "Volume"}, cells)
}

func formatFloat(v float64, prec int) string {
	return series.Some(v).Format(prec)
}
