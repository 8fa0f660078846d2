package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/newthinker/macross/internal/series"
	"github.com/samber/lo"
)

const (
	DefaultChartWidth  = 72
	DefaultChartHeight = 16

	marketLabel   = "Buy & Hold (Market)"
	strategyLabel = "Moving Avg Strategy"
)

// ChartOptions sizes the plot area, excluding axes and labels
type ChartOptions struct {
	Width  int
	Height int
	Title  string // Defaults to Title over the series dates
}

func (o ChartOptions) withDefaults() ChartOptions {
	if o.Width < 2 {
		o.Width = DefaultChartWidth
	}
	if o.Height < 2 {
		o.Height = DefaultChartHeight
	}
	return o
}

// Title returns the chart heading for a requested date range
func Title(start, end time.Time) string {
	return fmt.Sprintf("Strategy vs. Market Performance (%d–%d)", start.Year(), end.Year())
}

// Chart draws the market and strategy cumulative curves as a line chart
func Chart(w io.Writer, s *series.Series, opts ChartOptions) error {
	opts = opts.withDefaults()
	if s.Len() == 0 {
		_, err := fmt.Fprintln(w, dimStyle.Render("No data to plot."))
		return err
	}

	first, last := s.Rows[0], s.Rows[s.Len()-1]
	if opts.Title == "" {
		opts.Title = Title(first.Date, last.Date)
	}

	market := lo.Map(s.Rows, func(r series.Row, _ int) float64 { return r.MarketCum })
	strategy := lo.Map(s.Rows, func(r series.Row, _ int) float64 { return r.StrategyCum })

	low, high := bounds(market, strategy)
	plot := asciigraph.PlotMany([][]float64{market, strategy},
		asciigraph.Width(opts.Width),
		asciigraph.Height(opts.Height),
		asciigraph.Precision(2),
		asciigraph.LowerBound(low),
		asciigraph.UpperBound(high),
		asciigraph.Caption(fmt.Sprintf("Date: %s to %s",
			first.Date.Format("2006-01-02"), last.Date.Format("2006-01-02"))),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.DarkOrange),
		asciigraph.SeriesLegends(marketLabel, strategyLabel),
	)

	var b strings.Builder
	b.WriteString(titleStyle.Render(opts.Title) + "\n")
	b.WriteString(dimStyle.Render("Cumulative Return") + "\n")
	b.WriteString(plot + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// bounds returns the value range of all curves, widened when flat so the
// plot keeps a non-zero scale.
func bounds(curves ...[]float64) (float64, float64) {
	low, high := math.Inf(1), math.Inf(-1)
	for _, curve := range curves {
		for _, v := range curve {
			low = math.Min(low, v)
			high = math.Max(high, v)
		}
	}
	if high-low < 1e-9 {
		low, high = low-0.01, high+0.01
	}
	return low, high
}
