package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/newthinker/macross/internal/backtest"
	"github.com/newthinker/macross/internal/core"
)

// SharpeLine formats the Sharpe ratio with two decimals, n/a when undefined
func SharpeLine(stats backtest.Stats) string {
	if !stats.SharpeDefined() || math.IsInf(stats.Sharpe, 0) {
		return "Sharpe Ratio: n/a"
	}
	return fmt.Sprintf("Sharpe Ratio: %.2f", stats.Sharpe)
}

// WinRateLine formats the win rate as a percentage with two decimals
func WinRateLine(stats backtest.Stats) string {
	if !stats.WinRateDefined() {
		return "Win Rate: n/a"
	}
	return fmt.Sprintf("Win Rate: %.2f%%", stats.WinRate*100)
}

// Summary writes the headline statistics followed by the supplemental ones
func Summary(w io.Writer, stats backtest.Stats) error {
	var b strings.Builder

	b.WriteString(SharpeLine(stats) + "\n")
	b.WriteString(WinRateLine(stats) + "\n\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + value + "\n")
	}
	row("Periods", fmt.Sprintf("%d (%d per year)", stats.Periods, stats.PeriodsPerYear))
	row("Buy & Hold Return", percent(stats.MarketTotalReturn, true))
	row("Strategy Return", percent(stats.StrategyTotalReturn, true))
	drawdown := 0.0
	if stats.MaxDrawdown > 0 {
		drawdown = -stats.MaxDrawdown
	}
	row("Max Drawdown", percent(drawdown, true))
	row("Exposure", percent(stats.Exposure, false))

	_, err := io.WriteString(w, b.String())
	return err
}

func percent(v float64, colored bool) string {
	if math.IsNaN(v) {
		return dimStyle.Render("n/a")
	}
	s := fmt.Sprintf("%.2f%%", v*100)
	if !colored {
		return s
	}
	return signed(v).Render(s)
}

// Events writes a table of crossover events, at most limit rows from the
// end when limit is positive.
func Events(w io.Writer, events []core.Signal, limit int) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, dimStyle.Render("No crossovers in range."))
		return err
	}

	shown := events
	if limit > 0 && len(events) > limit {
		shown = events[len(events)-limit:]
	}

	heading := fmt.Sprintf("Crossovers (%d)", len(events))
	if len(shown) < len(events) {
		heading = fmt.Sprintf("Crossovers (last %d of %d)", len(shown), len(events))
	}
	if _, err := fmt.Fprintln(w, headingStyle.Render(heading)); err != nil {
		return err
	}

	rows := make([][]string, 0, len(shown))
	for _, e := range shown {
		rows = append(rows, []string{
			e.GeneratedAt.Format("2006-01-02"),
			string(e.Action),
			metaString(e.Metadata, "type"),
			fmt.Sprintf("%.2f", e.Price),
			metaFloat(e.Metadata, "fast_ma"),
			metaFloat(e.Metadata, "slow_ma"),
			fmt.Sprintf("%.2f", e.Confidence),
		})
	}
	return render(w, []string{"Date", "Action", "Type", "Close", "Fast", "Slow", "Confidence"}, rows)
}

func metaString(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func metaFloat(m map[string]any, key string) string {
	if v, ok := m[key].(float64); ok && !math.IsNaN(v) {
		return fmt.Sprintf("%.2f", v)
	}
	return "NaN"
}
