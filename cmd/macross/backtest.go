package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/newthinker/macross/internal/app"
	"github.com/newthinker/macross/internal/backtest"
	"github.com/newthinker/macross/internal/core"
	"github.com/newthinker/macross/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

var (
	backtestFrom        string
	backtestTo          string
	backtestFast        int
	backtestSlow        int
	backtestPeriods     int
	backtestFile        string
	backtestNoCache     bool
	backtestRows        int
	backtestChartWidth  int
	backtestChartHeight int
	backtestExplain     bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [symbol]",
	Short: "Backtest the moving average crossover on a symbol",
	Long: `Download daily bars, compute the fast and slow moving averages, and
print previews, performance statistics and a chart of both equity curves.
The symbol defaults to the configured one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBacktest,
}

func init() {
	f := backtestCmd.Flags()
	f.StringVar(&backtestFrom, "from", "", "start date YYYY-MM-DD (default from config)")
	f.StringVar(&backtestTo, "to", "", "end date YYYY-MM-DD, exclusive (default from config)")
	f.IntVar(&backtestFast, "fast", 0, "fast moving average window")
	f.IntVar(&backtestSlow, "slow", 0, "slow moving average window")
	f.IntVar(&backtestPeriods, "periods", 0, "periods per year used to annualize the Sharpe ratio")
	f.StringVar(&backtestFile, "file", "", "read bars from a CSV file instead of downloading")
	f.BoolVar(&backtestNoCache, "no-cache", false, "bypass the raw data cache")
	f.IntVar(&backtestRows, "rows", 0, "rows shown in each preview table")
	f.IntVar(&backtestChartWidth, "chart-width", 0, "chart width in columns")
	f.IntVar(&backtestChartHeight, "chart-height", 0, "chart height in rows")
	f.BoolVar(&backtestExplain, "explain", false, "ask the configured LLM for a short commentary")

	rootCmd.AddCommand(backtestCmd)
}

// capture remembers the bars handed to the backtester so the raw download
// can be previewed.
type capture struct {
	backtest.OHLCVProvider
	bars []core.OHLCV
}

func (c *capture) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	bars, err := c.OHLCVProvider.FetchHistory(ctx, symbol, start, end, interval)
	c.bars = bars
	return bars, err
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if backtestFile != "" {
		cfg.Source.Provider = "csv"
		cfg.Source.File = backtestFile
	}

	a := app.New(cfg, log)

	symbol := ""
	if len(args) == 1 {
		symbol = args[0]
	}
	params, err := backtestParams(a, symbol, backtestFrom, backtestTo)
	if err != nil {
		return err
	}

	src, err := a.Source(backtestNoCache)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider := &capture{OHLCVProvider: src}
	result, err := a.Backtester(provider).Run(ctx, params)
	if err != nil {
		return err
	}

	rows := cfg.Backtest.PreviewRows
	if backtestRows > 0 {
		rows = backtestRows
	}

	out := cmd.OutOrStdout()
	if err := printReport(out, provider.bars, result, rows); err != nil {
		return err
	}

	if backtestExplain {
		explain(ctx, out, a, result, log)
	}
	return nil
}

// backtestParams merges command-line overrides into the configured defaults.
func backtestParams(a *app.App, symbol, from, to string) (backtest.Params, error) {
	p, err := a.Defaults(strings.TrimSpace(symbol))
	if err != nil {
		return p, err
	}

	if from != "" {
		if p.Start, err = time.Parse(dateLayout, from); err != nil {
			return p, core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("invalid from date format (expected YYYY-MM-DD): %w", err))
		}
	}
	if to != "" {
		if p.End, err = time.Parse(dateLayout, to); err != nil {
			return p, core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("invalid to date format (expected YYYY-MM-DD): %w", err))
		}
	}
	if !p.End.After(p.Start) {
		return p, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("end date must be after start date"))
	}

	if backtestFast < 0 || backtestSlow < 0 || backtestPeriods < 0 {
		return p, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("windows and periods must be positive"))
	}
	if backtestFast > 0 {
		p.FastWindow = backtestFast
	}
	if backtestSlow > 0 {
		p.SlowWindow = backtestSlow
	}
	if backtestPeriods > 0 {
		p.PeriodsPerYear = backtestPeriods
	}
	return p, nil
}

func printReport(w io.Writer, bars []core.OHLCV, result *backtest.Result, rows int) error {
	fmt.Fprintln(w, "Data downloaded. First few rows:")
	if err := report.RawHead(w, bars, 5); err != nil {
		return err
	}
	fmt.Fprintln(w)

	if err := report.Preview(w, result.Series, report.SignalColumns, rows, true); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nCumulative returns (last %d rows):\n", rows)
	if err := report.Preview(w, result.Series, report.CumulativeColumns, rows, true); err != nil {
		return err
	}

	fmt.Fprintln(w)
	if err := report.Summary(w, result.Stats); err != nil {
		return err
	}

	fmt.Fprintln(w)
	if err := report.Events(w, result.Events, rows); err != nil {
		return err
	}

	fmt.Fprintln(w)
	return report.Chart(w, result.Series, report.ChartOptions{
		Width:  backtestChartWidth,
		Height: backtestChartHeight,
		Title:  report.Title(result.Params.Start, result.Params.End),
	})
}

// explain prints the LLM commentary. Failures are logged, the report stands.
func explain(ctx context.Context, w io.Writer, a *app.App, result *backtest.Result, log *zap.Logger) {
	provider, err := a.LLM()
	if err != nil {
		log.Warn("commentary unavailable", zap.Error(err))
		return
	}

	text, err := report.Commentary(ctx, provider, result)
	if err != nil {
		log.Warn("commentary failed", zap.String("provider", provider.Name()), zap.Error(err))
		return
	}
	fmt.Fprintf(w, "\n%s\n", text)
}
