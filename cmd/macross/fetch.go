package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/newthinker/macross/internal/app"
	"github.com/newthinker/macross/internal/collector/cached"
	"github.com/newthinker/macross/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	fetchFrom string
	fetchTo   string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [symbol]",
	Short: "Download daily bars into the raw data cache",
	Long:  "Download daily bars for a symbol and store them in the configured cache, replacing any earlier copy.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "start date YYYY-MM-DD (default from config)")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "end date YYYY-MM-DD, exclusive (default from config)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Source.Provider == "csv" {
		return fmt.Errorf("fetch needs a remote source, provider is %q", cfg.Source.Provider)
	}

	a := app.New(cfg, log)

	symbol := ""
	if len(args) == 1 {
		symbol = args[0]
	}
	params, err := backtestParams(a, symbol, fetchFrom, fetchTo)
	if err != nil {
		return err
	}

	src, err := a.Source(true)
	if err != nil {
		return err
	}
	store, err := a.Cached(src)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bars, err := store.Refresh(ctx, params.Symbol, params.Start, params.End, "1d")
	if err != nil {
		return err
	}

	key := cached.Key(params.Symbol, params.Start, params.End)
	log.Info("cached bars",
		zap.String("symbol", params.Symbol),
		zap.String("key", key),
		zap.Int("bars", len(bars)),
	)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Stored %d bars as %s. First few rows:\n", len(bars), key)
	return report.RawHead(out, bars, 5)
}
