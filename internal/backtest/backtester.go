package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/macross/internal/core"
	"github.com/newthinker/macross/internal/series"
	"github.com/newthinker/macross/internal/strategy"
	"github.com/newthinker/macross/internal/strategy/ma_crossover"
	"go.uber.org/zap"
)

// OHLCVProvider defines the interface for fetching historical OHLCV data
type OHLCVProvider interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}

// Recorder receives run outcomes, typically the metrics registry
type Recorder interface {
	RecordBacktest(status string, duration float64)
	RecordBacktestStats(symbol string, sharpe, winRate float64)
}

// Backtester runs strategy backtests against historical data
type Backtester struct {
	provider OHLCVProvider
	logger   *zap.Logger
	recorder Recorder
}

// Option configures a Backtester
type Option func(*Backtester)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(b *Backtester) { b.logger = logger }
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(b *Backtester) { b.recorder = r }
}

// New creates a new Backtester with the given OHLCV provider
func New(provider OHLCVProvider, opts ...Option) *Backtester {
	b := &Backtester{
		provider: provider,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run fetches daily bars for p and backtests the MA crossover strategy on them
func (b *Backtester) Run(ctx context.Context, p Params) (*Result, error) {
	p = p.WithDefaults()
	return b.RunStrategy(ctx, ma_crossover.New(p.FastWindow, p.SlowWindow), p)
}

// RunStrategy executes a backtest for the given strategy over the range in p
func (b *Backtester) RunStrategy(ctx context.Context, strat strategy.Strategy, p Params) (*Result, error) {
	start := time.Now()
	p = p.WithDefaults()

	result, err := b.run(ctx, strat, p)

	status := "success"
	if err != nil {
		status = "failed"
	}
	if b.recorder != nil {
		b.recorder.RecordBacktest(status, time.Since(start).Seconds())
		if err == nil {
			b.recorder.RecordBacktestStats(p.Symbol, result.Stats.Sharpe, result.Stats.WinRate)
		}
	}

	if err != nil {
		b.logger.Warn("backtest failed",
			zap.String("symbol", p.Symbol),
			zap.String("strategy", strat.Name()),
			zap.Error(err),
		)
		return nil, err
	}

	b.logger.Info("backtest complete",
		zap.String("symbol", p.Symbol),
		zap.String("strategy", strat.Description()),
		zap.Int("bars", result.Series.Len()),
		zap.Int("events", len(result.Events)),
		zap.Float64("sharpe", result.Stats.Sharpe),
		zap.Float64("win_rate", result.Stats.WinRate),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (b *Backtester) run(ctx context.Context, strat strategy.Strategy, p Params) (*Result, error) {
	// Fetch historical data
	ohlcv, err := b.provider.FetchHistory(ctx, p.Symbol, p.Start, p.End, "1d")
	if err != nil {
		return nil, err
	}

	if len(ohlcv) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("%s between %s and %s",
			p.Symbol, p.Start.Format(time.DateOnly), p.End.Format(time.DateOnly)))
	}

	s, err := series.FromBars(p.Symbol, ohlcv)
	if err != nil {
		return nil, err
	}

	// Short history is not fatal: the averages stay undefined and the
	// position flat.
	if need := strat.RequiredData().PriceHistory; s.Len() < need {
		b.logger.Warn("not enough history for a full slow average",
			zap.String("symbol", p.Symbol),
			zap.Error(core.WrapError(core.ErrInsufficientData,
				fmt.Errorf("%d bars, %d required", s.Len(), need))),
		)
	}

	return Evaluate(ctx, strat, s, p)
}

// Evaluate runs the signal, return and summary stages over an already
// loaded series.
func Evaluate(ctx context.Context, strat strategy.Strategy, s *series.Series, p Params) (*Result, error) {
	p = p.WithDefaults()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s = strat.Apply(s)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s = SimulateReturns(s)

	return &Result{
		Strategy: strat.Description(),
		Params:   p,
		Series:   s,
		Events:   strat.Events(s),
		Stats:    Summarize(s, p.PeriodsPerYear),
	}, nil
}
