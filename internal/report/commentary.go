package report

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/newthinker/macross/internal/backtest"
	"github.com/newthinker/macross/internal/llm"
)

const commentarySystemPrompt = `You are a quantitative analyst reviewing a backtest of a long-only moving
average crossover strategy on daily closes. The position is taken the day after
the fast average closes above the slow one. Write three to five sentences for a
retail investor: compare the strategy with buy and hold, interpret the Sharpe
ratio and win rate, and name one limitation of the test (no costs, single asset,
in-sample windows). Do not give investment advice.`

// maxPromptEvents bounds how many recent crossovers the prompt lists
const maxPromptEvents = 6

// Prompt describes a result in plain text for an LLM
func Prompt(r *backtest.Result) string {
	var b strings.Builder
	p := r.Params

	fmt.Fprintf(&b, "Symbol: %s\n", p.Symbol)
	fmt.Fprintf(&b, "Range: %s to %s (%d trading days)\n",
		p.Start.Format(time.DateOnly), p.End.Format(time.DateOnly), r.Series.Len())
	fmt.Fprintf(&b, "Strategy: %s\n", r.Strategy)
	fmt.Fprintf(&b, "%s\n%s\n", SharpeLine(r.Stats), WinRateLine(r.Stats))
	fmt.Fprintf(&b, "Buy and hold total return: %.2f%%\n", r.Stats.MarketTotalReturn*100)
	fmt.Fprintf(&b, "Strategy total return: %.2f%%\n", r.Stats.StrategyTotalReturn*100)
	fmt.Fprintf(&b, "Strategy max drawdown: %.2f%%\n", r.Stats.MaxDrawdown*100)
	if !math.IsNaN(r.Stats.Exposure) {
		fmt.Fprintf(&b, "Time in market: %.2f%%\n", r.Stats.Exposure*100)
	}
	fmt.Fprintf(&b, "Crossovers: %d\n", len(r.Events))

	recent := r.Events
	if len(recent) > maxPromptEvents {
		recent = recent[len(recent)-maxPromptEvents:]
	}
	for _, e := range recent {
		fmt.Fprintf(&b, "- %s %s at %.2f\n", e.GeneratedAt.Format(time.DateOnly), e.Action, e.Price)
	}
	return b.String()
}

// Commentary asks the provider for a short narrative of the result
func Commentary(ctx context.Context, provider llm.Provider, r *backtest.Result) (string, error) {
	return llm.Ask(ctx, provider, commentarySystemPrompt, Prompt(r), 400)
}
