package backtest

import "github.com/newthinker/macross/internal/series"

// SimulateReturns fills market and strategy returns and their compounded
// curves. The strategy earns today's market return only if yesterday's
// signal was long, so a signal is never traded on the close that produced it.
func SimulateReturns(s *series.Series) *series.Series {
	marketCum, strategyCum := 1.0, 1.0

	for i := range s.Rows {
		r := &s.Rows[i]
		r.MarketReturn = series.None()
		r.StrategyReturn = series.None()

		if i > 0 {
			prev := s.Rows[i-1]
			market := r.Close/prev.Close - 1
			r.MarketReturn = series.Some(market)
			r.StrategyReturn = series.Some(market * float64(prev.Signal))
		}

		// Undefined returns compound as 1
		if r.MarketReturn.Valid {
			marketCum *= 1 + r.MarketReturn.Value
		}
		if r.StrategyReturn.Valid {
			strategyCum *= 1 + r.StrategyReturn.Value
		}
		r.MarketCum = marketCum
		r.StrategyCum = strategyCum
	}

	return s
}
