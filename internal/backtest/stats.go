package backtest

import (
	"math"

	"github.com/newthinker/macross/internal/series"
	"gonum.org/v1/gonum/stat"
)

// Summarize computes performance statistics over the defined strategy
// returns. Sharpe is NaN with fewer than two returns or zero variance;
// win rate is NaN when no return is defined.
func Summarize(s *series.Series, periodsPerYear int) Stats {
	returns := s.StrategyReturns()

	stats := Stats{
		Sharpe:         calculateSharpeRatio(returns, periodsPerYear),
		WinRate:        calculateWinRate(returns),
		Periods:        len(returns),
		PeriodsPerYear: periodsPerYear,
		Exposure:       math.NaN(),
	}

	if last, ok := s.Last(); ok {
		stats.MarketTotalReturn = last.MarketCum - 1
		stats.StrategyTotalReturn = last.StrategyCum - 1
		stats.Exposure = calculateExposure(s)
	}
	stats.MaxDrawdown = calculateMaxDrawdown(s)

	return stats
}

// calculateSharpeRatio computes risk-adjusted return
// Assumes risk-free rate of 0 for simplicity
func calculateSharpeRatio(returns []float64, periodsPerYear int) float64 {
	if len(returns) < 2 {
		return math.NaN()
	}

	// Sample standard deviation (n-1)
	mean, stdDev := stat.MeanStdDev(returns, nil)
	if stdDev == 0 || math.IsNaN(stdDev) {
		return math.NaN()
	}

	return mean / stdDev * math.Sqrt(float64(periodsPerYear))
}

func calculateWinRate(returns []float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}

	var winning int
	for _, r := range returns {
		if r > 0 {
			winning++
		}
	}
	return float64(winning) / float64(len(returns))
}

// calculateMaxDrawdown finds the largest peak-to-trough decline
func calculateMaxDrawdown(s *series.Series) float64 {
	var maxDD float64
	peak := 1.0

	for _, r := range s.Rows {
		if r.StrategyCum > peak {
			peak = r.StrategyCum
		}
		if peak > 0 {
			dd := (peak - r.StrategyCum) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}

	return maxDD
}

func calculateExposure(s *series.Series) float64 {
	var long int
	for _, r := range s.Rows {
		if r.Signal == 1 {
			long++
		}
	}
	return float64(long) / float64(s.Len())
}
