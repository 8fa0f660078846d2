package indicator

import "github.com/newthinker/macross/internal/series"

// SMA calculates the Simple Moving Average aligned to prices.
// Values before period-1 are undefined; a series shorter than period
// is undefined throughout.
func SMA(prices []float64, period int) []series.Float {
	result := make([]series.Float, len(prices))
	if period <= 0 || len(prices) < period {
		return result
	}

	// Calculate first SMA
	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	result[period-1] = series.Some(sum / float64(period))

	// Rolling calculation
	for i := period; i < len(prices); i++ {
		sum = sum - prices[i-period] + prices[i]
		result[i] = series.Some(sum / float64(period))
	}

	return result
}

// AddIndicators fills the fast and slow moving average columns.
// fast < slow is conventional but not enforced.
func AddIndicators(s *series.Series, fastWindow, slowWindow int) *series.Series {
	closes := s.Closes()
	fast := SMA(closes, fastWindow)
	slow := SMA(closes, slowWindow)

	for i := range s.Rows {
		s.Rows[i].SMAFast = fast[i]
		s.Rows[i].SMASlow = slow[i]
	}
	return s
}
