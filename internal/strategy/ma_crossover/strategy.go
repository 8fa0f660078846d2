package ma_crossover

import (
	"fmt"
	"math"

	"github.com/newthinker/macross/internal/core"
	"github.com/newthinker/macross/internal/indicator"
	"github.com/newthinker/macross/internal/series"
	"github.com/newthinker/macross/internal/strategy"
)

const (
	DefaultFastPeriod = 20
	DefaultSlowPeriod = 50
)

// MACrossover implements a moving average crossover strategy
type MACrossover struct {
	fastPeriod int
	slowPeriod int
}

// New creates a new MA Crossover strategy
func New(fastPeriod, slowPeriod int) *MACrossover {
	return &MACrossover{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
	}
}

func (m *MACrossover) Name() string {
	return "ma_crossover"
}

func (m *MACrossover) Description() string {
	return fmt.Sprintf("MA Crossover (%d/%d)", m.fastPeriod, m.slowPeriod)
}

func (m *MACrossover) RequiredData() strategy.DataRequirements {
	return strategy.DataRequirements{
		PriceHistory: max(m.fastPeriod, m.slowPeriod),
		Indicators:   []string{"SMA"},
	}
}

func (m *MACrossover) Init(cfg strategy.Config) error {
	if fast, ok := intParam(cfg.Params, "fast_period"); ok {
		m.fastPeriod = fast
	}
	if slow, ok := intParam(cfg.Params, "slow_period"); ok {
		m.slowPeriod = slow
	}
	if m.fastPeriod <= 0 || m.slowPeriod <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("periods must be positive, got %d/%d", m.fastPeriod, m.slowPeriod))
	}
	return nil
}

// Apply computes both averages and the position column
func (m *MACrossover) Apply(s *series.Series) *series.Series {
	return GenerateSignals(indicator.AddIndicators(s, m.fastPeriod, m.slowPeriod))
}

// GenerateSignals sets signal to 1 where the fast average is strictly above
// the slow one and 0 everywhere else, including rows where either is undefined.
func GenerateSignals(s *series.Series) *series.Series {
	for i := range s.Rows {
		r := &s.Rows[i]
		r.Signal = 0
		if r.SMAFast.Valid && r.SMASlow.Valid && r.SMAFast.Value > r.SMASlow.Value {
			r.Signal = 1
		}
	}
	return s
}

// Events reports a golden cross for every 0->1 change of the signal column
// and a death cross for every 1->0 change.
func (m *MACrossover) Events(s *series.Series) []core.Signal {
	var signals []core.Signal

	for i := 1; i < s.Len(); i++ {
		prev, curr := s.Rows[i-1], s.Rows[i]
		if prev.Signal == curr.Signal {
			continue
		}

		fast, slow := curr.SMAFast.Float64(), curr.SMASlow.Float64()
		sig := core.Signal{
			Symbol:      s.Symbol,
			Confidence:  m.calculateConfidence(fast, slow),
			Price:       curr.Close,
			Strategy:    m.Name(),
			GeneratedAt: curr.Date,
			Metadata: map[string]any{
				"fast_ma": fast,
				"slow_ma": slow,
			},
		}

		// Golden Cross: fast crosses above slow
		if curr.Signal == 1 {
			sig.Action = core.ActionBuy
			sig.Reason = fmt.Sprintf("Golden Cross: MA%d (%.2f) crossed above MA%d (%.2f)", m.fastPeriod, fast, m.slowPeriod, slow)
			sig.Metadata["type"] = "golden_cross"
		} else {
			// Death Cross: fast crosses below slow
			sig.Action = core.ActionSell
			sig.Reason = fmt.Sprintf("Death Cross: MA%d (%.2f) crossed below MA%d (%.2f)", m.fastPeriod, fast, m.slowPeriod, slow)
			sig.Metadata["type"] = "death_cross"
		}

		signals = append(signals, sig)
	}

	return signals
}

// calculateConfidence returns higher confidence for larger divergence
func (m *MACrossover) calculateConfidence(fast, slow float64) float64 {
	if slow == 0 || math.IsNaN(fast) || math.IsNaN(slow) {
		return 0.5
	}
	diff := (fast - slow) / slow
	if diff < 0 {
		diff = -diff
	}

	// Scale to 0.5-0.9 range based on divergence
	confidence := 0.5 + (diff * 10)
	if confidence > 0.9 {
		confidence = 0.9
	}
	return confidence
}

// intParam reads an integer parameter that may have been decoded from YAML
// or JSON as any numeric type.
func intParam(params map[string]any, key string) (int, bool) {
	switch v := params[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
