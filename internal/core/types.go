package core

import "time"

// OHLCV represents a daily price bar
type OHLCV struct {
	Symbol   string
	Interval string // "1d"
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	Time     time.Time
}

// HasClose reports whether the bar carries a usable closing price
func (b OHLCV) HasClose() bool {
	return b.Close > 0 && !b.Time.IsZero()
}

// Action represents a trading signal action
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Signal is a position change emitted when the averages cross
type Signal struct {
	Symbol      string         `json:"symbol"`
	Action      Action         `json:"action"`
	Confidence  float64        `json:"confidence"`
	Price       float64        `json:"price"` // Close on the crossover date
	Reason      string         `json:"reason"`
	Strategy    string         `json:"strategy"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
}
