package collector

import (
	"context"
	"time"

	"github.com/newthinker/macross/internal/core"
)

// Config holds collector configuration
type Config struct {
	Timeout time.Duration
	Proxy   string
	BaseURL string
	Extra   map[string]any
}

// Collector defines the interface for price bar loaders
type Collector interface {
	Name() string
	Init(cfg Config) error

	// FetchHistory returns daily bars in [start, end). Bars with no close
	// are left out.
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}
