package strategy

import (
	"github.com/newthinker/macross/internal/core"
	"github.com/newthinker/macross/internal/series"
)

// Config holds strategy configuration
type Config struct {
	Params map[string]any
}

// DataRequirements specifies what data a strategy needs
type DataRequirements struct {
	PriceHistory int // Bars before the first signal can be long
	Indicators   []string
}

// Strategy derives a position column from a price series
type Strategy interface {
	Name() string
	Description() string
	RequiredData() DataRequirements
	Init(cfg Config) error

	// Apply adds the strategy's indicator and signal columns
	Apply(s *series.Series) *series.Series

	// Events lists the position changes found in an applied series
	Events(s *series.Series) []core.Signal
}
