package shared

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Direction represents the direction of a reference level crossing.
type Direction int

const (
	CrossOver Direction = iota
	CrossUnder
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case CrossOver:
		return "CROSS_OVER"
	case CrossUnder:
		return "CROSS_UNDER"
	default:
		return "unknown"
	}
}

// ParseDirection parses a direction from its string form.
func ParseDirection(direction string) (Direction, error) {
	switch direction {
	case "CROSS_OVER":
		return CrossOver, nil
	case "CROSS_UNDER":
		return CrossUnder, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", direction)
	}
}

// AssetCondition represents the evaluated level condition of a single asset
// during a strategy run.
type AssetCondition struct {
	Symbol         string
	HasCrossed     bool
	CrossDirection Direction
	CurrentPrice   float64
	ReferenceLevel float64
	CrossTime      time.Time
}

// Signal represents a correlation crack signal emitted to downstream
// notifiers.
type Signal struct {
	ID               string
	TriggerAsset     string
	Direction        Direction
	CorrelatedAssets []string
	ReferenceLevel   float64
	Confidence       float64
	Timestamp        time.Time
	Conditions       []AssetCondition
}

// NewSignal initializes a new signal for the provided trigger asset.
func NewSignal(trigger string, direction Direction, correlated []string, referenceLevel float64,
	confidence float64, conditions []AssetCondition, now time.Time) Signal {
	return Signal{
		ID:               uuid.New().String(),
		TriggerAsset:     trigger,
		Direction:        direction,
		CorrelatedAssets: correlated,
		ReferenceLevel:   referenceLevel,
		Confidence:       confidence,
		Timestamp:        now,
		Conditions:       conditions,
	}
}
