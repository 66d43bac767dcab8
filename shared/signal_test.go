package shared

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestDirection(t *testing.T) {
	// Ensure directions round-trip through their string forms.
	assert.Equal(t, "CROSS_OVER", CrossOver.String())
	assert.Equal(t, "CROSS_UNDER", CrossUnder.String())

	over, err := ParseDirection("CROSS_OVER")
	assert.NoError(t, err)
	assert.Equal(t, CrossOver, over)

	under, err := ParseDirection("CROSS_UNDER")
	assert.NoError(t, err)
	assert.Equal(t, CrossUnder, under)

	// Ensure unknown forms error.
	_, err = ParseDirection("SIDEWAYS")
	assert.Error(t, err)
}

func TestNewSignal(t *testing.T) {
	now := time.Now().UTC()
	conditions := []AssetCondition{
		{Symbol: "EURUSD", HasCrossed: true, ReferenceLevel: 1.1050},
		{Symbol: "GBPUSD", ReferenceLevel: 1.2800},
	}

	signal := NewSignal("EURUSD", CrossUnder, []string{"GBPUSD"}, 1.1050, 0.6, conditions, now)

	// Ensure signals carry a unique identifier and their inputs verbatim.
	assert.NotEqual(t, "", signal.ID)
	assert.Equal(t, "EURUSD", signal.TriggerAsset)
	assert.Equal(t, CrossUnder, signal.Direction)
	assert.Equal(t, []string{"GBPUSD"}, signal.CorrelatedAssets)
	assert.Equal(t, 1.1050, signal.ReferenceLevel)
	assert.Equal(t, 0.6, signal.Confidence)
	assert.Equal(t, 2, len(signal.Conditions))

	// Ensure identifiers differ across signals.
	other := NewSignal("EURUSD", CrossUnder, nil, 1.1050, 0.6, nil, now)
	assert.NotEqual(t, signal.ID, other.ID)
}
