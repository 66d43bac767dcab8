package indicator

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/vladborsh/trading-tg-bot/shared"
)

// candleSeries builds five minute candles with the provided closes. Highs
// and lows pad the close so every candle is well formed.
func candleSeries(start time.Time, closes ...float64) []shared.Candle {
	candles := make([]shared.Candle, 0, len(closes))
	for idx, price := range closes {
		openTime := start.Add(time.Duration(idx) * time.Minute * 5)
		candles = append(candles, shared.Candle{
			Symbol:    "EURUSD",
			OpenTime:  openTime,
			CloseTime: openTime.Add(time.Minute*5 - time.Millisecond),
			Open:      price,
			High:      price + 0.001,
			Low:       price - 0.001,
			Close:     price,
		})
	}

	return candles
}

func TestDetectCrossUnder(t *testing.T) {
	start := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)

	// Two candles straddling the level from above.
	candles := candleSeries(start, 1.1050, 1.0990)

	// Ensure the downward break is detected and stamped with the breaking
	// candle's open time.
	result := DetectCross(candles, 1.1000, shared.CrossUnder, DefaultCrossLookback)
	assert.True(t, result.Crossed)
	assert.Equal(t, shared.CrossUnder, result.Direction)
	assert.Equal(t, candles[1].OpenTime.UnixMilli(), result.CrossTime.UnixMilli())

	// Ensure closes holding above the level do not break it.
	holding := candleSeries(start, 1.1050, 1.1020)
	assert.False(t, DetectCross(holding, 1.1000, shared.CrossUnder, DefaultCrossLookback).Crossed)
}

func TestDetectCrossOver(t *testing.T) {
	start := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)

	candles := candleSeries(start, 0.9980, 1.0020)

	// Ensure the upward break is detected.
	result := DetectCross(candles, 1.0000, shared.CrossOver, DefaultCrossLookback)
	assert.True(t, result.Crossed)
	assert.Equal(t, shared.CrossOver, result.Direction)
	assert.Equal(t, candles[1].OpenTime.UnixMilli(), result.CrossTime.UnixMilli())
}

func TestDetectCrossBoundaries(t *testing.T) {
	start := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)

	// Ensure a previous close resting exactly on the level can start a break.
	onLevel := candleSeries(start, 1.1000, 1.0990)
	assert.True(t, DetectCross(onLevel, 1.1000, shared.CrossUnder, DefaultCrossLookback).Crossed)

	// Ensure a current close resting exactly on the level never completes one.
	toLevel := candleSeries(start, 1.1050, 1.1000)
	assert.False(t, DetectCross(toLevel, 1.1000, shared.CrossUnder, DefaultCrossLookback).Crossed)

	// Same boundaries for upward breaks.
	assert.True(t, DetectCross(candleSeries(start, 1.0000, 1.0010), 1.0000, shared.CrossOver, DefaultCrossLookback).Crossed)
	assert.False(t, DetectCross(candleSeries(start, 0.9990, 1.0000), 1.0000, shared.CrossOver, DefaultCrossLookback).Crossed)
}

func TestDetectCrossLookback(t *testing.T) {
	start := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)

	// A break followed by a long stretch of quiet closes.
	closes := []float64{1.1050, 1.0990}
	for i := 0; i < 10; i++ {
		closes = append(closes, 1.0980)
	}
	candles := candleSeries(start, closes...)

	// Ensure breaks older than the lookback are not reported.
	assert.False(t, DetectCross(candles, 1.1000, shared.CrossUnder, 5).Crossed)
	assert.True(t, DetectCross(candles, 1.1000, shared.CrossUnder, len(candles)).Crossed)
}

func TestDetectCrossShortSeries(t *testing.T) {
	start := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)

	// Ensure fewer than two candles can never report a break.
	assert.False(t, DetectCross(nil, 1.1000, shared.CrossUnder, DefaultCrossLookback).Crossed)
	assert.False(t, DetectCross(candleSeries(start, 1.0990), 1.1000, shared.CrossUnder, DefaultCrossLookback).Crossed)
}
