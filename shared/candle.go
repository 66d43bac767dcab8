package shared

import (
	"fmt"
	"math"
	"time"
)

// Candle represents a unit OHLCV bar for a market symbol.
type Candle struct {
	Symbol    string
	OpenTime  time.Time
	CloseTime time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Trades    int64
}

// Validate asserts the candle has sane inputs.
func (c *Candle) Validate() error {
	bodyHigh := math.Max(c.Open, c.Close)
	bodyLow := math.Min(c.Open, c.Close)

	if c.Low > bodyLow || c.High < bodyHigh {
		return fmt.Errorf("%w: %s candle extremes do not bound its body (o=%f h=%f l=%f c=%f)",
			ErrInvalidCandleData, c.Symbol, c.Open, c.High, c.Low, c.Close)
	}
	if !c.OpenTime.Before(c.CloseTime) {
		return fmt.Errorf("%w: %s candle open time %v is not before close time %v",
			ErrInvalidCandleData, c.Symbol, c.OpenTime, c.CloseTime)
	}
	if c.Volume < 0 {
		return fmt.Errorf("%w: %s candle has negative volume %f", ErrInvalidCandleData, c.Symbol, c.Volume)
	}

	return nil
}

// EnrichedCandle represents a candle annotated with derived body and wick metadata.
type EnrichedCandle struct {
	Candle
	BodyHigh  float64
	BodyLow   float64
	UpperWick float64
	LowerWick float64
	Green     bool
}

// Enrich derives the body and wick metadata for the provided candle.
func (c *Candle) Enrich() EnrichedCandle {
	bodyHigh := math.Max(c.Open, c.Close)
	bodyLow := math.Min(c.Open, c.Close)

	return EnrichedCandle{
		Candle:    *c,
		BodyHigh:  bodyHigh,
		BodyLow:   bodyLow,
		UpperWick: c.High - bodyHigh,
		LowerWick: bodyLow - c.Low,
		Green:     c.Close > c.Open,
	}
}

// RecentCandles returns the last n candles of the provided set, preserving order.
func RecentCandles(candles []Candle, n int) []Candle {
	if n <= 0 {
		return []Candle{}
	}
	if len(candles) <= n {
		return candles
	}

	return candles[len(candles)-n:]
}
