package indicator

import (
	"fmt"
	"time"

	"github.com/vladborsh/trading-tg-bot/shared"
)

// HighLowConfig represents the configuration for a high/low calculation.
type HighLowConfig struct {
	// Symbol is the market symbol the candles belong to.
	Symbol string
	// Period is the reference window over which extremes are computed.
	Period *shared.PeriodSpec
	// UseBodyHighLow toggles body extremes instead of wick extremes.
	UseBodyHighLow bool
	// Timezone is the fallback timezone for period resolution.
	Timezone string
}

// HighLowResult represents the computed high/low reference levels of a
// symbol over a period.
type HighLowResult struct {
	Symbol       string
	Interval     shared.Interval
	Period       string
	High         float64
	Low          float64
	HighTime     time.Time
	LowTime      time.Time
	Range        float64
	RangePercent float64
	CalculatedAt time.Time
}

// CalculateHighLow computes the high and low of the provided candles over
// the configured period, resolved relative to the provided current time.
// Ties resolve to the earliest occurrence.
func CalculateHighLow(candles []shared.Candle, cfg *HighLowConfig, now time.Time) (*HighLowResult, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: no candles provided for %s", shared.ErrInvalidCandleData, cfg.Symbol)
	}

	for idx := range candles {
		err := candles[idx].Validate()
		if err != nil {
			return nil, err
		}
	}

	filtered := FilterByPeriod(candles, cfg.Period, cfg.Timezone, now)
	if len(filtered) == 0 {
		return nil, fmt.Errorf("%w: %s period %s", shared.ErrEmptyPeriod, cfg.Symbol, cfg.Period.String())
	}

	enriched := make([]shared.EnrichedCandle, 0, len(filtered))
	for idx := range filtered {
		enriched = append(enriched, filtered[idx].Enrich())
	}

	first := enriched[0]
	highest, lowest := candleExtremes(&first, cfg.UseBodyHighLow)
	highTime, lowTime := first.OpenTime, first.OpenTime

	for idx := 1; idx < len(enriched); idx++ {
		high, low := candleExtremes(&enriched[idx], cfg.UseBodyHighLow)
		if high > highest {
			highest = high
			highTime = enriched[idx].OpenTime
		}
		if low < lowest {
			lowest = low
			lowTime = enriched[idx].OpenTime
		}
	}

	priceRange := highest - lowest
	var rangePercent float64
	if lowest > 0 {
		rangePercent = priceRange / lowest * 100
	}

	return &HighLowResult{
		Symbol:       cfg.Symbol,
		Interval:     shared.DetectInterval(filtered),
		Period:       cfg.Period.String(),
		High:         highest,
		Low:          lowest,
		HighTime:     highTime,
		LowTime:      lowTime,
		Range:        priceRange,
		RangePercent: rangePercent,
		CalculatedAt: time.Now().UTC(),
	}, nil
}

// candleExtremes returns the high and low of the provided candle, using the
// candle body when toggled.
func candleExtremes(candle *shared.EnrichedCandle, useBody bool) (float64, float64) {
	if useBody {
		return candle.BodyHigh, candle.BodyLow
	}

	return candle.High, candle.Low
}
