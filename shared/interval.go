package shared

import (
	"math"
	"time"
)

// Interval represents a market data interval tag.
type Interval string

const (
	OneMinute       Interval = "1m"
	ThreeMinute     Interval = "3m"
	FiveMinute      Interval = "5m"
	FifteenMinute   Interval = "15m"
	ThirtyMinute    Interval = "30m"
	OneHour         Interval = "1h"
	TwoHour         Interval = "2h"
	FourHour        Interval = "4h"
	SixHour         Interval = "6h"
	EightHour       Interval = "8h"
	TwelveHour      Interval = "12h"
	OneDay          Interval = "1d"
	ThreeDay        Interval = "3d"
	OneWeek         Interval = "1w"
	OneMonth        Interval = "1M"
	IntervalUnknown Interval = "unknown"
)

// supportedIntervals orders the interval tags by ascending duration. Nearest
// interval ties resolve to the shorter tag.
var supportedIntervals = []Interval{
	OneMinute, ThreeMinute, FiveMinute, FifteenMinute, ThirtyMinute,
	OneHour, TwoHour, FourHour, SixHour, EightHour, TwelveHour,
	OneDay, ThreeDay, OneWeek, OneMonth,
}

// intervalDurations maps interval tags to their canonical durations. A month
// is nominally thirty days.
var intervalDurations = map[Interval]time.Duration{
	OneMinute:     time.Minute,
	ThreeMinute:   time.Minute * 3,
	FiveMinute:    time.Minute * 5,
	FifteenMinute: time.Minute * 15,
	ThirtyMinute:  time.Minute * 30,
	OneHour:       time.Hour,
	TwoHour:       time.Hour * 2,
	FourHour:      time.Hour * 4,
	SixHour:       time.Hour * 6,
	EightHour:     time.Hour * 8,
	TwelveHour:    time.Hour * 12,
	OneDay:        time.Hour * 24,
	ThreeDay:      time.Hour * 24 * 3,
	OneWeek:       time.Hour * 24 * 7,
	OneMonth:      time.Hour * 24 * 30,
}

// Duration returns the canonical duration of the provided interval. Unknown
// intervals default to a minute.
func (i Interval) Duration() time.Duration {
	duration, ok := intervalDurations[i]
	if !ok {
		return time.Minute
	}

	return duration
}

// Millis returns the canonical duration of the provided interval in milliseconds.
func (i Interval) Millis() int64 {
	return i.Duration().Milliseconds()
}

// FloorToInterval floors the provided timestamp to the nearest preceding
// interval boundary.
func FloorToInterval(ts time.Time, interval Interval) time.Time {
	millis := interval.Millis()
	floored := ts.UnixMilli() - ts.UnixMilli()%millis

	return time.UnixMilli(floored).In(ts.Location())
}

// CeilToIntervalEnd returns the last millisecond of the interval window
// containing the provided timestamp.
func CeilToIntervalEnd(ts time.Time, interval Interval) time.Time {
	return FloorToInterval(ts, interval).Add(interval.Duration() - time.Millisecond)
}

// DetectInterval inspects the gap between the first two candles of the
// provided set and maps it to the nearest supported interval tag.
func DetectInterval(candles []Candle) Interval {
	if len(candles) < 2 {
		return IntervalUnknown
	}

	gap := candles[1].OpenTime.Sub(candles[0].OpenTime)

	nearest := IntervalUnknown
	smallest := math.MaxFloat64
	for _, interval := range supportedIntervals {
		diff := math.Abs(float64(gap - intervalDurations[interval]))
		if diff < smallest {
			smallest = diff
			nearest = interval
		}
	}

	return nearest
}
