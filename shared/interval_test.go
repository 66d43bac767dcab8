package shared

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestIntervalDuration(t *testing.T) {
	// Ensure supported interval tags map to their canonical durations.
	assert.Equal(t, time.Minute, OneMinute.Duration())
	assert.Equal(t, time.Minute*5, FiveMinute.Duration())
	assert.Equal(t, time.Hour*4, FourHour.Duration())
	assert.Equal(t, time.Hour*24, OneDay.Duration())
	assert.Equal(t, time.Hour*24*7, OneWeek.Duration())

	// Ensure a month is nominally thirty days.
	assert.Equal(t, time.Hour*24*30, OneMonth.Duration())

	// Ensure unknown tags default to a minute.
	assert.Equal(t, time.Minute, Interval("bogus").Duration())
	assert.Equal(t, time.Minute.Milliseconds(), Interval("bogus").Millis())
}

func TestFloorToInterval(t *testing.T) {
	ts := time.Date(2024, time.May, 15, 13, 47, 23, 0, time.UTC)

	// Ensure timestamps floor to the preceding interval boundary.
	assert.Equal(t, time.Date(2024, time.May, 15, 13, 45, 0, 0, time.UTC).UnixMilli(),
		FloorToInterval(ts, FiveMinute).UnixMilli())
	assert.Equal(t, time.Date(2024, time.May, 15, 13, 0, 0, 0, time.UTC).UnixMilli(),
		FloorToInterval(ts, OneHour).UnixMilli())
	assert.Equal(t, time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC).UnixMilli(),
		FloorToInterval(ts, OneDay).UnixMilli())

	// Ensure flooring is idempotent.
	floored := FloorToInterval(ts, OneHour)
	assert.Equal(t, floored.UnixMilli(), FloorToInterval(floored, OneHour).UnixMilli())

	// Ensure a timestamp already on a boundary is unchanged.
	boundary := time.Date(2024, time.May, 15, 13, 0, 0, 0, time.UTC)
	assert.Equal(t, boundary.UnixMilli(), FloorToInterval(boundary, OneHour).UnixMilli())
}

func TestCeilToIntervalEnd(t *testing.T) {
	ts := time.Date(2024, time.May, 15, 13, 47, 23, 0, time.UTC)

	// Ensure the window end is the last millisecond before the next boundary.
	end := CeilToIntervalEnd(ts, OneHour)
	assert.Equal(t, time.Date(2024, time.May, 15, 13, 59, 59, 999000000, time.UTC).UnixMilli(),
		end.UnixMilli())

	// Ensure the end is one millisecond before the next window start.
	next := FloorToInterval(ts, OneHour).Add(time.Hour)
	assert.Equal(t, next.UnixMilli()-1, end.UnixMilli())
}

func TestDetectInterval(t *testing.T) {
	base := time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC)

	candlesAt := func(gap time.Duration) []Candle {
		return []Candle{
			{OpenTime: base, CloseTime: base.Add(gap)},
			{OpenTime: base.Add(gap), CloseTime: base.Add(gap * 2)},
		}
	}

	// Ensure exact gaps map to their interval tags.
	assert.Equal(t, FiveMinute, DetectInterval(candlesAt(time.Minute*5)))
	assert.Equal(t, OneHour, DetectInterval(candlesAt(time.Hour)))
	assert.Equal(t, OneDay, DetectInterval(candlesAt(time.Hour*24)))

	// Ensure an off-grid gap maps to the nearest tag.
	assert.Equal(t, FiveMinute, DetectInterval(candlesAt(time.Minute*5+time.Second*20)))

	// Ensure a gap equidistant from two tags resolves to the shorter one,
	// stable across runs.
	for i := 0; i < 10; i++ {
		assert.Equal(t, OneMinute, DetectInterval(candlesAt(time.Minute*2)))
		assert.Equal(t, TwoHour, DetectInterval(candlesAt(time.Hour*3)))
	}

	// Ensure fewer than two candles yields the unknown tag.
	assert.Equal(t, IntervalUnknown, DetectInterval(nil))
	assert.Equal(t, IntervalUnknown, DetectInterval(candlesAt(time.Minute)[:1]))
}
