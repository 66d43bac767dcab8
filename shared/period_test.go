package shared

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestPeriodValidate(t *testing.T) {
	// Ensure a known calendar period validates.
	calendar := PeriodSpec{Kind: CalendarPeriod, Calendar: PrevDay}
	assert.NoError(t, calendar.Validate())

	// Ensure an unknown calendar name errors.
	badCalendar := PeriodSpec{Kind: CalendarPeriod, Calendar: "yesterday"}
	assert.Error(t, badCalendar.Validate())

	// Ensure a rolling period requires a positive count.
	assert.NoError(t, (&PeriodSpec{Kind: RollingPeriod, Interval: FiveMinute, Periods: 3}).Validate())
	assert.Error(t, (&PeriodSpec{Kind: RollingPeriod, Interval: FiveMinute}).Validate())

	// Ensure a custom period requires an ordered range.
	start := time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, (&PeriodSpec{Kind: CustomPeriod, Start: start, End: start.Add(time.Hour)}).Validate())
	assert.Error(t, (&PeriodSpec{Kind: CustomPeriod, Start: start, End: start.Add(-time.Hour)}).Validate())

	// Ensure a session period requires a valid session spec.
	assert.Error(t, (&PeriodSpec{Kind: SessionPeriod}).Validate())
	assert.Error(t, (&PeriodSpec{Kind: SessionPeriod, Session: &SessionSpec{StartHour: 25}}).Validate())
	assert.NoError(t, (&PeriodSpec{Kind: SessionPeriod, Session: &SessionSpec{StartHour: 8, EndHour: 17}}).Validate())

	// Ensure an unknown kind errors.
	assert.Error(t, (&PeriodSpec{Kind: PeriodKind(99)}).Validate())
}

func TestPeriodFetchParams(t *testing.T) {
	// Ensure daily calendar periods recommend two days of hourly candles.
	interval, candles := (&PeriodSpec{Kind: CalendarPeriod, Calendar: PrevDay}).FetchParams()
	assert.Equal(t, OneHour, interval)
	assert.Equal(t, 48, candles)

	// Ensure weekly calendar periods recommend two weeks of four hour candles.
	interval, candles = (&PeriodSpec{Kind: CalendarPeriod, Calendar: CurrentWeek}).FetchParams()
	assert.Equal(t, FourHour, interval)
	assert.Equal(t, 84, candles)

	// Ensure monthly calendar periods recommend two months of daily candles.
	interval, candles = (&PeriodSpec{Kind: CalendarPeriod, Calendar: PrevMonth}).FetchParams()
	assert.Equal(t, OneDay, interval)
	assert.Equal(t, 62, candles)

	// Ensure rolling periods pass their own interval and count through.
	interval, candles = (&PeriodSpec{Kind: RollingPeriod, Interval: FiveMinute, Periods: 12}).FetchParams()
	assert.Equal(t, FiveMinute, interval)
	assert.Equal(t, 12, candles)

	// Ensure custom ranges round their span up to whole hours.
	start := time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC)
	interval, candles = (&PeriodSpec{Kind: CustomPeriod, Start: start, End: start.Add(time.Minute * 90)}).FetchParams()
	assert.Equal(t, OneHour, interval)
	assert.Equal(t, 2, candles)

	// Ensure a zero length range still recommends one candle.
	_, candles = (&PeriodSpec{Kind: CustomPeriod, Start: start, End: start}).FetchParams()
	assert.Equal(t, 1, candles)

	// Ensure very long ranges cap the recommendation.
	_, candles = (&PeriodSpec{Kind: CustomPeriod, Start: start, End: start.Add(time.Hour * 5000)}).FetchParams()
	assert.Equal(t, 1000, candles)

	// Ensure interval periods recommend the default window.
	interval, candles = (&PeriodSpec{Kind: IntervalPeriod, Interval: FiveMinute}).FetchParams()
	assert.Equal(t, OneHour, interval)
	assert.Equal(t, 100, candles)
}

func TestPeriodString(t *testing.T) {
	assert.Equal(t, "prev_day", (&PeriodSpec{Kind: CalendarPeriod, Calendar: PrevDay}).String())
	assert.Equal(t, "1h", (&PeriodSpec{Kind: IntervalPeriod, Interval: OneHour}).String())
	assert.Equal(t, "rolling(3x5m)", (&PeriodSpec{Kind: RollingPeriod, Interval: FiveMinute, Periods: 3}).String())
}

func TestEffectiveZone(t *testing.T) {
	// Ensure the period zone wins over the config zone.
	assert.Equal(t, ZoneTokyo, EffectiveZone(ZoneTokyo, ZoneLondon))

	// Ensure the config zone applies when the period has none.
	assert.Equal(t, ZoneLondon, EffectiveZone("", ZoneLondon))

	// Ensure the default zone applies when neither is set.
	assert.Equal(t, DefaultZone, EffectiveZone("", ""))
}

func TestZoneLocation(t *testing.T) {
	ts := time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)

	// Ensure supported zones convert with their static offsets.
	assert.Equal(t, 12, ConvertToZone(ts, ZoneUTC).Hour())
	assert.Equal(t, 7, ConvertToZone(ts, ZoneNewYork).Hour())
	assert.Equal(t, 21, ConvertToZone(ts, ZoneTokyo).Hour())

	// Ensure unknown zones fall back to the default zone.
	assert.Equal(t, ConvertToZone(ts, DefaultZone).Hour(), ConvertToZone(ts, "Mars/Olympus").Hour())
}
