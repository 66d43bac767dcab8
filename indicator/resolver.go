package indicator

import (
	"time"

	"github.com/vladborsh/trading-tg-bot/shared"
)

// candleWindow represents an absolute time window for candle filtering.
type candleWindow struct {
	start   time.Time
	end     time.Time
	bounded bool
}

// contains checks whether the provided open time falls within the window.
func (w *candleWindow) contains(openTime time.Time) bool {
	if openTime.Before(w.start) {
		return false
	}
	if w.bounded && openTime.After(w.end) {
		return false
	}

	return true
}

// calendarWindow resolves a named calendar period to an absolute window in
// the provided timezone. Weeks begin on Monday and month boundaries are
// calendar months.
func calendarWindow(calendar shared.Calendar, now time.Time, zone string) candleWindow {
	local := shared.ConvertToZone(now, zone)
	loc := local.Location()

	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	// Monday maps to offset 0 and Sunday to offset 6.
	weekOffset := (int(local.Weekday()) + 6) % 7
	weekStart := dayStart.AddDate(0, 0, -weekOffset)

	monthStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)

	switch calendar {
	case shared.PrevDay:
		return candleWindow{
			start:   dayStart.AddDate(0, 0, -1),
			end:     dayStart.Add(-time.Millisecond),
			bounded: true,
		}
	case shared.PrevWeek:
		return candleWindow{
			start:   weekStart.AddDate(0, 0, -7),
			end:     weekStart.Add(-time.Millisecond),
			bounded: true,
		}
	case shared.PrevMonth:
		return candleWindow{
			start:   monthStart.AddDate(0, -1, 0),
			end:     monthStart.Add(-time.Millisecond),
			bounded: true,
		}
	case shared.CurrentDay:
		return candleWindow{start: dayStart}
	case shared.CurrentWeek:
		return candleWindow{start: weekStart}
	case shared.CurrentMonth:
		return candleWindow{start: monthStart}
	default:
		// Unknown calendar periods resolve to the current day.
		return candleWindow{start: dayStart}
	}
}

// FilterByPeriod resolves the provided period spec against the candle set,
// returning the candles inside the period in ascending order. Interval and
// rolling periods resolve to recent slices, calendar, custom and session
// periods to time filters.
func FilterByPeriod(candles []shared.Candle, period *shared.PeriodSpec, configZone string, now time.Time) []shared.Candle {
	zone := shared.EffectiveZone(period.Timezone, configZone)

	switch period.Kind {
	case shared.IntervalPeriod:
		return shared.RecentCandles(candles, 100)
	case shared.RollingPeriod:
		return shared.RecentCandles(candles, period.Periods)
	case shared.CustomPeriod:
		window := candleWindow{start: period.Start, end: period.End, bounded: true}
		return filterWindow(candles, &window)
	case shared.CalendarPeriod:
		window := calendarWindow(period.Calendar, now, zone)
		return filterWindow(candles, &window)
	case shared.SessionPeriod:
		filtered := make([]shared.Candle, 0, len(candles))
		for idx := range candles {
			if shared.IsWithinSession(candles[idx].OpenTime, period.Session, zone) {
				filtered = append(filtered, candles[idx])
			}
		}
		return filtered
	default:
		return []shared.Candle{}
	}
}

// filterWindow returns the candles whose open times fall within the window.
func filterWindow(candles []shared.Candle, window *candleWindow) []shared.Candle {
	filtered := make([]shared.Candle, 0, len(candles))
	for idx := range candles {
		if window.contains(candles[idx].OpenTime) {
			filtered = append(filtered, candles[idx])
		}
	}

	return filtered
}
