package shared

import (
	"errors"
	"fmt"
	"time"
)

// PeriodKind represents the kind of a period specification.
type PeriodKind int

const (
	CalendarPeriod PeriodKind = iota
	IntervalPeriod
	CustomPeriod
	RollingPeriod
	SessionPeriod
)

// Calendar represents a named calendar period.
type Calendar string

const (
	PrevDay      Calendar = "prev_day"
	PrevWeek     Calendar = "prev_week"
	PrevMonth    Calendar = "prev_month"
	CurrentDay   Calendar = "current_day"
	CurrentWeek  Calendar = "current_week"
	CurrentMonth Calendar = "current_month"
)

const (
	// defaultIntervalCandles is the number of recent candles used for plain
	// interval periods.
	defaultIntervalCandles = 100
	// maxCustomCandles caps the recommended fetch size for custom ranges.
	maxCustomCandles = 1000
)

// PeriodSpec represents the reference window over which high/low levels are
// computed. It is a closed tagged variant over calendar, interval, custom,
// rolling and session periods.
type PeriodSpec struct {
	Kind     PeriodKind
	Calendar Calendar
	Interval Interval
	Start    time.Time
	End      time.Time
	Periods  int
	Session  *SessionSpec
	Timezone string
}

// Validate asserts the period spec has sane inputs.
func (p *PeriodSpec) Validate() error {
	var errs error

	switch p.Kind {
	case CalendarPeriod:
		switch p.Calendar {
		case PrevDay, PrevWeek, PrevMonth, CurrentDay, CurrentWeek, CurrentMonth:
			// valid.
		default:
			errs = errors.Join(errs, fmt.Errorf("unknown calendar period %q", p.Calendar))
		}
	case IntervalPeriod:
		// Unknown interval tags default to a minute, nothing to validate.
	case CustomPeriod:
		if p.End.Before(p.Start) {
			errs = errors.Join(errs, fmt.Errorf("custom period end %v precedes start %v", p.End, p.Start))
		}
	case RollingPeriod:
		if p.Periods <= 0 {
			errs = errors.Join(errs, fmt.Errorf("rolling period count must be positive, got %d", p.Periods))
		}
	case SessionPeriod:
		if p.Session == nil {
			errs = errors.Join(errs, fmt.Errorf("session period requires a session spec"))
		} else if err := p.Session.Validate(); err != nil {
			errs = errors.Join(errs, err)
		}
	default:
		errs = errors.Join(errs, fmt.Errorf("unknown period kind %d", p.Kind))
	}

	return errs
}

// FetchParams returns the recommended market data interval and candle count
// for resolving the period.
func (p *PeriodSpec) FetchParams() (Interval, int) {
	switch p.Kind {
	case CalendarPeriod:
		switch p.Calendar {
		case PrevDay, CurrentDay:
			return OneHour, 48
		case PrevWeek, CurrentWeek:
			return FourHour, 84
		case PrevMonth, CurrentMonth:
			return OneDay, 62
		}
	case RollingPeriod:
		return p.Interval, p.Periods
	case CustomPeriod:
		duration := p.End.Sub(p.Start)
		candles := int((duration + time.Hour - 1) / time.Hour)
		if candles < 1 {
			candles = 1
		}
		if candles > maxCustomCandles {
			candles = maxCustomCandles
		}
		return OneHour, candles
	}

	return OneHour, defaultIntervalCandles
}

// String stringifies the provided period spec.
func (p *PeriodSpec) String() string {
	switch p.Kind {
	case CalendarPeriod:
		return string(p.Calendar)
	case IntervalPeriod:
		return string(p.Interval)
	case CustomPeriod:
		return fmt.Sprintf("custom(%s..%s)", p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339))
	case RollingPeriod:
		return fmt.Sprintf("rolling(%dx%s)", p.Periods, p.Interval)
	case SessionPeriod:
		if p.Session == nil {
			return "session(nil)"
		}
		return p.Session.String()
	default:
		return "unknown"
	}
}
