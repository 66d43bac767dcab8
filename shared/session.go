package shared

import (
	"errors"
	"fmt"
	"time"
)

// SessionSpec represents a named intraday trading session window in a
// timezone. Sessions crossing midnight are allowed.
type SessionSpec struct {
	StartHour   int
	EndHour     int
	StartMinute int
	EndMinute   int
	Timezone    string
}

// Validate asserts the session spec has sane inputs.
func (s *SessionSpec) Validate() error {
	var errs error

	if s.StartHour < 0 || s.StartHour > 23 {
		errs = errors.Join(errs, fmt.Errorf("session start hour %d out of range [0,23]", s.StartHour))
	}
	if s.EndHour < 0 || s.EndHour > 23 {
		errs = errors.Join(errs, fmt.Errorf("session end hour %d out of range [0,23]", s.EndHour))
	}
	if s.StartMinute < 0 || s.StartMinute > 59 {
		errs = errors.Join(errs, fmt.Errorf("session start minute %d out of range [0,59]", s.StartMinute))
	}
	if s.EndMinute < 0 || s.EndMinute > 59 {
		errs = errors.Join(errs, fmt.Errorf("session end minute %d out of range [0,59]", s.EndMinute))
	}

	return errs
}

// startMinutes returns the session open as minutes into the day.
func (s *SessionSpec) startMinutes() int {
	return s.StartHour*60 + s.StartMinute
}

// endMinutes returns the session close as minutes into the day.
func (s *SessionSpec) endMinutes() int {
	return s.EndHour*60 + s.EndMinute
}

// IsWithinSession checks whether the provided timestamp falls within the
// session window. The session timezone takes precedence over the provided
// default zone. A session whose open is later in the day than its close
// spans midnight and matches both sides of the boundary.
func IsWithinSession(ts time.Time, spec *SessionSpec, defaultZone string) bool {
	zone := spec.Timezone
	if zone == "" {
		zone = defaultZone
	}

	local := ConvertToZone(ts, zone)
	current := local.Hour()*60 + local.Minute()

	start := spec.startMinutes()
	end := spec.endMinutes()

	if start > end {
		// The session crosses midnight, membership is the union of
		// [start, midnight) and [0, end].
		return current >= start || current <= end
	}

	return current >= start && current <= end
}

// String stringifies the provided session spec.
func (s *SessionSpec) String() string {
	return fmt.Sprintf("session(%02d:%02d-%02d:%02d %s)",
		s.StartHour, s.StartMinute, s.EndHour, s.EndMinute, s.Timezone)
}
