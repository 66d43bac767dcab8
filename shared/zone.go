package shared

import "time"

const (
	// Supported timezone names.
	ZoneUTC     = "UTC"
	ZoneNewYork = "America/New_York"
	ZoneLondon  = "Europe/London"
	ZoneTokyo   = "Asia/Tokyo"

	// DefaultZone is the fallback timezone used when no explicit zone is set.
	DefaultZone = ZoneNewYork
)

// zoneOffsets maps supported timezone names to their static UTC offsets.
// Production deployments should substitute a real tz database here, DST
// transitions are not modelled.
var zoneOffsets = map[string]time.Duration{
	ZoneUTC:     0,
	ZoneNewYork: -time.Hour * 5,
	ZoneLondon:  0,
	ZoneTokyo:   time.Hour * 9,
}

// ZoneLocation returns a fixed-offset location for the provided timezone
// name. Unknown zones fall back to the default zone.
func ZoneLocation(zone string) *time.Location {
	offset, ok := zoneOffsets[zone]
	if !ok {
		zone = DefaultZone
		offset = zoneOffsets[zone]
	}

	return time.FixedZone(zone, int(offset.Seconds()))
}

// ConvertToZone translates the provided timestamp to the wall clock of the
// provided timezone.
func ConvertToZone(ts time.Time, zone string) time.Time {
	return ts.In(ZoneLocation(zone))
}

// EffectiveZone resolves the effective timezone using the precedence
// period zone > config zone > default zone.
func EffectiveZone(periodZone string, configZone string) string {
	switch {
	case periodZone != "":
		return periodZone
	case configZone != "":
		return configZone
	default:
		return DefaultZone
	}
}
