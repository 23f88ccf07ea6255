// Package availability implements the hours-string parser and the open/closed
// calculator for buildings. All weekday and minute-of-day derivation is done
// in a single fixed civil time zone so results never depend on the caller's
// device locale.
package availability

import "time"

// CivilZoneName is the IANA zone all availability math is evaluated in.
const CivilZoneName = "America/Chicago"

// fallback when the zone database is unavailable (CST, no DST adjustment).
var centralFallback = time.FixedZone("CST", -6*60*60)

// DefaultLocation loads the civil zone, falling back to a fixed CST offset
// when the host has no zone database.
func DefaultLocation() *time.Location {
	loc, err := time.LoadLocation(CivilZoneName)
	if err != nil {
		return centralFallback
	}
	return loc
}

// Normalizer converts wall-clock instants into deterministic
// (weekday, minute-of-day) pairs in the civil zone.
type Normalizer struct {
	location *time.Location
}

// NewNormalizer constructs a Normalizer for the provided location. If loc is
// nil, America/Chicago is used.
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = DefaultLocation()
	}
	return &Normalizer{location: loc}
}

// Location returns the civil zone the normalizer evaluates in.
func (n *Normalizer) Location() *time.Location {
	if n == nil || n.location == nil {
		return DefaultLocation()
	}
	return n.location
}

// Resolve returns the weekday and minute-of-day (0..1439) of the instant in
// the civil zone.
func (n *Normalizer) Resolve(at time.Time) (time.Weekday, int) {
	local := at.In(n.Location())
	return local.Weekday(), local.Hour()*60 + local.Minute()
}

// EndOfDay returns 23:59:59 on the civil-zone date of the instant. Term range
// checks use this so an end date matches through its entire final day.
func (n *Normalizer) EndOfDay(at time.Time) time.Time {
	local := at.In(n.Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 0, n.Location())
}
