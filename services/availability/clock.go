package availability

import (
	"time"

	"slotwise/models"
)

// TimeZoneDatabase resolves IANA zone names to locations. Making this
// injectable keeps slot computation reproducible in tests regardless of the
// zoneinfo data shipped with the deployment host.
type TimeZoneDatabase interface {
	LoadLocation(name string) (*time.Location, error)
}

// SystemTimeZoneDatabase reads the zoneinfo available to the Go runtime.
type SystemTimeZoneDatabase struct{}

func (SystemTimeZoneDatabase) LoadLocation(name string) (*time.Location, error) {
	return time.LoadLocation(name)
}

// Clock converts wall-clock local times on a calendar day to absolute instants
// and back. All conversions go through a named IANA zone; instants are never
// interpreted without one.
type Clock struct {
	DB TimeZoneDatabase
}

// NewClock returns a Clock backed by the given zone database, falling back to
// the system zoneinfo when db is nil.
func NewClock(db TimeZoneDatabase) *Clock {
	if db == nil {
		db = SystemTimeZoneDatabase{}
	}
	return &Clock{DB: db}
}

// LocalToInstant returns the instant that renders as exactly lt on day's date
// as interpreted in zone.
//
// The zone's UTC offset is taken from a reference instant at local noon of the
// calendar day, not midnight: midnight itself can fall inside a DST
// transition, and an offset derived there corrupts every slot on transition
// days. When the requested wall time sits on the other side of a transition
// from noon, the offset in effect at the first candidate instant is tried
// instead.
//
// DST policy: a wall time inside a spring-forward gap resolves to the instant
// the same number of minutes past the transition (rounded forward through the
// gap). An ambiguous fall-back wall time resolves with the offset in effect at
// local noon, which is the later of the two occurrences.
func (c *Clock) LocalToInstant(day time.Time, lt models.LocalTime, zone string) (time.Time, error) {
	loc, err := c.DB.LoadLocation(zone)
	if err != nil {
		return time.Time{}, NewInputError("zone", "unknown IANA zone name "+zone)
	}
	year, month, dayOfMonth := day.Date()

	noon := time.Date(year, month, dayOfMonth, 12, 0, 0, 0, loc)
	_, noonOffset := noon.Zone()

	wall := time.Date(year, month, dayOfMonth, lt.Hour, lt.Minute, 0, 0, time.UTC)
	candidate := wall.Add(-time.Duration(noonOffset) * time.Second)
	if rendersAs(candidate, loc, year, month, dayOfMonth, lt) {
		return candidate, nil
	}

	// The wall time is separated from noon by a DST transition. Retry with the
	// offset in effect at the candidate itself.
	_, candidateOffset := candidate.In(loc).Zone()
	candidate = wall.Add(-time.Duration(candidateOffset) * time.Second)
	if rendersAs(candidate, loc, year, month, dayOfMonth, lt) {
		return candidate, nil
	}

	// Spring-forward gap: the wall time never occurs in this zone. The second
	// candidate used the pre-transition offset, so it lands past the gap
	// shifted forward by exactly the gap width.
	return candidate, nil
}

func rendersAs(instant time.Time, loc *time.Location, year int, month time.Month, dayOfMonth int, lt models.LocalTime) bool {
	local := instant.In(loc)
	ly, lm, ld := local.Date()
	return ly == year && lm == month && ld == dayOfMonth &&
		local.Hour() == lt.Hour && local.Minute() == lt.Minute
}

// WeekdayOf returns the weekday (0 = Sunday) of instant as rendered in zone.
func (c *Clock) WeekdayOf(instant time.Time, zone string) (int, error) {
	loc, err := c.DB.LoadLocation(zone)
	if err != nil {
		return 0, NewInputError("zone", "unknown IANA zone name "+zone)
	}
	return int(instant.In(loc).Weekday()), nil
}

// LocalTimeOf returns the wall-clock hour and minute of instant in zone.
func (c *Clock) LocalTimeOf(instant time.Time, zone string) (models.LocalTime, error) {
	loc, err := c.DB.LoadLocation(zone)
	if err != nil {
		return models.LocalTime{}, NewInputError("zone", "unknown IANA zone name "+zone)
	}
	local := instant.In(loc)
	return models.LocalTime{Hour: local.Hour(), Minute: local.Minute()}, nil
}
