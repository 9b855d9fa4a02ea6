package availability

import (
	"sort"
	"time"

	"slotwise/models"
)

// SlotGenerator expands recurring weekly rules into concrete candidate slots
// for one calendar day.
type SlotGenerator struct {
	Clock *Clock
}

func NewSlotGenerator(clock *Clock) *SlotGenerator {
	return &SlotGenerator{Clock: clock}
}

// GenerateDaySlots returns the fixed-length candidate slots for day produced
// by the active rules matching day's weekday in zone, ordered ascending by
// start. Slots never extend past their rule's window; a trailing remainder
// shorter than the duration is discarded, never truncated. When several rules
// cover the same weekday their slots are unioned and de-duplicated by start
// instant.
func (g *SlotGenerator) GenerateDaySlots(day time.Time, ruleSet []models.AvailabilityRule, durationMinutes int, zone string) ([]models.CandidateSlot, error) {
	if durationMinutes <= 0 {
		return nil, NewInputError("durationMinutes", "must be positive")
	}

	noonInstant, err := g.Clock.LocalToInstant(day, models.LocalTime{Hour: 12}, zone)
	if err != nil {
		return nil, err
	}
	weekday, err := g.Clock.WeekdayOf(noonInstant, zone)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(durationMinutes) * time.Minute
	seen := make(map[int64]struct{})
	var slots []models.CandidateSlot
	for _, rule := range ruleSet {
		if !rule.Active || rule.Weekday != weekday {
			continue
		}
		if !rule.Start.Before(rule.End) {
			continue
		}
		windowStart, err := g.Clock.LocalToInstant(day, rule.Start, zone)
		if err != nil {
			return nil, err
		}
		windowEnd, err := g.Clock.LocalToInstant(day, rule.End, zone)
		if err != nil {
			return nil, err
		}
		for start := windowStart; !start.Add(duration).After(windowEnd); start = start.Add(duration) {
			key := start.Unix()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			slots = append(slots, models.CandidateSlot{
				Start:     start,
				End:       start.Add(duration),
				Available: true,
			})
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Start.Before(slots[j].Start)
	})
	return slots, nil
}
