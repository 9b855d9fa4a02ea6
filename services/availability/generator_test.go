package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotwise/models"
)

func mondayRule(start, end models.LocalTime) models.AvailabilityRule {
	return models.AvailabilityRule{
		OwnerID: "host-1",
		Weekday: int(time.Monday),
		Start:   start,
		End:     end,
		Active:  true,
	}
}

func TestGenerateDaySlotsFillsWindowExactly(t *testing.T) {
	gen := NewSlotGenerator(NewClock(nil))
	rule := mondayRule(models.LocalTime{Hour: 9}, models.LocalTime{Hour: 17})

	slots, err := gen.GenerateDaySlots(day(2025, time.June, 9), []models.AvailabilityRule{rule}, 30, chicago)
	require.NoError(t, err)
	require.Len(t, slots, 16)

	windowStart := time.Date(2025, time.June, 9, 14, 0, 0, 0, time.UTC) // 09:00 CDT
	windowEnd := time.Date(2025, time.June, 9, 22, 0, 0, 0, time.UTC)   // 17:00 CDT
	for i, slot := range slots {
		assert.Equal(t, 30*time.Minute, slot.End.Sub(slot.Start))
		assert.False(t, slot.Start.Before(windowStart))
		assert.False(t, slot.End.After(windowEnd))
		if i > 0 {
			// Contiguous and non-overlapping.
			assert.True(t, slot.Start.Equal(slots[i-1].End))
		}
	}
	assert.True(t, slots[0].Start.Equal(windowStart))
	assert.True(t, slots[15].Start.Equal(windowEnd.Add(-30*time.Minute)))
}

func TestGenerateDaySlotsDiscardsShortRemainder(t *testing.T) {
	gen := NewSlotGenerator(NewClock(nil))
	rule := mondayRule(models.LocalTime{Hour: 9}, models.LocalTime{Hour: 10, Minute: 15})

	slots, err := gen.GenerateDaySlots(day(2025, time.June, 9), []models.AvailabilityRule{rule}, 30, chicago)
	require.NoError(t, err)
	// 09:00 and 09:30 fit; the trailing 15 minutes are dropped, not truncated.
	require.Len(t, slots, 2)
	assert.Equal(t, 30*time.Minute, slots[1].End.Sub(slots[1].Start))
}

func TestGenerateDaySlotsFiltersInactiveAndOtherWeekdays(t *testing.T) {
	gen := NewSlotGenerator(NewClock(nil))
	inactive := mondayRule(models.LocalTime{Hour: 9}, models.LocalTime{Hour: 17})
	inactive.Active = false
	tuesday := mondayRule(models.LocalTime{Hour: 9}, models.LocalTime{Hour: 17})
	tuesday.Weekday = int(time.Tuesday)

	slots, err := gen.GenerateDaySlots(day(2025, time.June, 9), []models.AvailabilityRule{inactive, tuesday}, 30, chicago)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGenerateDaySlotsUnionsOverlappingRules(t *testing.T) {
	gen := NewSlotGenerator(NewClock(nil))
	morning := mondayRule(models.LocalTime{Hour: 9}, models.LocalTime{Hour: 12})
	midday := mondayRule(models.LocalTime{Hour: 10}, models.LocalTime{Hour: 13})

	slots, err := gen.GenerateDaySlots(day(2025, time.June, 9), []models.AvailabilityRule{morning, midday}, 60, chicago)
	require.NoError(t, err)

	// 09:00, 10:00, 11:00 from the first rule plus 12:00 from the second;
	// the shared 10:00 and 11:00 starts are de-duplicated.
	require.Len(t, slots, 4)
	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i-1].Start.Before(slots[i].Start))
	}
}

func TestGenerateDaySlotsAcrossSpringForward(t *testing.T) {
	gen := NewSlotGenerator(NewClock(nil))
	// 2025-03-09 is a Sunday; the 02:00 hour does not exist in Chicago.
	rule := models.AvailabilityRule{
		OwnerID: "host-1",
		Weekday: int(time.Sunday),
		Start:   models.LocalTime{Hour: 1},
		End:     models.LocalTime{Hour: 4},
		Active:  true,
	}

	slots, err := gen.GenerateDaySlots(day(2025, time.March, 9), []models.AvailabilityRule{rule}, 30, chicago)
	require.NoError(t, err)

	// The window is 01:00 CST through 04:00 CDT: two absolute hours.
	require.Len(t, slots, 4)
	assert.True(t, slots[0].Start.Equal(time.Date(2025, time.March, 9, 7, 0, 0, 0, time.UTC)))
	assert.True(t, slots[3].End.Equal(time.Date(2025, time.March, 9, 9, 0, 0, 0, time.UTC)))

	loc, err := time.LoadLocation(chicago)
	require.NoError(t, err)
	// The slot after the transition renders as 03:00 local; 02:00 never existed.
	assert.Equal(t, 3, slots[2].Start.In(loc).Hour())
}

func TestGenerateDaySlotsRejectsNonPositiveDuration(t *testing.T) {
	gen := NewSlotGenerator(NewClock(nil))
	rule := mondayRule(models.LocalTime{Hour: 9}, models.LocalTime{Hour: 17})

	for _, duration := range []int{0, -30} {
		_, err := gen.GenerateDaySlots(day(2025, time.June, 9), []models.AvailabilityRule{rule}, duration, chicago)
		var inputErr *InputError
		assert.ErrorAs(t, err, &inputErr)
	}
}
