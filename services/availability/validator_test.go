package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotwise/models"
	"slotwise/services/calendar"
)

func newTestValidator(source calendar.BusyPeriodSource, now time.Time) *Validator {
	validator := NewValidator(source, NewClock(nil))
	validator.Now = func() time.Time { return now }
	return validator
}

func mondaySlotParams(startHour, startMinute, endHour, endMinute int) ValidateParams {
	return ValidateParams{
		SlotStart: chicagoTime(2025, time.June, 9, startHour, startMinute),
		SlotEnd:   chicagoTime(2025, time.June, 9, endHour, endMinute),
		Rules:     []models.AvailabilityRule{mondayRule(models.LocalTime{Hour: 9}, models.LocalTime{Hour: 17})},
		Accounts:  []models.CalendarAccount{includedAccount("acct-1")},
		Zone:      chicago,
	}
}

func TestValidateAcceptsFreeSlot(t *testing.T) {
	source := newStubBusySource()
	validator := newTestValidator(source, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))

	verdict, err := validator.Validate(context.Background(), mondaySlotParams(10, 0, 10, 30))
	require.NoError(t, err)
	assert.True(t, verdict.Valid)
	assert.Empty(t, verdict.Reason)
}

func TestValidateWindowBoundsAreInclusive(t *testing.T) {
	source := newStubBusySource()
	validator := newTestValidator(source, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))

	// Touching either edge of the 09:00-17:00 window is allowed.
	verdict, err := validator.Validate(context.Background(), mondaySlotParams(9, 0, 9, 30))
	require.NoError(t, err)
	assert.True(t, verdict.Valid)

	verdict, err = validator.Validate(context.Background(), mondaySlotParams(16, 30, 17, 0))
	require.NoError(t, err)
	assert.True(t, verdict.Valid)

	// Ending one minute past the edge is not.
	verdict, err = validator.Validate(context.Background(), mondaySlotParams(8, 30, 9, 0))
	require.NoError(t, err)
	assert.False(t, verdict.Valid)
	assert.Equal(t, ReasonOutsideHours, verdict.Reason)

	verdict, err = validator.Validate(context.Background(), mondaySlotParams(16, 31, 17, 1))
	require.NoError(t, err)
	assert.False(t, verdict.Valid)
	assert.Equal(t, ReasonOutsideHours, verdict.Reason)
}

func TestValidateRejectsDayWithoutActiveRule(t *testing.T) {
	source := newStubBusySource()
	validator := newTestValidator(source, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))

	params := mondaySlotParams(10, 0, 10, 30)
	// Tuesday slot, Monday-only rule.
	params.SlotStart = chicagoTime(2025, time.June, 10, 10, 0)
	params.SlotEnd = chicagoTime(2025, time.June, 10, 10, 30)

	verdict, err := validator.Validate(context.Background(), params)
	require.NoError(t, err)
	assert.False(t, verdict.Valid)
	assert.Equal(t, ReasonUnavailable, verdict.Reason)

	// An inactive rule for the day does not count.
	inactive := mondayRule(models.LocalTime{Hour: 9}, models.LocalTime{Hour: 17})
	inactive.Weekday = int(time.Tuesday)
	inactive.Active = false
	params.Rules = append(params.Rules, inactive)

	verdict, err = validator.Validate(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, ReasonUnavailable, verdict.Reason)
}

func TestValidateMinimumNotice(t *testing.T) {
	source := newStubBusySource()
	// 24 hours ahead of the slot with a 48 hour notice requirement.
	validator := newTestValidator(source, chicagoTime(2025, time.June, 8, 10, 0))

	params := mondaySlotParams(10, 0, 10, 30)
	params.MinNoticeHours = 48

	verdict, err := validator.Validate(context.Background(), params)
	require.NoError(t, err)
	assert.False(t, verdict.Valid)
	assert.Equal(t, ReasonNotice, verdict.Reason)
}

func TestValidatePastSlotWithoutNotice(t *testing.T) {
	source := newStubBusySource()
	validator := newTestValidator(source, chicagoTime(2025, time.June, 9, 12, 0))

	verdict, err := validator.Validate(context.Background(), mondaySlotParams(10, 0, 10, 30))
	require.NoError(t, err)
	assert.False(t, verdict.Valid)
	assert.Equal(t, ReasonPast, verdict.Reason)
}

func TestValidateConflictBoundary(t *testing.T) {
	source := newStubBusySource()
	source.intervals["acct-1"] = []models.BusyInterval{
		{Start: chicagoTime(2025, time.June, 9, 10, 0), End: chicagoTime(2025, time.June, 9, 11, 0)},
	}
	validator := newTestValidator(source, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))

	// A slot ending exactly where the busy period begins is free.
	verdict, err := validator.Validate(context.Background(), mondaySlotParams(9, 30, 10, 0))
	require.NoError(t, err)
	assert.True(t, verdict.Valid)

	// One minute later it collides.
	verdict, err = validator.Validate(context.Background(), mondaySlotParams(9, 31, 10, 1))
	require.NoError(t, err)
	assert.False(t, verdict.Valid)
	assert.Equal(t, ReasonConflict, verdict.Reason)
}

func TestValidateFetchesFreshBusyData(t *testing.T) {
	source := newStubBusySource()
	validator := newTestValidator(source, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))

	params := mondaySlotParams(10, 0, 10, 30)
	_, err := validator.Validate(context.Background(), params)
	require.NoError(t, err)

	require.Len(t, source.calls, 1)
	assert.Equal(t, "acct-1", source.calls[0].AccountID)
	assert.True(t, source.calls[0].RangeStart.Equal(params.SlotStart))
	assert.True(t, source.calls[0].RangeEnd.Equal(params.SlotEnd))

	// The slot was free on the first check; a conflict recorded afterwards is
	// seen by the next validation because nothing is cached.
	source.intervals["acct-1"] = []models.BusyInterval{
		{Start: params.SlotStart, End: params.SlotEnd},
	}
	verdict, err := validator.Validate(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, ReasonConflict, verdict.Reason)
}

func TestValidateFetchFailureIsAnError(t *testing.T) {
	source := newStubBusySource()
	source.errs["acct-1"] = &calendar.FetchError{Code: calendar.AuthExpired, AccountID: "acct-1", Err: errors.New("token revoked")}
	validator := newTestValidator(source, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))

	verdict, err := validator.Validate(context.Background(), mondaySlotParams(10, 0, 10, 30))
	require.Error(t, err)
	assert.False(t, verdict.Valid)
	assert.Empty(t, verdict.Reason)

	var fetchErr *calendar.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, calendar.AuthExpired, fetchErr.Code)
	assert.Equal(t, "acct-1", fetchErr.AccountID)
}

func TestValidateRejectsBadInput(t *testing.T) {
	source := newStubBusySource()
	validator := newTestValidator(source, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))

	var inputErr *InputError

	params := mondaySlotParams(10, 0, 10, 30)
	params.SlotEnd = params.SlotStart
	_, err := validator.Validate(context.Background(), params)
	assert.ErrorAs(t, err, &inputErr)

	params = mondaySlotParams(10, 0, 10, 30)
	params.Zone = "Nowhere/Inparticular"
	_, err = validator.Validate(context.Background(), params)
	assert.ErrorAs(t, err, &inputErr)
}
