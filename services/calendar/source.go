package calendar

import (
	"context"
	"fmt"
	"time"

	"slotwise/models"
)

// FetchErrorCode classifies upstream calendar failures. These are
// infrastructure errors, categorically different from validation outcomes, and
// always propagate as errors rather than verdicts.
type FetchErrorCode string

const (
	AuthExpired FetchErrorCode = "authExpired"
	RateLimited FetchErrorCode = "rateLimited"
	Unknown     FetchErrorCode = "unknown"
)

// FetchError is returned when a busy-period fetch against an external calendar
// account fails.
type FetchError struct {
	Code      FetchErrorCode
	AccountID string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("busy fetch for account %s failed (%s): %v", e.AccountID, e.Code, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// BusyPeriodSource returns the busy intervals reported by one calendar account
// over the half-open range [rangeStart, rangeEnd). Implementations own token
// refresh: on auth expiry they retry once with refreshed credentials before
// surfacing AuthExpired. One call covers the whole range; callers never issue
// per-slot fetches.
type BusyPeriodSource interface {
	FetchBusy(ctx context.Context, account models.CalendarAccount, rangeStart, rangeEnd time.Time) ([]models.BusyInterval, error)
}
