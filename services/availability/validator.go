package availability

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"slotwise/models"
	"slotwise/services/calendar"
)

// Human-readable reasons reported on validation failure. Each failing check
// produces its own reason so callers can tell a stale slot from a policy
// rejection.
const (
	ReasonNotice       = "minimum notice period not met"
	ReasonPast         = "requested time is in the past"
	ReasonUnavailable  = "not available on the requested day"
	ReasonOutsideHours = "outside of available hours"
	ReasonConflict     = "time is no longer available"
)

// ValidateParams carries one commit-time validation request for a single slot.
type ValidateParams struct {
	SlotStart      time.Time
	SlotEnd        time.Time
	Rules          []models.AvailabilityRule
	Accounts       []models.CalendarAccount
	Zone           string
	MinNoticeHours int
}

// Validator re-runs the availability checks for exactly one proposed slot
// immediately before a booking is committed. It always fetches busy data
// fresh; results from an earlier Compute call are advisory only and never
// reused here, which closes the race between slot display and submission.
type Validator struct {
	Source calendar.BusyPeriodSource
	Clock  *Clock
	Now    func() time.Time
}

func NewValidator(source calendar.BusyPeriodSource, clock *Clock) *Validator {
	return &Validator{Source: source, Clock: clock, Now: time.Now}
}

// Validate runs the commit-time checks in order, short-circuiting on the first
// failure. A failed check is a verdict, not an error; the error return is
// reserved for malformed input and upstream fetch failures, which must never
// masquerade as "valid" or "invalid".
func (v *Validator) Validate(ctx context.Context, p ValidateParams) (models.ValidationVerdict, error) {
	if !p.SlotStart.Before(p.SlotEnd) {
		return models.ValidationVerdict{}, NewInputError("slot", "slot start must precede slot end")
	}
	if _, err := v.Clock.DB.LoadLocation(p.Zone); err != nil {
		return models.ValidationVerdict{}, NewInputError("zone", "unknown IANA zone name "+p.Zone)
	}

	now := v.Now()

	// 1. Minimum notice.
	if p.MinNoticeHours > 0 {
		cutoff := now.Add(time.Duration(p.MinNoticeHours) * time.Hour)
		if p.SlotStart.Before(cutoff) {
			return invalid(ReasonNotice), nil
		}
	}

	// 2. Past check. Redundant with the notice check when a notice period is
	// set, but it must hold on its own when MinNoticeHours is zero.
	if p.SlotStart.Before(now) {
		return invalid(ReasonPast), nil
	}

	// 3. An active rule must exist for the slot's weekday.
	weekday, err := v.Clock.WeekdayOf(p.SlotStart, p.Zone)
	if err != nil {
		return models.ValidationVerdict{}, err
	}
	var dayRules []models.AvailabilityRule
	for _, rule := range p.Rules {
		if rule.Active && rule.Weekday == weekday {
			dayRules = append(dayRules, rule)
		}
	}
	if len(dayRules) == 0 {
		return invalid(ReasonUnavailable), nil
	}

	// 4. Time-of-day bounds, inclusive at both ends. Zero-padded HH:MM strings
	// compare lexicographically in chronological order.
	startLocal, err := v.Clock.LocalTimeOf(p.SlotStart, p.Zone)
	if err != nil {
		return models.ValidationVerdict{}, err
	}
	endLocal, err := v.Clock.LocalTimeOf(p.SlotEnd, p.Zone)
	if err != nil {
		return models.ValidationVerdict{}, err
	}
	startStr, endStr := startLocal.String(), endLocal.String()
	inWindow := false
	for _, rule := range dayRules {
		if startStr >= rule.Start.String() && endStr <= rule.End.String() {
			inWindow = true
			break
		}
	}
	if !inWindow {
		return invalid(ReasonOutsideHours), nil
	}

	// 5. Conflict check against busy data fetched fresh for just this slot's
	// window. No buffer is applied here. A fetch failure aborts validation:
	// unknown busy data must not pass as free.
	busy, err := v.fetchBusy(ctx, includedAccounts(p.Accounts), p.SlotStart, p.SlotEnd)
	if err != nil {
		return models.ValidationVerdict{}, err
	}
	if OverlapsAny(p.SlotStart, p.SlotEnd, MergeIntervals(busy)) {
		return invalid(ReasonConflict), nil
	}

	return models.ValidationVerdict{Valid: true}, nil
}

func (v *Validator) fetchBusy(ctx context.Context, accounts []models.CalendarAccount, rangeStart, rangeEnd time.Time) ([]models.BusyInterval, error) {
	results := make([][]models.BusyInterval, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, acct := range accounts {
		i, acct := i, acct
		g.Go(func() error {
			intervals, err := v.Source.FetchBusy(gctx, acct, rangeStart, rangeEnd)
			if err != nil {
				return err
			}
			results[i] = intervals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var busy []models.BusyInterval
	for _, intervals := range results {
		busy = append(busy, intervals...)
	}
	return busy, nil
}

func invalid(reason string) models.ValidationVerdict {
	return models.ValidationVerdict{Valid: false, Reason: reason}
}
