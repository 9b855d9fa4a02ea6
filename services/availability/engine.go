package availability

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"slotwise/models"
	"slotwise/services/calendar"
	"slotwise/utils"
)

// ComputeParams carries one availability computation request. RangeStart and
// RangeEnd are calendar days in Zone, both inclusive; only their year, month
// and day are significant.
type ComputeParams struct {
	Rules               []models.AvailabilityRule
	Accounts            []models.CalendarAccount
	Zone                string
	RangeStart          time.Time
	RangeEnd            time.Time
	DurationMinutes     int
	MinNoticeHours      int
	BufferBeforeMinutes int
	BufferAfterMinutes  int
}

// ComputeResult is the full tagged slot list plus the ids of accounts whose
// busy data could not be fetched. A degraded account means its busy periods
// are unknown, not free; callers decide whether to proceed on partial data.
type ComputeResult struct {
	Slots    []models.CandidateSlot `json:"slots"`
	Degraded []string               `json:"degradedAccounts,omitempty"`
}

// Engine computes bookable slots for a date range: it expands recurring rules
// into candidate slots, fetches and merges busy periods from every qualifying
// calendar account, and tags each slot with its availability after applying
// notice and buffer policy.
//
// Compute is pure given its inputs including the injected clock: no caching,
// no shared state between invocations.
type Engine struct {
	Source calendar.BusyPeriodSource
	Clock  *Clock
	Gen    *SlotGenerator
	Now    func() time.Time
}

func NewEngine(source calendar.BusyPeriodSource, clock *Clock) *Engine {
	return &Engine{
		Source: source,
		Clock:  clock,
		Gen:    NewSlotGenerator(clock),
		Now:    time.Now,
	}
}

// Compute returns every candidate slot in the requested day range, available
// and unavailable alike, ordered ascending by start. Filtering to available
// slots only is the caller's concern.
func (e *Engine) Compute(ctx context.Context, p ComputeParams) (ComputeResult, error) {
	if p.DurationMinutes <= 0 {
		return ComputeResult{}, NewInputError("durationMinutes", "must be positive")
	}
	if _, err := e.Clock.DB.LoadLocation(p.Zone); err != nil {
		return ComputeResult{}, NewInputError("zone", "unknown IANA zone name "+p.Zone)
	}
	rangeStart := dateOnly(p.RangeStart)
	rangeEnd := dateOnly(p.RangeEnd)
	if rangeEnd.Before(rangeStart) {
		return ComputeResult{}, NewInputError("range", "rangeEnd is before rangeStart")
	}

	// One batched fetch per qualifying account for the whole range, local
	// midnight of the first day through local midnight after the last.
	fetchStart, err := e.Clock.LocalToInstant(rangeStart, models.LocalTime{}, p.Zone)
	if err != nil {
		return ComputeResult{}, err
	}
	fetchEnd, err := e.Clock.LocalToInstant(rangeEnd.AddDate(0, 0, 1), models.LocalTime{}, p.Zone)
	if err != nil {
		return ComputeResult{}, err
	}
	busy, degraded := fetchBusyConcurrently(ctx, e.Source, includedAccounts(p.Accounts), fetchStart, fetchEnd)
	merged := MergeIntervals(busy)

	noticeCutoff := e.Now().Add(time.Duration(p.MinNoticeHours) * time.Hour)
	bufferBefore := time.Duration(p.BufferBeforeMinutes) * time.Minute
	bufferAfter := time.Duration(p.BufferAfterMinutes) * time.Minute

	var slots []models.CandidateSlot
	for day := rangeStart; !day.After(rangeEnd); day = day.AddDate(0, 0, 1) {
		daySlots, err := e.Gen.GenerateDaySlots(day, p.Rules, p.DurationMinutes, p.Zone)
		if err != nil {
			return ComputeResult{}, err
		}
		for _, slot := range daySlots {
			if slot.Start.Before(noticeCutoff) {
				slot.Available = false
			} else if OverlapsAny(slot.Start.Add(-bufferBefore), slot.End.Add(bufferAfter), merged) {
				// Buffers widen the conflict test window only; the slot's own
				// boundaries are reported unchanged.
				slot.Available = false
			}
			slots = append(slots, slot)
		}
	}

	return ComputeResult{Slots: slots, Degraded: degraded}, nil
}

func includedAccounts(accounts []models.CalendarAccount) []models.CalendarAccount {
	var included []models.CalendarAccount
	for _, acct := range accounts {
		if acct.IncludeInAvailability {
			included = append(included, acct)
		}
	}
	return included
}

// maxConcurrentFetches caps the busy-period fan-out so an owner with many
// connected calendars cannot open unbounded upstream requests at once.
const maxConcurrentFetches = 8

// fetchBusyConcurrently issues one range fetch per account, fanned out
// concurrently. A slow or failing account degrades only itself: its id is
// reported back so callers know busy data is incomplete rather than assuming
// the account is free.
func fetchBusyConcurrently(ctx context.Context, source calendar.BusyPeriodSource, accounts []models.CalendarAccount, rangeStart, rangeEnd time.Time) ([]models.BusyInterval, []string) {
	type outcome struct {
		intervals []models.BusyInterval
		err       error
	}
	results := make([]outcome, len(accounts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, acct := range accounts {
		i, acct := i, acct
		g.Go(func() error {
			intervals, err := source.FetchBusy(gctx, acct, rangeStart, rangeEnd)
			results[i] = outcome{intervals: intervals, err: err}
			return nil
		})
	}
	_ = g.Wait()

	logger := utils.GetLogger()
	var busy []models.BusyInterval
	var degraded []string
	for i, acct := range accounts {
		if results[i].err != nil {
			logger.Warn("busy period fetch failed, treating account data as unknown",
				zap.String("accountID", acct.ID), zap.Error(results[i].err))
			degraded = append(degraded, acct.ID)
			continue
		}
		busy = append(busy, results[i].intervals...)
	}
	return busy, degraded
}

func dateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
