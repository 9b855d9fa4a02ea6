package availability

import (
	"sort"
	"time"

	"slotwise/models"
)

// MergeIntervals coalesces busy intervals into a sorted, disjoint set.
// Overlapping or exactly adjacent intervals collapse into one; the union of
// the output equals the union of the input. The input slice is not modified.
func MergeIntervals(intervals []models.BusyInterval) []models.BusyInterval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := make([]models.BusyInterval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := make([]models.BusyInterval, 0, len(sorted))
	merged = append(merged, sorted[0])
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// OverlapsAny reports whether the half-open interval [start, end) overlaps any
// of the given intervals. Boundary-touching does not count: an interval ending
// exactly when another starts is not an overlap.
func OverlapsAny(start, end time.Time, intervals []models.BusyInterval) bool {
	for _, iv := range intervals {
		if start.Before(iv.End) && iv.Start.Before(end) {
			return true
		}
	}
	return false
}
