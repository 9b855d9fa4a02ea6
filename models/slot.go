package models

import "time"

// BusyInterval is a half-open interval [Start, End) during which the owner is
// unavailable, as reported by an external calendar. Two intervals that only
// touch at a boundary do not overlap.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CandidateSlot is one fixed-length bookable interval produced by the
// availability engine. End-Start always equals the requested duration exactly.
// Slots are transient: they are computed per request and never persisted.
type CandidateSlot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

// ValidationVerdict is the outcome of re-validating a single slot at booking
// commit time. Reason is set only when Valid is false.
type ValidationVerdict struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}
