package models

import "time"

// BookingSession holds the parameters of one availability query between slot
// display and booking confirmation. The cached slot list is advisory only; the
// confirm step always re-validates the chosen slot against freshly fetched
// busy data.
type BookingSession struct {
	OwnerID             string          `json:"ownerId"`
	Zone                string          `json:"zone"`
	DurationMinutes     int             `json:"durationMinutes"`
	MinNoticeHours      int             `json:"minNoticeHours"`
	BufferBeforeMinutes int             `json:"bufferBeforeMinutes"`
	BufferAfterMinutes  int             `json:"bufferAfterMinutes"`
	Slots               []CandidateSlot `json:"slots"`
	CreatedAt           time.Time       `json:"createdAt"`
}
