package models

import (
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// LocalTime is a wall-clock hour/minute pair with no date or zone attached.
// It is always paired with a calendar day and an IANA zone before conversion
// to an absolute instant.
type LocalTime struct {
	Hour   int
	Minute int
}

// ParseLocalTime parses a zero-padded "HH:MM" string.
func ParseLocalTime(s string) (LocalTime, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return LocalTime{}, fmt.Errorf("invalid local time %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return LocalTime{}, fmt.Errorf("invalid local time %q: hour out of range", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return LocalTime{}, fmt.Errorf("invalid local time %q: minute out of range", s)
	}
	return LocalTime{Hour: hour, Minute: minute}, nil
}

// String renders the zero-padded "HH:MM" form. Because both fields are fixed
// width, lexicographic comparison of two rendered values matches chronological
// order within a day.
func (t LocalTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Before reports whether t is strictly earlier in the day than other.
func (t LocalTime) Before(other LocalTime) bool {
	if t.Hour != other.Hour {
		return t.Hour < other.Hour
	}
	return t.Minute < other.Minute
}

func (t LocalTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

func (t *LocalTime) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("invalid local time literal %s", data)
	}
	parsed, err := ParseLocalTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// LocalTime is stored as its "HH:MM" string form in MongoDB.
func (t LocalTime) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(t.String())
}

func (t *LocalTime) UnmarshalBSONValue(bt bsontype.Type, data []byte) error {
	var s string
	raw := bson.RawValue{Type: bt, Value: data}
	if err := raw.Unmarshal(&s); err != nil {
		return fmt.Errorf("failed to decode local time: %w", err)
	}
	parsed, err := ParseLocalTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// AvailabilityRule is one recurring weekly availability window for an owner.
// Weekday follows time.Weekday numbering (0 = Sunday). Start must be earlier
// than End within the same local calendar day.
type AvailabilityRule struct {
	OwnerID string    `bson:"ownerId" json:"ownerId"`
	Weekday int       `bson:"weekday" json:"weekday"`
	Start   LocalTime `bson:"start" json:"start"`
	End     LocalTime `bson:"end" json:"end"`
	Active  bool      `bson:"active" json:"active"`
}
