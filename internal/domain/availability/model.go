package availability

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the canonical key format for availability dates.
const DateLayout = "2006-01-02"

// Default slot offered when adding a new entry.
const (
	DefaultStart = "9:00 AM"
	DefaultEnd   = "10:00 AM"
)

// CopyWindowDays is how many days after the selected date are offered
// as copy destinations.
const CopyWindowDays = 7

// Domain errors
var (
	ErrIndexOutOfRange = errors.New("slot index out of range")
)

// TimeSlot is one interval of availability on a given date. Start and End
// are hour-aligned 12-hour clock values from TimeOptions. Inverted or
// overlapping slots are allowed: the source of truth is whatever the user
// picked, and nothing downstream does slot arithmetic.
type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Map holds a user's slots keyed by date (YYYY-MM-DD). A missing key and an
// empty sequence mean the same thing: no slots for that day.
type Map map[string][]TimeSlot

// SlotsFor returns the slot sequence for a date in display order.
// POST: returns nil for an absent key; safe on a nil Map
func (m Map) SlotsFor(date string) []TimeSlot {
	if m == nil {
		return nil
	}
	return m[date]
}

// Dates returns the date keys present in the map, unordered.
func (m Map) Dates() []string {
	keys := make([]string, 0, len(m))
	for d := range m {
		keys = append(keys, d)
	}
	return keys
}

// Append returns slots with slot added at the end.
// POST: input slice is not mutated
func Append(slots []TimeSlot, slot TimeSlot) []TimeSlot {
	out := make([]TimeSlot, 0, len(slots)+1)
	out = append(out, slots...)
	return append(out, slot)
}

// ReplaceAt returns slots with the element at index replaced. Targeting is
// by position at the time of the call, last writer wins.
// PRE: index addresses an element of slots
// POST: input slice is not mutated
func ReplaceAt(slots []TimeSlot, index int, slot TimeSlot) ([]TimeSlot, error) {
	if index < 0 || index >= len(slots) {
		return nil, ErrIndexOutOfRange
	}
	out := make([]TimeSlot, len(slots))
	copy(out, slots)
	out[index] = slot
	return out, nil
}

// RemoveAt returns slots without the element at index. Same positional
// targeting caveat as ReplaceAt.
// PRE: index addresses an element of slots
// POST: input slice is not mutated
func RemoveAt(slots []TimeSlot, index int) ([]TimeSlot, error) {
	if index < 0 || index >= len(slots) {
		return nil, ErrIndexOutOfRange
	}
	out := make([]TimeSlot, 0, len(slots)-1)
	out = append(out, slots[:index]...)
	return append(out, slots[index+1:]...), nil
}

// TimeOptions returns the 24 hour-aligned clock values a slot boundary can
// take, in day order: "12:00 AM", "1:00 AM", ... "11:00 PM".
func TimeOptions() []string {
	options := make([]string, 0, 24)
	for i := 0; i < 24; i++ {
		hour := i % 12
		if hour == 0 {
			hour = 12
		}
		ampm := "AM"
		if i >= 12 {
			ampm = "PM"
		}
		options = append(options, fmt.Sprintf("%d:00 %s", hour, ampm))
	}
	return options
}

// FormatDate renders t as an availability date key.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses an availability date key.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// UpcomingDates returns the n date keys following from (exclusive). Used to
// offer copy destinations for the selected date.
func UpcomingDates(from time.Time, n int) []string {
	dates := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		dates = append(dates, FormatDate(from.AddDate(0, 0, i)))
	}
	return dates
}
