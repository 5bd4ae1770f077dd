package projections

import (
	"context"

	"slotbooking/internal/domain/availability"
	"slotbooking/internal/domain/user"
)

// DayAvailabilityUserStore defines the user store interface needed by the
// day availability projection.
type DayAvailabilityUserStore interface {
	ListUsers(ctx context.Context) ([]user.User, error)
}

// GetDayAvailabilityQuery carries input for the day view projection.
type GetDayAvailabilityQuery struct {
	Username string // the viewing user
	Date     string // YYYY-MM-DD
}

// GetDayAvailabilityDeps holds dependencies for the day view projection.
type GetDayAvailabilityDeps struct {
	UserStore DayAvailabilityUserStore
}

// UserDaySlots is one user's slot sequence for the selected date.
type UserDaySlots struct {
	Username string
	Slots    []availability.TimeSlot
}

// DayAvailabilityResult carries the output of the day view projection.
// Mine is the viewing user's sequence; Others holds every other user in
// collection order. An empty slot slice renders as "no slots available".
type DayAvailabilityResult struct {
	Date   string
	Mine   []availability.TimeSlot
	Others []UserDaySlots
}

// GetDayAvailability assembles both dashboard tabs for one date.
// PRE: query.Date is a YYYY-MM-DD key
// POST: Others excludes query.Username; all sequences are in display order
func GetDayAvailability(ctx context.Context, query GetDayAvailabilityQuery, deps GetDayAvailabilityDeps) (DayAvailabilityResult, error) {
	users, err := deps.UserStore.ListUsers(ctx)
	if err != nil {
		return DayAvailabilityResult{}, err
	}

	result := DayAvailabilityResult{Date: query.Date}
	for _, u := range users {
		u.EnsureAvailability()
		if u.Username == query.Username {
			result.Mine = u.SlotsOn(query.Date)
			continue
		}
		result.Others = append(result.Others, UserDaySlots{
			Username: u.Username,
			Slots:    u.SlotsOn(query.Date),
		})
	}
	return result, nil
}
