package user

import (
	"errors"
	"strings"

	"slotbooking/internal/domain/availability"
)

// Timezones is the fixed choice list offered on the profile page. The value
// is advisory metadata only: nothing converts slot times between zones.
var Timezones = []string{
	"UTC",
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
	"Europe/London",
	"Europe/Paris",
	"Asia/Tokyo",
	"Asia/Dubai",
	"Australia/Sydney",
	"Pacific/Auckland",
}

// Domain errors
var (
	ErrEmptyUsername = errors.New("username is required")
)

// User holds one person's identity and recorded availability. Username is
// the unique identifier, case-sensitive, chosen at first login and immutable
// after that. The JSON shape is the persisted wire format.
type User struct {
	Username     string           `json:"username"`
	Timezone     string           `json:"timezone"`
	Availability availability.Map `json:"availability"`
}

// Validate checks if the User has valid data.
// PRE: User struct is populated
// POST: Returns nil if valid, error otherwise
func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrEmptyUsername
	}
	return nil
}

// EnsureAvailability defaults a nil availability map to an empty one.
// Records persisted before the field existed deserialize with a nil map,
// so callers normalize before use.
// POST: u.Availability is non-nil
func (u *User) EnsureAvailability() {
	if u.Availability == nil {
		u.Availability = availability.Map{}
	}
}

// SlotsOn returns the user's slots for a date in display order.
// POST: safe on a user with a nil availability map
func (u *User) SlotsOn(date string) []availability.TimeSlot {
	return u.Availability.SlotsFor(date)
}
