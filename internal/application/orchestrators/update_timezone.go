package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"slotbooking/internal/domain/user"
)

// UserStoreForProfile defines the store interface needed by UpdateTimezone.
type UserStoreForProfile interface {
	ListUsers(ctx context.Context) ([]user.User, error)
	SaveUser(ctx context.Context, u user.User) error
}

// UpdateTimezoneInput carries input for the profile update orchestrator.
type UpdateTimezoneInput struct {
	Username string
	Timezone string
}

// UpdateTimezoneDeps holds dependencies for UpdateTimezone.
type UpdateTimezoneDeps struct {
	UserStore UserStoreForProfile
}

var ErrUnknownUser = errors.New("no such user")

// ExecuteUpdateTimezone persists a changed timezone for an existing user.
// Every other field passes through unchanged; the timezone is advisory
// metadata and is not validated against the zone database.
// PRE: input.Username names an existing user
// POST: the stored record differs only in Timezone
func ExecuteUpdateTimezone(ctx context.Context, input UpdateTimezoneInput, deps UpdateTimezoneDeps) (user.User, error) {
	users, err := deps.UserStore.ListUsers(ctx)
	if err != nil {
		return user.User{}, err
	}

	for _, u := range users {
		if u.Username == input.Username {
			u.Timezone = input.Timezone
			if err := deps.UserStore.SaveUser(ctx, u); err != nil {
				return user.User{}, err
			}
			slog.Info("profile_event", "event", "timezone_updated", "username", u.Username, "timezone", u.Timezone)
			u.EnsureAvailability()
			return u, nil
		}
	}
	return user.User{}, ErrUnknownUser
}
