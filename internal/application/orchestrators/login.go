package orchestrators

import (
	"context"
	"log/slog"
	"strings"

	"slotbooking/internal/domain/availability"
	"slotbooking/internal/domain/user"
)

// UserStoreForLogin defines the store interface needed by Login.
type UserStoreForLogin interface {
	ListUsers(ctx context.Context) ([]user.User, error)
	SaveUser(ctx context.Context, u user.User) error
	SetCurrentUser(ctx context.Context, username string) error
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Username string
	Timezone string // resolved client zone; empty falls back to LocalZone
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	UserStore UserStoreForLogin
	LocalZone func() string // optional; defaults to UTC
}

// ExecuteLogin signs a user in by display name. An unknown name creates the
// record (first login is the only creation path); a known name is never
// mutated here. Either way the current-user pointer is set.
// PRE: Username is the one validated field; matching is exact and case-sensitive
// POST: a user with input.Username exists and is the current user
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (user.User, error) {
	if strings.TrimSpace(input.Username) == "" {
		return user.User{}, user.ErrEmptyUsername
	}

	users, err := deps.UserStore.ListUsers(ctx)
	if err != nil {
		return user.User{}, err
	}

	for _, u := range users {
		if u.Username == input.Username {
			if err := deps.UserStore.SetCurrentUser(ctx, u.Username); err != nil {
				return user.User{}, err
			}
			slog.Info("auth_event", "event", "login_success", "username", u.Username)
			u.EnsureAvailability()
			return u, nil
		}
	}

	zone := input.Timezone
	if zone == "" {
		if deps.LocalZone != nil {
			zone = deps.LocalZone()
		} else {
			zone = "UTC"
		}
	}
	created := user.User{
		Username:     input.Username,
		Timezone:     zone,
		Availability: availability.Map{},
	}
	if err := deps.UserStore.SaveUser(ctx, created); err != nil {
		return user.User{}, err
	}
	if err := deps.UserStore.SetCurrentUser(ctx, created.Username); err != nil {
		return user.User{}, err
	}
	slog.Info("auth_event", "event", "user_created", "username", created.Username, "timezone", created.Timezone)

	return created, nil
}
