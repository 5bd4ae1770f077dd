package user

import (
	"context"

	"slotbooking/internal/domain/availability"
	domain "slotbooking/internal/domain/user"
)

// Store persists the user collection and the current-user pointer.
//
// The backing layout is two whole documents: the full user collection under
// one key and the current username under another. Every mutation rewrites
// the entire collection; there is no per-record update, no versioning and no
// isolation between concurrent writers (last writer wins). Absent or
// unparseable data is treated as "no users", never surfaced as an error —
// errors here mean the database itself failed.
type Store interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	SaveUser(ctx context.Context, u domain.User) error
	SetCurrentUser(ctx context.Context, username string) error
	GetCurrentUser(ctx context.Context) (domain.User, bool, error)
	Logout(ctx context.Context) error
	UpdateAvailability(ctx context.Context, username, date string, slots []availability.TimeSlot) error
}
