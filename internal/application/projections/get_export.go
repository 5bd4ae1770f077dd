package projections

import (
	"context"
	"errors"

	"slotbooking/internal/domain/export"
	"slotbooking/internal/domain/user"
)

// ExportUserStore defines the user store interface needed by the export
// projection.
type ExportUserStore interface {
	ListUsers(ctx context.Context) ([]user.User, error)
}

// GetExportQuery carries input for the export projection.
type GetExportQuery struct {
	Username string
}

// GetExportDeps holds dependencies for the export projection.
type GetExportDeps struct {
	UserStore ExportUserStore
}

var ErrUserNotFound = errors.New("user not found")

// GetExport flattens a user's full availability map into the export
// document. Read-only: no store interaction beyond the collection read.
// POST: rows are ordered by date ascending, slot order preserved per date
func GetExport(ctx context.Context, query GetExportQuery, deps GetExportDeps) (export.Document, error) {
	users, err := deps.UserStore.ListUsers(ctx)
	if err != nil {
		return export.Document{}, err
	}
	for _, u := range users {
		if u.Username == query.Username {
			u.EnsureAvailability()
			return export.Build(u), nil
		}
	}
	return export.Document{}, ErrUserNotFound
}
