package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"slotbooking/internal/adapters/storage"
	"slotbooking/internal/domain/availability"
	domain "slotbooking/internal/domain/user"
)

// Document keys. The names are carried over from the original storage scope
// so an exported collection round-trips unchanged.
const (
	usersKey       = "slot_booking_users"
	currentUserKey = "slot_booking_current_user"
)

// SQLiteStore implements Store on the two-key document table.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new user Store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// readDocument returns the raw value under key, or absent=false.
func (s *SQLiteStore) readDocument(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM document WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read document %q: %w", key, err)
	}
	return value, true, nil
}

// writeDocument replaces the whole value under key.
func (s *SQLiteStore) writeDocument(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO document (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write document %q: %w", key, err)
	}
	return nil
}

// ListUsers returns all known users in persisted order.
// POST: absent or corrupt data yields an empty slice, never an error
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	value, ok, err := s.readDocument(ctx, usersKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []domain.User{}, nil
	}

	var users []domain.User
	if err := json.Unmarshal([]byte(value), &users); err != nil {
		// Corrupt collection degrades to empty rather than failing every
		// caller. The next write replaces the blob wholesale anyway.
		slog.Warn("corrupt_user_collection", "error", err.Error())
		return []domain.User{}, nil
	}
	for i := range users {
		users[i].EnsureAvailability()
	}
	return users, nil
}

// writeUsers serializes and stores the entire collection.
func (s *SQLiteStore) writeUsers(ctx context.Context, users []domain.User) error {
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("failed to serialize user collection: %w", err)
	}
	return s.writeDocument(ctx, usersKey, string(data))
}

// SaveUser replaces the record matching u.Username in place, or appends a
// new one, then persists the whole collection in a single write. The passed
// record replaces the stored one entirely; there is no field merge.
// PRE: u has been validated
// POST: exactly one record with u.Username exists, equal to u
func (s *SQLiteStore) SaveUser(ctx context.Context, u domain.User) error {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return err
	}
	u.EnsureAvailability()

	replaced := false
	for i := range users {
		if users[i].Username == u.Username {
			users[i] = u
			replaced = true
			break
		}
	}
	if !replaced {
		users = append(users, u)
	}
	return s.writeUsers(ctx, users)
}

// SetCurrentUser records username as the current user. The username is not
// checked against the collection; callers have just created or confirmed it.
func (s *SQLiteStore) SetCurrentUser(ctx context.Context, username string) error {
	return s.writeDocument(ctx, currentUserKey, username)
}

// GetCurrentUser resolves the stored pointer against the collection.
// POST: ok is false when no pointer is recorded or the pointer is stale
func (s *SQLiteStore) GetCurrentUser(ctx context.Context) (domain.User, bool, error) {
	username, ok, err := s.readDocument(ctx, currentUserKey)
	if err != nil {
		return domain.User{}, false, err
	}
	if !ok || username == "" {
		return domain.User{}, false, nil
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		return domain.User{}, false, err
	}
	for _, u := range users {
		if u.Username == username {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

// Logout clears the current-user pointer.
// POST: idempotent; clearing an absent pointer is not an error
func (s *SQLiteStore) Logout(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM document WHERE key = ?", currentUserKey)
	if err != nil {
		return fmt.Errorf("failed to clear current user: %w", err)
	}
	return nil
}

// UpdateAvailability replaces one date's slot sequence wholesale and
// persists the full collection. An unknown username is a silent no-op.
// POST: slots for (username, date) equal the given sequence exactly
func (s *SQLiteStore) UpdateAvailability(ctx context.Context, username, date string, slots []availability.TimeSlot) error {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return err
	}

	found := -1
	for i := range users {
		if users[i].Username == username {
			found = i
			break
		}
	}
	if found == -1 {
		return nil
	}

	users[found].EnsureAvailability()
	users[found].Availability[date] = slots
	return s.writeUsers(ctx, users)
}
