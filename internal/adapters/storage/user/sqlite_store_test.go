package user_test

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"slotbooking/internal/adapters/storage"
	userStore "slotbooking/internal/adapters/storage/user"
	"slotbooking/internal/domain/availability"
	domain "slotbooking/internal/domain/user"
)

// newTestStore creates a store backed by a migrated in-memory database.
func newTestStore(t *testing.T) (*userStore.SQLiteStore, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return userStore.NewSQLiteStore(db), db
}

func slot(start, end string) availability.TimeSlot {
	return availability.TimeSlot{Start: start, End: end}
}

// TestListUsers_Fresh verifies fresh storage reads as empty, not as an error.
func TestListUsers_Fresh(t *testing.T) {
	store, _ := newTestStore(t)

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("expected empty collection, got %v", users)
	}

	_, ok, err := store.GetCurrentUser(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no current user on fresh storage")
	}
}

// TestListUsers_Corrupt verifies an unparseable collection degrades to empty.
func TestListUsers_Corrupt(t *testing.T) {
	store, db := newTestStore(t)

	if _, err := db.Exec("INSERT INTO document (key, value) VALUES ('slot_booking_users', 'not json {')"); err != nil {
		t.Fatalf("failed to plant corrupt blob: %v", err)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("corrupt data must not surface as an error, got: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("expected empty collection, got %v", users)
	}

	// The next write replaces the corrupt blob wholesale
	if err := store.SaveUser(context.Background(), domain.User{Username: "alice"}); err != nil {
		t.Fatalf("SaveUser after corruption: %v", err)
	}
	users, err = store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 1 || users[0].Username != "alice" {
		t.Errorf("expected recovered collection with alice, got %v", users)
	}
}

// TestSaveUser_ReplaceNotDuplicate verifies save-then-list holds exactly one
// record per username, equal to the last-saved value.
func TestSaveUser_ReplaceNotDuplicate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveUser(ctx, domain.User{Username: "alice", Timezone: "UTC"}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	if err := store.SaveUser(ctx, domain.User{Username: "bob", Timezone: "UTC"}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	// Replace alice wholesale; position in the collection is preserved
	if err := store.SaveUser(ctx, domain.User{Username: "alice", Timezone: "Asia/Tokyo"}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}

	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d: %v", len(users), users)
	}
	if users[0].Username != "alice" || users[1].Username != "bob" {
		t.Errorf("collection order changed: %v", users)
	}
	if users[0].Timezone != "Asia/Tokyo" {
		t.Errorf("alice.Timezone = %q, want the last-saved value", users[0].Timezone)
	}
}

// TestSaveUser_WholeRecordReplace verifies there is no field merge.
func TestSaveUser_WholeRecordReplace(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveUser(ctx, domain.User{
		Username:     "alice",
		Timezone:     "UTC",
		Availability: availability.Map{"2024-06-01": {slot("9:00 AM", "10:00 AM")}},
	}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	// Saving without availability drops the old map: replace, not merge
	if err := store.SaveUser(ctx, domain.User{Username: "alice", Timezone: "UTC"}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}

	users, _ := store.ListUsers(ctx)
	if len(users[0].Availability["2024-06-01"]) != 0 {
		t.Errorf("expected availability to be replaced wholesale, got %v", users[0].Availability)
	}
}

// TestCurrentUser covers the pointer lifecycle including the stale case.
func TestCurrentUser(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveUser(ctx, domain.User{Username: "alice"}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	if err := store.SetCurrentUser(ctx, "alice"); err != nil {
		t.Fatalf("SetCurrentUser: %v", err)
	}

	u, ok, err := store.GetCurrentUser(ctx)
	if err != nil {
		t.Fatalf("GetCurrentUser: %v", err)
	}
	if !ok || u.Username != "alice" {
		t.Errorf("GetCurrentUser = (%v, %v), want alice", u, ok)
	}
	if u.Availability == nil {
		t.Error("expected defaulted availability map")
	}

	// Stale pointer: set to a name with no record
	if err := store.SetCurrentUser(ctx, "ghost"); err != nil {
		t.Fatalf("SetCurrentUser: %v", err)
	}
	_, ok, err = store.GetCurrentUser(ctx)
	if err != nil {
		t.Fatalf("GetCurrentUser: %v", err)
	}
	if ok {
		t.Error("stale pointer must resolve to absent")
	}
}

// TestLogout clears the pointer and is idempotent.
func TestLogout(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// Clearing an absent pointer is not an error
	if err := store.Logout(ctx); err != nil {
		t.Fatalf("Logout on fresh storage: %v", err)
	}

	if err := store.SaveUser(ctx, domain.User{Username: "alice"}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	if err := store.SetCurrentUser(ctx, "alice"); err != nil {
		t.Fatalf("SetCurrentUser: %v", err)
	}
	if err := store.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	_, ok, err := store.GetCurrentUser(ctx)
	if err != nil {
		t.Fatalf("GetCurrentUser: %v", err)
	}
	if ok {
		t.Error("expected no current user after logout")
	}

	if err := store.Logout(ctx); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
}

// TestUpdateAvailability_Replace verifies wholesale, order-preserving replace.
func TestUpdateAvailability_Replace(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveUser(ctx, domain.User{Username: "alice"}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}

	first := []availability.TimeSlot{slot("9:00 AM", "10:00 AM"), slot("1:00 PM", "2:00 PM")}
	if err := store.UpdateAvailability(ctx, "alice", "2024-06-01", first); err != nil {
		t.Fatalf("UpdateAvailability: %v", err)
	}

	users, _ := store.ListUsers(ctx)
	got := users[0].Availability["2024-06-01"]
	if len(got) != 2 || got[0] != first[0] || got[1] != first[1] {
		t.Fatalf("stored slots = %v, want %v", got, first)
	}

	// Replacement is wholesale, not merged or appended
	second := []availability.TimeSlot{slot("5:00 PM", "6:00 PM")}
	if err := store.UpdateAvailability(ctx, "alice", "2024-06-01", second); err != nil {
		t.Fatalf("UpdateAvailability: %v", err)
	}
	users, _ = store.ListUsers(ctx)
	got = users[0].Availability["2024-06-01"]
	if len(got) != 1 || got[0] != second[0] {
		t.Errorf("stored slots = %v, want %v", got, second)
	}

	// Other dates are untouched
	if err := store.UpdateAvailability(ctx, "alice", "2024-06-02", first); err != nil {
		t.Fatalf("UpdateAvailability: %v", err)
	}
	users, _ = store.ListUsers(ctx)
	if len(users[0].Availability["2024-06-01"]) != 1 {
		t.Errorf("2024-06-01 changed by a write to 2024-06-02")
	}
}

// TestUpdateAvailability_UnknownUser is a silent no-op.
func TestUpdateAvailability_UnknownUser(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveUser(ctx, domain.User{Username: "alice"}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}

	err := store.UpdateAvailability(ctx, "ghost", "2024-06-01", []availability.TimeSlot{slot("9:00 AM", "10:00 AM")})
	if err != nil {
		t.Fatalf("expected silent no-op, got: %v", err)
	}

	users, _ := store.ListUsers(ctx)
	if len(users) != 1 || len(users[0].Availability) != 0 {
		t.Errorf("collection changed by unknown-user update: %v", users)
	}
}

// TestUpdateAvailability_Idempotent verifies repeating the same call leaves
// the same final state.
func TestUpdateAvailability_Idempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveUser(ctx, domain.User{Username: "alice"}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}

	slots := []availability.TimeSlot{slot("9:00 AM", "10:00 AM")}
	for i := 0; i < 2; i++ {
		if err := store.UpdateAvailability(ctx, "alice", "2024-06-01", slots); err != nil {
			t.Fatalf("UpdateAvailability #%d: %v", i+1, err)
		}
	}

	users, _ := store.ListUsers(ctx)
	got := users[0].Availability["2024-06-01"]
	if len(got) != 1 || got[0] != slots[0] {
		t.Errorf("stored slots = %v, want %v", got, slots)
	}
}

// TestLastWriterWins documents the accepted write semantics: two stores over
// the same database interleaving read-modify-write cycles clobber at
// whole-collection granularity.
func TestLastWriterWins(t *testing.T) {
	store, db := newTestStore(t)
	other := userStore.NewSQLiteStore(db)
	ctx := context.Background()

	if err := store.SaveUser(ctx, domain.User{Username: "alice"}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}

	// Both writers update different dates; each rewrites the whole
	// collection, so the sequencing below keeps both dates — but only
	// because the second read happened after the first write. There is no
	// isolation to rely on beyond that.
	if err := store.UpdateAvailability(ctx, "alice", "2024-06-01", []availability.TimeSlot{slot("9:00 AM", "10:00 AM")}); err != nil {
		t.Fatalf("UpdateAvailability: %v", err)
	}
	if err := other.UpdateAvailability(ctx, "alice", "2024-06-02", []availability.TimeSlot{slot("1:00 PM", "2:00 PM")}); err != nil {
		t.Fatalf("UpdateAvailability: %v", err)
	}

	users, _ := store.ListUsers(ctx)
	if len(users[0].Availability) != 2 {
		t.Errorf("sequential writers should both land, got %v", users[0].Availability)
	}
}
