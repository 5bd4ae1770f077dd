package orchestrators

import (
	"context"
	"errors"

	"slotbooking/internal/domain/availability"
	"slotbooking/internal/domain/user"
)

// UserStoreForSlots defines the store interface needed by the slot
// operations. All four follow the same read-modify-write cycle: fetch the
// current sequence for (user, date), transform it in memory, write the full
// result back. There is no optimistic-concurrency check; the environment is
// a single user editing their own calendar.
type UserStoreForSlots interface {
	ListUsers(ctx context.Context) ([]user.User, error)
	UpdateAvailability(ctx context.Context, username, date string, slots []availability.TimeSlot) error
}

// SlotDeps holds dependencies for the slot operations.
type SlotDeps struct {
	UserStore UserStoreForSlots
}

var ErrEmptyDate = errors.New("date is required")

// currentSlots reads the slot sequence for (username, date), empty if the
// date has no entry. Unknown usernames also read as empty; the subsequent
// UpdateAvailability is a no-op for them, matching the store contract.
func currentSlots(ctx context.Context, deps SlotDeps, username, date string) ([]availability.TimeSlot, error) {
	users, err := deps.UserStore.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Username == username {
			return u.SlotsOn(date), nil
		}
	}
	return nil, nil
}

// AddSlotInput carries input for ExecuteAddSlot.
type AddSlotInput struct {
	Username string
	Date     string
	Slot     availability.TimeSlot
}

// ExecuteAddSlot appends a slot to the end of a date's sequence.
// POST: the date's sequence grows by one entry, prior order preserved
func ExecuteAddSlot(ctx context.Context, input AddSlotInput, deps SlotDeps) ([]availability.TimeSlot, error) {
	if input.Date == "" {
		return nil, ErrEmptyDate
	}
	slots, err := currentSlots(ctx, deps, input.Username, input.Date)
	if err != nil {
		return nil, err
	}
	updated := availability.Append(slots, input.Slot)
	if err := deps.UserStore.UpdateAvailability(ctx, input.Username, input.Date, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// EditSlotInput carries input for ExecuteEditSlot.
type EditSlotInput struct {
	Username string
	Date     string
	Index    int
	Slot     availability.TimeSlot
}

// ExecuteEditSlot replaces the slot at a position. Targeting is by index at
// the time of the request: if the sequence changed shape since the index
// was captured, whatever occupies that position now is replaced.
// POST: sequence length is unchanged
func ExecuteEditSlot(ctx context.Context, input EditSlotInput, deps SlotDeps) ([]availability.TimeSlot, error) {
	if input.Date == "" {
		return nil, ErrEmptyDate
	}
	slots, err := currentSlots(ctx, deps, input.Username, input.Date)
	if err != nil {
		return nil, err
	}
	updated, err := availability.ReplaceAt(slots, input.Index, input.Slot)
	if err != nil {
		return nil, err
	}
	if err := deps.UserStore.UpdateAvailability(ctx, input.Username, input.Date, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteSlotInput carries input for ExecuteDeleteSlot.
type DeleteSlotInput struct {
	Username string
	Date     string
	Index    int
}

// ExecuteDeleteSlot removes the slot at a position. Same index-based
// targeting caveat as ExecuteEditSlot.
// POST: sequence is one shorter; remaining order preserved
func ExecuteDeleteSlot(ctx context.Context, input DeleteSlotInput, deps SlotDeps) ([]availability.TimeSlot, error) {
	if input.Date == "" {
		return nil, ErrEmptyDate
	}
	slots, err := currentSlots(ctx, deps, input.Username, input.Date)
	if err != nil {
		return nil, err
	}
	updated, err := availability.RemoveAt(slots, input.Index)
	if err != nil {
		return nil, err
	}
	if err := deps.UserStore.UpdateAvailability(ctx, input.Username, input.Date, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// CopySlotInput carries input for ExecuteCopySlot.
type CopySlotInput struct {
	Username string
	Slot     availability.TimeSlot
	Dates    []string
}

// ExecuteCopySlot appends the source slot to each destination date as N
// independent single-date updates, not one batched write. Copies are not
// deduplicated: copying the same slot to the same date twice leaves two
// identical entries.
// POST: each destination sequence grows by exactly one entry
func ExecuteCopySlot(ctx context.Context, input CopySlotInput, deps SlotDeps) error {
	for _, date := range input.Dates {
		if date == "" {
			return ErrEmptyDate
		}
		slots, err := currentSlots(ctx, deps, input.Username, date)
		if err != nil {
			return err
		}
		updated := availability.Append(slots, input.Slot)
		if err := deps.UserStore.UpdateAvailability(ctx, input.Username, date, updated); err != nil {
			return err
		}
	}
	return nil
}
