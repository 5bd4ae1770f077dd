package export_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"slotbooking/internal/domain/availability"
	"slotbooking/internal/domain/export"
	"slotbooking/internal/domain/user"
)

func sampleUser() user.User {
	return user.User{
		Username: "alice",
		Timezone: "UTC",
		Availability: availability.Map{
			"2024-06-03": {{Start: "2:00 PM", End: "3:00 PM"}},
			"2024-06-01": {
				{Start: "9:00 AM", End: "10:00 AM"},
				{Start: "11:00 AM", End: "12:00 PM"},
			},
		},
	}
}

// TestFlatten verifies date ordering and per-date slot order.
func TestFlatten(t *testing.T) {
	rows := export.Flatten(sampleUser())
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	// Dates ascending, slot order preserved within a date
	want := []export.Row{
		{Date: "2024-06-01", Start: "9:00 AM", End: "10:00 AM"},
		{Date: "2024-06-01", Start: "11:00 AM", End: "12:00 PM"},
		{Date: "2024-06-03", Start: "2:00 PM", End: "3:00 PM"},
	}
	for i, w := range want {
		if rows[i] != w {
			t.Errorf("rows[%d] = %v, want %v", i, rows[i], w)
		}
	}
}

// TestFlatten_Empty returns an empty, non-nil slice.
func TestFlatten_Empty(t *testing.T) {
	rows := export.Flatten(user.User{Username: "bob", Availability: availability.Map{}})
	if rows == nil {
		t.Fatal("expected non-nil rows")
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %v", rows)
	}
}

// TestWriteCSV verifies the header and row rendering.
func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, export.Build(sampleUser())); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if lines[0] != "Date,Start Time,End Time" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "2024-06-01,9:00 AM,10:00 AM" {
		t.Errorf("first row = %q", lines[1])
	}
}

// TestWriteJSON round-trips the document.
func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := export.WriteJSON(&buf, export.Build(sampleUser())); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var doc export.Document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Username != "alice" || doc.Timezone != "UTC" {
		t.Errorf("document header = %+v", doc)
	}
	if len(doc.Slots) != 3 {
		t.Errorf("expected 3 slots, got %d", len(doc.Slots))
	}
}

// TestValidFormat covers the two supported formats.
func TestValidFormat(t *testing.T) {
	if !export.ValidFormat(export.FormatCSV) || !export.ValidFormat(export.FormatJSON) {
		t.Error("csv and json must be valid formats")
	}
	if export.ValidFormat("pdf") || export.ValidFormat("") {
		t.Error("unexpected format accepted")
	}
}
