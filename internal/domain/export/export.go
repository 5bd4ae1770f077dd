package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"sort"

	"slotbooking/internal/domain/user"
)

// Format constants for export file format.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Domain errors.
var (
	ErrInvalidFormat = errors.New("export format must be 'csv' or 'json'")
)

// Row is one flattened availability entry in a user's export.
type Row struct {
	Date  string `json:"date"`
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

// Document is the complete export payload for one user.
type Document struct {
	Username string `json:"username"`
	Timezone string `json:"timezone"`
	Slots    []Row  `json:"slots"`
}

// Flatten collapses a user's full availability map into rows. Dates are
// ordered ascending; slot order within a date is the stored display order.
// POST: returns an empty (non-nil) slice for a user with no slots
func Flatten(u user.User) []Row {
	dates := u.Availability.Dates()
	sort.Strings(dates)

	rows := []Row{}
	for _, date := range dates {
		for _, slot := range u.Availability[date] {
			rows = append(rows, Row{Date: date, Start: slot.Start, End: slot.End})
		}
	}
	return rows
}

// Build assembles the export document for a user.
func Build(u user.User) Document {
	return Document{
		Username: u.Username,
		Timezone: u.Timezone,
		Slots:    Flatten(u),
	}
}

// WriteCSV renders the document's rows as CSV with a header line.
// POST: output is flushed to w
func WriteCSV(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Start Time", "End Time"}); err != nil {
		return err
	}
	for _, row := range doc.Slots {
		if err := cw.Write([]string{row.Date, row.Start, row.End}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON renders the document as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Filename returns the download filename for a format.
// PRE: format is FormatCSV or FormatJSON
func Filename(format string) string {
	return "slots." + format
}

// ValidFormat reports whether format names a supported export format.
func ValidFormat(format string) bool {
	return format == FormatCSV || format == FormatJSON
}
