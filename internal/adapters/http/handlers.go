package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"slotbooking/internal/adapters/http/middleware"
	"slotbooking/internal/application/orchestrators"
	"slotbooking/internal/application/projections"
	"slotbooking/internal/domain/availability"
	"slotbooking/internal/domain/export"
	"slotbooking/internal/domain/user"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set), preventing XSS.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

//go:embed templates/*.html
var templatesFS embed.FS

// homeBlurb is the landing page copy, rendered as markdown.
const homeBlurb = `## Streamline your scheduling

Record when you're free, see when everyone else is, and share your
availability with **one export**.`

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeJSON renders a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json_encode_error", "error", err.Error())
	}
}

func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	username := ""
	if ok {
		username = sess.Username
	}

	funcMap := template.FuncMap{
		"currentUsername": func() string { return username },
		"isLoggedIn":      func() bool { return username != "" },
		"csrfToken":       func() string { return csrf.Token(r) },
		"renderMarkdown": func(md string) template.HTML {
			var buf bytes.Buffer
			if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
				return template.HTML(template.HTMLEscapeString(md))
			}
			return template.HTML(buf.String())
		},
	}

	tmpl, err := template.New(templateName).Funcs(funcMap).ParseFS(templatesFS, "templates/"+templateName)
	if err != nil {
		internalError(w, fmt.Errorf("failed to parse template %s: %w", templateName, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		slog.Error("template_error", "template", templateName, "error", err.Error())
	}
}

// selectedDate parses the ?date= query parameter, defaulting to today.
func selectedDate(r *http.Request) string {
	if raw := r.URL.Query().Get("date"); raw != "" {
		if t, err := availability.ParseDate(raw); err == nil {
			return availability.FormatDate(t)
		}
	}
	return availability.FormatDate(timeNow())
}

// handleHome renders the landing page.
func handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	renderTemplate(w, r, "home.html", map[string]any{
		"Blurb": homeBlurb,
	})
}

// handleLogin handles GET (form) and POST (sign in or create) for /login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" {
		// If already logged in, go straight to the dashboard
		if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		renderTemplate(w, r, "login.html", map[string]any{"Username": ""})
		return
	}

	if r.Method == "POST" {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}

		input := orchestrators.LoginInput{
			Username: r.FormValue("Username"),
			Timezone: r.FormValue("Timezone"),
		}
		deps := orchestrators.LoginDeps{UserStore: stores.UserStore}

		u, err := orchestrators.ExecuteLogin(r.Context(), input, deps)
		if errors.Is(err, user.ErrEmptyUsername) {
			renderTemplate(w, r, "login.html", map[string]any{
				"Error":    "Username is required",
				"Username": input.Username,
			})
			return
		}
		if err != nil {
			internalError(w, err)
			return
		}

		token := sessions.Create(u.Username)
		middleware.SetSessionCookie(w, token)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// handleLogout handles POST /logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		sessions.Delete(cookie.Value)
	}
	// Clear the durable pointer too; idempotent by contract.
	if err := stores.UserStore.Logout(r.Context()); err != nil {
		internalError(w, err)
		return
	}

	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleDashboard renders both availability tabs for the selected date.
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())
	date := selectedDate(r)

	result, err := projections.GetDayAvailability(r.Context(), projections.GetDayAvailabilityQuery{
		Username: sess.Username,
		Date:     date,
	}, projections.GetDayAvailabilityDeps{UserStore: stores.UserStore})
	if err != nil {
		internalError(w, err)
		return
	}

	day, err := availability.ParseDate(date)
	if err != nil {
		internalError(w, err)
		return
	}

	renderTemplate(w, r, "dashboard.html", map[string]any{
		"Date":         date,
		"PrevDate":     availability.FormatDate(day.AddDate(0, 0, -1)),
		"NextDate":     availability.FormatDate(day.AddDate(0, 0, 1)),
		"Mine":         result.Mine,
		"Others":       result.Others,
		"TimeOptions":  availability.TimeOptions(),
		"CopyDates":    availability.UpcomingDates(day, availability.CopyWindowDays),
		"DefaultStart": availability.DefaultStart,
		"DefaultEnd":   availability.DefaultEnd,
	})
}

// handleProfile handles GET (form) and POST (save timezone) for /profile
func handleProfile(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())

	if r.Method == "GET" {
		users, err := stores.UserStore.ListUsers(r.Context())
		if err != nil {
			internalError(w, err)
			return
		}
		for _, u := range users {
			if u.Username == sess.Username {
				renderTemplate(w, r, "profile.html", map[string]any{
					"Username":  u.Username,
					"Timezone":  u.Timezone,
					"Timezones": user.Timezones,
				})
				return
			}
		}
		// Stale session: the record is gone from the collection.
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if r.Method == "POST" {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		_, err := orchestrators.ExecuteUpdateTimezone(r.Context(), orchestrators.UpdateTimezoneInput{
			Username: sess.Username,
			Timezone: r.FormValue("Timezone"),
		}, orchestrators.UpdateTimezoneDeps{UserStore: stores.UserStore})
		if errors.Is(err, orchestrators.ErrUnknownUser) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err != nil {
			internalError(w, err)
			return
		}
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// handleExport streams the current user's flattened slots as a download.
func handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())

	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatCSV
	}
	if !export.ValidFormat(format) {
		http.Error(w, export.ErrInvalidFormat.Error(), http.StatusBadRequest)
		return
	}

	doc, err := projections.GetExport(r.Context(), projections.GetExportQuery{Username: sess.Username},
		projections.GetExportDeps{UserStore: stores.UserStore})
	if errors.Is(err, projections.ErrUserNotFound) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(format)))
	switch format {
	case export.FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
		err = export.WriteCSV(w, doc)
	case export.FormatJSON:
		w.Header().Set("Content-Type", "application/json")
		err = export.WriteJSON(w, doc)
	}
	if err != nil {
		slog.Error("export_write_error", "format", format, "error", err.Error())
	}
}

// slotFormRedirect sends a form post back to the dashboard on its date.
func slotFormRedirect(w http.ResponseWriter, r *http.Request, date string) {
	http.Redirect(w, r, "/dashboard?date="+date, http.StatusSeeOther)
}

// slotError maps slot operation failures to responses.
func slotError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrators.ErrEmptyDate),
		errors.Is(err, availability.ErrIndexOutOfRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		internalError(w, err)
	}
}

// handleAddSlot handles POST /slots/add
func handleAddSlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())
	date := r.FormValue("Date")

	_, err := orchestrators.ExecuteAddSlot(r.Context(), orchestrators.AddSlotInput{
		Username: sess.Username,
		Date:     date,
		Slot:     availability.TimeSlot{Start: r.FormValue("Start"), End: r.FormValue("End")},
	}, orchestrators.SlotDeps{UserStore: stores.UserStore})
	if err != nil {
		slotError(w, err)
		return
	}
	slotFormRedirect(w, r, date)
}

// handleEditSlot handles POST /slots/edit
func handleEditSlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	index, err := strconv.Atoi(r.FormValue("Index"))
	if err != nil {
		http.Error(w, "Invalid slot index", http.StatusBadRequest)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())
	date := r.FormValue("Date")

	_, err = orchestrators.ExecuteEditSlot(r.Context(), orchestrators.EditSlotInput{
		Username: sess.Username,
		Date:     date,
		Index:    index,
		Slot:     availability.TimeSlot{Start: r.FormValue("Start"), End: r.FormValue("End")},
	}, orchestrators.SlotDeps{UserStore: stores.UserStore})
	if err != nil {
		slotError(w, err)
		return
	}
	slotFormRedirect(w, r, date)
}

// handleDeleteSlot handles POST /slots/delete
func handleDeleteSlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	index, err := strconv.Atoi(r.FormValue("Index"))
	if err != nil {
		http.Error(w, "Invalid slot index", http.StatusBadRequest)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())
	date := r.FormValue("Date")

	_, err = orchestrators.ExecuteDeleteSlot(r.Context(), orchestrators.DeleteSlotInput{
		Username: sess.Username,
		Date:     date,
		Index:    index,
	}, orchestrators.SlotDeps{UserStore: stores.UserStore})
	if err != nil {
		slotError(w, err)
		return
	}
	slotFormRedirect(w, r, date)
}

// handleCopySlot handles POST /slots/copy
func handleCopySlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())

	err := orchestrators.ExecuteCopySlot(r.Context(), orchestrators.CopySlotInput{
		Username: sess.Username,
		Slot:     availability.TimeSlot{Start: r.FormValue("Start"), End: r.FormValue("End")},
		Dates:    r.Form["Dates"],
	}, orchestrators.SlotDeps{UserStore: stores.UserStore})
	if err != nil {
		slotError(w, err)
		return
	}
	slotFormRedirect(w, r, r.FormValue("Date"))
}

// availabilityResponse is the JSON shape for slot reads and writes.
type availabilityResponse struct {
	Username string                  `json:"username"`
	Date     string                  `json:"date"`
	Slots    []availability.TimeSlot `json:"slots"`
}

// handleAPIAvailability handles GET /api/availability?username=&date=
// Any user's day can be read; absent users and dates both read as empty.
func handleAPIAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())

	username := r.URL.Query().Get("username")
	if username == "" {
		username = sess.Username
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		http.Error(w, orchestrators.ErrEmptyDate.Error(), http.StatusBadRequest)
		return
	}

	users, err := stores.UserStore.ListUsers(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	slots := []availability.TimeSlot{}
	for _, u := range users {
		if u.Username == username {
			slots = append(slots, u.SlotsOn(date)...)
			break
		}
	}
	writeJSON(w, http.StatusOK, availabilityResponse{Username: username, Date: date, Slots: slots})
}

// slotRequest is the JSON body for slot mutations.
type slotRequest struct {
	Date  string `json:"date"`
	Index int    `json:"index"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// handleAPISlots handles POST (add), PUT (edit) and DELETE for /api/slots.
// Mutations always target the session user's own calendar.
func handleAPISlots(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	deps := orchestrators.SlotDeps{UserStore: stores.UserStore}

	switch r.Method {
	case "POST":
		var req slotRequest
		if err := strictDecode(r, &req); err != nil {
			http.Error(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}
		slots, err := orchestrators.ExecuteAddSlot(r.Context(), orchestrators.AddSlotInput{
			Username: sess.Username,
			Date:     req.Date,
			Slot:     availability.TimeSlot{Start: req.Start, End: req.End},
		}, deps)
		if err != nil {
			slotError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, availabilityResponse{Username: sess.Username, Date: req.Date, Slots: slots})

	case "PUT":
		var req slotRequest
		if err := strictDecode(r, &req); err != nil {
			http.Error(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}
		slots, err := orchestrators.ExecuteEditSlot(r.Context(), orchestrators.EditSlotInput{
			Username: sess.Username,
			Date:     req.Date,
			Index:    req.Index,
			Slot:     availability.TimeSlot{Start: req.Start, End: req.End},
		}, deps)
		if err != nil {
			slotError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, availabilityResponse{Username: sess.Username, Date: req.Date, Slots: slots})

	case "DELETE":
		date := r.URL.Query().Get("date")
		index, err := strconv.Atoi(r.URL.Query().Get("index"))
		if err != nil {
			http.Error(w, "Invalid slot index", http.StatusBadRequest)
			return
		}
		slots, err := orchestrators.ExecuteDeleteSlot(r.Context(), orchestrators.DeleteSlotInput{
			Username: sess.Username,
			Date:     date,
			Index:    index,
		}, deps)
		if err != nil {
			slotError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, availabilityResponse{Username: sess.Username, Date: date, Slots: slots})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// copyRequest is the JSON body for /api/slots/copy.
type copyRequest struct {
	Start string   `json:"start"`
	End   string   `json:"end"`
	Dates []string `json:"dates"`
}

// handleAPICopySlot handles POST /api/slots/copy
func handleAPICopySlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())

	var req copyRequest
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	err := orchestrators.ExecuteCopySlot(r.Context(), orchestrators.CopySlotInput{
		Username: sess.Username,
		Slot:     availability.TimeSlot{Start: req.Start, End: req.End},
		Dates:    req.Dates,
	}, orchestrators.SlotDeps{UserStore: stores.UserStore})
	if err != nil {
		slotError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
