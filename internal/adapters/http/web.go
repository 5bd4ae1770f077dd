package web

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"time"

	"slotbooking/internal/adapters/http/middleware"
	userStore "slotbooking/internal/adapters/storage/user"
)

// Stores holds all storage dependencies.
type Stores struct {
	UserStore userStore.Store
}

// loadCSRFKey reads the CSRF secret from SLOTBOOKING_CSRF_KEY (hex-encoded, 32 bytes).
// In production, the key MUST be set. In development, a random key is generated per startup.
func loadCSRFKey() []byte {
	if keyHex := os.Getenv("SLOTBOOKING_CSRF_KEY"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			log.Fatal("SLOTBOOKING_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key
	}
	if os.Getenv("SLOTBOOKING_ENV") == "production" {
		log.Fatal("SLOTBOOKING_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("failed to generate CSRF key: %v", err)
	}
	log.Println("WARNING: using random CSRF key (sessions won't survive restart). Set SLOTBOOKING_CSRF_KEY for production.")
	return key
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session store instance
var sessions *middleware.SessionStore

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// NewMux wires HTTP handlers for the app.
func NewMux(s *Stores) http.Handler {
	stores = s
	sessions = middleware.NewSessionStore()
	middleware.SecureCookies = os.Getenv("SLOTBOOKING_ENV") == "production"

	mux := http.NewServeMux()
	registerRoutes(mux)

	// CSRF key: 32-byte hex-encoded secret from env var
	csrfKey := loadCSRFKey()

	// Rate limiter: configurable requests per second per IP
	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Apply middleware: RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey),
		middleware.Auth(sessions),
		middleware.RateLimit(limiter),
	)
}

// registerRoutes attaches every page, form and API route. Everything except
// the login page sits behind RequireAuth: the session guard runs on each
// protected view and absence routes to /login.
func registerRoutes(mux *http.ServeMux) {
	protected := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAuth(h)
	}

	mux.HandleFunc("/login", handleLogin)
	mux.Handle("/logout", protected(handleLogout))

	mux.Handle("/", protected(handleHome))
	mux.Handle("/dashboard", protected(handleDashboard))
	mux.Handle("/profile", protected(handleProfile))
	mux.Handle("/export", protected(handleExport))

	mux.Handle("/slots/add", protected(handleAddSlot))
	mux.Handle("/slots/edit", protected(handleEditSlot))
	mux.Handle("/slots/delete", protected(handleDeleteSlot))
	mux.Handle("/slots/copy", protected(handleCopySlot))

	mux.Handle("/api/availability", protected(handleAPIAvailability))
	mux.Handle("/api/slots", protected(handleAPISlots))
	mux.Handle("/api/slots/copy", protected(handleAPICopySlot))
}
