package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"

	_ "modernc.org/sqlite"

	web "slotbooking/internal/adapters/http"
	"slotbooking/internal/adapters/storage"
	userStore "slotbooking/internal/adapters/storage/user"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Initialize database with WAL mode and busy timeout
	dbPath := envOrDefault("SLOTBOOKING_DB", "slotbooking.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	// Health check
	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}

	// Run database migrations
	if err := storage.MigrateDB(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	log.Println("Database initialized successfully!")

	// Wrap DB with slow-query instrumentation
	timedDB := storage.NewTimedDB(db)

	stores := &web.Stores{
		UserStore: userStore.NewSQLiteStore(timedDB),
	}

	mux := web.NewMux(stores)

	addr := envOrDefault("SLOTBOOKING_ADDR", ":8080")
	log.Printf("Slot booking %s starting on %s (env=%s, schema=%d)", version, addr, envOrDefault("SLOTBOOKING_ENV", "development"), storage.LatestSchemaVersion())

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
