/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the personal ledger server. Handles
  configuration, dependency injection, default seeding, and graceful
  shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize SQLite store
  3. Seed the default account and categories on an empty ledger
  4. Wire repository -> broadcaster -> API handler
  5. Start server with graceful shutdown

CONFIGURATION:
  -port    HTTP server port    (env PORT, default 8080)
  -db      SQLite database path (env LEDGER_DB, default ledger.db)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - ledger/repository.go: Core operations
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pocketbook/ledger-engine/api"
	"github.com/pocketbook/ledger-engine/ledger"
	"github.com/pocketbook/ledger-engine/notify"
	"github.com/pocketbook/ledger-engine/store/sqlite"
)

func main() {
	// A missing .env is fine; flags and env defaults cover everything.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("LEDGER_DB", "ledger.db"), "SQLite database path")
	flag.Parse()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	events := notify.NewBroadcaster()
	repo := ledger.NewRepository(store, events)

	if err := repo.SeedDefaults(context.Background()); err != nil {
		log.Fatalf("Failed to seed defaults: %v", err)
	}

	router := api.NewRouter(api.NewHandler(repo, events))

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", *port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout stays zero: /api/events holds its connection open
		// for as long as the client listens.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("Ledger server listening on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
