package config

import (
	"os"
	"strings"
)

// PostingEventsTopic enables publication of reconciled postings through the outbox.
// Empty disables both the outbox writes and the dispatcher.
//
// Set via env:
// - POSTING_EVENTS_TOPIC=posting-outcomes
func PostingEventsTopic() string {
	return strings.TrimSpace(os.Getenv("POSTING_EVENTS_TOPIC"))
}

// SkipMigrations disables AutoMigrate on startup (run them as a separate job instead).
//
// Set via env:
// - SKIP_MIGRATIONS=true
func SkipMigrations() bool {
	return boolFromEnv("SKIP_MIGRATIONS")
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
