package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// LegacyConversationsSchema is the conversations table layout written by
// earlier releases, without the updated_at column.
const LegacyConversationsSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	wa_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	last_message TEXT NOT NULL,
	messages TEXT NOT NULL
)`

// CreateLegacySQLiteDB creates a SQLite database at path in the legacy
// layout, holding one conversation with one inbound message.
func CreateLegacySQLiteDB(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(LegacyConversationsSchema); err != nil {
		t.Fatalf("Failed to create conversations table: %v", err)
	}
	messages := `[{"id":"legacy-1","text":"hello from before","timestamp":1690000000000,"status":"read","fromMe":false}]`
	if _, err := db.Exec(
		`INSERT INTO conversations (wa_id, name, last_message, messages) VALUES (?, ?, ?, ?)`,
		"15550000000", "Legacy Contact", "hello from before", messages,
	); err != nil {
		t.Fatalf("Failed to insert conversation: %v", err)
	}
}
