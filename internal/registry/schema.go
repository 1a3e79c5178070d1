package registry

import (
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// EnsureSchema creates the events table and the two participation
// tables if they are absent. Idempotent; intended as the pool's
// OnConnect hook so every connection sees the schema. Date fields are
// stored as the raw source text, never normalized at rest — parsing
// happens at query time only.
func EnsureSchema(conn *sqlite.Conn) error {
	return sqlitex.ExecuteScript(conn, `
		CREATE TABLE IF NOT EXISTS events (
			ctftime_id  TEXT PRIMARY KEY,
			message_id  TEXT NOT NULL UNIQUE,
			title       TEXT NOT NULL DEFAULT '',
			url         TEXT NOT NULL DEFAULT '',
			start       TEXT NOT NULL DEFAULT '',
			"end"       TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS participants (
			ctftime_id  TEXT NOT NULL REFERENCES events(ctftime_id) ON DELETE CASCADE,
			participant TEXT NOT NULL,
			PRIMARY KEY (ctftime_id, participant)
		);
		CREATE TABLE IF NOT EXISTS maybe_participants (
			ctftime_id  TEXT NOT NULL REFERENCES events(ctftime_id) ON DELETE CASCADE,
			participant TEXT NOT NULL,
			PRIMARY KEY (ctftime_id, participant)
		);
	`, nil)
}
