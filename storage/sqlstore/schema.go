package sqlstore

import (
	"context"
	"fmt"
	"strings"
)

// columnTypes differ between dialects; the rest of the DDL is shared.
type columnTypes struct {
	id        string
	timestamp string
	boolean   string
}

func (d Dialect) columnTypes() columnTypes {
	if d == Postgres {
		return columnTypes{id: "UUID", timestamp: "TIMESTAMPTZ", boolean: "BOOLEAN"}
	}
	// modernc parses TIMESTAMP columns back into time.Time.
	return columnTypes{id: "TEXT", timestamp: "TIMESTAMP", boolean: "BOOLEAN"}
}

// schemaStatements is the DDL, in dependency order. Every statement is
// idempotent.
const schemaStatements = `
CREATE TABLE IF NOT EXISTS users (
	id {{id}} PRIMARY KEY,
	username VARCHAR(50) NOT NULL UNIQUE,
	display_name TEXT,
	password_hash TEXT,
	avatar_url TEXT,
	created_at {{ts}} NOT NULL
);
CREATE TABLE IF NOT EXISTS conversations (
	id {{id}} PRIMARY KEY,
	is_direct {{bool}} NOT NULL DEFAULT FALSE,
	created_at {{ts}} NOT NULL
);
CREATE TABLE IF NOT EXISTS conversation_members (
	id {{id}} PRIMARY KEY,
	conversation_id {{id}} NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	user_id {{id}} NOT NULL,
	joined_at {{ts}} NOT NULL,
	last_read_message_id {{id}}
);
CREATE INDEX IF NOT EXISTS idx_members_conversation_user ON conversation_members(conversation_id, user_id);
CREATE INDEX IF NOT EXISTS idx_members_user ON conversation_members(user_id);
CREATE TABLE IF NOT EXISTS messages (
	id {{id}} PRIMARY KEY,
	conversation_id {{id}} NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	sender_id {{id}} NOT NULL,
	content VARCHAR(4000) NOT NULL,
	created_at {{ts}} NOT NULL,
	edited_at {{ts}}
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation_created ON messages(conversation_id, created_at);
CREATE TABLE IF NOT EXISTS call_sessions (
	id {{id}} PRIMARY KEY,
	conversation_id {{id}} NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	caller_id {{id}} NOT NULL,
	callee_id {{id}} NOT NULL,
	status VARCHAR(16) NOT NULL CHECK (status IN ('INITIATED', 'RINGING', 'ACTIVE', 'ENDED')),
	started_at {{ts}} NOT NULL,
	ended_at {{ts}}
);
CREATE INDEX IF NOT EXISTS idx_call_sessions_conversation ON call_sessions(conversation_id);
`

// SchemaDDL returns the schema statements for a dialect.
func SchemaDDL(d Dialect) []string {
	types := d.columnTypes()
	ddl := strings.NewReplacer(
		"{{id}}", types.id,
		"{{ts}}", types.timestamp,
		"{{bool}}", types.boolean,
	).Replace(schemaStatements)

	var statements []string
	for _, stmt := range strings.Split(ddl, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

// Migrate creates any missing tables and indexes. Running it against an
// up to date database does nothing.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range SchemaDDL(db.dialect) {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}
	db.logger.Info("schema up to date")
	return nil
}
