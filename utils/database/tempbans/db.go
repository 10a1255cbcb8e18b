package tempbans

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Init opens the temp-ban database and ensures the schema exists.
func Init(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to temp-ban database: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS temp_bans (
	          id INTEGER PRIMARY KEY AUTOINCREMENT,
	          user_id TEXT NOT NULL,
	          guild_id TEXT NOT NULL,
	          role_id TEXT NOT NULL DEFAULT '',
	          reason TEXT NOT NULL DEFAULT '',
	          banned_at INTEGER NOT NULL,
	          unban_at INTEGER NOT NULL,
	          active INTEGER NOT NULL DEFAULT 1
	      );`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create temp_bans table: %w", err)
	}

	index := `CREATE INDEX IF NOT EXISTS idx_temp_bans_expiry ON temp_bans (active, unban_at);`
	if _, err := db.Exec(index); err != nil {
		return nil, fmt.Errorf("failed to create temp_bans index: %w", err)
	}

	return db, nil
}
