package db

import (
	"database/sql"
	"fmt"
)

// MigrateUp creates the kv table and its index for the given dialect.
// Statements are idempotent and safe to run on every start.
func MigrateUp(db *sql.DB, dialect Dialect) error {
	tsType := "TIMESTAMPTZ NOT NULL DEFAULT now()"
	if dialect == DialectSQLite {
		tsType = "TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP"
	}

	if _, err := db.Exec(fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at %s
)`, tsType)); err != nil {
		return err
	}

	// 更新日時での運用確認用
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_kv_updated_at ON kv(updated_at)`); err != nil {
		return err
	}

	return nil
}

// MigrateDown rolls back the database schema.
// Use with caution: this deletes every cached timestamp and the comic index.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP INDEX IF EXISTS idx_kv_updated_at`,
		`DROP TABLE IF EXISTS kv`,
	}
	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
