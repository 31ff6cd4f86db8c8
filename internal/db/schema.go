package db

import (
	"database/sql"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sd_notifications (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	actor_id TEXT NOT NULL DEFAULT '',
	actor_first_name TEXT NOT NULL DEFAULT '',
	actor_last_name TEXT NOT NULL DEFAULT '',
	actor_premium INTEGER NOT NULL DEFAULT 0,
	actor_subscription TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	data TEXT,
	is_read INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sd_notifications_created ON sd_notifications(created_at DESC, id);

CREATE TABLE IF NOT EXISTS sd_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// DBTX represents shared methods across sql.DB and sql.Tx.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// InitSchema creates the cache tables and applies migrations.
func InitSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := initSchemaWith(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func initSchemaWith(db DBTX) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return err
	}
	return migrateSchema(db)
}

// schemaExists reports whether the cache schema is present.
func schemaExists(db *sql.DB) (bool, error) {
	row := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='sd_notifications'
	`)
	var name string
	err := row.Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return name != "", nil
}

type tableColumn struct {
	Name    string
	ColType string
	NotNull int
	PK      int
}

func getTableInfo(db DBTX, table string) ([]tableColumn, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []tableColumn
	for rows.Next() {
		var (
			cid       int
			col       tableColumn
			dfltValue sql.NullString
		)
		if err := rows.Scan(&cid, &col.Name, &col.ColType, &col.NotNull, &dfltValue, &col.PK); err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func hasColumn(columns []tableColumn, name string) bool {
	for _, col := range columns {
		if col.Name == name {
			return true
		}
	}
	return false
}

// migrateSchema upgrades caches written before actor subscription
// tracking and payload storage existed.
func migrateSchema(db DBTX) error {
	columns, err := getTableInfo(db, "sd_notifications")
	if err != nil {
		return err
	}
	if !hasColumn(columns, "actor_subscription") {
		if _, err := db.Exec("ALTER TABLE sd_notifications ADD COLUMN actor_subscription TEXT NOT NULL DEFAULT ''"); err != nil {
			return err
		}
	}
	if !hasColumn(columns, "data") {
		if _, err := db.Exec("ALTER TABLE sd_notifications ADD COLUMN data TEXT"); err != nil {
			return err
		}
	}
	return nil
}
