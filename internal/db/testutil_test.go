package db

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/adamavenir/socialdash/internal/types"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func requireSchema(t *testing.T, db *sql.DB) {
	t.Helper()
	if err := InitSchema(db); err != nil {
		t.Fatalf("init schema: %v", err)
	}
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func rec(id string, minutes int, read bool) types.Notification {
	return types.Notification{
		ID:        id,
		Type:      types.NotificationLike,
		From:      types.Actor{ID: "u-" + id, FirstName: "Ada", LastName: "Lovelace"},
		IsRead:    read,
		CreatedAt: base.Add(time.Duration(minutes) * time.Minute),
	}
}
