package db

import (
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/adamavenir/socialdash/internal/types"
)

const savedAtKey = "saved_at"

// SaveNotifications replaces the cached list with records.
func SaveNotifications(db *sql.DB, records []types.Notification) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := saveNotificationsWith(tx, records); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func saveNotificationsWith(db DBTX, records []types.Notification) error {
	if _, err := db.Exec(`DELETE FROM sd_notifications`); err != nil {
		return err
	}
	for _, rec := range records {
		var data sql.NullString
		if len(rec.Data) > 0 {
			data = sql.NullString{String: string(rec.Data), Valid: true}
		}
		_, err := db.Exec(`
			INSERT OR REPLACE INTO sd_notifications (
				id, type, actor_id, actor_first_name, actor_last_name, actor_premium,
				actor_subscription, message, data, is_read, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.ID, string(rec.Type), rec.From.ID, rec.From.FirstName, rec.From.LastName,
			boolToInt(rec.From.IsPremium), rec.From.SubscriptionType, rec.Message, data,
			boolToInt(rec.IsRead), rec.CreatedAt.UnixNano())
		if err != nil {
			return err
		}
	}
	_, err := db.Exec(`
		INSERT OR REPLACE INTO sd_meta (key, value) VALUES (?, ?)
	`, savedAtKey, strconv.FormatInt(time.Now().UnixMilli(), 10))
	return err
}

// LoadNotifications returns the cached list, newest first.
func LoadNotifications(db *sql.DB) ([]types.Notification, error) {
	rows, err := db.Query(`
		SELECT id, type, actor_id, actor_first_name, actor_last_name, actor_premium,
			actor_subscription, message, data, is_read, created_at
		FROM sd_notifications
		ORDER BY created_at DESC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []types.Notification
	for rows.Next() {
		var (
			rec       types.Notification
			typ       string
			premium   int
			isRead    int
			data      sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &typ, &rec.From.ID, &rec.From.FirstName, &rec.From.LastName,
			&premium, &rec.From.SubscriptionType, &rec.Message, &data, &isRead, &createdAt); err != nil {
			return nil, err
		}
		rec.Type = types.NotificationType(typ)
		rec.From.IsPremium = premium != 0
		rec.IsRead = isRead != 0
		rec.CreatedAt = time.Unix(0, createdAt).UTC()
		if data.Valid && data.String != "" {
			rec.Data = json.RawMessage(data.String)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// ClearNotifications empties the cache.
func ClearNotifications(db *sql.DB) error {
	if _, err := db.Exec(`DELETE FROM sd_notifications`); err != nil {
		return err
	}
	_, err := db.Exec(`DELETE FROM sd_meta WHERE key = ?`, savedAtKey)
	return err
}

// LastSaved returns when the cache was last written. The zero time means
// it never was.
func LastSaved(db *sql.DB) (time.Time, error) {
	row := db.QueryRow(`SELECT value FROM sd_meta WHERE key = ?`, savedAtKey)
	var value string
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
