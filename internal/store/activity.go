package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Activity levels.
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// ActivityEntry represents a row in activity_log.
type ActivityEntry struct {
	ID        string    `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// AppendActivity writes an activity entry. Entries are never updated.
func (d *DB) AppendActivity(ctx context.Context, entry ActivityEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.Level == "" {
		entry.Level = LevelInfo
	}
	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO activity_log (id, level, message, created_at) VALUES (?, ?, ?, ?)`,
		entry.ID, entry.Level, entry.Message, entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// RecentActivity retrieves recent entries, newest first.
func (d *DB) RecentActivity(ctx context.Context, limit int) ([]ActivityEntry, error) {
	rows, err := d.conn.QueryContext(ctx,
		"SELECT id, level, message, created_at FROM activity_log ORDER BY seq DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ActivityEntry
	for rows.Next() {
		var e ActivityEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Level, &e.Message, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
