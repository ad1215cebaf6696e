package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// DraftKey is the drafts key holding the popup form.
const DraftKey = "formData"

// FormDraft is the in-progress popup form.
type FormDraft struct {
	ObjectType string `json:"objectType"`
	Lifecycle  string `json:"lifecycle"`
	ObjectIDs  string `json:"objectIds"`
}

// SaveDraft replaces the stored form draft.
func (d *DB) SaveDraft(ctx context.Context, draft FormDraft) error {
	buf, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}
	return upsert(ctx, d.conn, "drafts", DraftKey, string(buf))
}

// LoadDraft returns the stored form draft. ok is false when none is stored.
func (d *DB) LoadDraft(ctx context.Context) (draft FormDraft, ok bool, err error) {
	var value string
	err = d.conn.QueryRowContext(ctx, "SELECT value FROM drafts WHERE key = ?", DraftKey).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return FormDraft{}, false, nil
		}
		return FormDraft{}, false, err
	}
	if err := json.Unmarshal([]byte(value), &draft); err != nil {
		return FormDraft{}, false, fmt.Errorf("decoding draft: %w", err)
	}
	return draft, true, nil
}

// ClearDraft removes the stored form draft.
func (d *DB) ClearDraft(ctx context.Context) error {
	_, err := d.conn.ExecContext(ctx, "DELETE FROM drafts WHERE key = ?", DraftKey)
	return err
}
