package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Setting keys, named as the extension stored them.
const (
	KeyVaultURL   = "vaultUrl"
	KeyAPIVersion = "apiVersion"
	KeyUsername   = "username"
	KeyPassword   = "password"
	KeySessionID  = "sessionId"
	KeyUserID     = "userId"

	// the vault the session was issued for
	KeySessionVaultURL   = "sessionVaultUrl"
	KeySessionAPIVersion = "sessionApiVersion"
)

var sessionKeys = []any{KeySessionID, KeyUserID, KeySessionVaultURL, KeySessionAPIVersion}

// Settings is the durable connection configuration plus the current session.
type Settings struct {
	VaultURL   string `json:"vaultUrl"`
	APIVersion string `json:"apiVersion"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	SessionID  string `json:"sessionId,omitempty"`
	UserID     string `json:"userId,omitempty"`

	SessionVaultURL   string `json:"sessionVaultUrl,omitempty"`
	SessionAPIVersion string `json:"sessionApiVersion,omitempty"`
}

// Session is an authenticated session and the vault it was issued for.
type Session struct {
	ID         string
	UserID     string
	VaultURL   string
	APIVersion string
}

// HasSession reports whether a session is stored for the configured vault
// URL and API version. A session issued for another vault does not count.
func (s Settings) HasSession() bool {
	return s.SessionID != "" &&
		s.SessionVaultURL == s.VaultURL &&
		s.SessionAPIVersion == s.APIVersion
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// LoadSettings reads every known setting. Missing keys are left empty.
func (d *DB) LoadSettings(ctx context.Context) (Settings, error) {
	rows, err := d.conn.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return Settings{}, err
	}
	defer rows.Close()

	var s Settings
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Settings{}, err
		}
		switch key {
		case KeyVaultURL:
			s.VaultURL = value
		case KeyAPIVersion:
			s.APIVersion = value
		case KeyUsername:
			s.Username = value
		case KeyPassword:
			s.Password = value
		case KeySessionID:
			s.SessionID = value
		case KeyUserID:
			s.UserID = value
		case KeySessionVaultURL:
			s.SessionVaultURL = value
		case KeySessionAPIVersion:
			s.SessionAPIVersion = value
		}
	}
	return s, rows.Err()
}

// SaveSettings writes the four connection settings in one transaction.
// The stored session is left untouched.
func (d *DB) SaveSettings(ctx context.Context, s Settings) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		for _, kv := range [][2]string{
			{KeyVaultURL, s.VaultURL},
			{KeyAPIVersion, s.APIVersion},
			{KeyUsername, s.Username},
			{KeyPassword, s.Password},
		} {
			if err := upsert(ctx, tx, "settings", kv[0], kv[1]); err != nil {
				return fmt.Errorf("saving %s: %w", kv[0], err)
			}
		}
		return nil
	})
}

// SetSession stores the session with its user id and the vault it belongs to.
func (d *DB) SetSession(ctx context.Context, sess Session) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		for _, kv := range [][2]string{
			{KeySessionID, sess.ID},
			{KeyUserID, sess.UserID},
			{KeySessionVaultURL, sess.VaultURL},
			{KeySessionAPIVersion, sess.APIVersion},
		} {
			if err := upsert(ctx, tx, "settings", kv[0], kv[1]); err != nil {
				return fmt.Errorf("saving %s: %w", kv[0], err)
			}
		}
		return nil
	})
}

// ClearSession removes the stored session and the vault it was bound to.
func (d *DB) ClearSession(ctx context.Context) error {
	_, err := d.conn.ExecContext(ctx,
		"DELETE FROM settings WHERE key IN (?, ?, ?, ?)", sessionKeys...)
	return err
}

func (d *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
