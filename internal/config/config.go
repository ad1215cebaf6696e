// Package config loads runtime settings from VEEVABRO_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAddr           = "127.0.0.1:7300"
	defaultHTTPTimeoutSec = 60
	defaultLogLevel       = "info"
	defaultArchiveBucket  = "veevabro-exports"
)

// IDRule selects which object ids the CSV builder accepts.
type IDRule string

const (
	// IDRuleAlphanumeric accepts [A-Za-z0-9]+.
	IDRuleAlphanumeric IDRule = "alphanumeric"
	// IDRuleNumeric accepts [0-9]+.
	IDRuleNumeric IDRule = "numeric"
)

// ParseIDRule maps a configured value to an IDRule. Empty means alphanumeric.
func ParseIDRule(s string) (IDRule, error) {
	switch IDRule(strings.ToLower(strings.TrimSpace(s))) {
	case "", IDRuleAlphanumeric:
		return IDRuleAlphanumeric, nil
	case IDRuleNumeric:
		return IDRuleNumeric, nil
	}
	return "", fmt.Errorf("unknown id rule %q (want alphanumeric or numeric)", s)
}

type Config struct {
	Dir            string
	Addr           string
	CatalogPath    string // empty means the embedded catalog
	IDRule         IDRule
	HTTPTimeoutSec int
	StagingDir     string // empty means /u{userId}/upload
	ExportDir      string
	LogLevel       string

	ArchiveEndpoint  string // empty disables the archive copy
	ArchiveAccessKey string
	ArchiveSecretKey string
	ArchiveBucket    string
	ArchiveUseSSL    bool
}

func Load() (Config, error) {
	dir := getenv("VEEVABRO_DIR", "")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolving home directory: %w", err)
		}
		dir = filepath.Join(home, ".veevabro")
	}

	rule, err := ParseIDRule(os.Getenv("VEEVABRO_ID_RULE"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Dir:            dir,
		Addr:           getenv("VEEVABRO_ADDR", defaultAddr),
		CatalogPath:    os.Getenv("VEEVABRO_CATALOG"),
		IDRule:         rule,
		HTTPTimeoutSec: getenvInt("VEEVABRO_HTTP_TIMEOUT_SEC", defaultHTTPTimeoutSec),
		StagingDir:     os.Getenv("VEEVABRO_STAGING_DIR"),
		ExportDir:      getenv("VEEVABRO_EXPORT_DIR", filepath.Join(dir, "exports")),
		LogLevel:       getenv("VEEVABRO_LOG_LEVEL", defaultLogLevel),

		ArchiveEndpoint:  os.Getenv("VEEVABRO_ARCHIVE_ENDPOINT"),
		ArchiveAccessKey: os.Getenv("VEEVABRO_ARCHIVE_ACCESS_KEY"),
		ArchiveSecretKey: os.Getenv("VEEVABRO_ARCHIVE_SECRET_KEY"),
		ArchiveBucket:    getenv("VEEVABRO_ARCHIVE_BUCKET", defaultArchiveBucket),
		ArchiveUseSSL:    getenvBool("VEEVABRO_ARCHIVE_USE_SSL", true),
	}

	if cfg.HTTPTimeoutSec <= 0 {
		cfg.HTTPTimeoutSec = defaultHTTPTimeoutSec
	}
	if cfg.ArchiveEndpoint != "" && (cfg.ArchiveAccessKey == "" || cfg.ArchiveSecretKey == "") {
		return Config{}, fmt.Errorf("VEEVABRO_ARCHIVE_ACCESS_KEY and VEEVABRO_ARCHIVE_SECRET_KEY are required when VEEVABRO_ARCHIVE_ENDPOINT is set")
	}

	return cfg, nil
}

// DBPath is the sqlite database inside the data directory.
func (c Config) DBPath() string {
	return filepath.Join(c.Dir, "veevabro.db")
}

// HTTPTimeout bounds every Vault API request.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// ArchiveEnabled reports whether generated CSVs are also copied to object storage.
func (c Config) ArchiveEnabled() bool {
	return c.ArchiveEndpoint != ""
}

// StagingDirFor returns the staging folder for a user. An explicit
// VEEVABRO_STAGING_DIR wins; otherwise /u{userId}/upload, or /upload when the
// user id is unknown.
func (c Config) StagingDirFor(userID string) string {
	if c.StagingDir != "" {
		return c.StagingDir
	}
	if userID == "" {
		return "/upload"
	}
	return "/u" + userID + "/upload"
}

func getenv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
