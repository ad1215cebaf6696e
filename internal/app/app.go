// Package app is the single application state shared by the CLI, the local
// popup server and the terminal popup. It validates settings, tests the
// connection, builds CSVs from the form and runs the upload-then-load
// sequence, reporting every outcome to the activity log.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/clssck/VeevaBro/internal/archive"
	"github.com/clssck/VeevaBro/internal/config"
	"github.com/clssck/VeevaBro/internal/form"
	"github.com/clssck/VeevaBro/internal/store"
	"github.com/clssck/VeevaBro/internal/vaultapi"
)

var (
	ErrNoSession = errors.New("session information is missing, test the connection in settings first")
	ErrBusy      = errors.New("an upload is already in progress")
)

// SettingsStore persists connection settings and the session.
type SettingsStore interface {
	LoadSettings(ctx context.Context) (store.Settings, error)
	SaveSettings(ctx context.Context, s store.Settings) error
	SetSession(ctx context.Context, sess store.Session) error
	ClearSession(ctx context.Context) error
}

// ActivityLog records user-visible status lines.
type ActivityLog interface {
	AppendActivity(ctx context.Context, e store.ActivityEntry) error
	RecentActivity(ctx context.Context, limit int) ([]store.ActivityEntry, error)
}

// VaultClient is the subset of *vaultapi.Client the app calls.
type VaultClient interface {
	Authenticate(ctx context.Context, cred vaultapi.Credentials) (*vaultapi.Session, error)
	Stage(ctx context.Context, t vaultapi.Target, f vaultapi.StageFile) (*vaultapi.StagedFile, error)
	Load(ctx context.Context, t vaultapi.Target, lr vaultapi.LoadRequest) (*vaultapi.LoadResult, error)
}

type App struct {
	cfg      config.Config
	settings SettingsStore
	activity ActivityLog
	vault    VaultClient
	form     *form.Controller
	exporter archive.Exporter

	catalogErr error
	now        func() time.Time
	uploading  atomic.Bool
}

// Option customizes an App.
type Option func(*App)

// WithExporter saves every generated CSV through e.
func WithExporter(e archive.Exporter) Option {
	return func(a *App) { a.exporter = e }
}

// WithClock replaces time.Now for file names.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithCatalogError records a catalog load failure for Status.
func WithCatalogError(err error) Option {
	return func(a *App) { a.catalogErr = err }
}

func New(cfg config.Config, settings SettingsStore, activity ActivityLog, vault VaultClient, forms *form.Controller, opts ...Option) *App {
	a := &App{
		cfg:      cfg,
		settings: settings,
		activity: activity,
		vault:    vault,
		form:     forms,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Form returns the form controller.
func (a *App) Form() *form.Controller {
	return a.form
}

// Status is the session indicator plus catalog health.
type Status struct {
	HasSession     bool   `json:"hasSession"`
	VaultURL       string `json:"vaultUrl,omitempty"`
	APIVersion     string `json:"apiVersion,omitempty"`
	Username       string `json:"username,omitempty"`
	UserID         string `json:"userId,omitempty"`
	CatalogSource  string `json:"catalogSource"`
	CatalogObjects int    `json:"catalogObjects"`
	CatalogError   string `json:"catalogError,omitempty"`
	Uploading      bool   `json:"uploading"`
}

func (a *App) Status(ctx context.Context) (Status, error) {
	s, err := a.settings.LoadSettings(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("loading settings: %w", err)
	}
	cat := a.form.Catalog()
	st := Status{
		HasSession:     s.HasSession(),
		VaultURL:       s.VaultURL,
		APIVersion:     s.APIVersion,
		Username:       s.Username,
		UserID:         s.UserID,
		CatalogSource:  cat.Source(),
		CatalogObjects: cat.Len(),
		Uploading:      a.uploading.Load(),
	}
	if a.catalogErr != nil {
		st.CatalogError = a.catalogErr.Error()
	}
	return st, nil
}

// Activity returns the newest activity entries first.
func (a *App) Activity(ctx context.Context, limit int) ([]store.ActivityEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return a.activity.RecentActivity(ctx, limit)
}

// report writes a status line to the activity log and the logger. A failing
// activity log is logged and otherwise ignored.
func (a *App) report(ctx context.Context, level, msg string, fields ...zap.Field) {
	l := ctxzap.Extract(ctx)
	if level == store.LevelError {
		l.Error(msg, fields...)
	} else {
		l.Info(msg, fields...)
	}
	if err := a.activity.AppendActivity(ctx, store.ActivityEntry{Level: level, Message: msg}); err != nil {
		l.Warn("failed to append activity", zap.Error(err))
	}
}

func (a *App) fail(ctx context.Context, err error) error {
	a.report(ctx, store.LevelError, "Error: "+err.Error())
	return err
}

// ensureHTTPS prefixes https:// when the URL has no scheme.
func ensureHTTPS(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" || strings.Contains(u, "://") {
		return u
	}
	return "https://" + u
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
