package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/clssck/VeevaBro/internal/errs"
	"github.com/clssck/VeevaBro/internal/store"
	"github.com/clssck/VeevaBro/internal/vaultapi"
)

// SettingsInput is what the settings form submits.
type SettingsInput struct {
	VaultURL   string `json:"vaultUrl"`
	APIVersion string `json:"apiVersion"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// normalize trims every field, adds https:// when missing and strips one
// trailing slash. All four fields are required.
func (in SettingsInput) normalize() (SettingsInput, error) {
	out := SettingsInput{
		VaultURL:   vaultapi.NormalizeVaultURL(ensureHTTPS(in.VaultURL)),
		APIVersion: trimmed(in.APIVersion),
		Username:   trimmed(in.Username),
		Password:   in.Password,
	}
	if out.VaultURL == "" || out.APIVersion == "" || out.Username == "" || out.Password == "" {
		return out, errs.NewValidationError("", "", "all fields are required")
	}
	return out, nil
}

func (in SettingsInput) credentials() vaultapi.Credentials {
	return vaultapi.Credentials{
		VaultURL:   in.VaultURL,
		APIVersion: in.APIVersion,
		Username:   in.Username,
		Password:   in.Password,
	}
}

// Settings returns the stored settings.
func (a *App) Settings(ctx context.Context) (store.Settings, error) {
	return a.settings.LoadSettings(ctx)
}

// WithStoredDefaults fills blank fields of in from the stored settings, so a
// form that never echoes the password can still test or save.
func (a *App) WithStoredDefaults(ctx context.Context, in SettingsInput) (SettingsInput, error) {
	s, err := a.settings.LoadSettings(ctx)
	if err != nil {
		return in, fmt.Errorf("loading settings: %w", err)
	}
	if trimmed(in.VaultURL) == "" {
		in.VaultURL = s.VaultURL
	}
	if trimmed(in.APIVersion) == "" {
		in.APIVersion = s.APIVersion
	}
	if trimmed(in.Username) == "" {
		in.Username = s.Username
	}
	if in.Password == "" {
		in.Password = s.Password
	}
	return in, nil
}

// SaveSettings validates and stores the settings. The stored session is
// kept while it belongs to the saved vault URL and API version, and cleared
// otherwise.
func (a *App) SaveSettings(ctx context.Context, in SettingsInput) (store.Settings, error) {
	norm, err := in.normalize()
	if err != nil {
		return store.Settings{}, a.fail(ctx, err)
	}
	s := store.Settings{
		VaultURL:   norm.VaultURL,
		APIVersion: norm.APIVersion,
		Username:   norm.Username,
		Password:   norm.Password,
	}
	if err := a.settings.SaveSettings(ctx, s); err != nil {
		return store.Settings{}, a.fail(ctx, fmt.Errorf("saving settings: %w", err))
	}
	a.report(ctx, store.LevelInfo, "Settings saved successfully", zap.String("vault_url", s.VaultURL))

	saved, err := a.settings.LoadSettings(ctx)
	if err != nil {
		return store.Settings{}, a.fail(ctx, fmt.Errorf("loading settings: %w", err))
	}
	if saved.SessionID != "" && !saved.HasSession() {
		if err := a.settings.ClearSession(ctx); err != nil {
			return store.Settings{}, a.fail(ctx, fmt.Errorf("clearing session: %w", err))
		}
		a.report(ctx, store.LevelInfo, "Vault changed, test the connection again",
			zap.String("session_vault_url", saved.SessionVaultURL))
		return a.settings.LoadSettings(ctx)
	}
	return saved, nil
}

// TestConnection authenticates with the given settings. On success the
// session is stored together with the vault URL and API version it was
// issued for; on any authentication failure the stored session is removed.
// Invalid input changes nothing.
func (a *App) TestConnection(ctx context.Context, in SettingsInput) (*vaultapi.Session, error) {
	norm, err := in.normalize()
	if err != nil {
		return nil, a.fail(ctx, err)
	}

	a.report(ctx, store.LevelInfo, "Testing connection...", zap.String("vault_url", norm.VaultURL))
	session, err := a.vault.Authenticate(ctx, norm.credentials())
	if errs.IsValidationError(err) {
		return nil, a.fail(ctx, err)
	}
	if err != nil {
		if cerr := a.settings.ClearSession(ctx); cerr != nil {
			return nil, a.fail(ctx, fmt.Errorf("clearing session: %w", cerr))
		}
		a.report(ctx, store.LevelError, "Connection failed: "+err.Error())
		return nil, err
	}

	bound := store.Session{
		ID:         session.ID,
		UserID:     session.UserID,
		VaultURL:   norm.VaultURL,
		APIVersion: norm.APIVersion,
	}
	if err := a.settings.SetSession(ctx, bound); err != nil {
		return nil, a.fail(ctx, fmt.Errorf("storing session: %w", err))
	}
	a.report(ctx, store.LevelInfo, "Connection successful",
		zap.String("vault_id", session.VaultID),
		zap.String("user_id", session.UserID),
	)
	return session, nil
}
