package vaultapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/clssck/VeevaBro/internal/errs"
)

// Credentials are the inputs of an authentication request.
type Credentials struct {
	VaultURL   string
	APIVersion string
	Username   string
	Password   string
}

// Validate checks that every field is present.
func (c Credentials) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"vault URL", c.VaultURL},
		{"API version", c.APIVersion},
		{"username", c.Username},
		{"password", c.Password},
	} {
		if strings.TrimSpace(f.value) == "" {
			return errs.Required(f.name)
		}
	}
	return nil
}

// Session is an authenticated Vault session.
type Session struct {
	ID      string
	UserID  string
	VaultID string
}

// Authenticate logs in with username and password and verifies that the
// session belongs to the configured vault. It has no side effects.
func (c *Client) Authenticate(ctx context.Context, cred Credentials) (*Session, error) {
	l := ctxzap.Extract(ctx)

	if err := cred.Validate(); err != nil {
		return nil, err
	}

	vaultURL := NormalizeVaultURL(cred.VaultURL)
	parsed, err := url.Parse(vaultURL)
	if err != nil || parsed.Hostname() == "" {
		return nil, errs.NewValidationError("vault URL", cred.VaultURL, "must be an absolute URL")
	}

	authURL := apiURL(vaultURL, cred.APIVersion, authEndpoint)
	l.Debug("authenticating", zap.String("url", authURL), zap.String("username", cred.Username))

	form := url.Values{}
	form.Set("username", cred.Username)
	form.Set("password", cred.Password)

	req, err := newRequest(ctx, http.MethodPost, authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp AuthResponse
	if err := c.send(req, &resp); err != nil {
		l.Error("authentication request failed", zap.Error(err))
		return nil, &AuthError{Reason: err.Error(), Err: err}
	}

	if !resp.Succeeded() {
		l.Error("authentication rejected",
			zap.String("response_status", resp.ResponseStatus),
			zap.Any("errors", resp.Errors),
		)
		return nil, &AuthError{
			Reason: rejectionReason(resp.Envelope),
			Status: resp.ResponseStatus,
			Errors: resp.Errors,
		}
	}

	if !matchesVault(resp, parsed.Hostname()) {
		l.Error("authenticated vault mismatch",
			zap.String("host", parsed.Hostname()),
			zap.String("vault_id", resp.VaultID.String()),
		)
		return nil, &AuthError{
			Reason: ErrVaultMismatch.Error(),
			Status: resp.ResponseStatus,
			Err:    ErrVaultMismatch,
		}
	}

	if resp.SessionID == "" {
		return nil, &AuthError{Reason: "response has no session id", Status: resp.ResponseStatus}
	}

	return &Session{
		ID:      resp.SessionID,
		UserID:  resp.UserID.String(),
		VaultID: resp.VaultID.String(),
	}, nil
}

// matchesVault reports whether vaultIds holds the selected vault at https://{host}/api.
func matchesVault(resp AuthResponse, host string) bool {
	if resp.VaultID == "" {
		return false
	}
	want := "https://" + host + "/api"
	for _, v := range resp.VaultIDs {
		if v.URL == want && v.ID.String() == resp.VaultID.String() {
			return true
		}
	}
	return false
}

func rejectionReason(env Envelope) string {
	var msgs []string
	for _, e := range env.Errors {
		if e.Message != "" {
			msgs = append(msgs, e.Message)
		}
	}
	if len(msgs) > 0 {
		return fmt.Sprintf("%s: %s", env.ResponseStatus, strings.Join(msgs, "; "))
	}
	if env.ResponseMessage != "" {
		return fmt.Sprintf("%s: %s", env.ResponseStatus, env.ResponseMessage)
	}
	if env.ResponseStatus == "" {
		return "empty response status"
	}
	return env.ResponseStatus
}
