// Package vaultapi is a client for the subset of the Veeva Vault REST API
// used to push lifecycle-state changes: authentication, file staging and the
// loader service.
package vaultapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout  = 60 * time.Second
	maxResponseSize = 10 << 20

	authEndpoint    = "/auth"
	stagingEndpoint = "/services/file_staging/items"
	loaderEndpoint  = "/services/loader/load"
)

// Client issues Vault API calls. It holds no session state; every call takes
// the target vault and session explicitly.
type Client struct {
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout bounds every request, including reading the response.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New creates a client. Requests time out after 60s unless overridden.
func New(opts ...Option) *Client {
	c := &Client{httpClient: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Target identifies the vault, API version and session for authenticated calls.
type Target struct {
	VaultURL   string
	APIVersion string
	SessionID  string
}

// NormalizeVaultURL strips exactly one trailing slash.
func NormalizeVaultURL(vaultURL string) string {
	return strings.TrimSuffix(vaultURL, "/")
}

// NormalizeAPIVersion prefixes "v" unless the version already starts with it.
func NormalizeAPIVersion(version string) string {
	if strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}

// apiURL builds {vault}/api/{version}{path}.
func apiURL(vaultURL, version, path string) string {
	return NormalizeVaultURL(vaultURL) + "/api/" + NormalizeAPIVersion(version) + path
}

// send performs the request and decodes the JSON body into out.
// A body that is not JSON yields an *httpStatusError carrying the status and text.
func (c *Client) send(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		if resp.StatusCode >= 400 {
			return &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	return req, nil
}
