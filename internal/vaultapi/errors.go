package vaultapi

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrVaultMismatch means the credentials were accepted by a different vault
// than the configured URL. Such a session is never treated as authenticated.
var ErrVaultMismatch = errors.New("authenticated vault does not match the provided vault URL")

// AuthError covers every authentication failure: transport, non-success
// status and vault mismatch.
type AuthError struct {
	Reason string     // human-readable reason
	Status string     // responseStatus, when a response was decoded
	Errors []APIError // server-reported errors, when present
	Err    error      // underlying cause
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Reason
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthError returns true if the error is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Step names a stage of the upload-and-load sequence.
type Step string

const (
	StepUpload Step = "upload"
	StepLoad   Step = "load"
)

// RemoteError is a failed staging upload or load request. Errors holds the
// server's error list verbatim.
type RemoteError struct {
	Step   Step
	Status string
	Errors []APIError
	Err    error
}

func (e *RemoteError) Error() string {
	prefix := "Upload failed"
	if e.Step == StepLoad {
		prefix = "Load failed"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	if len(e.Errors) == 0 {
		return fmt.Sprintf("%s: responseStatus %s", prefix, e.Status)
	}
	buf, _ := json.Marshal(e.Errors)
	return fmt.Sprintf("%s: %s", prefix, buf)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsRemoteError returns true if the error is a RemoteError for the given step.
func IsRemoteError(err error, step Step) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr) && remoteErr.Step == step
}

// httpStatusError is returned when a response is not a decodable envelope.
type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}
