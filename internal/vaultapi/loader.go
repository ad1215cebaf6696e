package vaultapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// ObjectTypeVObjects is the loader object_type for Vault objects.
const ObjectTypeVObjects = "vobjects__v"

// LoadRequest asks the loader to update records of Object from a staged CSV.
type LoadRequest struct {
	Object string // object name, e.g. product__v
	File   string // staged file path returned by Stage
}

// Load submits a loader request for a staged file. A non-success status
// yields a *RemoteError carrying the server's errors.
func (c *Client) Load(ctx context.Context, t Target, lr LoadRequest) (*LoadResult, error) {
	l := ctxzap.Extract(ctx)

	payload, err := json.Marshal([]loadEntry{{
		ObjectType:          ObjectTypeVObjects,
		Object:              lr.Object,
		Action:              "update",
		File:                lr.File,
		RecordMigrationMode: true,
		Order:               1,
	}})
	if err != nil {
		return nil, err
	}

	loadURL := apiURL(t.VaultURL, t.APIVersion, loaderEndpoint)
	l.Info("submitting load request", zap.String("url", loadURL), zap.ByteString("payload", payload))

	req, err := newRequest(ctx, http.MethodPost, loadURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", t.SessionID)
	req.Header.Set("Content-Type", "application/json")

	var resp loadResponse
	if err := c.send(req, &resp); err != nil {
		l.Error("load request failed", zap.Error(err))
		return nil, &RemoteError{Step: StepLoad, Err: err}
	}
	if !resp.Succeeded() {
		l.Error("load request rejected",
			zap.String("response_status", resp.ResponseStatus),
			zap.Any("errors", resp.Errors),
		)
		return nil, &RemoteError{Step: StepLoad, Status: resp.ResponseStatus, Errors: resp.Errors}
	}

	result := &LoadResult{}
	if len(resp.Data) > 0 {
		// data is informational; an unexpected shape is not a failure
		if err := json.Unmarshal(resp.Data, &result.Tasks); err != nil {
			l.Debug("unrecognized load response data", zap.Error(err))
		}
	}
	return result, nil
}
