package vaultapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// StageFile is a file to place in the file staging area.
type StageFile struct {
	Name        string // file name sent with the multipart part
	Dir         string // staging folder, e.g. /u1234/upload
	ContentType string
	Content     []byte
}

// StagingPath is the full staging path the file is uploaded to.
func (f StageFile) StagingPath() string {
	return path.Join("/", f.Dir, f.Name)
}

// Stage uploads a file to the staging area and returns the staged file.
// A non-success status or a response without a path yields a *RemoteError.
func (c *Client) Stage(ctx context.Context, t Target, f StageFile) (*StagedFile, error) {
	l := ctxzap.Extract(ctx)

	body, contentType, err := stageBody(f)
	if err != nil {
		return nil, err
	}

	uploadURL := apiURL(t.VaultURL, t.APIVersion, stagingEndpoint)
	l.Info("uploading file to staging",
		zap.String("url", uploadURL),
		zap.String("path", f.StagingPath()),
		zap.Int("bytes", len(f.Content)),
	)

	req, err := newRequest(ctx, http.MethodPost, uploadURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", t.SessionID)
	req.Header.Set("Content-Type", contentType)

	var resp stageResponse
	if err := c.send(req, &resp); err != nil {
		l.Error("staging upload failed", zap.Error(err))
		return nil, &RemoteError{Step: StepUpload, Err: err}
	}
	if !resp.Succeeded() {
		l.Error("staging upload rejected",
			zap.String("response_status", resp.ResponseStatus),
			zap.Any("errors", resp.Errors),
		)
		return nil, &RemoteError{Step: StepUpload, Status: resp.ResponseStatus, Errors: resp.Errors}
	}
	if resp.Data == nil || resp.Data.Path == "" {
		return nil, &RemoteError{
			Step:   StepUpload,
			Status: resp.ResponseStatus,
			Errors: resp.Errors,
			Err:    errors.New("response has no staged file path"),
		}
	}

	l.Info("file staged", zap.String("path", resp.Data.Path))
	return resp.Data, nil
}

func stageBody(f StageFile) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, f.Name))
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(f.Content); err != nil {
		return nil, "", fmt.Errorf("writing file part: %w", err)
	}
	if err := w.WriteField("path", f.StagingPath()); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("kind", "file"); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
