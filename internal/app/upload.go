package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/clssck/VeevaBro/internal/store"
	"github.com/clssck/VeevaBro/internal/vaultapi"
)

// UploadResult describes a completed upload-and-load.
type UploadResult struct {
	Filename   string              `json:"filename"`
	StagedPath string              `json:"stagedPath"`
	Rows       int                 `json:"rows"`
	Tasks      []vaultapi.LoadTask `json:"tasks,omitempty"`
}

// Uploading reports whether an upload is in flight.
func (a *App) Uploading() bool {
	return a.uploading.Load()
}

// UploadAndLoad builds the CSV from the form, stages it and then asks the
// loader to apply it. The load request is only sent after staging
// succeeded. Nothing is retried. A second call while one is in flight
// returns ErrBusy without any request.
func (a *App) UploadAndLoad(ctx context.Context) (*UploadResult, error) {
	if !a.uploading.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer a.uploading.Store(false)

	doc, err := a.BuildCSV(ctx)
	if err != nil {
		return nil, err
	}

	s, err := a.settings.LoadSettings(ctx)
	if err != nil {
		return nil, a.fail(ctx, err)
	}
	if !s.HasSession() || s.VaultURL == "" || s.APIVersion == "" {
		return nil, a.fail(ctx, ErrNoSession)
	}
	target := vaultapi.Target{VaultURL: s.VaultURL, APIVersion: s.APIVersion, SessionID: s.SessionID}
	object := a.form.State().ObjectType

	staged, err := a.vault.Stage(ctx, target, vaultapi.StageFile{
		Name:        doc.Filename,
		Dir:         a.cfg.StagingDirFor(s.UserID),
		ContentType: doc.ContentType,
		Content:     doc.Content,
	})
	if err != nil {
		return nil, a.fail(ctx, err)
	}
	a.report(ctx, store.LevelInfo, "CSV uploaded to "+staged.Path)

	res, err := a.vault.Load(ctx, target, vaultapi.LoadRequest{Object: object, File: staged.Path})
	if err != nil {
		return nil, a.fail(ctx, err)
	}

	out := &UploadResult{Filename: doc.Filename, StagedPath: staged.Path, Rows: doc.Rows, Tasks: res.Tasks}
	fields := []zap.Field{zap.String("object", object), zap.String("file", staged.Path)}
	if len(res.Tasks) > 0 {
		fields = append(fields, zap.String("job_id", res.Tasks[0].JobID.String()))
	}
	a.report(ctx, store.LevelInfo, "CSV uploaded and loaded successfully", fields...)
	return out, nil
}
