package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/clssck/VeevaBro/internal/app"
	"github.com/clssck/VeevaBro/internal/errs"
	"github.com/clssck/VeevaBro/internal/vaultapi"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, constraint, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "constraint": constraint})
}

// handleAppError maps app, validation and remote errors to responses.
func handleAppError(w http.ResponseWriter, err error) {
	switch {
	case errs.IsValidationError(err):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, vaultapi.ErrVaultMismatch):
		writeError(w, http.StatusUnauthorized, "vault_mismatch", err.Error())
	case vaultapi.IsAuthError(err):
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case vaultapi.IsRemoteError(err, vaultapi.StepUpload):
		writeError(w, http.StatusBadGateway, "upload_failed", err.Error())
	case vaultapi.IsRemoteError(err, vaultapi.StepLoad):
		writeError(w, http.StatusBadGateway, "load_failed", err.Error())
	case errors.Is(err, app.ErrNoSession):
		writeError(w, http.StatusPreconditionFailed, "no_session", err.Error())
	case errors.Is(err, app.ErrBusy):
		writeError(w, http.StatusConflict, "busy", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

// decodeBody decodes a JSON body. An empty body leaves v unchanged.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// GET /status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.app.Status(r.Context())
	if err != nil {
		handleAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GET /catalog
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"objects": s.app.Form().Catalog().Objects()})
}

type settingsResponse struct {
	VaultURL    string `json:"vaultUrl"`
	APIVersion  string `json:"apiVersion"`
	Username    string `json:"username"`
	PasswordSet bool   `json:"passwordSet"`
	HasSession  bool   `json:"hasSession"`
}

// GET /settings
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.app.Settings(r.Context())
	if err != nil {
		handleAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{
		VaultURL:    st.VaultURL,
		APIVersion:  st.APIVersion,
		Username:    st.Username,
		PasswordSet: st.Password != "",
		HasSession:  st.HasSession(),
	})
}

// PUT /settings
func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var in app.SettingsInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON")
		return
	}
	// the page never receives the password, so a blank one keeps the stored value
	if in.Password == "" {
		stored, err := s.app.Settings(r.Context())
		if err != nil {
			handleAppError(w, err)
			return
		}
		in.Password = stored.Password
	}
	st, err := s.app.SaveSettings(r.Context(), in)
	if err != nil {
		handleAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{
		VaultURL:    st.VaultURL,
		APIVersion:  st.APIVersion,
		Username:    st.Username,
		PasswordSet: st.Password != "",
		HasSession:  st.HasSession(),
	})
}

// POST /settings/test
func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	if !s.testLimit.allow() {
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many connection tests, try again later")
		return
	}
	var in app.SettingsInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON")
		return
	}
	in, err := s.app.WithStoredDefaults(r.Context(), in)
	if err != nil {
		handleAppError(w, err)
		return
	}
	session, err := s.app.TestConnection(r.Context(), in)
	if err != nil {
		handleAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hasSession": true,
		"userId":     session.UserID,
		"vaultId":    session.VaultID,
	})
}

// GET /form
func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Form().View())
}

type valueRequest struct {
	Value string `json:"value"`
}

func decodeValue(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req valueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON")
		return "", false
	}
	return req.Value, true
}

// PUT /form/object-type
func (s *Server) handleSelectObjectType(w http.ResponseWriter, r *http.Request) {
	value, ok := decodeValue(w, r)
	if !ok {
		return
	}
	view, err := s.app.Form().SelectObjectType(r.Context(), value)
	if err != nil {
		handleAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// PUT /form/lifecycle
func (s *Server) handleSelectLifecycle(w http.ResponseWriter, r *http.Request) {
	value, ok := decodeValue(w, r)
	if !ok {
		return
	}
	view, err := s.app.Form().SelectLifecycle(r.Context(), value)
	if err != nil {
		handleAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// PUT /form/object-ids
func (s *Server) handleSetObjectIDs(w http.ResponseWriter, r *http.Request) {
	value, ok := decodeValue(w, r)
	if !ok {
		return
	}
	view, err := s.app.Form().SetObjectIDs(r.Context(), value)
	if err != nil {
		handleAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// POST /form/reset
func (s *Server) handleResetForm(w http.ResponseWriter, r *http.Request) {
	view, err := s.app.Form().Reset(r.Context())
	if err != nil {
		handleAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// POST /csv returns the document as a download and saves it to the export dir.
func (s *Server) handleGenerateCSV(w http.ResponseWriter, r *http.Request) {
	out, err := s.app.GenerateCSV(r.Context())
	if err != nil {
		handleAppError(w, err)
		return
	}
	doc := out.Document
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	if out.Location != "" {
		w.Header().Set("X-Export-Location", out.Location)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(doc.Content)
}

// POST /upload
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.UploadAndLoad(r.Context())
	if err != nil {
		handleAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /activity
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}
	if limit > 1000 {
		limit = 1000
	}
	entries, err := s.app.Activity(r.Context(), limit)
	if err != nil {
		handleAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
