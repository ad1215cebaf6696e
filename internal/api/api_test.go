package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/clssck/VeevaBro/internal/app"
	"github.com/clssck/VeevaBro/internal/archive"
	"github.com/clssck/VeevaBro/internal/catalog"
	"github.com/clssck/VeevaBro/internal/config"
	"github.com/clssck/VeevaBro/internal/form"
	"github.com/clssck/VeevaBro/internal/store"
	"github.com/clssck/VeevaBro/internal/vaultapi"
)

const testToken = "local-test-token"

type testEnv struct {
	server *Server
	db     *store.DB
	remote *httptest.Server
	stages int
	loads  int
}

// fakeVault answers auth, staging and loader calls like a healthy vault.
func (e *testEnv) fakeVault(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/auth"):
		r.ParseForm()
		if r.PostForm.Get("password") != "secret" {
			io.WriteString(w, `{"responseStatus":"FAILURE","errors":[{"type":"USERNAME_OR_PASSWORD_INCORRECT","message":"Authentication failed"}]}`)
			return
		}
		u, _ := url.Parse("http://" + r.Host)
		json.NewEncoder(w).Encode(map[string]any{
			"responseStatus": "SUCCESS",
			"sessionId":      "SESSION-API",
			"userId":         42,
			"vaultId":        7,
			"vaultIds":       []map[string]any{{"id": 7, "url": "https://" + u.Hostname() + "/api"}},
		})
	case strings.HasSuffix(r.URL.Path, "/file_staging/items"):
		e.stages++
		r.ParseMultipartForm(1 << 20)
		json.NewEncoder(w).Encode(map[string]any{
			"responseStatus": "SUCCESS",
			"data":           map[string]any{"path": r.FormValue("path")},
		})
	case strings.HasSuffix(r.URL.Path, "/loader/load"):
		e.loads++
		io.WriteString(w, `{"responseStatus":"SUCCESS","data":[{"job_id":5,"task_id":"1"}]}`)
	default:
		http.NotFound(w, r)
	}
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{}
	env.remote = httptest.NewServer(http.HandlerFunc(env.fakeVault))
	t.Cleanup(env.remote.Close)

	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	env.db = db

	cat, err := catalog.Default(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	a := app.New(config.Config{IDRule: config.IDRuleAlphanumeric}, db, db, vaultapi.New(), form.New(cat, db),
		app.WithExporter(archive.DirExporter{Dir: filepath.Join(dir, "exports")}))

	env.server = New(a, ":0", testToken, nil)
	return env
}

func (e *testEnv) doRequest(t *testing.T, method, path string, body any, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func (e *testEnv) settings() map[string]string {
	return map[string]string{
		"vaultUrl":   e.remote.URL + "/",
		"apiVersion": "24.1",
		"username":   "jane",
		"password":   "secret",
	}
}

func (e *testEnv) connect(t *testing.T) {
	t.Helper()
	if w := e.doRequest(t, "PUT", "/settings", e.settings(), true); w.Code != 200 {
		t.Fatalf("save settings: %d %s", w.Code, w.Body.String())
	}
	if w := e.doRequest(t, "POST", "/settings/test", nil, true); w.Code != 200 {
		t.Fatalf("test connection: %d %s", w.Code, w.Body.String())
	}
}

func (e *testEnv) fillForm(t *testing.T, objectType, lifecycle, ids string) {
	t.Helper()
	for _, step := range []struct{ path, value string }{
		{"/form/object-type", objectType},
		{"/form/lifecycle", lifecycle},
		{"/form/object-ids", ids},
	} {
		if w := e.doRequest(t, "PUT", step.path, map[string]string{"value": step.value}, true); w.Code != 200 {
			t.Fatalf("%s: %d %s", step.path, w.Code, w.Body.String())
		}
	}
}

func parseErrorResponse(t *testing.T, w *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var resp struct {
		Error      string `json:"error"`
		Constraint string `json:"constraint"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	return resp.Error, resp.Constraint
}

func TestUI_Public(t *testing.T) {
	env := setup(t)
	w := env.doRequest(t, "GET", "/ui", nil, false)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "VeevaBro") {
		t.Fatal("expected popup page")
	}
	if w.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatal("expected security headers")
	}
}

func TestAuth_Required(t *testing.T) {
	env := setup(t)
	for _, path := range []string{"/status", "/form", "/settings", "/activity"} {
		w := env.doRequest(t, "GET", path, nil, false)
		if w.Code != 401 {
			t.Fatalf("%s: expected 401, got %d", path, w.Code)
		}
		if _, c := parseErrorResponse(t, w); c != "unauthenticated" {
			t.Fatalf("%s: expected unauthenticated, got %q", path, c)
		}
	}

	req := httptest.NewRequest("GET", "/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("wrong token: expected 401, got %d", w.Code)
	}
}

func TestSettings_PasswordNeverEchoed(t *testing.T) {
	env := setup(t)
	env.doRequest(t, "PUT", "/settings", env.settings(), true)

	w := env.doRequest(t, "GET", "/settings", nil, true)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "secret") {
		t.Fatal("password must not be returned")
	}
	var resp settingsResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp.PasswordSet || resp.VaultURL != env.remote.URL || resp.APIVersion != "24.1" {
		t.Fatalf("unexpected settings %+v", resp)
	}

	// blank password keeps the stored one
	in := env.settings()
	in["password"] = ""
	in["username"] = "john"
	if w := env.doRequest(t, "PUT", "/settings", in, true); w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	s, _ := env.db.LoadSettings(context.Background())
	if s.Password != "secret" || s.Username != "john" {
		t.Fatalf("unexpected stored settings %+v", s)
	}
}

func TestSettings_Validation(t *testing.T) {
	env := setup(t)
	w := env.doRequest(t, "PUT", "/settings", map[string]string{"vaultUrl": "x"}, true)
	if w.Code != 400 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if _, c := parseErrorResponse(t, w); c != "invalid_request" {
		t.Fatalf("expected invalid_request, got %q", c)
	}
}

func TestConnection_SuccessAndFailure(t *testing.T) {
	env := setup(t)
	env.connect(t)

	w := env.doRequest(t, "GET", "/status", nil, true)
	var st app.Status
	json.NewDecoder(w.Body).Decode(&st)
	if !st.HasSession || st.UserID != "42" {
		t.Fatalf("expected session, got %+v", st)
	}

	in := env.settings()
	in["password"] = "wrong"
	w = env.doRequest(t, "POST", "/settings/test", in, true)
	if w.Code != 401 {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if _, c := parseErrorResponse(t, w); c != "unauthenticated" {
		t.Fatalf("expected unauthenticated, got %q", c)
	}
	s, _ := env.db.LoadSettings(context.Background())
	if s.HasSession() {
		t.Fatal("failed test must clear the session")
	}
}

func TestConnection_RateLimited(t *testing.T) {
	env := setup(t)
	in := env.settings()
	in["password"] = "wrong"
	for i := 0; i < 5; i++ {
		env.doRequest(t, "POST", "/settings/test", in, true)
	}
	w := env.doRequest(t, "POST", "/settings/test", in, true)
	if w.Code != 429 {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if _, c := parseErrorResponse(t, w); c != "rate_limited" {
		t.Fatalf("expected rate_limited, got %q", c)
	}
}

func TestForm_Flow(t *testing.T) {
	env := setup(t)
	env.fillForm(t, "product__v", "active_state__v", "1,2")

	w := env.doRequest(t, "PUT", "/form/object-type", map[string]string{"value": "study__v"}, true)
	var view form.View
	json.NewDecoder(w.Body).Decode(&view)
	if view.ObjectType != "study__v" || view.Lifecycle != "" || view.ObjectIDs != "1,2" {
		t.Fatalf("unexpected view %+v", view)
	}

	w = env.doRequest(t, "PUT", "/form/lifecycle", map[string]string{"value": "active_state__v"}, true)
	if w.Code != 400 {
		t.Fatalf("expected 400 for a state of another object, got %d", w.Code)
	}

	w = env.doRequest(t, "POST", "/form/reset", nil, true)
	json.NewDecoder(w.Body).Decode(&view)
	if view.ObjectType != "product__v" || view.ObjectIDs != "" {
		t.Fatalf("unexpected view after reset %+v", view)
	}
	if _, ok, _ := env.db.LoadDraft(context.Background()); ok {
		t.Fatal("reset should clear the draft")
	}
}

func TestGenerateCSV_Attachment(t *testing.T) {
	env := setup(t)
	env.fillForm(t, "product__v", "active_state__v", "3, 7,2")

	w := env.doRequest(t, "POST", "/csv", nil, true)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv;charset=utf-8;" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Disposition"), `attachment; filename="product__v_`) {
		t.Fatalf("unexpected disposition %q", w.Header().Get("Content-Disposition"))
	}
	if w.Header().Get("X-Export-Location") == "" {
		t.Fatal("expected export location")
	}
	if w.Body.String() != "id,state__v\n3,active_state__v\n7,active_state__v\n2,active_state__v" {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
}

func TestGenerateCSV_InvalidIDs(t *testing.T) {
	env := setup(t)
	env.fillForm(t, "product__v", "active_state__v", "12a!")

	w := env.doRequest(t, "POST", "/csv", nil, true)
	if w.Code != 400 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUpload(t *testing.T) {
	env := setup(t)
	env.fillForm(t, "product__v", "active_state__v", "1")

	w := env.doRequest(t, "POST", "/upload", nil, true)
	if w.Code != 412 {
		t.Fatalf("expected 412 without session, got %d", w.Code)
	}
	if _, c := parseErrorResponse(t, w); c != "no_session" {
		t.Fatalf("expected no_session, got %q", c)
	}

	env.connect(t)
	w = env.doRequest(t, "POST", "/upload", nil, true)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res app.UploadResult
	json.NewDecoder(w.Body).Decode(&res)
	if !strings.HasPrefix(res.StagedPath, "/u42/upload/product__v_") {
		t.Fatalf("unexpected staged path %q", res.StagedPath)
	}
	if env.stages != 1 || env.loads != 1 {
		t.Fatalf("expected one stage and one load, got %d/%d", env.stages, env.loads)
	}

	w = env.doRequest(t, "GET", "/activity?limit=1", nil, true)
	var entries []store.ActivityEntry
	json.NewDecoder(w.Body).Decode(&entries)
	if len(entries) != 1 || entries[0].Message != "CSV uploaded and loaded successfully" {
		t.Fatalf("unexpected activity %+v", entries)
	}
}

func TestHandleAppError_Mapping(t *testing.T) {
	tests := []struct {
		err        error
		status     int
		constraint string
	}{
		{&vaultapi.AuthError{Reason: "x", Err: vaultapi.ErrVaultMismatch}, 401, "vault_mismatch"},
		{&vaultapi.AuthError{Reason: "x"}, 401, "unauthenticated"},
		{&vaultapi.RemoteError{Step: vaultapi.StepUpload}, 502, "upload_failed"},
		{&vaultapi.RemoteError{Step: vaultapi.StepLoad}, 502, "load_failed"},
		{app.ErrBusy, 409, "busy"},
		{app.ErrNoSession, 412, "no_session"},
		{io.ErrUnexpectedEOF, 500, "internal"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		handleAppError(w, tt.err)
		if w.Code != tt.status {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.status, w.Code)
		}
		if _, c := parseErrorResponse(t, w); c != tt.constraint {
			t.Errorf("%v: expected %q, got %q", tt.err, tt.constraint, c)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	if !rl.allow() || !rl.allow() {
		t.Fatal("first two attempts should pass")
	}
	if rl.allow() {
		t.Fatal("third attempt should be limited")
	}
}
