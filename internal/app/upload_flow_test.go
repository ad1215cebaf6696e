package app_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/clssck/VeevaBro/internal/app"
	"github.com/clssck/VeevaBro/internal/archive"
	"github.com/clssck/VeevaBro/internal/catalog"
	"github.com/clssck/VeevaBro/internal/config"
	"github.com/clssck/VeevaBro/internal/form"
	"github.com/clssck/VeevaBro/internal/store"
	"github.com/clssck/VeevaBro/internal/vaultapi"
)

// fakeVault mimics the three Vault endpoints and records every call in order.
type fakeVault struct {
	mu        sync.Mutex
	calls     []string
	stagePath string
	loadBody  []map[string]any
	failStage bool
	failLoad  bool
}

func (f *fakeVault) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeVault) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeVault) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v24.1/auth", func(w http.ResponseWriter, r *http.Request) {
		f.record("auth")
		host := r.Host
		if u, err := url.Parse("http://" + r.Host); err == nil {
			host = u.Hostname()
		}
		json.NewEncoder(w).Encode(map[string]any{
			"responseStatus": "SUCCESS",
			"sessionId":      "SESSION-E2E",
			"userId":         61603,
			"vaultId":        1776,
			"vaultIds":       []map[string]any{{"id": 1776, "url": "https://" + host + "/api"}},
		})
	})
	mux.HandleFunc("POST /api/v24.1/services/file_staging/items", func(w http.ResponseWriter, r *http.Request) {
		f.record("stage")
		if f.failStage {
			io.WriteString(w, `{"responseStatus":"FAILURE","errors":[{"type":"INSUFFICIENT_ACCESS","message":"no staging access"}]}`)
			return
		}
		r.ParseMultipartForm(1 << 20)
		f.mu.Lock()
		f.stagePath = r.FormValue("path")
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{
			"responseStatus": "SUCCESS",
			"data":           map[string]any{"kind": "file", "path": r.FormValue("path")},
		})
	})
	mux.HandleFunc("POST /api/v24.1/services/loader/load", func(w http.ResponseWriter, r *http.Request) {
		f.record("load")
		f.mu.Lock()
		json.NewDecoder(r.Body).Decode(&f.loadBody)
		f.mu.Unlock()
		if f.failLoad {
			io.WriteString(w, `{"responseStatus":"FAILURE","errors":[{"type":"INVALID_DATA","message":"Object not found"}]}`)
			return
		}
		io.WriteString(w, `{"responseStatus":"SUCCESS","data":[{"job_id":81,"task_id":"1"}]}`)
	})
	return mux
}

var _ = Describe("Upload and load", func() {
	var (
		ctx       context.Context
		vault     *fakeVault
		server    *httptest.Server
		db        *store.DB
		a         *app.App
		exportDir string
	)

	BeforeEach(func() {
		ctx = context.Background()
		vault = &fakeVault{}
		server = httptest.NewServer(vault.handler())
		DeferCleanup(server.Close)

		dir := GinkgoT().TempDir()
		exportDir = filepath.Join(dir, "exports")

		var err error
		db, err = store.Open(filepath.Join(dir, "veevabro.db"))
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(db.Close)

		cat, err := catalog.Default(ctx)
		Expect(err).ToNot(HaveOccurred())

		a = app.New(config.Config{IDRule: config.IDRuleNumeric}, db, db, vaultapi.New(), form.New(cat, db),
			app.WithExporter(archive.DirExporter{Dir: exportDir}))

		By("saving settings and testing the connection")
		_, err = a.SaveSettings(ctx, app.SettingsInput{
			VaultURL: server.URL + "/", APIVersion: "24.1", Username: "jane", Password: "secret",
		})
		Expect(err).ToNot(HaveOccurred())
		_, err = a.TestConnection(ctx, app.SettingsInput{
			VaultURL: server.URL + "/", APIVersion: "24.1", Username: "jane", Password: "secret",
		})
		Expect(err).ToNot(HaveOccurred())

		By("filling the form")
		_, err = a.Form().SelectObjectType(ctx, "product__v")
		Expect(err).ToNot(HaveOccurred())
		_, err = a.Form().SelectLifecycle(ctx, "active_state__v")
		Expect(err).ToNot(HaveOccurred())
		_, err = a.Form().SetObjectIDs(ctx, "3, 7,2")
		Expect(err).ToNot(HaveOccurred())
	})

	It("stages exactly once and then loads exactly once", func() {
		res, err := a.UploadAndLoad(ctx)
		Expect(err).ToNot(HaveOccurred())

		Expect(vault.Calls()).To(Equal([]string{"auth", "stage", "load"}))
		Expect(vault.stagePath).To(HavePrefix("/u61603/upload/product__v_"))
		Expect(res.StagedPath).To(Equal(vault.stagePath))
		Expect(res.Tasks).To(HaveLen(1))

		Expect(vault.loadBody).To(HaveLen(1))
		Expect(vault.loadBody[0]).To(HaveKeyWithValue("object", "product__v"))
		Expect(vault.loadBody[0]).To(HaveKeyWithValue("file", vault.stagePath))
		Expect(vault.loadBody[0]).To(HaveKeyWithValue("object_type", "vobjects__v"))

		entries, err := a.Activity(ctx, 1)
		Expect(err).ToNot(HaveOccurred())
		Expect(entries[0].Message).To(Equal("CSV uploaded and loaded successfully"))
	})

	It("never calls the loader when staging fails", func() {
		vault.failStage = true

		_, err := a.UploadAndLoad(ctx)
		Expect(vaultapi.IsRemoteError(err, vaultapi.StepUpload)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("no staging access"))
		Expect(vault.Calls()).To(Equal([]string{"auth", "stage"}))
	})

	It("reports a load failure verbatim after a successful stage", func() {
		vault.failLoad = true

		_, err := a.UploadAndLoad(ctx)
		Expect(vaultapi.IsRemoteError(err, vaultapi.StepLoad)).To(BeTrue())
		Expect(err.Error()).To(Equal(`Load failed: [{"type":"INVALID_DATA","message":"Object not found"}]`))
		Expect(vault.Calls()).To(Equal([]string{"auth", "stage", "load"}))

		entries, _ := a.Activity(ctx, 1)
		Expect(entries[0].Level).To(Equal(store.LevelError))
	})

	It("rejects malformed ids before any request", func() {
		_, err := a.Form().SetObjectIDs(ctx, "12a!")
		Expect(err).ToNot(HaveOccurred())

		_, err = a.UploadAndLoad(ctx)
		Expect(err).To(HaveOccurred())
		Expect(vault.Calls()).To(Equal([]string{"auth"}))
	})

	It("writes the generated CSV to the export directory", func() {
		out, err := a.GenerateCSV(ctx)
		Expect(err).ToNot(HaveOccurred())

		data, err := os.ReadFile(filepath.Join(exportDir, out.Document.Filename))
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(Equal("id,state__v\n3,active_state__v\n7,active_state__v\n2,active_state__v"))
		Expect(vault.Calls()).To(Equal([]string{"auth"}))
	})

	Context("when the vault changes after connecting", func() {
		var (
			other       *fakeVault
			otherServer *httptest.Server
		)

		BeforeEach(func() {
			other = &fakeVault{}
			otherServer = httptest.NewServer(other.handler())
			DeferCleanup(otherServer.Close)
		})

		It("drops the session and sends nothing to the new vault", func() {
			st, err := a.SaveSettings(ctx, app.SettingsInput{
				VaultURL: otherServer.URL, APIVersion: "24.1", Username: "jane", Password: "secret",
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(st.HasSession()).To(BeFalse())
			Expect(st.SessionID).To(BeEmpty())

			status, err := a.Status(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(status.HasSession).To(BeFalse())

			_, err = a.UploadAndLoad(ctx)
			Expect(err).To(MatchError(app.ErrNoSession))
			Expect(other.Calls()).To(BeEmpty())
			Expect(vault.Calls()).To(Equal([]string{"auth"}))
		})

		It("does not use a session tested against a vault that was never saved", func() {
			_, err := a.TestConnection(ctx, app.SettingsInput{
				VaultURL: otherServer.URL, APIVersion: "24.1", Username: "jane", Password: "secret",
			})
			Expect(err).ToNot(HaveOccurred())

			status, err := a.Status(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(status.HasSession).To(BeFalse())

			_, err = a.UploadAndLoad(ctx)
			Expect(err).To(MatchError(app.ErrNoSession))
			Expect(other.Calls()).To(Equal([]string{"auth"}))
			Expect(vault.Calls()).To(Equal([]string{"auth"}))

			By("saving the tested vault")
			_, err = a.SaveSettings(ctx, app.SettingsInput{
				VaultURL: otherServer.URL, APIVersion: "24.1", Username: "jane", Password: "secret",
			})
			Expect(err).ToNot(HaveOccurred())
			_, err = a.UploadAndLoad(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(other.Calls()).To(Equal([]string{"auth", "stage", "load"}))
		})
	})

	It("restores the form after a restart", func() {
		cat, _ := catalog.Default(ctx)
		reopened := form.New(cat, db)
		v, err := reopened.Restore(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(v.ObjectType).To(Equal("product__v"))
		Expect(v.Lifecycle).To(Equal("active_state__v"))
		Expect(v.ObjectIDs).To(Equal("3, 7,2"))
	})
})
