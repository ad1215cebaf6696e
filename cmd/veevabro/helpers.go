package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/clssck/VeevaBro/internal/app"
	"github.com/clssck/VeevaBro/internal/archive"
	"github.com/clssck/VeevaBro/internal/catalog"
	"github.com/clssck/VeevaBro/internal/config"
	"github.com/clssck/VeevaBro/internal/form"
	"github.com/clssck/VeevaBro/internal/store"
	"github.com/clssck/VeevaBro/internal/vaultapi"
)

// session bundles everything a command needs. Close it when done.
type session struct {
	ctx    context.Context
	cfg    config.Config
	logger *zap.Logger
	db     *store.DB
	app    *app.App
}

// openOption adjusts the configuration or the log destination before opening.
type openOption func(*config.Config, *string)

func withExportDir(dir string) openOption {
	return func(c *config.Config, _ *string) { c.ExportDir = dir }
}

func withLogFile(name string) openOption {
	return func(c *config.Config, out *string) { *out = filepath.Join(c.Dir, name) }
}

func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		fatal("config: %v", err)
	}
	return cfg
}

// openApp loads the configuration, opens the database and the catalog, and
// restores the saved form.
func openApp(opts ...openOption) *session {
	cfg := loadConfig()
	logOut := "stderr"
	for _, opt := range opts {
		opt(&cfg, &logOut)
	}

	if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
		fatal("create data dir: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel, logOut)
	if err != nil {
		fatal("logger: %v", err)
	}
	ctx := ctxzap.ToContext(context.Background(), logger)

	db, err := store.Open(cfg.DBPath())
	if err != nil {
		fatal("open database: %v", err)
	}

	var appOpts []app.Option
	cat, catErr := loadCatalog(ctx, cfg)
	if catErr != nil {
		logger.Error("catalog unavailable", zap.Error(catErr))
		cat = catalog.Empty()
		appOpts = append(appOpts, app.WithCatalogError(catErr))
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		db.Close()
		fatal("archive: %v", err)
	}
	appOpts = append(appOpts, app.WithExporter(exporter))

	client := vaultapi.New(vaultapi.WithTimeout(cfg.HTTPTimeout()))
	forms := form.New(cat, db)
	a := app.New(cfg, db, db, client, forms, appOpts...)

	if _, err := forms.Restore(ctx); err != nil {
		logger.Warn("restoring form failed", zap.Error(err))
	}

	return &session{ctx: ctx, cfg: cfg, logger: logger, db: db, app: a}
}

func (s *session) Close() {
	s.logger.Sync()
	s.db.Close()
}

func loadCatalog(ctx context.Context, cfg config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath == "" {
		return catalog.Default(ctx)
	}
	return catalog.Load(ctx, cfg.CatalogPath)
}

func newExporter(ctx context.Context, cfg config.Config) (archive.Exporter, error) {
	local := archive.DirExporter{Dir: cfg.ExportDir}
	if !cfg.ArchiveEnabled() {
		return local, nil
	}
	remote, err := archive.NewMinioExporter(ctx, cfg.ArchiveEndpoint, cfg.ArchiveAccessKey,
		cfg.ArchiveSecretKey, cfg.ArchiveUseSSL, cfg.ArchiveBucket, "csv")
	if err != nil {
		return nil, err
	}
	return archive.Tee{local, remote}, nil
}

func newLogger(level, output string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.OutputPaths = []string{output}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

func tokenPath(cfg config.Config) string {
	return filepath.Join(cfg.Dir, ".popup-token")
}

func readPopupToken(cfg config.Config) (string, error) {
	data, err := os.ReadFile(tokenPath(cfg))
	if err != nil {
		return "", fmt.Errorf("popup server is not running (no token file)")
	}
	return strings.TrimSpace(string(data)), nil
}

func writePopupToken(cfg config.Config, token string) error {
	return os.WriteFile(tokenPath(cfg), []byte(token+"\n"), 0600)
}

func removePopupToken(cfg config.Config) {
	os.Remove(tokenPath(cfg))
}

func serverURL(cfg config.Config) string {
	return "http://" + cfg.Addr
}

// apiRequest makes an authenticated request to the running popup server.
func apiRequest(cfg config.Config, method, path string) (*http.Response, error) {
	req, err := http.NewRequest(method, serverURL(cfg)+path, nil)
	if err != nil {
		return nil, err
	}
	if token, err := readPopupToken(cfg); err == nil {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return http.DefaultClient.Do(req)
}

// apiResult decodes a JSON response or returns the error.
func apiResult(resp *http.Response, target any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if target != nil {
		return json.NewDecoder(resp.Body).Decode(target)
	}
	return nil
}

// argValue returns the value of --name given as "--name v" or "--name=v".
func argValue(args []string, name string) (string, bool) {
	for i, arg := range args {
		if arg == name && i+1 < len(args) {
			return args[i+1], true
		}
		if v, ok := strings.CutPrefix(arg, name+"="); ok {
			return v, true
		}
	}
	return "", false
}

func hasFlag(args []string, name string) bool {
	for _, arg := range args {
		if arg == name {
			return true
		}
	}
	return false
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func readLine(r io.Reader) string {
	scanner := bufio.NewScanner(r)
	if scanner.Scan() {
		return strings.TrimRight(scanner.Text(), "\r\n")
	}
	return ""
}

func fatal(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}
