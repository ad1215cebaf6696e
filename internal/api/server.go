// Package api serves the local popup: an embedded page plus the JSON API it
// drives. It listens on loopback only and every API route requires the
// bearer token the server was started with.
package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/clssck/VeevaBro/internal/app"
)

// rateLimiter tracks attempts within a time window.
type rateLimiter struct {
	mu       sync.Mutex
	attempts []time.Time
	max      int
	window   time.Duration
}

func newRateLimiter(max int, window time.Duration) *rateLimiter {
	return &rateLimiter{max: max, window: window}
}

// allow returns true if the request is within the rate limit.
func (rl *rateLimiter) allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	valid := rl.attempts[:0]
	for _, t := range rl.attempts {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	rl.attempts = valid

	if len(rl.attempts) >= rl.max {
		return false
	}
	rl.attempts = append(rl.attempts, now)
	return true
}

// Server is the HTTP server behind the popup page.
type Server struct {
	app       *app.App
	token     string
	logger    *zap.Logger
	handler   http.Handler
	server    *http.Server
	testLimit *rateLimiter
}

// New creates a server for a. Requests must carry "Authorization: Bearer {token}".
func New(a *app.App, addr, token string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		app:       a,
		token:     token,
		logger:    logger,
		testLimit: newRateLimiter(5, time.Minute),
	}
	s.handler = s.routes()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.loggerMiddleware)
	r.Use(securityHeadersMiddleware)
	r.Use(bodySizeMiddleware)

	r.Get("/ui", s.handleUI)
	r.Get("/ui/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui", http.StatusMovedPermanently)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/status", s.handleStatus)
		r.Get("/catalog", s.handleCatalog)

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.handleGetSettings)
			r.Put("/", s.handleSaveSettings)
			r.Post("/test", s.handleTestConnection)
		})

		r.Route("/form", func(r chi.Router) {
			r.Get("/", s.handleGetForm)
			r.Put("/object-type", s.handleSelectObjectType)
			r.Put("/lifecycle", s.handleSelectLifecycle)
			r.Put("/object-ids", s.handleSetObjectIDs)
			r.Post("/reset", s.handleResetForm)
		})

		r.Post("/csv", s.handleGenerateCSV)
		r.Post("/upload", s.handleUpload)
		r.Get("/activity", s.handleActivity)
	})

	return r
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening. Returns immediately; use the returned listener to get the actual port.
func (s *Server) Start() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return nil, err
	}
	go s.server.Serve(ln)
	return ln, nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
