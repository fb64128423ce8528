// Package web provides the HTTP API and static UI for the relay-latch daemon.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sweeney/relay-latch/internal/latch"
	"github.com/sweeney/relay-latch/internal/logging"
	"github.com/sweeney/relay-latch/internal/status"
)

// Controller is the part of latch.Controller the handlers need.
type Controller interface {
	State() latch.Snapshot
	LatchPeriod() int
	SetLatchPeriod(seconds int64) int
	Request(kind latch.Transition) (latch.Snapshot, error)
	Reset() (latch.Snapshot, error)
}

// Deps holds the collaborators of a Server.
type Deps struct {
	Controller Controller
	Tracker    *status.Tracker // optional
	Logger     *logging.Logger // optional
	AssetDir   string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server serves the latch API over HTTP.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	ctrl       Controller
	tracker    *status.Tracker
	logger     *logging.Logger
	assetDir   string
}

// New creates a Server listening on addr.
func New(addr string, deps Deps) *Server {
	s := &Server{
		ctrl:     deps.Controller,
		tracker:  deps.Tracker,
		logger:   deps.Logger,
		assetDir: deps.AssetDir,
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	s.logger = s.logger.With("component", "web")

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/", s.handleIndex)
	r.Get("/index.html", s.handleIndex)
	r.Get("/main.js", s.handleScript)
	r.Get("/menu", s.handleMenu)

	s.mountAPI(r)
	r.Route("/api/v1", func(r chi.Router) {
		s.mountAPI(r)
		r.Get("/system", s.handleSystem)
	})
	s.router = r

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       deps.ReadTimeout,
		WriteTimeout:      deps.WriteTimeout,
	}
	return s
}

func (s *Server) mountAPI(r chi.Router) {
	r.Get("/status", s.handleStatus)
	r.Post("/on", s.handleTransition(latch.SetHigh))
	r.Post("/off", s.handleTransition(latch.SetLow))
	r.Post("/toggle", s.handleTransition(latch.Toggle))
	r.Get("/latch", s.handleGetLatch)
	r.Post("/latch", s.handleSetLatch)
	r.Post("/reset", s.handleReset)
}

// Handler returns the routed handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
