// Package api provides HTTP handlers and the main API server logic for TourFlow.
//
// It exposes RESTful endpoints for a UI layer to read guided-tour state and
// drive user-initiated transitions. The API integrates with the engine,
// catalog, and store modules.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/satground/tourflow/internal/catalog"
	"github.com/satground/tourflow/internal/engine"
	"github.com/satground/tourflow/internal/store"
)

// DefaultAddr is the address the API server listens on when none is configured.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr        string
	CatalogPath string
	AutoStart   bool
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the API listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithCatalogPath sets the path to the flow catalog file.
func WithCatalogPath(path string) Option {
	return func(o *Opts) {
		o.CatalogPath = path
	}
}

// WithAutoStart enables automatic start of the global intro flow for learners
// who have neither completed nor dismissed it.
func WithAutoStart(autoStart bool) Option {
	return func(o *Opts) {
		o.AutoStart = autoStart
	}
}

// Server wires the engine manager to HTTP handlers.
type Server struct {
	addr string
	mgr  *engine.Manager
	mux  *http.ServeMux
}

// NewServer creates an API server over the given engine manager.
func NewServer(mgr *engine.Manager, addr string) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{addr: addr, mgr: mgr, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

// Handler returns the server's HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.healthHandler)
	s.mux.HandleFunc("/catalog", s.catalogHandler)
	s.mux.HandleFunc("/learners", s.createLearnerHandler)
	s.mux.HandleFunc("/tutorial/state", s.stateHandler)
	s.mux.HandleFunc("/tutorial/enable", s.enableHandler)
	s.mux.HandleFunc("/tutorial/start", s.startHandler)
	s.mux.HandleFunc("/tutorial/next", s.nextHandler)
	s.mux.HandleFunc("/tutorial/prev", s.prevHandler)
	s.mux.HandleFunc("/tutorial/dismiss", s.dismissHandler)
	s.mux.HandleFunc("/tutorial/reset", s.resetHandler)
}

// Run builds the configured store and catalog, creates the engine manager and
// server, and serves HTTP until the listener fails.
func Run(storeOpts []store.Option, apiOpts []Option) error {
	var apiCfg Opts
	for _, opt := range apiOpts {
		opt(&apiCfg)
	}

	kv, err := buildStore(storeOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer kv.Close()

	cat := catalog.Default()
	if apiCfg.CatalogPath != "" {
		cat, err = catalog.Load(apiCfg.CatalogPath)
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
	} else {
		slog.Warn("No catalog path configured; serving an empty catalog")
	}

	mgr := engine.NewManager(cat, kv, apiCfg.AutoStart)
	srv := NewServer(mgr, apiCfg.Addr)

	slog.Info("TourFlow API running", "addr", srv.addr, "auto_start", apiCfg.AutoStart)
	return http.ListenAndServe(srv.addr, srv.mux)
}

// buildStore picks a store backend from the configured options: Postgres or
// SQLite when a DSN is set, in-memory otherwise.
func buildStore(storeOpts []store.Option) (store.KVStore, error) {
	var cfg store.Opts
	for _, opt := range storeOpts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Info("No database DSN configured, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(cfg.DSN) == "postgres" {
		slog.Debug("Configuring Postgres store", "dsn_set", true)
		return store.NewPostgresStore(storeOpts...)
	}
	slog.Debug("Configuring SQLite store", "db_path", cfg.DSN)
	return store.NewSQLiteStore(storeOpts...)
}
