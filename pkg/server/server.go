// Package server exposes the HTTP orchestration layer: chat endpoints
// (plain and SSE), session management, workspace browsing and file
// serving, and a live file-change feed. It serves the embedded
// frontend at the root.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/chatooli/chatooli/pkg/config"
	"github.com/chatooli/chatooli/pkg/engine"
	"github.com/chatooli/chatooli/pkg/logger"
	"github.com/chatooli/chatooli/pkg/presenter"
	"github.com/chatooli/chatooli/pkg/prompt"
	"github.com/chatooli/chatooli/pkg/sessions"
	"github.com/chatooli/chatooli/pkg/skills"
	"github.com/chatooli/chatooli/pkg/workspace"
)

//go:embed frontend/*
var embedFS embed.FS

// Server is the HTTP orchestration layer wiring skills, sessions,
// engines, and the workspace together.
type Server struct {
	router   *mux.Router
	server   *http.Server
	config   *config.Config
	index    *skills.Index
	store    *sessions.Store
	registry *engine.Registry
	state    *workspace.State
	tools    []workspace.Tool
	watcher  *Watcher
	staticFS fs.FS
}

// NewServer wires the server together. The skill index is loaded once
// here; changing skills requires a restart.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	state, err := workspace.NewState(cfg.Workspace)
	if err != nil {
		return nil, err
	}

	staticFS, err := fs.Sub(embedFS, "frontend")
	if err != nil {
		return nil, errors.Wrap(err, "embedding frontend")
	}

	registry := engine.NewRegistry()
	registry.Register(engine.NewAnthropicEngine(cfg.Model))
	registry.Register(engine.NewOpenAIEngine(cfg.OpenAIAPIKey, cfg.Model))

	s := &Server{
		router:   mux.NewRouter(),
		config:   cfg,
		index:    skills.LoadIndex(ctx, cfg.SkillsDir),
		store:    sessions.NewStore(),
		registry: registry,
		state:    state,
		staticFS: staticFS,
	}
	s.tools = workspace.DefaultTools(s.critique)

	watcher, err := NewWatcher(ctx, state)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("file watcher unavailable, /api/events will be silent")
	} else {
		s.watcher = watcher
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/chat", s.handleChat).Methods("POST")
	api.HandleFunc("/chat/stream", s.handleChatStream).Methods("POST")
	api.HandleFunc("/engines", s.handleEngines).Methods("GET")
	api.HandleFunc("/skills", s.handleSkills).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")
	api.HandleFunc("/workspace/entries", s.handleWorkspaceEntries).Methods("GET")
	api.HandleFunc("/workspace/files/{path:.*}", s.handleWorkspaceFile).Methods("GET")
	api.HandleFunc("/events", s.handleEvents).Methods("GET")

	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(s.staticFS)))

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
}

// Start runs the server until the context is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		presenter.Info(fmt.Sprintf("Chatooli listening on http://%s", addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
	}

	presenter.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.watcher != nil {
		s.watcher.Close()
	}
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "graceful shutdown failed")
	}
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.G(r.Context()).WithFields(map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("request handled")
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// critique runs the art-director pass on the configured engine. Used
// by the consult_art_director tool; it gets no tools of its own.
func (s *Server) critique(ctx context.Context, description, code string) (string, error) {
	engineName, model := engine.ResolveModel(s.config.ArtDirectorModel)
	eng, ok := s.registry.Get(engineName)
	if !ok {
		return "", errors.Errorf("no engine %q for the art director", engineName)
	}

	content := fmt.Sprintf("The sketch is meant to be: %s\n\n```\n%s\n```", description, code)
	resp, err := eng.Generate(ctx, engine.Request{
		System:    prompt.ArtDirector,
		Messages:  []engine.Message{{Role: engine.RoleUser, Content: content}},
		Model:     model,
		MaxTokens: s.config.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
