// Package api serves CodeBot and its collaborator resources over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cchalm/codebot/internal/auth"
	"github.com/cchalm/codebot/internal/bot"
	"github.com/cchalm/codebot/internal/project"
	"github.com/cchalm/codebot/internal/todo"
	"github.com/cchalm/codebot/internal/verify"
)

// FixService proposes and applies fixes
type FixService interface {
	ProposeFixes(ctx context.Context, root string, description string) (bot.Report, error)
	ApplyFix(ctx context.Context, path string, content string, description string, opts bot.ApplyOptions) (bot.ApplyResult, error)
}

// ProjectLoader loads a project directory
type ProjectLoader interface {
	Load(ctx context.Context, root string) (*project.Project, error)
}

// FileVerifier checks a file's syntax
type FileVerifier interface {
	Verify(ctx context.Context, path string) (verify.Result, error)
}

// Dependencies are the components the handlers use
type Dependencies struct {
	Fixes    FixService
	Loader   ProjectLoader
	Projects *project.Registry
	Verifier FileVerifier
	Auth     *auth.Authenticator
	Todos    *todo.Store

	// DefaultProjectPath is registered when an upload names no path
	DefaultProjectPath string
	StructureDepth     int

	// AllowedOrigins may call the API from a browser with credentials, in addition to the server's own origin
	AllowedOrigins []string
}

// Server represents the HTTP API server
type Server struct {
	router *http.ServeMux
	server *http.Server
	addr   string
	logger *zap.Logger

	fixes              FixService
	loader             ProjectLoader
	projects           *project.Registry
	verifier           FileVerifier
	auth               *auth.Authenticator
	todos              *todo.Store
	defaultProjectPath string
	structureDepth     int
	allowedOrigins     []string
}

// NewServer creates a new HTTP server instance
func NewServer(addr string, deps Dependencies, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.StructureDepth <= 0 {
		deps.StructureDepth = project.DefaultStructureDepth
	}
	if deps.Projects == nil {
		deps.Projects = project.NewRegistry()
	}
	s := &Server{
		router:             http.NewServeMux(),
		addr:               addr,
		logger:             logger.Named("api"),
		fixes:              deps.Fixes,
		loader:             deps.Loader,
		projects:           deps.Projects,
		verifier:           deps.Verifier,
		auth:               deps.Auth,
		todos:              deps.Todos,
		defaultProjectPath: deps.DefaultProjectPath,
		structureDepth:     deps.StructureDepth,
		allowedOrigins:     deps.AllowedOrigins,
	}

	s.registerRoutes()

	// Fix generation waits on the model, so the write timeout is generous
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.applyMiddleware(s.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

// applyMiddleware wraps the handler; the last one applied runs first
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	handler = RecoveryMiddleware(s.logger)(handler)
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware()(handler)
	handler = CORSMiddleware(s.allowedOrigins)(handler)
	return handler
}
