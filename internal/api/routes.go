package api

import (
	"net/http"

	"github.com/cchalm/codebot/internal/telemetry"
)

func (s *Server) registerRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)

	// Fix workflow. These read and write files on the server, so they need a session too
	s.router.HandleFunc("POST /api/upload/{$}", s.requireUser(s.handleUpload))
	s.router.HandleFunc("GET /api/fix/{$}", s.requireUser(s.handleFix))
	s.router.HandleFunc("POST /api/preview_fix/{$}", s.requireUser(s.handlePreviewFix))
	s.router.HandleFunc("POST /api/apply_fix/{$}", s.requireUser(s.handleApplyFix))
	s.router.HandleFunc("POST /api/verify/{$}", s.requireUser(s.handleVerify))
	s.router.HandleFunc("GET /api/projects/{$}", s.requireUser(s.handleListProjects))
	s.router.HandleFunc("DELETE /api/projects/{$}", s.requireUser(s.handleRemoveProject))

	// Sessions
	s.router.HandleFunc("GET /api/csrf/{$}", s.handleCSRF)
	s.router.HandleFunc("POST /api/login/{$}", s.handleLogin)
	s.router.HandleFunc("POST /api/logout/{$}", s.handleLogout)
	s.router.HandleFunc("GET /api/check/{$}", s.handleCheck)

	// Todos
	s.router.HandleFunc("GET /api/todos/{$}", s.requireUser(s.handleListTodos))
	s.router.HandleFunc("POST /api/todos/{$}", s.requireUser(s.handleCreateTodo))
	s.router.HandleFunc("GET /api/todos/{id}/{$}", s.requireUser(s.handleGetTodo))
	s.router.HandleFunc("PUT /api/todos/{id}/{$}", s.requireUser(s.handleReplaceTodo))
	s.router.HandleFunc("PATCH /api/todos/{id}/{$}", s.requireUser(s.handlePatchTodo))
	s.router.HandleFunc("DELETE /api/todos/{id}/{$}", s.requireUser(s.handleDeleteTodo))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, map[string]string{"status": "ok", "version": telemetry.Version}, http.StatusOK)
}
