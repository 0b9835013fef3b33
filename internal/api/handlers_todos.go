package api

import (
	"net/http"
	"strconv"

	"github.com/cchalm/codebot/internal/auth"
	"github.com/cchalm/codebot/internal/todo"
)

type todoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// currentUserID returns the ID of the user stored by requireUser
func currentUserID(r *http.Request) int64 {
	user, _ := auth.UserFromContext(r.Context())
	return user.ID
}

// todoID parses the {id} path segment. Malformed IDs can't name a todo, so they are reported as not found
func todoID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		NotFound(w, todo.ErrNotFound.Error())
		return 0, false
	}
	return id, true
}

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := s.todos.List(r.Context(), currentUserID(r))
	if err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, todos, http.StatusOK)
}

func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var req todoRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequest(w, err.Error())
		return
	}
	t, err := s.todos.Create(r.Context(), currentUserID(r), req.Title, req.Description, req.Completed)
	if err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, t, http.StatusCreated)
}

func (s *Server) handleGetTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}
	t, err := s.todos.Get(r.Context(), currentUserID(r), id)
	if err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, t, http.StatusOK)
}

// handleReplaceTodo sets every writable field; omitted fields take their zero values
func (s *Server) handleReplaceTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}
	var req todoRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequest(w, err.Error())
		return
	}
	t, err := s.todos.Update(r.Context(), currentUserID(r), id, todo.Patch{
		Title:       &req.Title,
		Description: &req.Description,
		Completed:   &req.Completed,
	})
	if err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, t, http.StatusOK)
}

func (s *Server) handlePatchTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}
	var patch todo.Patch
	if err := decodeJSON(r, &patch); err != nil {
		BadRequest(w, err.Error())
		return
	}
	t, err := s.todos.Update(r.Context(), currentUserID(r), id, patch)
	if err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, t, http.StatusOK)
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}
	if err := s.todos.Delete(r.Context(), currentUserID(r), id); err != nil {
		WriteErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
