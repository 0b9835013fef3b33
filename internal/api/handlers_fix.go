package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cchalm/codebot/internal/ai"
	"github.com/cchalm/codebot/internal/bot"
	"github.com/cchalm/codebot/internal/project"
	"github.com/cchalm/codebot/internal/workspace"
)

const (
	// confirmationWord must be sent as the prompt of an apply request
	confirmationWord = "yes"
	maxBodyBytes     = 10 << 20
)

var errNotJSON = errors.New("request body must be sent as application/json")

// decodeJSON reads the request body into v. An empty body leaves v untouched. A non-empty body must be labelled
// application/json, which a browser will not send to another origin without a preflight
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mediaType != "application/json" {
		return errNotJSON
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// inProject returns path made absolute, provided it lies inside a registered project
func (s *Server) inProject(path string) (string, error) {
	if _, err := s.projects.Containing(path); err != nil {
		return "", err
	}
	return filepath.Abs(path)
}

type uploadRequest struct {
	ProjectPath string `json:"project_path"`
}

type uploadResponse struct {
	Status          string         `json:"status"`
	ProjectPath     string         `json:"project_path"`
	FolderStructure map[string]any `json:"folder_structure"`
	Message         string         `json:"message"`
}

// handleUpload registers a project directory that already exists on the server
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequest(w, err.Error())
		return
	}
	path := strings.TrimSpace(req.ProjectPath)
	if path == "" {
		path = s.defaultProjectPath
	}
	if path == "" {
		BadRequest(w, "Missing project_path")
		return
	}
	if _, err := os.Stat(path); err != nil {
		BadRequest(w, fmt.Sprintf("Path not found: %s", path))
		return
	}

	p, err := s.loader.Load(r.Context(), path)
	if err != nil {
		s.logger.Error("failed to load project", zap.String("path", path), zap.Error(err))
		WriteErr(w, err)
		return
	}
	s.projects.Register(p)

	structure, err := project.FolderStructure(p.Path, s.structureDepth)
	if err != nil {
		WriteErr(w, err)
		return
	}

	WriteJSON(w, uploadResponse{
		Status:          "loaded",
		ProjectPath:     p.Path,
		FolderStructure: structure,
		Message:         fmt.Sprintf("Project '%s' loaded successfully", p.Name),
	}, http.StatusOK)
}

type fileSummary struct {
	File   string     `json:"file"`
	Status bot.Status `json:"status"`
	Score  float64    `json:"score"`
}

type fixSummary struct {
	Status   string        `json:"status"`
	BugType  string        `json:"bug_type"`
	Proposed int           `json:"proposed"`
	Files    []fileSummary `json:"files"`
	Message  string        `json:"message"`
}

// handleFix runs the propose flow for a query-string request and reports what was found, without the diffs
func (s *Server) handleFix(w http.ResponseWriter, r *http.Request) {
	description := strings.TrimSpace(r.URL.Query().Get("desc"))
	root := strings.TrimSpace(r.URL.Query().Get("project"))
	if description == "" || root == "" {
		BadRequest(w, "Please provide both ?desc and ?project params")
		return
	}
	root, err := s.inProject(root)
	if err != nil {
		WriteErr(w, err)
		return
	}

	report, err := s.fixes.ProposeFixes(r.Context(), root, description)
	if err != nil {
		s.logger.Error("failed to propose fixes", zap.String("project", root), zap.Error(err))
		WriteErr(w, err)
		return
	}

	summary := fixSummary{
		Status:  "success",
		BugType: string(report.BugType),
		Files:   make([]fileSummary, 0, len(report.Previews)),
	}
	for _, p := range report.Previews {
		if p.Status == bot.StatusProposed {
			summary.Proposed++
		}
		summary.Files = append(summary.Files, fileSummary{File: p.Path, Status: p.Status, Score: p.Score})
	}
	summary.Message = fmt.Sprintf("Proposed %d fix(es) for: %s", summary.Proposed, description)
	WriteJSON(w, summary, http.StatusOK)
}

type previewRequest struct {
	BugDescription string `json:"bug_description"`
	ProjectPath    string `json:"project_path"`
}

// handlePreviewFix proposes fixes for the most relevant files. Nothing is written
func (s *Server) handlePreviewFix(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequest(w, err.Error())
		return
	}
	description := strings.TrimSpace(req.BugDescription)
	root := strings.TrimSpace(req.ProjectPath)
	if root == "" {
		root = s.defaultProjectPath
	}
	if description == "" || root == "" {
		BadRequest(w, "bug_description and project_path are required")
		return
	}
	root, err := s.inProject(root)
	if err != nil {
		WriteErr(w, err)
		return
	}

	report, err := s.fixes.ProposeFixes(r.Context(), root, description)
	if err != nil {
		s.logger.Error("failed to preview fixes", zap.String("project", root), zap.Error(err))
		WriteErr(w, err)
		return
	}
	if len(report.Previews) == 0 {
		WriteJSON(w, map[string]string{"message": "No relevant files found for this bug."}, http.StatusOK)
		return
	}
	WriteJSON(w, report, http.StatusOK)
}

type applyRequest struct {
	FilePath       string `json:"file_path"`
	FixedCode      string `json:"fixed_code"`
	Prompt         string `json:"prompt"`
	BugDescription string `json:"bug_description"`
	Verify         bool   `json:"verify"`
}

type applyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Warning string `json:"warning,omitempty"`
	*bot.ApplyResult
}

// handleApplyFix writes a previewed fix after the caller confirms it
func (s *Server) handleApplyFix(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequest(w, err.Error())
		return
	}
	code := ai.TrimBackticks(req.FixedCode)
	if req.FilePath == "" || code == "" {
		BadRequest(w, "file_path and fixed_code are required")
		return
	}
	path, err := s.inProject(req.FilePath)
	if err != nil {
		WriteErr(w, err)
		return
	}
	if strings.ToLower(strings.TrimSpace(req.Prompt)) != confirmationWord {
		WriteJSON(w, applyResponse{
			Status:  "skipped",
			Message: "Fix not applied because prompt was not 'Yes'",
		}, http.StatusOK)
		return
	}

	result, err := s.fixes.ApplyFix(r.Context(), path, code, req.BugDescription, bot.ApplyOptions{Verify: req.Verify})
	resp := applyResponse{Status: "success", ApplyResult: &result}
	switch {
	case errors.Is(err, workspace.ErrRepositoryNotFound):
		resp.Message = fmt.Sprintf("Applied %s", path)
		resp.Warning = "No git repository found; the fix was written but not committed"
	case err != nil:
		s.logger.Error("failed to apply fix", zap.String("path", path), zap.Error(err))
		WriteErr(w, err)
		return
	case result.Committed:
		resp.Message = fmt.Sprintf("Applied and committed %s", path)
	default:
		resp.Message = fmt.Sprintf("Applied %s; nothing to commit", path)
	}
	if result.PushError != "" {
		resp.Warning = "Push failed: " + result.PushError
	}
	if result.Verification != nil && !result.Verification.Passed {
		resp.Status = "failed"
		resp.Message = fmt.Sprintf("Applied %s but verification failed", path)
	}
	WriteJSON(w, resp, http.StatusOK)
}

type verifyRequest struct {
	FilePath string `json:"file_path"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		BadRequest(w, err.Error())
		return
	}
	if req.FilePath == "" {
		BadRequest(w, "file_path is required")
		return
	}
	path, err := s.inProject(req.FilePath)
	if err != nil {
		WriteErr(w, err)
		return
	}
	if _, err := os.Stat(path); err != nil {
		NotFound(w, fmt.Sprintf("File %s not found.", req.FilePath))
		return
	}

	result, err := s.verifier.Verify(r.Context(), path)
	if err != nil {
		WriteErr(w, err)
		return
	}
	WriteJSON(w, result, http.StatusOK)
}

type projectSummary struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Files    int       `json:"files"`
	LoadedAt time.Time `json:"loaded_at"`
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects := s.projects.List()
	summaries := make([]projectSummary, 0, len(projects))
	for _, p := range projects {
		summaries = append(summaries, projectSummary{
			Name:     p.Name,
			Path:     p.Path,
			Files:    len(p.Files),
			LoadedAt: p.LoadedAt,
		})
	}
	WriteJSON(w, summaries, http.StatusOK)
}

// handleRemoveProject forgets a registered project. Nothing on disk is touched
func (s *Server) handleRemoveProject(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		BadRequest(w, "path is required")
		return
	}
	if err := s.projects.Remove(filepath.Clean(path)); err != nil {
		WriteErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
