package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lakeops/bridge/internal/job"
	"github.com/lakeops/bridge/internal/logger"
	"github.com/lakeops/bridge/internal/workspace"
)

// maxUploadBytes bounds a single multipart upload in memory
const maxUploadBytes = 32 << 20

// Glob patterns used to auto-select validation inputs
var (
	xmlPatterns       = []string{"*.xml"}
	generatedPatterns = []string{"*.py", "*.sql"}
)

// indexHandler serves the embedded single-page UI
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		s.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	content, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		logger.Errorf("Failed to read embedded UI: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "UI unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(content)
}

// healthHandler responds to portal liveness checks
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   "bridge-portal",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// backendHandler reports the job backend's health for the UI status badge
func (s *Server) backendHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if s.backendHealth == nil {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "local"})
		return
	}

	if err := s.backendHealth.Health(r.Context()); err != nil {
		status := "offline"
		if strings.Contains(err.Error(), "unhealthy") {
			status = "unhealthy"
		}
		s.respondJSON(w, http.StatusOK, map[string]string{
			"status":  status,
			"message": err.Error(),
		})
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "online"})
}

// sourcesHandler lists the supported source technologies
func (s *Server) sourcesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string][]string{
		"sources": s.catalog.Labels(),
	})
}

// uploadHandler stages uploaded definition files into the session's run
func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid multipart payload")
		return
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		s.respondWithError(w, http.StatusBadRequest, "No file provided")
		return
	}

	sn := s.resolveSession(w, r)
	run, err := s.sessionRun(sn)
	if err != nil {
		logger.Errorf("Failed to allocate run workspace: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to allocate workspace")
		return
	}

	staged := make([]string, 0, len(headers))
	for _, header := range headers {
		content, err := readUpload(header)
		if err != nil {
			s.respondWithError(w, http.StatusBadRequest, "Failed to read upload: "+header.Filename)
			return
		}
		path, err := run.Stage(header.Filename, content)
		if err != nil {
			if errors.Is(err, workspace.ErrInvalidFilename) {
				s.respondWithError(w, http.StatusBadRequest, "Invalid filename: "+header.Filename)
				return
			}
			logger.Errorf("Failed to stage upload %s: %v", header.Filename, err)
			s.respondWithError(w, http.StatusInternalServerError, "Failed to stage upload")
			return
		}
		staged = append(staged, path)
	}

	logger.WithFields(map[string]interface{}{
		"run_id": run.ID,
		"count":  len(staged),
	}).Info("Staged uploads")

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": run.ID,
		"staged": staged,
		"count":  len(staged),
	})
}

// analyzeResponse wraps a job result with a download link when the backend
// serves files remotely
type analyzeResponse struct {
	job.Result
	DownloadURL string `json:"download_url,omitempty"`
}

// analyzeHandler runs the analyze step for the session's run
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var payload struct {
		SourceTech string `json:"source_tech"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if payload.SourceTech == "" {
		s.respondWithError(w, http.StatusBadRequest, "source_tech is required")
		return
	}

	sn := s.resolveSession(w, r)
	run, err := s.sessionRun(sn)
	if err != nil {
		logger.Errorf("Failed to allocate run workspace: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to allocate workspace")
		return
	}

	result := s.orchestrator.RunAnalyze(r.Context(), run, payload.SourceTech)
	sn.recordResult(result)

	resp := analyzeResponse{Result: result}
	if result.Succeeded() && result.ReportFile != "" {
		resp.DownloadURL = s.downloadLink(result.ReportFile)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// transpileResponse wraps a job result with per-file download links
type transpileResponse struct {
	job.Result
	FileURLs map[string]string `json:"file_urls,omitempty"`
}

// transpileHandler runs the transpile step, optionally with a fresh file
// supplied just for this invocation
func (s *Server) transpileHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid multipart payload")
		return
	}

	dialect := r.FormValue("dialect")
	if dialect == "" {
		s.respondWithError(w, http.StatusBadRequest, "dialect is required")
		return
	}

	freshFile := ""
	if headers := r.MultipartForm.File["file"]; len(headers) > 0 {
		content, err := readUpload(headers[0])
		if err != nil {
			s.respondWithError(w, http.StatusBadRequest, "Failed to read upload: "+headers[0].Filename)
			return
		}
		path, err := s.manager.StageScratch(headers[0].Filename, content)
		if err != nil {
			if errors.Is(err, workspace.ErrInvalidFilename) {
				s.respondWithError(w, http.StatusBadRequest, "Invalid filename: "+headers[0].Filename)
				return
			}
			logger.Errorf("Failed to stage fresh file: %v", err)
			s.respondWithError(w, http.StatusInternalServerError, "Failed to stage upload")
			return
		}
		freshFile = path
	}

	sn := s.resolveSession(w, r)
	run, err := s.sessionRun(sn)
	if err != nil {
		logger.Errorf("Failed to allocate run workspace: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to allocate workspace")
		return
	}

	result := s.orchestrator.RunTranspile(r.Context(), run, dialect, freshFile)
	sn.recordResult(result)

	resp := transpileResponse{Result: result}
	if result.Succeeded() && len(result.Files) > 0 {
		resp.FileURLs = make(map[string]string, len(result.Files))
		for _, name := range result.Files {
			resp.FileURLs[name] = s.downloadLink(result.OutputFolder + "/" + name)
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// validateHandler compares the uploaded XML with generated code. Explicit
// documents win; otherwise inputs are auto-selected from the session's
// workspace and most recent transpile output.
func (s *Server) validateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid multipart payload")
		return
	}

	sn := s.resolveSession(w, r)
	run, err := s.sessionRun(sn)
	if err != nil {
		logger.Errorf("Failed to allocate run workspace: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to allocate workspace")
		return
	}

	xmlText, err := s.validationDocument(r, "xml", run.Dir, xmlPatterns, stagedXML(run))
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "No XML document available for validation")
		return
	}

	generatedText, err := s.validationDocument(r, "generated", s.generatedDir(sn, run), generatedPatterns, "")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "No generated code available for validation")
		return
	}

	report := s.reporter.Validate(r.Context(), xmlText, generatedText)

	logger.WithFields(map[string]interface{}{
		"run_id": run.ID,
		"mode":   report.Mode,
	}).Info("Validation completed")

	s.respondJSON(w, http.StatusOK, report)
}

// validationDocument reads an explicitly uploaded part, then a recorded
// path, and only then falls back to the newest matching file in dir
func (s *Server) validationDocument(r *http.Request, field, dir string, patterns []string, recorded string) (string, error) {
	if headers := r.MultipartForm.File[field]; len(headers) > 0 {
		content, err := readUpload(headers[0])
		if err != nil {
			return "", err
		}
		return string(content), nil
	}

	path := recorded
	if path == "" {
		found, err := workspace.FindLatest(dir, patterns...)
		if err != nil {
			return "", err
		}
		path = found
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// stagedXML returns the most recently staged XML file, if any
func stagedXML(run *workspace.Run) string {
	staged := run.StagedFiles()
	for i := len(staged) - 1; i >= 0; i-- {
		if strings.EqualFold(filepath.Ext(staged[i]), ".xml") {
			return staged[i]
		}
	}
	return ""
}

// generatedDir picks where to look for generated code: the most recent
// transpile output folder when it is a readable local path, else the run
// workspace itself.
func (s *Server) generatedDir(sn *session, run *workspace.Run) string {
	_, transpile := sn.results()
	if transpile != nil && transpile.Succeeded() && transpile.OutputFolder != "" {
		if info, err := os.Stat(transpile.OutputFolder); err == nil && info.IsDir() {
			return transpile.OutputFolder
		}
	}
	return run.Dir
}

// runDetails is the JSON shape of the current run
type runDetails struct {
	RunID         string      `json:"run_id"`
	Dir           string      `json:"dir,omitempty"`
	Staged        []string    `json:"staged"`
	Outputs       []string    `json:"outputs"`
	LastAnalyze   *job.Result `json:"last_analyze,omitempty"`
	LastTranspile *job.Result `json:"last_transpile,omitempty"`
}

// runHandler returns the session's current run details
func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	sn := s.resolveSession(w, r)

	details := runDetails{Staged: []string{}, Outputs: []string{}}
	if run, ok := s.manager.Get(sn.id); ok {
		details.RunID = run.ID
		details.Dir = run.Dir
		details.Staged = run.StagedFiles()
		details.Outputs = run.Outputs()
	}
	details.LastAnalyze, details.LastTranspile = sn.results()

	s.respondJSON(w, http.StatusOK, details)
}

// downloadHandler streams a workspace file back to the browser. Paths
// outside the workspace root are refused.
func (s *Server) downloadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	filePath := r.URL.Query().Get("filepath")
	if filePath == "" {
		s.respondWithError(w, http.StatusBadRequest, "filepath is required")
		return
	}

	if !s.manager.Contains(filePath) {
		s.respondWithError(w, http.StatusForbidden, "Path is outside the workspace")
		return
	}

	info, err := os.Stat(filePath)
	if err != nil || info.IsDir() {
		s.respondWithError(w, http.StatusNotFound, "File not found")
		return
	}

	http.ServeFile(w, r, filePath)
}

// downloadLink builds the URL a browser can fetch a result file from. Files
// on a remote backend are linked through it; everything else goes through
// the portal's own download endpoint.
func (s *Server) downloadLink(filePath string) string {
	if s.downloads != nil {
		return s.downloads.DownloadURL(filePath)
	}
	return "/download?filepath=" + url.QueryEscape(filePath)
}

// readUpload drains one multipart file part
func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}
