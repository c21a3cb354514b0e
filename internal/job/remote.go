package job

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lakeops/bridge/internal/config"
	"github.com/lakeops/bridge/internal/logger"
)

// backendResponse is the JSON shape both backend endpoints return
type backendResponse struct {
	Status       string   `json:"status"`
	Message      string   `json:"message"`
	ReportFile   string   `json:"report_file"`
	OutputFolder string   `json:"output_folder"`
	Files        []string `json:"files"`
}

// RemoteExecutor submits jobs to the backend service over HTTP. Each step is
// a single synchronous multipart POST bounded by a per-step timeout; any
// transport failure becomes a failure Result carrying the underlying error.
type RemoteExecutor struct {
	baseURL          string
	client           *http.Client
	analyzeTimeout   time.Duration
	transpileTimeout time.Duration
	healthTimeout    time.Duration
}

// NewRemoteExecutor creates a RemoteExecutor for the configured backend
func NewRemoteExecutor(cfg config.BackendConfig) *RemoteExecutor {
	return &RemoteExecutor{
		baseURL:          strings.TrimRight(cfg.URL, "/"),
		client:           &http.Client{},
		analyzeTimeout:   cfg.AnalyzeTimeout,
		transpileTimeout: cfg.TranspileTimeout,
		healthTimeout:    cfg.HealthTimeout,
	}
}

// Analyze submits the input file to /run_analyzer and waits for the report
func (e *RemoteExecutor) Analyze(ctx context.Context, req AnalyzeRequest) Result {
	ctx, cancel := context.WithTimeout(ctx, e.analyzeTimeout)
	defer cancel()

	fields := map[string]string{"source_tech": req.SourceTech}
	resp, err := e.postMultipart(ctx, "/run_analyzer", req.InputFile, fields)
	if err != nil {
		return Failure(StepAnalyze, "backend request failed: %v", err)
	}

	if resp.Status != StatusSuccess {
		message := resp.Message
		if message == "" {
			message = "analyzer failed"
		}
		return Failure(StepAnalyze, "%s", message)
	}

	return Result{
		Step:       StepAnalyze,
		Status:     StatusSuccess,
		Message:    resp.Message,
		ReportFile: resp.ReportFile,
	}
}

// Transpile submits to /run_transpiler. When InputPath names a regular file
// it is attached to the request; otherwise the backend falls back to its
// most recent staged input.
func (e *RemoteExecutor) Transpile(ctx context.Context, req TranspileRequest) Result {
	ctx, cancel := context.WithTimeout(ctx, e.transpileTimeout)
	defer cancel()

	inputFile := ""
	if req.InputPath != "" {
		if info, err := os.Stat(req.InputPath); err == nil && !info.IsDir() {
			inputFile = req.InputPath
		}
	}

	fields := map[string]string{"dialect": req.Dialect}
	resp, err := e.postMultipart(ctx, "/run_transpiler", inputFile, fields)
	if err != nil {
		return Failure(StepTranspile, "backend request failed: %v", err)
	}

	if resp.Status != StatusSuccess {
		message := resp.Message
		if message == "" {
			message = "transpiler failed"
		}
		return Failure(StepTranspile, "%s", message)
	}

	return Result{
		Step:         StepTranspile,
		Status:       StatusSuccess,
		Message:      resp.Message,
		OutputFolder: resp.OutputFolder,
		Files:        resp.Files,
	}
}

// Health probes the backend's liveness endpoint
func (e *RemoteExecutor) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.healthTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend unhealthy: HTTP %d", resp.StatusCode)
	}
	return nil
}

// DownloadURL returns the backend URL that streams the named file
func (e *RemoteExecutor) DownloadURL(filePath string) string {
	return e.baseURL + "/download_file?filepath=" + url.QueryEscape(filePath)
}

// postMultipart issues a multipart POST with an optional file part and
// decodes the backend's JSON response. Building the body in memory is fine
// here; uploads are single mapping definitions, not bulk data.
func (e *RemoteExecutor) postMultipart(ctx context.Context, endpoint, inputFile string, fields map[string]string) (*backendResponse, error) {
	var body strings.Builder
	writer := multipart.NewWriter(&body)

	if inputFile != "" {
		content, err := os.ReadFile(inputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		part, err := writer.CreateFormFile("file", filepath.Base(inputFile))
		if err != nil {
			return nil, fmt.Errorf("failed to build request body: %w", err)
		}
		if _, err := part.Write(content); err != nil {
			return nil, fmt.Errorf("failed to build request body: %w", err)
		}
	}

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("failed to build request body: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+endpoint, strings.NewReader(body.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	logger.WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"has_file": inputFile != "",
	}).Debug("Submitting job to backend")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, truncateBody(respBody))
	}

	var decoded backendResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("malformed backend response: %w", err)
	}
	return &decoded, nil
}

// truncateBody keeps error messages readable when the backend returns HTML
// or a stack trace
func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
