package job

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakeops/bridge/internal/config"
)

func newRemoteExecutor(url string) *RemoteExecutor {
	return NewRemoteExecutor(config.BackendConfig{
		URL:              url,
		AnalyzeTimeout:   5 * time.Second,
		TranspileTimeout: 5 * time.Second,
		HealthTimeout:    2 * time.Second,
	})
}

func stageTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRemoteAnalyzeSuccess(t *testing.T) {
	var gotSourceTech, gotFilename string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/run_analyzer", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotSourceTech = r.FormValue("source_tech")
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		gotFilename = header.Filename

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "success",
			"report_file": "out/report1.xlsx",
		})
	}))
	defer backend.Close()

	input := stageTestFile(t, "mapping1.xml", "<mapping/>")
	e := newRemoteExecutor(backend.URL)

	result := e.Analyze(context.Background(), AnalyzeRequest{
		RunID:      "run_x",
		InputFile:  input,
		SourceTech: "Oracle",
	})

	assert.True(t, result.Succeeded())
	assert.Equal(t, "out/report1.xlsx", result.ReportFile)
	assert.Equal(t, "Oracle", gotSourceTech)
	assert.Equal(t, "mapping1.xml", gotFilename)
}

func TestRemoteAnalyzeBackendReportsFailure(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "error",
			"message": "unsupported mapping version",
		})
	}))
	defer backend.Close()

	e := newRemoteExecutor(backend.URL)
	result := e.Analyze(context.Background(), AnalyzeRequest{
		InputFile:  stageTestFile(t, "m.xml", "<m/>"),
		SourceTech: "Oracle",
	})

	assert.False(t, result.Succeeded())
	assert.Equal(t, "unsupported mapping version", result.Message)
}

func TestRemoteAnalyzeConnectionRefused(t *testing.T) {
	// Grab an address nothing is listening on
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := backend.URL
	backend.Close()

	e := newRemoteExecutor(url)
	result := e.Analyze(context.Background(), AnalyzeRequest{
		InputFile:  stageTestFile(t, "m.xml", "<m/>"),
		SourceTech: "Oracle",
	})

	assert.False(t, result.Succeeded())
	assert.Contains(t, result.Message, "backend request failed")
}

func TestRemoteAnalyzeServerError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer backend.Close()

	e := newRemoteExecutor(backend.URL)
	result := e.Analyze(context.Background(), AnalyzeRequest{
		InputFile:  stageTestFile(t, "m.xml", "<m/>"),
		SourceTech: "Oracle",
	})

	assert.False(t, result.Succeeded())
	assert.Contains(t, result.Message, "status 500")
}

func TestRemoteAnalyzeMalformedResponse(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer backend.Close()

	e := newRemoteExecutor(backend.URL)
	result := e.Analyze(context.Background(), AnalyzeRequest{
		InputFile:  stageTestFile(t, "m.xml", "<m/>"),
		SourceTech: "Oracle",
	})

	assert.False(t, result.Succeeded())
	assert.Contains(t, result.Message, "malformed backend response")
}

func TestRemoteTranspileWithFreshFile(t *testing.T) {
	var hadFile bool
	var gotDialect string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/run_transpiler", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotDialect = r.FormValue("dialect")
		if _, _, err := r.FormFile("file"); err == nil {
			hadFile = true
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":        "success",
			"output_folder": "/srv/bridge/out/run_x",
			"files":         []string{"job1.py", "job2.py"},
		})
	}))
	defer backend.Close()

	e := newRemoteExecutor(backend.URL)
	result := e.Transpile(context.Background(), TranspileRequest{
		RunID:     "run_x",
		InputPath: stageTestFile(t, "fresh.xml", "<m/>"),
		Dialect:   "oracle",
	})

	assert.True(t, result.Succeeded())
	assert.Equal(t, "/srv/bridge/out/run_x", result.OutputFolder)
	assert.Equal(t, []string{"job1.py", "job2.py"}, result.Files)
	assert.True(t, hadFile)
	assert.Equal(t, "oracle", gotDialect)
}

func TestRemoteTranspileWorkspaceMode(t *testing.T) {
	var hadFile bool
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		if _, _, err := r.FormFile("file"); err == nil {
			hadFile = true
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":        "success",
			"output_folder": "/srv/bridge/out/latest",
			"files":         []string{},
		})
	}))
	defer backend.Close()

	e := newRemoteExecutor(backend.URL)
	// A directory input is not attached; the backend uses its own latest
	// staged run.
	result := e.Transpile(context.Background(), TranspileRequest{
		RunID:     "run_x",
		InputPath: t.TempDir(),
		Dialect:   "datastage",
	})

	assert.True(t, result.Succeeded())
	assert.False(t, hadFile)
	assert.Empty(t, result.Files)
	assert.Equal(t, "/srv/bridge/out/latest", result.OutputFolder)
}

func TestRemoteTranspileConnectionRefused(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := backend.URL
	backend.Close()

	e := newRemoteExecutor(url)
	start := time.Now()
	result := e.Transpile(context.Background(), TranspileRequest{
		RunID:   "run_x",
		Dialect: "oracle",
	})

	assert.False(t, result.Succeeded())
	assert.Contains(t, result.Message, "backend request failed")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRemoteHealth(t *testing.T) {
	t.Run("online", func(t *testing.T) {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer backend.Close()

		e := newRemoteExecutor(backend.URL)
		assert.NoError(t, e.Health(context.Background()))
	})

	t.Run("unhealthy", func(t *testing.T) {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer backend.Close()

		e := newRemoteExecutor(backend.URL)
		err := e.Health(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unhealthy")
	})

	t.Run("offline", func(t *testing.T) {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := backend.URL
		backend.Close()

		e := newRemoteExecutor(url)
		err := e.Health(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unreachable")
	})
}

func TestDownloadURL(t *testing.T) {
	e := newRemoteExecutor("http://backend:8000")
	url := e.DownloadURL("out/run_x/job 1.py")
	assert.Equal(t, "http://backend:8000/download_file?filepath=out%2Frun_x%2Fjob+1.py", url)
}
