package job

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/lakeops/bridge/internal/config"
	"github.com/lakeops/bridge/internal/logger"
)

// LocalExecutor invokes the migration CLI as a child process. A non-zero
// exit code maps to a failure Result; on success the output directory is
// enumerated to build the generated file list.
type LocalExecutor struct {
	binary    string
	baseArgs  []string
	catalog   string
	schema    string
	errorRoot string

	// outputRoot is where per-run reports and generated files land
	outputRoot string
}

// NewLocalExecutor creates a LocalExecutor writing outputs under
// <workdir>/bridge/output and error details under the configured error root.
func NewLocalExecutor(cfg config.ToolConfig, workdir string) *LocalExecutor {
	return &LocalExecutor{
		binary:     cfg.Binary,
		baseArgs:   cfg.Args,
		catalog:    cfg.Catalog,
		schema:     cfg.Schema,
		errorRoot:  cfg.ErrorDir,
		outputRoot: filepath.Join(workdir, "bridge", "output"),
	}
}

// Analyze runs the tool's analyze form against the directory holding the
// input file and reports where the tool wrote its report.
func (e *LocalExecutor) Analyze(ctx context.Context, req AnalyzeRequest) Result {
	runOut := filepath.Join(e.outputRoot, req.RunID)
	if err := os.MkdirAll(runOut, 0o755); err != nil {
		return Failure(StepAnalyze, "failed to create output directory: %v", err)
	}
	reportFile := filepath.Join(runOut, "analysis_report.xlsx")

	args := append([]string{}, e.baseArgs...)
	args = append(args, "analyze",
		"--source-directory", filepath.Dir(req.InputFile),
		"--report-file", reportFile,
		"--source-tech", req.SourceTech,
	)

	if _, err := e.runTool(ctx, req.RunID, StepAnalyze, args); err != nil {
		return Failure(StepAnalyze, "analyzer tool failed: %v", err)
	}

	return Result{
		Step:       StepAnalyze,
		Status:     StatusSuccess,
		Message:    "analysis completed",
		ReportFile: reportFile,
	}
}

// Transpile runs the tool's transpile form. The error-detail file is
// written for every invocation, success or not.
func (e *LocalExecutor) Transpile(ctx context.Context, req TranspileRequest) Result {
	outputFolder := filepath.Join(e.outputRoot, req.RunID, "generated")
	if err := os.MkdirAll(outputFolder, 0o755); err != nil {
		return Failure(StepTranspile, "failed to create output directory: %v", err)
	}
	errorFile, err := e.errorFile(req.RunID)
	if err != nil {
		return Failure(StepTranspile, "failed to create error directory: %v", err)
	}

	args := append([]string{}, e.baseArgs...)
	args = append(args, "transpile",
		"--input-source", req.InputPath,
		"--output-folder", outputFolder,
		"--catalog-name", e.catalog,
		"--schema-name", e.schema,
		"--source-dialect", req.Dialect,
		"--error-file", errorFile,
	)

	if _, err := e.runTool(ctx, req.RunID, StepTranspile, args); err != nil {
		return Failure(StepTranspile, "transpiler tool failed: %v", err)
	}

	files, err := listGenerated(outputFolder)
	if err != nil {
		return Failure(StepTranspile, "failed to enumerate output folder: %v", err)
	}

	return Result{
		Step:         StepTranspile,
		Status:       StatusSuccess,
		Message:      "transpile completed",
		OutputFolder: outputFolder,
		Files:        files,
	}
}

// runTool executes the CLI and appends its diagnostics to the run's error
// file regardless of outcome.
func (e *LocalExecutor) runTool(ctx context.Context, runID string, step Step, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.WithRun(runID, string(step)).WithField("binary", e.binary).Debug("Invoking migration tool")

	runErr := cmd.Run()
	e.appendDiagnostics(runID, step, stderr.Bytes())

	if runErr != nil {
		detail := firstLine(stderr.String())
		if detail == "" {
			detail = firstLine(stdout.String())
		}
		if detail != "" {
			return "", fmt.Errorf("%w: %s", runErr, detail)
		}
		return "", runErr
	}
	return stdout.String(), nil
}

// errorFile ensures the per-run error directory exists and returns the
// error-detail path inside it
func (e *LocalExecutor) errorFile(runID string) (string, error) {
	dir := filepath.Join(e.errorRoot, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "errors.log"), nil
}

// appendDiagnostics records the tool's stderr against the run. Best effort:
// a failure to record diagnostics never masks the step outcome.
func (e *LocalExecutor) appendDiagnostics(runID string, step Step, diagnostics []byte) {
	path, err := e.errorFile(runID)
	if err != nil {
		logger.Warnf("Failed to create error directory for run %s: %v", runID, err)
		return
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Warnf("Failed to open error file for run %s: %v", runID, err)
		return
	}
	defer func() { _ = f.Close() }()

	header := fmt.Sprintf("--- %s %s ---\n", step, time.Now().Format(time.RFC3339))
	_, _ = f.WriteString(header)
	_, _ = f.Write(diagnostics)
	if len(diagnostics) > 0 && diagnostics[len(diagnostics)-1] != '\n' {
		_, _ = f.WriteString("\n")
	}
}

// listGenerated returns the file names under dir, relative to it
func listGenerated(dir string) ([]string, error) {
	files := []string{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// firstLine trims output down to its first non-empty line
func firstLine(s string) string {
	for _, line := range bytes.Split([]byte(s), []byte("\n")) {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 {
			return string(trimmed)
		}
	}
	return ""
}
