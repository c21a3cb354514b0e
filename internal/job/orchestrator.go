package job

import (
	"context"
	"time"

	"github.com/lakeops/bridge/internal/catalog"
	"github.com/lakeops/bridge/internal/logger"
	"github.com/lakeops/bridge/internal/workspace"
)

// Orchestrator checks step preconditions, resolves source-technology labels
// and hands the work to the configured Executor. It never caches: every
// invocation re-executes the external step even with unchanged parameters.
type Orchestrator struct {
	exec Executor
	cat  *catalog.Catalog
}

// NewOrchestrator creates an Orchestrator around the given executor
func NewOrchestrator(exec Executor, cat *catalog.Catalog) *Orchestrator {
	return &Orchestrator{exec: exec, cat: cat}
}

// RunAnalyze runs the analyze step for the run's first staged file. A run
// with nothing staged fails immediately without touching the executor.
func (o *Orchestrator) RunAnalyze(ctx context.Context, run *workspace.Run, sourceLabel string) Result {
	token, err := o.cat.AnalyzerToken(sourceLabel)
	if err != nil {
		return Failure(StepAnalyze, "%v", err)
	}

	// Analyze operates on a single representative file per invocation
	inputFile, ok := run.FirstStaged()
	if !ok {
		return Failure(StepAnalyze, "%v", ErrNoInput)
	}

	start := time.Now()
	result := o.exec.Analyze(ctx, AnalyzeRequest{
		RunID:      run.ID,
		InputFile:  inputFile,
		SourceTech: token,
	})
	result.Duration = time.Since(start)

	o.record(run, result, result.ReportFile)
	return result
}

// RunTranspile runs the transpile step. A fresh file takes precedence; with
// none supplied the whole run workspace is used, and a run with nothing
// staged fails immediately without touching the executor.
func (o *Orchestrator) RunTranspile(ctx context.Context, run *workspace.Run, sourceLabel, freshFile string) Result {
	token, err := o.cat.TranspilerToken(sourceLabel)
	if err != nil {
		return Failure(StepTranspile, "%v", err)
	}

	inputPath := freshFile
	if inputPath == "" {
		if !run.HasStagedFiles() {
			return Failure(StepTranspile, "%v", ErrNoInput)
		}
		inputPath = run.Dir
	}

	start := time.Now()
	result := o.exec.Transpile(ctx, TranspileRequest{
		RunID:     run.ID,
		InputPath: inputPath,
		Dialect:   token,
	})
	result.Duration = time.Since(start)

	o.record(run, result, result.OutputFolder)
	return result
}

func (o *Orchestrator) record(run *workspace.Run, result Result, output string) {
	log := logger.WithRun(run.ID, string(result.Step)).WithFields(map[string]interface{}{
		"status":   result.Status,
		"duration": result.Duration.String(),
	})

	if result.Succeeded() {
		if output != "" {
			run.AddOutput(output)
		}
		log.Info("Step completed")
		return
	}
	log.WithField("message", result.Message).Warn("Step failed")
}
