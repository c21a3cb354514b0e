package job

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakeops/bridge/internal/catalog"
	"github.com/lakeops/bridge/internal/workspace"
)

// mockExecutor records invocations and returns canned results
type mockExecutor struct {
	analyzeCalls   []AnalyzeRequest
	transpileCalls []TranspileRequest
	analyzeResult  Result
	transpileRes   Result
}

func (m *mockExecutor) Analyze(_ context.Context, req AnalyzeRequest) Result {
	m.analyzeCalls = append(m.analyzeCalls, req)
	return m.analyzeResult
}

func (m *mockExecutor) Transpile(_ context.Context, req TranspileRequest) Result {
	m.transpileCalls = append(m.transpileCalls, req)
	return m.transpileRes
}

func newTestRun(t *testing.T) *workspace.Run {
	t.Helper()
	m, err := workspace.NewManager(t.TempDir())
	require.NoError(t, err)
	run, err := m.CreateOrGet("session")
	require.NoError(t, err)
	return run
}

func newTestOrchestrator(t *testing.T, exec Executor) *Orchestrator {
	t.Helper()
	cat, err := catalog.Load("")
	require.NoError(t, err)
	return NewOrchestrator(exec, cat)
}

func TestRunAnalyzeEmptyRunFailsWithoutExternalCall(t *testing.T) {
	exec := &mockExecutor{}
	o := newTestOrchestrator(t, exec)
	run := newTestRun(t)

	result := o.RunAnalyze(context.Background(), run, "Oracle")

	assert.False(t, result.Succeeded())
	assert.Contains(t, result.Message, "no input uploaded")
	assert.Empty(t, exec.analyzeCalls, "executor must not be invoked for an empty run")
}

func TestRunAnalyzeUsesFirstStagedFile(t *testing.T) {
	exec := &mockExecutor{analyzeResult: Result{
		Step:       StepAnalyze,
		Status:     StatusSuccess,
		ReportFile: "out/report1.xlsx",
	}}
	o := newTestOrchestrator(t, exec)
	run := newTestRun(t)

	first, err := run.Stage("mapping1.xml", []byte("<m/>"))
	require.NoError(t, err)
	_, err = run.Stage("mapping2.xml", []byte("<m/>"))
	require.NoError(t, err)

	result := o.RunAnalyze(context.Background(), run, "Oracle")

	require.True(t, result.Succeeded())
	assert.Equal(t, "out/report1.xlsx", result.ReportFile)
	require.Len(t, exec.analyzeCalls, 1)
	assert.Equal(t, first, exec.analyzeCalls[0].InputFile)
	assert.Equal(t, "Oracle", exec.analyzeCalls[0].SourceTech)
	assert.Equal(t, run.ID, exec.analyzeCalls[0].RunID)
	assert.Equal(t, []string{"out/report1.xlsx"}, run.Outputs())
}

func TestRunAnalyzeMapsLabelToAnalyzerToken(t *testing.T) {
	exec := &mockExecutor{analyzeResult: Result{Step: StepAnalyze, Status: StatusSuccess}}
	o := newTestOrchestrator(t, exec)
	run := newTestRun(t)
	_, err := run.Stage("m.xml", []byte("<m/>"))
	require.NoError(t, err)

	_ = o.RunAnalyze(context.Background(), run, "Informatica PowerCenter")

	require.Len(t, exec.analyzeCalls, 1)
	assert.Equal(t, "Informatica - PC", exec.analyzeCalls[0].SourceTech)
}

func TestRunAnalyzeUnknownLabel(t *testing.T) {
	exec := &mockExecutor{}
	o := newTestOrchestrator(t, exec)
	run := newTestRun(t)
	_, err := run.Stage("m.xml", []byte("<m/>"))
	require.NoError(t, err)

	result := o.RunAnalyze(context.Background(), run, "FoxPro")

	assert.False(t, result.Succeeded())
	assert.Contains(t, result.Message, "unknown source technology")
	assert.Empty(t, exec.analyzeCalls)
}

func TestRunAnalyzeNoMemoization(t *testing.T) {
	exec := &mockExecutor{analyzeResult: Result{Step: StepAnalyze, Status: StatusSuccess}}
	o := newTestOrchestrator(t, exec)
	run := newTestRun(t)
	_, err := run.Stage("m.xml", []byte("<m/>"))
	require.NoError(t, err)

	_ = o.RunAnalyze(context.Background(), run, "Oracle")
	_ = o.RunAnalyze(context.Background(), run, "Oracle")

	assert.Len(t, exec.analyzeCalls, 2, "each invocation re-executes the step")
}

func TestRunTranspileFreshFileTakesPrecedence(t *testing.T) {
	exec := &mockExecutor{transpileRes: Result{
		Step:         StepTranspile,
		Status:       StatusSuccess,
		OutputFolder: "/out/run_x",
	}}
	o := newTestOrchestrator(t, exec)
	run := newTestRun(t)
	_, err := run.Stage("staged.xml", []byte("<m/>"))
	require.NoError(t, err)

	result := o.RunTranspile(context.Background(), run, "Oracle", "/tmp/fresh.xml")

	require.True(t, result.Succeeded())
	require.Len(t, exec.transpileCalls, 1)
	assert.Equal(t, "/tmp/fresh.xml", exec.transpileCalls[0].InputPath)
	assert.Equal(t, "oracle", exec.transpileCalls[0].Dialect)
	assert.Equal(t, []string{"/out/run_x"}, run.Outputs())
}

func TestRunTranspileUsesWorkspaceWhenNoFreshFile(t *testing.T) {
	exec := &mockExecutor{transpileRes: Result{Step: StepTranspile, Status: StatusSuccess, OutputFolder: "/out"}}
	o := newTestOrchestrator(t, exec)
	run := newTestRun(t)
	_, err := run.Stage("staged.xml", []byte("<m/>"))
	require.NoError(t, err)

	result := o.RunTranspile(context.Background(), run, "Azure Data Factory (ADF)", "")

	require.True(t, result.Succeeded())
	require.Len(t, exec.transpileCalls, 1)
	assert.Equal(t, run.Dir, exec.transpileCalls[0].InputPath)
	assert.Equal(t, "synapse", exec.transpileCalls[0].Dialect)
}

func TestRunTranspileEmptyRunNoFreshFile(t *testing.T) {
	exec := &mockExecutor{}
	o := newTestOrchestrator(t, exec)
	run := newTestRun(t)

	result := o.RunTranspile(context.Background(), run, "Oracle", "")

	assert.False(t, result.Succeeded())
	assert.Contains(t, result.Message, "invalid state")
	assert.Empty(t, exec.transpileCalls)
}

func TestRunTranspileFailureNotRecordedAsOutput(t *testing.T) {
	exec := &mockExecutor{transpileRes: Failure(StepTranspile, "backend request failed: connection refused")}
	o := newTestOrchestrator(t, exec)
	run := newTestRun(t)
	_, err := run.Stage("staged.xml", []byte("<m/>"))
	require.NoError(t, err)

	result := o.RunTranspile(context.Background(), run, "Oracle", "")

	assert.False(t, result.Succeeded())
	assert.Empty(t, run.Outputs())
}
