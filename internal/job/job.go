// Package job runs the analyze and transpile steps against a run workspace.
// The actual work is delegated to an external executor, either the remote
// backend service or a local command-line tool; both are normalized into the
// same Result shape so callers never see transport or subprocess details.
package job

import (
	"errors"
	"fmt"
	"time"
)

// Step identifies which migration step produced a Result
type Step string

const (
	// StepAnalyze inspects an uploaded definition file and produces a report
	StepAnalyze Step = "analyze"
	// StepTranspile converts definitions into generated target source files
	StepTranspile Step = "transpile"
)

// Result status values
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// ErrNoInput is returned when a step is invoked without any staged input
var ErrNoInput = errors.New("invalid state: no input uploaded")

// Result is the normalized outcome of one analyze or transpile invocation.
// Each invocation produces a fresh Result; a later invocation for the same
// step supersedes it entirely.
type Result struct {
	Step    Step   `json:"step"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`

	// ReportFile is set on analyze success
	ReportFile string `json:"report_file,omitempty"`

	// OutputFolder and Files are set on transpile success; Files are names
	// relative to OutputFolder and may be empty
	OutputFolder string   `json:"output_folder,omitempty"`
	Files        []string `json:"files,omitempty"`

	Duration time.Duration `json:"-"`
}

// Succeeded reports whether the step completed successfully
func (r Result) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Failure builds a failed Result for the given step
func Failure(step Step, format string, args ...interface{}) Result {
	return Result{
		Step:    step,
		Status:  StatusFailure,
		Message: fmt.Sprintf(format, args...),
	}
}

// AnalyzeRequest carries the inputs of one analyze invocation
type AnalyzeRequest struct {
	// RunID names the run the input belongs to
	RunID string

	// InputFile is the staged definition file to inspect
	InputFile string

	// SourceTech is the analyzer token for the chosen source technology
	SourceTech string
}

// TranspileRequest carries the inputs of one transpile invocation
type TranspileRequest struct {
	// RunID names the run the input belongs to
	RunID string

	// InputPath is either a single fresh file or the run workspace
	// directory; empty means the backend should fall back to its own most
	// recent staged input
	InputPath string

	// Dialect is the transpiler token for the chosen source technology
	Dialect string
}
