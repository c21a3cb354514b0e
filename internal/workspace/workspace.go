// Package workspace manages per-session run directories and staged uploads.
// Each user session gets an isolated, timestamp-named directory that holds
// the files it uploads; downstream job steps read from that directory and
// record their outputs against the run.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Validation errors
var (
	// ErrInvalidFilename is returned when an upload name reduces to nothing
	// usable once directory components are stripped
	ErrInvalidFilename = errors.New("invalid upload filename")
)

// runDirLayout is the timestamp layout used for run directory names
const runDirLayout = "20060102_150405"

// Run represents one session's isolated unit of staged input and produced
// output. The workspace path is fixed at creation and never changes.
type Run struct {
	// ID is the run identifier, derived from the creation timestamp
	ID string

	// Dir is the absolute path of the run's workspace directory
	Dir string

	// Created is when the run was allocated
	Created time.Time

	mu      sync.Mutex
	staged  []string
	outputs []string
}

// Stage writes content verbatim to filename inside the run workspace,
// overwriting any existing file of the same name, and returns the resulting
// path. The filename is reduced to a bare base name first so uploads cannot
// escape the workspace.
func (r *Run) Stage(filename string, content []byte) (string, error) {
	base, err := sanitizeFilename(filename)
	if err != nil {
		return "", err
	}

	path := filepath.Join(r.Dir, base)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", base, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.staged {
		if existing == path {
			return path, nil
		}
	}
	r.staged = append(r.staged, path)
	return path, nil
}

// StagedFiles returns the paths staged so far, in upload order
func (r *Run) StagedFiles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	files := make([]string, len(r.staged))
	copy(files, r.staged)
	return files
}

// FirstStaged returns the first staged file, if any. The analyze step
// operates on a single representative file per invocation.
func (r *Run) FirstStaged() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.staged) == 0 {
		return "", false
	}
	return r.staged[0], true
}

// HasStagedFiles reports whether anything has been uploaded to this run
func (r *Run) HasStagedFiles() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.staged) > 0
}

// AddOutput records a path produced by a job step
func (r *Run) AddOutput(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs = append(r.outputs, path)
}

// Outputs returns the output paths recorded so far
func (r *Run) Outputs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	outputs := make([]string, len(r.outputs))
	copy(outputs, r.outputs)
	return outputs
}

// Manager allocates and tracks run workspaces under a fixed root.
// Runs live under <workdir>/bridge/input; scratch uploads that belong to a
// single invocation rather than a run go under <workdir>/bridge/tmp.
type Manager struct {
	root     string
	inputDir string
	tmpDir   string

	mu   sync.Mutex
	runs map[string]*Run

	// now is swappable for tests
	now func() time.Time
}

// NewManager creates a Manager rooted at <workdir>/bridge, creating the
// directory tree if needed.
func NewManager(workdir string) (*Manager, error) {
	root := filepath.Join(workdir, "bridge")
	m := &Manager{
		root:     root,
		inputDir: filepath.Join(root, "input"),
		tmpDir:   filepath.Join(root, "tmp"),
		runs:     make(map[string]*Run),
		now:      time.Now,
	}
	for _, dir := range []string{m.inputDir, m.tmpDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create workspace root: %w", err)
		}
	}
	return m, nil
}

// Root returns the workspace root directory
func (m *Manager) Root() string {
	return m.root
}

// CreateOrGet returns the session's current run, allocating a new
// timestamp-named workspace when the session has none. Re-entry by the same
// session always returns the existing run. A candidate directory already
// taken by another run gets a numeric suffix so two sessions never share a
// workspace, even when allocated within the same wall-clock second.
func (m *Manager) CreateOrGet(sessionID string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if run, ok := m.runs[sessionID]; ok {
		return run, nil
	}

	created := m.now()
	base := "run_" + created.Format(runDirLayout)
	id := base
	dir := filepath.Join(m.inputDir, id)
	for n := 2; ; n++ {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			break
		}
		id = fmt.Sprintf("%s_%d", base, n)
		dir = filepath.Join(m.inputDir, id)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run workspace: %w", err)
	}

	run := &Run{
		ID:      id,
		Dir:     dir,
		Created: created,
	}
	m.runs[sessionID] = run
	return run, nil
}

// Get returns the session's run without allocating one
func (m *Manager) Get(sessionID string) (*Run, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[sessionID]
	return run, ok
}

// StageScratch writes an invocation-scoped upload to the tmp area and
// returns its path. Used for transpile calls that supply a fresh file
// instead of reusing the run workspace.
func (m *Manager) StageScratch(filename string, content []byte) (string, error) {
	base, err := sanitizeFilename(filename)
	if err != nil {
		return "", err
	}

	path := filepath.Join(m.tmpDir, base)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", base, err)
	}
	return path, nil
}

// Contains reports whether path resolves to a location under the workspace
// root. Used to confine download requests.
func (m *Manager) Contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rootAbs, err := filepath.Abs(m.root)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(rootAbs, abs)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return filepath.IsLocal(rel)
}

// sanitizeFilename strips directory components and rejects names that would
// leave nothing to write
func sanitizeFilename(filename string) (string, error) {
	base := filepath.Base(filepath.Clean(filename))
	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return base, nil
}
