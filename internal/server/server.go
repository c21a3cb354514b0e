// Package server implements the portal HTTP server. It serves the
// single-page UI, stages uploads into per-session run workspaces, triggers
// the analyze and transpile steps through the job orchestrator and exposes
// the validation step.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/lakeops/bridge/internal/catalog"
	"github.com/lakeops/bridge/internal/job"
	"github.com/lakeops/bridge/internal/logger"
	"github.com/lakeops/bridge/internal/validate"
	"github.com/lakeops/bridge/internal/workspace"
)

//go:embed static
var staticFiles embed.FS

// Common errors returned by the server
var (
	// ErrServerRunning is returned when attempting to start an already running server
	ErrServerRunning = errors.New("server is already running")
)

// HealthChecker probes an external collaborator's liveness
type HealthChecker interface {
	Health(ctx context.Context) error
}

// DownloadLinker builds a download URL for a result file that lives on a
// remote backend instead of in the local workspace
type DownloadLinker interface {
	DownloadURL(filePath string) string
}

// Options carries the collaborators a Server needs
type Options struct {
	// Port to listen on (0 for auto-assignment)
	Port int

	// Manager allocates run workspaces
	Manager *workspace.Manager

	// Orchestrator runs the analyze and transpile steps
	Orchestrator *job.Orchestrator

	// Reporter produces validation reports
	Reporter *validate.Reporter

	// Catalog lists the supported source technologies
	Catalog *catalog.Catalog

	// BackendHealth probes the remote job backend; nil in local mode
	BackendHealth HealthChecker

	// Downloads links to result files held by the remote backend; nil in
	// local mode, where results are served from the workspace
	Downloads DownloadLinker
}

// Server is the portal HTTP server. Session state lives in an explicit
// per-session object resolved on each request, never in package globals.
type Server struct {
	port       int
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
	running    bool

	manager       *workspace.Manager
	orchestrator  *job.Orchestrator
	reporter      *validate.Reporter
	catalog       *catalog.Catalog
	backendHealth HealthChecker
	downloads     DownloadLinker

	sessions   map[string]*session
	sessionsMu sync.Mutex
}

// NewServer creates a portal server. It is initialized but not started -
// use Start() to begin listening.
func NewServer(opts Options) *Server {
	logger.WithField("port", opts.Port).Debug("Creating portal server")

	return &Server{
		port:          opts.Port,
		manager:       opts.Manager,
		orchestrator:  opts.Orchestrator,
		reporter:      opts.Reporter,
		catalog:       opts.Catalog,
		backendHealth: opts.BackendHealth,
		downloads:     opts.Downloads,
		sessions:      make(map[string]*session),
	}
}

// Handler returns the configured route tree. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	log := logger.GetLogger()
	middleware := logger.HTTPMiddleware(log)

	mux.Handle("/", middleware(http.HandlerFunc(s.indexHandler)))
	mux.Handle("/health", middleware(http.HandlerFunc(s.healthHandler)))
	mux.Handle("/api/backend", middleware(http.HandlerFunc(s.backendHandler)))
	mux.Handle("/api/sources", middleware(http.HandlerFunc(s.sourcesHandler)))
	mux.Handle("/api/upload", middleware(http.HandlerFunc(s.uploadHandler)))
	mux.Handle("/api/analyze", middleware(http.HandlerFunc(s.analyzeHandler)))
	mux.Handle("/api/transpile", middleware(http.HandlerFunc(s.transpileHandler)))
	mux.Handle("/api/validate", middleware(http.HandlerFunc(s.validateHandler)))
	mux.Handle("/api/run", middleware(http.HandlerFunc(s.runHandler)))
	mux.Handle("/download", middleware(http.HandlerFunc(s.downloadHandler)))

	return mux
}

// Start begins listening for HTTP requests on the configured port.
// The server runs until the provided context is canceled.
// Returns http.ErrServerClosed on graceful shutdown, or any other error if
// startup fails.
func (s *Server) Start(ctx context.Context) error {
	logger.WithField("port", s.port).Info("Starting portal server")

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		logger.Warn("Attempted to start already running server")
		return ErrServerRunning
	}
	s.running = true
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		logger.Info("Server start canceled due to context cancellation")
		return ctx.Err()
	default:
	}

	addr := fmt.Sprintf("0.0.0.0:%d", s.port)
	if s.port == 0 {
		addr = "localhost:0" // Let OS assign port
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		logger.WithFields(map[string]interface{}{
			"error":   err.Error(),
			"address": addr,
		}).Error("Failed to create listener")
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	logger.WithField("address", listener.Addr().String()).Info("Server listening")

	s.httpServer = &http.Server{Handler: s.Handler()}

	// Handle shutdown when context is canceled
	go func() {
		<-ctx.Done()
		logger.Info("Server shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WithField("error", err.Error()).Error("Error during server shutdown")
		}
	}()

	logger.Info("Server starting to accept connections")
	err = s.httpServer.Serve(listener)

	s.mu.Lock()
	s.running = false
	s.listener = nil
	s.mu.Unlock()

	// http.ErrServerClosed is expected when shutting down gracefully
	if err == http.ErrServerClosed {
		logger.Info("Server shut down gracefully")
		return err
	}

	if err != nil {
		logger.WithField("error", err.Error()).Error("Server error")
	}
	return err
}

// Address returns the actual address the server is listening on.
// Returns empty string if the server is not running.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// respondJSON writes a JSON response with the given status code
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}

// respondWithError sends a JSON error response with the specified status code
func (s *Server) respondWithError(w http.ResponseWriter, statusCode int, message string) {
	logger.WithFields(map[string]interface{}{
		"status_code":   statusCode,
		"error_message": message,
	}).Debug("Sending error response")

	s.respondJSON(w, statusCode, map[string]string{"error": message})
}
