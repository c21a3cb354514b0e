// Package config provides configuration management for the bridge portal.
// It loads configuration from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Executor strategy names
const (
	// ExecutorRemote submits jobs to the backend service over HTTP
	ExecutorRemote = "remote"
	// ExecutorLocal shells out to the migration CLI on this host
	ExecutorLocal = "local"
)

// BackendConfig holds settings for the remote job backend
type BackendConfig struct {
	// URL is the base URL of the backend service
	URL string

	// AnalyzeTimeout bounds a single analyze submission
	AnalyzeTimeout time.Duration

	// TranspileTimeout bounds a single transpile submission
	TranspileTimeout time.Duration

	// HealthTimeout bounds the liveness probe
	HealthTimeout time.Duration
}

// ToolConfig holds settings for local migration CLI invocation
type ToolConfig struct {
	// Binary is the executable to invoke
	Binary string

	// Args are fixed arguments placed before the per-step flags
	Args []string

	// Catalog is the target catalog name passed to transpile
	Catalog string

	// Schema is the target schema name passed to transpile
	Schema string

	// ErrorDir is the root directory for per-run error detail files
	ErrorDir string
}

// ServerConfig holds portal HTTP server settings
type ServerConfig struct {
	// Port is the HTTP server port
	Port int
}

// ValidationConfig holds settings for the model-backed validation step
type ValidationConfig struct {
	// Token is the inference service credential; empty activates mock mode
	Token string

	// Model is the hosted model identifier
	Model string

	// Endpoint is the inference API base URL
	Endpoint string

	// Timeout bounds a single inference call
	Timeout time.Duration
}

// Config holds all configuration for the bridge portal
type Config struct {
	// WorkDir is the root under which run workspaces are created
	WorkDir string

	// Executor selects the job execution strategy (remote or local)
	Executor string

	// CatalogFile optionally overrides the embedded source catalog
	CatalogFile string

	// Backend holds remote backend settings
	Backend BackendConfig

	// Tool holds local CLI settings
	Tool ToolConfig

	// Server holds portal server settings
	Server ServerConfig

	// Validation holds validation step settings
	Validation ValidationConfig
}

// New creates a new Config instance from environment variables
func New() (*Config, error) {
	cfg := &Config{}

	// Load WorkDir - defaults to current directory
	workDir, exists := os.LookupEnv("BRIDGE_WORKDIR")
	if !exists {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		cfg.WorkDir = cwd
	} else {
		if workDir == "" {
			return nil, fmt.Errorf("BRIDGE_WORKDIR cannot be empty")
		}
		if !filepath.IsAbs(workDir) {
			return nil, fmt.Errorf("BRIDGE_WORKDIR must be an absolute path, got: %s", workDir)
		}
		cfg.WorkDir = workDir
	}

	// Load Executor - defaults to remote
	executor := os.Getenv("BRIDGE_EXECUTOR")
	if executor == "" {
		cfg.Executor = ExecutorRemote
	} else {
		switch executor {
		case ExecutorRemote, ExecutorLocal:
			cfg.Executor = executor
		default:
			return nil, fmt.Errorf("BRIDGE_EXECUTOR must be one of: remote, local; got: %s", executor)
		}
	}

	cfg.CatalogFile = os.Getenv("BRIDGE_CATALOG_FILE")

	// Load Backend configuration
	cfg.Backend = BackendConfig{}

	// BACKEND_URL keeps the name the deployment already exports
	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		backendURL = "http://localhost:8000"
	}
	cfg.Backend.URL = backendURL

	analyzeTimeout, err := parseSecondsEnv("BRIDGE_ANALYZE_TIMEOUT", 300*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.Backend.AnalyzeTimeout = analyzeTimeout

	transpileTimeout, err := parseSecondsEnv("BRIDGE_TRANSPILE_TIMEOUT", 600*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.Backend.TranspileTimeout = transpileTimeout

	healthTimeout, err := parseSecondsEnv("BRIDGE_HEALTH_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.Backend.HealthTimeout = healthTimeout

	// Load Tool configuration
	cfg.Tool = ToolConfig{}

	toolBin := os.Getenv("BRIDGE_TOOL_BIN")
	if toolBin == "" {
		toolBin = "databricks"
		cfg.Tool.Args = []string{"labs", "lakebridge"}
	}
	cfg.Tool.Binary = toolBin

	catalog := os.Getenv("BRIDGE_TOOL_CATALOG")
	if catalog == "" {
		catalog = "main"
	}
	cfg.Tool.Catalog = catalog

	schema := os.Getenv("BRIDGE_TOOL_SCHEMA")
	if schema == "" {
		schema = "bridge"
	}
	cfg.Tool.Schema = schema

	errorDir := os.Getenv("BRIDGE_TOOL_ERROR_DIR")
	if errorDir == "" {
		errorDir = filepath.Join(cfg.WorkDir, "bridge", "errors")
	}
	cfg.Tool.ErrorDir = errorDir

	// Load Server configuration
	cfg.Server = ServerConfig{}

	httpPortStr := os.Getenv("BRIDGE_HTTP_PORT")
	if httpPortStr == "" {
		cfg.Server.Port = 8080
	} else {
		httpPort, err := parsePort(httpPortStr)
		if err != nil {
			return nil, fmt.Errorf("BRIDGE_HTTP_PORT %s", err)
		}
		cfg.Server.Port = httpPort
	}

	// Load Validation configuration
	cfg.Validation = ValidationConfig{}

	// HUGGINGFACE_API_KEY keeps the name the deployment already exports;
	// absence activates mock validation rather than failing
	cfg.Validation.Token = os.Getenv("HUGGINGFACE_API_KEY")

	model := os.Getenv("BRIDGE_VALIDATION_MODEL")
	if model == "" {
		model = "HuggingFaceH4/zephyr-7b-beta"
	}
	cfg.Validation.Model = model

	endpoint := os.Getenv("BRIDGE_VALIDATION_ENDPOINT")
	if endpoint == "" {
		endpoint = "https://api-inference.huggingface.co"
	}
	cfg.Validation.Endpoint = endpoint

	validationTimeout, err := parseSecondsEnv("BRIDGE_VALIDATION_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.Validation.Timeout = validationTimeout

	return cfg, nil
}

// IsRemote returns true if jobs run against the HTTP backend
func (c *Config) IsRemote() bool {
	return c.Executor == ExecutorRemote
}

// parseSecondsEnv parses a positive integer-seconds environment variable
func parseSecondsEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	secs, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if secs <= 0 {
		return 0, fmt.Errorf("%s must be positive, got: %d", key, secs)
	}
	return time.Duration(secs) * time.Second, nil
}

// parsePort parses and validates a port number string
func parsePort(portStr string) (int, error) {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid port number: %s", portStr)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("must be between 1 and 65535, got: %d", port)
	}
	return port, nil
}
