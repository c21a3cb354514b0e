package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, ExecutorRemote, cfg.Executor)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.URL)
	assert.Equal(t, 300*time.Second, cfg.Backend.AnalyzeTimeout)
	assert.Equal(t, 600*time.Second, cfg.Backend.TranspileTimeout)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "databricks", cfg.Tool.Binary)
	assert.Equal(t, []string{"labs", "lakebridge"}, cfg.Tool.Args)
	assert.Equal(t, "HuggingFaceH4/zephyr-7b-beta", cfg.Validation.Model)
	assert.True(t, cfg.IsRemote())
}

func TestNewWorkDir(t *testing.T) {
	t.Run("explicit absolute path", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("BRIDGE_WORKDIR", dir)

		cfg, err := New()
		require.NoError(t, err)
		assert.Equal(t, dir, cfg.WorkDir)
		assert.Equal(t, filepath.Join(dir, "bridge", "errors"), cfg.Tool.ErrorDir)
	})

	t.Run("relative path rejected", func(t *testing.T) {
		t.Setenv("BRIDGE_WORKDIR", "relative/path")

		_, err := New()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "absolute path")
	})

	t.Run("empty value rejected", func(t *testing.T) {
		t.Setenv("BRIDGE_WORKDIR", "")

		_, err := New()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be empty")
	})
}

func TestNewExecutor(t *testing.T) {
	t.Run("local strategy", func(t *testing.T) {
		t.Setenv("BRIDGE_EXECUTOR", "local")

		cfg, err := New()
		require.NoError(t, err)
		assert.Equal(t, ExecutorLocal, cfg.Executor)
		assert.False(t, cfg.IsRemote())
	})

	t.Run("unknown strategy rejected", func(t *testing.T) {
		t.Setenv("BRIDGE_EXECUTOR", "grid")

		_, err := New()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "BRIDGE_EXECUTOR")
	})
}

func TestNewTimeouts(t *testing.T) {
	t.Run("override in seconds", func(t *testing.T) {
		t.Setenv("BRIDGE_ANALYZE_TIMEOUT", "45")

		cfg, err := New()
		require.NoError(t, err)
		assert.Equal(t, 45*time.Second, cfg.Backend.AnalyzeTimeout)
	})

	t.Run("non-numeric rejected", func(t *testing.T) {
		t.Setenv("BRIDGE_TRANSPILE_TIMEOUT", "ten")

		_, err := New()
		require.Error(t, err)
	})

	t.Run("non-positive rejected", func(t *testing.T) {
		t.Setenv("BRIDGE_TRANSPILE_TIMEOUT", "0")

		_, err := New()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be positive")
	})
}

func TestNewPort(t *testing.T) {
	t.Run("valid port", func(t *testing.T) {
		t.Setenv("BRIDGE_HTTP_PORT", "9000")

		cfg, err := New()
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Server.Port)
	})

	t.Run("out of range", func(t *testing.T) {
		t.Setenv("BRIDGE_HTTP_PORT", "70000")

		_, err := New()
		require.Error(t, err)
	})
}

func TestNewBackendURL(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://10.0.0.5:8000")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8000", cfg.Backend.URL)
}

func TestNewValidationToken(t *testing.T) {
	t.Setenv("HUGGINGFACE_API_KEY", "hf_test")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "hf_test", cfg.Validation.Token)
}

func TestNewCustomToolBinary(t *testing.T) {
	t.Setenv("BRIDGE_TOOL_BIN", "/opt/lakebridge/bin/lakebridge")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/opt/lakebridge/bin/lakebridge", cfg.Tool.Binary)
	assert.Empty(t, cfg.Tool.Args)
}
