package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	labels := c.Labels()
	assert.Len(t, labels, 6)
	assert.Contains(t, labels, "Informatica PowerCenter")
	assert.Contains(t, labels, "Oracle")
}

func TestTokenMapping(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		label      string
		analyzer   string
		transpiler string
	}{
		{"Informatica PowerCenter", "Informatica - PC", "informatica (desktop edition)"},
		{"Informatica Cloud", "Informatica Cloud", "informatica cloud"},
		{"Azure Data Factory (ADF)", "ADF", "synapse"},
		{"IBM DataStage", "Datastage", "datastage"},
		{"MS SQL Server", "MS SQL Server", "mssql"},
		{"Oracle", "Oracle", "oracle"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			analyzer, err := c.AnalyzerToken(tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.analyzer, analyzer)

			transpiler, err := c.TranspilerToken(tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.transpiler, transpiler)
		})
	}
}

func TestUnknownLabel(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	_, err = c.AnalyzerToken("Teradata")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownLabel)

	_, err = c.TranspilerToken("Teradata")
	assert.ErrorIs(t, err, ErrUnknownLabel)
}

func TestLoadFromFile(t *testing.T) {
	t.Run("valid file overrides default", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sources.yaml")
		content := `sources:
  - label: Teradata
    analyzer: Teradata
    transpiler: teradata
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		c, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"Teradata"}, c.Labels())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("incomplete entry", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sources.yaml")
		content := `sources:
  - label: Teradata
    analyzer: Teradata
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "incomplete")
	})

	t.Run("empty catalog", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sources.yaml")
		require.NoError(t, os.WriteFile(path, []byte("sources: []\n"), 0o644))

		_, err := Load(path)
		require.Error(t, err)
	})
}
