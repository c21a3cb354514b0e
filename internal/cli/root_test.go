package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakeops/bridge/internal/config"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestVersionFlag(t *testing.T) {
	out, err := executeCommand(t, "--version")

	require.NoError(t, err)
	assert.Contains(t, out, "bridge version")
}

func TestRootWithoutArgsShowsHelp(t *testing.T) {
	out, err := executeCommand(t)

	require.NoError(t, err)
	assert.Contains(t, out, "serve")
	assert.Contains(t, out, "sources")
}

func TestSourcesCommandListsLabels(t *testing.T) {
	out, err := executeCommand(t, "sources")

	require.NoError(t, err)
	assert.Contains(t, out, "Oracle")
	assert.Contains(t, out, "Informatica PowerCenter")
	assert.Contains(t, out, "IBM DataStage")
}

func TestBuildServerRemoteMode(t *testing.T) {
	t.Setenv("BRIDGE_WORKDIR", t.TempDir())
	t.Setenv("BRIDGE_EXECUTOR", "remote")
	t.Setenv("BACKEND_URL", "http://backend:9000")

	cfg, err := config.New()
	require.NoError(t, err)

	srv, err := buildServer(cfg)
	require.NoError(t, err)
	assert.NotNil(t, srv)
}

func TestBuildServerLocalMode(t *testing.T) {
	t.Setenv("BRIDGE_WORKDIR", t.TempDir())
	t.Setenv("BRIDGE_EXECUTOR", "local")

	cfg, err := config.New()
	require.NoError(t, err)

	srv, err := buildServer(cfg)
	require.NoError(t, err)
	assert.NotNil(t, srv)
}

func TestServeCommandRegistered(t *testing.T) {
	cmd := NewRootCommand()

	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", serve.Name())
	assert.NotNil(t, serve.Flags().Lookup("port"))
}
