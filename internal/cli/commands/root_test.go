package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with a temporary configuration file holding extra plus a quiet
// log level, and returns stdout and stderr.
func execute(t *testing.T, extra string, args ...string) (string, string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "facetmodel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"+extra), 0644))

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", path, "--no-color"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "facetmodel", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"version", "introspect", "factories", "memento"})
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"
	BuildDate = "2025-01-01"
	GoVersion = "go1.23"
	defer func() { Version, GitCommit, BuildDate, GoVersion = "dev", "unknown", "unknown", "unknown" }()

	stdout, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "facetmodel version: 1.0.0-test")
	assert.Contains(t, stdout, "Git commit: abc123")
	assert.Contains(t, stdout, "Build date: 2025-01-01")
	assert.Contains(t, stdout, "Go version: go1.23")
}

func TestConfigErrors(t *testing.T) {
	_, _, err := execute(t, "memento:\n  store: etcd\n", "introspect", "specs")
	assert.Error(t, err)

	_, _, err = execute(t, "", "--log-level", "loud", "introspect", "specs")
	assert.ErrorContains(t, err, "unknown log level")

	_, _, err = execute(t, "programming_model:\n  add:\n    - NoSuchFacetFactory\n", "factories")
	assert.ErrorContains(t, err, "NoSuchFacetFactory")
}
