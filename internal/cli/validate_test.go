package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenario = `name: stub-basics
mocks:
  - service
steps:
  - op: begin_stub
  - op: call
    mock: service
    method: find
    args: ["id-1"]
    expect_route: captured-for-stubbing
  - op: bind
    answer: user-1
`

const invalidScenario = `name: bad-op
mocks:
  - service
steps:
  - op: frobnicate
`

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidate_ValidFile(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "good.yaml", validScenario)

	out, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All scenarios valid")
}

func TestValidate_InvalidFile(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "bad.yaml", invalidScenario)

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ "+path)
}

func TestValidate_Directory(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "good.yaml", validScenario)
	writeScenario(t, dir, "bad.yml", invalidScenario)
	writeScenario(t, dir, "ignored.txt", "not yaml")

	out, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "good.yaml")
	assert.Contains(t, out, "bad.yml")
	assert.NotContains(t, out, "ignored.txt")
}

func TestValidate_MissingPath(t *testing.T) {
	_, err := execute(t, "validate", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate_EmptyDirectory(t *testing.T) {
	_, err := execute(t, "validate", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate_JSONOutput(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "bad.yaml", invalidScenario)

	out, err := execute(t, "--format", "json", "validate", path)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_SCHEMA_VIOLATION", resp.Error.Code)
}
