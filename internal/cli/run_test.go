package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var harnessScenarios = filepath.Join("..", "harness", "testdata", "scenarios")

func executeRun(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRun_HarnessScenarios(t *testing.T) {
	out, err := executeRun(t, "text", harnessScenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ hardware_and_software")
	assert.Contains(t, out, "✓ position_sweep")
	assert.Contains(t, out, "Scenario Summary: 5 passed, 0 failed, 5 total")
}

func TestRun_FilterJSON(t *testing.T) {
	out, err := executeRun(t, "json", harnessScenarios, "--filter", "rejected_*")
	require.NoError(t, err, out)

	var resp struct {
		Status string    `json:"status"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "rejected_axis", resp.Data.Scenarios[0].Name)
	assert.Equal(t, "failed", resp.Data.Scenarios[0].Outcome)
	assert.True(t, resp.Data.Scenarios[0].Pass)
}

func TestRun_UpdateWritesGolden(t *testing.T) {
	goldenDir := filepath.Join(t.TempDir(), "golden")

	_, err := executeRun(t, "text", harnessScenarios, "--filter", "start_fault", "--update", "--golden", goldenDir)
	require.NoError(t, err)

	written, err := os.ReadFile(filepath.Join(goldenDir, "start_fault.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "golden", "start_fault.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))
}

func TestRun_GoldenMismatch(t *testing.T) {
	goldenDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(goldenDir, "start_fault.golden"), []byte("{}\n"), 0644))

	out, err := executeRun(t, "text", harnessScenarios, "--filter", "start_fault", "--golden", goldenDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestRun_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(`
name: wrong_count
description: "Expects more events than the description produces"
synchronization:
  - active: {time: 0.1}
    total: {time: 0.2}
    repeats: 1
listeners: [acq01]
assertions:
  - type: listener_count
    listener: acq01
    count: 10
`), 0644))

	out, err := executeRun(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_count")
	assert.Contains(t, out, "expected 10 events, got 2")
}

func TestRun_EmptyAndMissingDirs(t *testing.T) {
	out, err := executeRun(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")

	_, err = executeRun(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_InvalidScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken\n"), 0644))

	out, err := executeRun(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}
