package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cliRun is the outcome of one command invocation.
type cliRun struct {
	stdout string
	stderr string
	err    error
}

// execute runs the root command with args against a database in dir.
func execute(t *testing.T, dir string, args ...string) cliRun {
	t.Helper()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(append(args, "--database", filepath.Join(dir, "reportbuilder.db")))

	err := cmd.Execute()
	return cliRun{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "reportbuilder", cmd.Use)
	assert.Contains(t, cmd.Long, "REPORTBUILDER_")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"tables"}, {"fields"}, {"validate"}, {"compile"}, {"run"}, {"preview"},
		{"template"}, {"template", "save"}, {"template", "list"}, {"template", "show"}, {"template", "delete"},
		{"history"}, {"test"},
	}

	for _, path := range commands {
		t.Run(filepath.Join(path...), func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	executorFlag := cmd.PersistentFlags().Lookup("executor")
	require.NotNil(t, executorFlag)
	assert.Equal(t, "mock", executorFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
}

func TestInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown executor", []string{"tables", "--executor", "grpc"}, "executor.mode"},
		{"unknown format", []string{"tables", "--format", "xml"}, "format"},
		{"sql without data", []string{"tables", "--executor", "sql"}, "executor.data"},
		{"missing config file", []string{"tables", "--config", "does-not-exist.yaml"}, "config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, t.TempDir(), tt.args...)
			require.Error(t, res.err)
			assert.Equal(t, ExitCommandError, GetExitCode(res.err))
			assert.Contains(t, res.stderr, "Error [E002]")
			assert.Contains(t, res.stderr, tt.wantErr)
		})
	}
}

func TestConfigFileFlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "reportbuilder.yaml")
	writeFile(t, cfgPath, "format: json\n")

	// File sets json
	res := execute(t, dir, "tables", "--config", cfgPath)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"status": "ok"`)

	// Flag wins over the file
	res = execute(t, dir, "tables", "--config", cfgPath, "--format", "text")
	require.NoError(t, res.err)
	assert.NotContains(t, res.stdout, `"status"`)
	assert.Contains(t, res.stdout, "orders")
}

func TestVerboseLogsToStderr(t *testing.T) {
	dir := t.TempDir()
	res := execute(t, dir, "preview", "--table", "orders", "--seed", "1", "-v")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "level=DEBUG")
	assert.Contains(t, res.stderr, "run_id=")
	assert.NotContains(t, res.stdout, "level=")
}
