package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd("test")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "multiwin test")
	assert.Contains(t, out, "go: go")
}

func TestVersionFlag(t *testing.T) {
	out, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "multiwin version test\n", out)
}

func TestRun_HeadlessRunFor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multiwin.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[trace]
min_interval = "1ms"
max_interval = "5ms"

[shutdown]
window_timeout = "1s"
fault_timeout = "1s"
`), 0o600))

	_, errOut, err := execute(t, "--config", path, "--headless", "--run-for", "100ms", "--log-level", "info")
	require.NoError(t, err)
	assert.Contains(t, errOut, `"event":"lifecycle.complete"`)
	assert.Contains(t, errOut, `"event":"app.stopped"`)
}

func TestRun_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multiwin.toml")
	require.NoError(t, os.WriteFile(path, []byte("[trace]\nmax_interval = \"never\"\n"), 0o600))

	_, _, err := execute(t, "--config", path, "--headless")
	var exitErr *ExitCodeError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, ExitConfig, exitErr.Code)
}

func TestRun_BadLogLevelFlag(t *testing.T) {
	_, _, err := execute(t, "--headless", "--log-level", "chatty")
	var exitErr *ExitCodeError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, ExitConfig, exitErr.Code)
}

func TestRun_RejectsArgs(t *testing.T) {
	_, _, err := execute(t, "extra")
	assert.Error(t, err)
}
