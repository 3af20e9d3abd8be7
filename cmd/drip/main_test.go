package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "drip version dev\n", out)
}

func TestScriptValidate_BuiltIn(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "script", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "is valid: 14 steps, checkpoint step 12")
}

func TestScriptValidate_Invalid(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps:\n  - action: dance\n"), 0o644))

	_, err := execute(t, "script", "validate", path)
	assert.Error(t, err)
}

func TestSessionInspect_Empty(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	out, err := execute(t, "session", "inspect", "--store-path", filepath.Join(dir, "s"))
	require.NoError(t, err)
	assert.Contains(t, out, "Step: 0/14")
}
