package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getProjectRoot returns the absolute path to the project root.
func getProjectRoot(t *testing.T) string {
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	t.Fatal("go.mod not found")
	return ""
}

// buildBinary compiles cmd/datapipe into a temp directory.
func buildBinary(t *testing.T) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "datapipe")
	buildCmd := exec.Command("go", "build", "-o", binPath, ".")
	buildCmd.Dir = filepath.Join(getProjectRoot(t), "cmd", "datapipe")
	output, err := buildCmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(output))
	return binPath
}

func TestMainEntryPoints(t *testing.T) {
	_ = main
}

func TestMainHelpFlag(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping build test in short mode")
	}
	bin := buildBinary(t)

	out, err := exec.Command(bin, "--help").CombinedOutput()
	require.NoError(t, err)
	assert.Contains(t, string(out), "datapipe")
	assert.Contains(t, string(out), "metadata queries")
}

func TestMainUnknownCommand(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping build test in short mode")
	}
	bin := buildBinary(t)

	out, err := exec.Command(bin, "unknown-command-xyz").CombinedOutput()
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(string(out)), "unknown")
}

func TestBinaryResolveAndHash(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	bin := buildBinary(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in.txt"), []byte("hello"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.yaml"),
		[]byte("- data_product: greeting\n  filename: in.txt\n  verified_hash: aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("run_id: run-1\n"), 0644))

	cmd := exec.Command(bin, "--no-color", "resolve", "read", "--data-product", "greeting")
	cmd.Env = append(os.Environ(), "DATAPIPE_CONFIG="+filepath.Join(dir, "config.yaml"))
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	assert.Contains(t, string(out), filepath.Join(dir, "in.txt"))

	out, err = exec.Command(bin, "hash", filepath.Join(dir, "in.txt")).CombinedOutput()
	require.NoError(t, err, string(out))
	assert.Contains(t, string(out), "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d")
}

func TestBinaryVerifyFailureExitCode(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	bin := buildBinary(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in.txt"), []byte("changed"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.yaml"),
		[]byte("- data_product: greeting\n  filename: in.txt\n  verified_hash: aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("run_id: run-1\n"), 0644))

	cmd := exec.Command(bin, "--no-color", "--config", filepath.Join(dir, "config.yaml"), "verify")
	out, err := cmd.CombinedOutput()
	require.Error(t, err)
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode())
	assert.Contains(t, string(out), "tampered")
}
