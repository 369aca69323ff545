package commands

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guzman109/ArrayMorph/pkg/api"
	"github.com/guzman109/ArrayMorph/pkg/config"
	"github.com/guzman109/ArrayMorph/pkg/connector"
	"github.com/guzman109/ArrayMorph/pkg/store/memory"
)

// run executes the root command with args and returns stdout.
func run(t *testing.T, stdin []byte, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(bytes.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// useFilesystemStore points the storage section at a temp directory so
// separate commands see the same chunks.
func useFilesystemStore(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("STORAGE_PLATFORM", "filesystem")
	t.Setenv("ARRAYMORPH_STORAGE_FILESYSTEM_PATH", dir)
	t.Setenv("ARRAYMORPH_LOGGING_LEVEL", "ERROR")
	return dir
}

func TestVersion(t *testing.T) {
	out, err := run(t, nil, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestWriteReadDelete(t *testing.T) {
	dir := useFilesystemStore(t)
	in := filepath.Join(t.TempDir(), "chunk.bin")
	require.NoError(t, os.WriteFile(in, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}, 0644))

	_, err := run(t, nil, "write",
		"--file", "./run.h5", "--uri", "temp/0.0", "--shape", "3,3", "--ranges", "0:2,0:2",
		"--element-size", "1", "--in", in)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "run.h5", "temp", "0.0"))

	out, err := run(t, nil, "read",
		"--file", "run.h5", "--uri", "temp/0.0", "--shape", "3,3", "--ranges", "1:2,1:2",
		"--element-size", "1", "--out", "")
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 6, 8, 9}, []byte(out))

	// Patch the center element from stdin.
	_, err = run(t, []byte{0xAA}, "write",
		"--file", "run.h5", "--uri", "temp/0.0", "--shape", "3,3", "--ranges", "1:1,1:1",
		"--element-size", "1", "--in", "")
	require.NoError(t, err)

	out, err = run(t, nil, "read",
		"--file", "run.h5", "--uri", "temp/0.0", "--shape", "3,3", "--ranges", "0:2,0:2",
		"--element-size", "1", "--out", "")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 0xAA, 6, 7, 8, 9}, []byte(out))

	_, err = run(t, nil, "delete", "--file", "run.h5", "--uri", "temp/0.0", "--force")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "run.h5", "temp", "0.0"))
}

func TestReadMissingChunk(t *testing.T) {
	useFilesystemStore(t)

	_, err := run(t, nil, "read",
		"--file", "run.h5", "--uri", "absent", "--shape", "4", "--ranges", "0:3",
		"--element-size", "1", "--out", "")
	assert.Error(t, err)
}

func TestPlan(t *testing.T) {
	useFilesystemStore(t)
	t.Setenv("ARRAYMORPH_TRANSFER_SEGMENTS_MAX_COUNT", "2")

	out, err := run(t, nil, "plan",
		"--file", "", "--uri", "temp/0.0", "--shape", "4,8", "--ranges", "0:3,2:3",
		"--element-size", "4", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "bytes=8-47")
	assert.Contains(t, out, "bytes=72-111")
	assert.Contains(t, out, "temp/0.0-4-2-4-8-0-3-2-3")

	out, err = run(t, nil, "plan",
		"--file", "", "--uri", "temp/0.0", "--shape", "4,8", "--ranges", "0:3,2:3",
		"--element-size", "4", "-o", "json")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "{"))
	assert.Contains(t, out, `"required_byte_size": 32`)
}

func TestPlanRejectsBadSelection(t *testing.T) {
	useFilesystemStore(t)

	_, err := run(t, nil, "plan",
		"--file", "", "--uri", "d", "--shape", "4", "--ranges", "0:4",
		"--element-size", "1", "-o", "table")
	assert.Error(t, err)
}

func TestConfigInitAndShow(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := run(t, nil, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, err = run(t, nil, "config", "init", "--config", path)
	assert.Error(t, err, "refuses to overwrite without --force")

	out, err = run(t, nil, "config", "show", "--config", path, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "platform: S3")

	out, err = run(t, nil, "config", "validate", "--config", path, "--connect=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Validation: OK")
	assert.Contains(t, out, "storage.bucket is not set")

	// Reset for later tests sharing the global flag.
	cfgFile = ""
}

func TestStatus(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg := config.GetDefaultConfig()
	cfg.Storage.Platform = "memory"

	conn, err := connector.New(cfg, connector.WithStore(memory.New()))
	require.NoError(t, err)
	defer conn.Close()

	server := httptest.NewServer(api.NewRouter(conn, cfg.Server))
	defer server.Close()

	out, err := run(t, nil, "status", "--server", server.URL, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"service": "arraymorph"`)
	assert.Contains(t, out, `"platform": "memory"`)

	statusServer = ""
	statusOutput = "table"
}

func TestStatusUnhealthy(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	server := httptest.NewServer(api.NewRouter(nil, config.GetDefaultConfig().Server))
	defer server.Close()

	out, err := run(t, nil, "status", "--server", server.URL)
	assert.Error(t, err)
	assert.Contains(t, out, "backend not initialized")

	statusServer = ""
}
