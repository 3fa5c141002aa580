// Package testutils builds throwaway asset projects for tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conneroisu/assetloader/internal/config"
)

// CreateTempProject creates a project with css, js and compiled
// directories. Symlinks in the temp path are resolved so canonical paths
// compare equal.
func CreateTempProject(t *testing.T) string {
	t.Helper()

	tempDir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	for _, dir := range []string{"css", "js", "compiled"} {
		require.NoError(t, os.MkdirAll(filepath.Join(tempDir, dir), 0o755))
	}

	return tempDir
}

// WriteAsset writes content to dir/name, creating parent directories.
func WriteAsset(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// WriteAssets writes every name/content pair below dir.
func WriteAssets(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		WriteAsset(t, dir, name, content)
	}
}

// Touch sets the access and modification times of path.
func Touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

// CreateTestConfig returns the default configuration rooted at projectDir
// with the integrity cache kept inside the project.
func CreateTestConfig(projectDir string) *config.Config {
	cfg := config.Default()
	cfg.Assets.Root = projectDir
	cfg.Integrity.CachePath = filepath.Join(projectDir, ".assetloader", "integrity.json")
	cfg.Tags.WebRoot = projectDir
	cfg.Watch.Debounce = 20 * time.Millisecond
	return cfg
}

// CompiledFiles lists the file names in dir/compiled.
func CompiledFiles(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(filepath.Join(dir, "compiled"))
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

// AssertFilePermissions checks the permission bits of path.
func AssertFilePermissions(t *testing.T, path string, expectedMode os.FileMode) {
	t.Helper()

	info, err := os.Stat(path)
	require.NoError(t, err)

	actualMode := info.Mode()
	require.Equal(t, expectedMode, actualMode&os.FileMode(0o777),
		"File %s has incorrect permissions: got %o, want %o",
		path, actualMode&os.FileMode(0o777), expectedMode)
}

// WaitForFileChange waits for path to be modified after originalModTime.
func WaitForFileChange(
	t *testing.T,
	filePath string,
	originalModTime time.Time,
	timeout time.Duration,
) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		info, err := os.Stat(filePath)
		if err == nil && info.ModTime().After(originalModTime) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("File %s was not modified within %v", filePath, timeout)
}
