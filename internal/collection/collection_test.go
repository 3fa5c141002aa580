package collection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
	return path
}

func tempRoot(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return root
}

func TestFileCollection_AddFile(t *testing.T) {
	root := tempRoot(t)
	a := writeFile(t, root, "js/a.js")
	b := writeFile(t, root, "js/b.js")

	t.Run("relative to root", func(t *testing.T) {
		c := New(root)
		c.AddFile("js/a.js")
		assert.Equal(t, []string{a}, c.Files())
	})

	t.Run("absolute path when root candidate is missing", func(t *testing.T) {
		c := New(filepath.Join(root, "elsewhere"))
		c.AddFile(b)
		assert.Equal(t, []string{b}, c.Files())
	})

	t.Run("missing files are dropped silently", func(t *testing.T) {
		c := New(root)
		c.AddFiles([]string{"js/missing.js", "js/a.js", "", "/definitely/not/here.js"})
		assert.Equal(t, []string{a}, c.Files())
	})

	t.Run("duplicates rejected on canonical path", func(t *testing.T) {
		c := New(root)
		c.AddFiles([]string{"js/a.js", "./js/../js/a.js", a, "js//a.js"})
		assert.Equal(t, []string{a}, c.Files())
	})

	t.Run("insertion order preserved", func(t *testing.T) {
		c := New(root)
		c.AddFiles([]string{"js/b.js", "js/a.js"})
		assert.Equal(t, []string{b, a}, c.Files())
	})
}

func TestFileCollection_SymlinkedRoot(t *testing.T) {
	root := tempRoot(t)
	a := writeFile(t, root, "assets/js/a.js")
	link := filepath.Join(root, "public")
	require.NoError(t, os.Symlink(filepath.Join(root, "assets"), link))

	c := New(link)
	c.AddFiles([]string{"js/a.js", a, filepath.Join(link, "js", "a.js")})
	assert.Equal(t, []string{a}, c.Files())

	path, ok := c.Canonicalize("js/a.js")
	require.True(t, ok)
	assert.Equal(t, a, path)
}

func TestFileCollection_WatchFiles(t *testing.T) {
	root := tempRoot(t)
	a := writeFile(t, root, "css/a.css")
	b := writeFile(t, root, "css/b.css")

	c := New(root)
	c.AddFile("css/a.css")
	c.AddWatchFiles([]string{a, b, "css/b.css", "css/gone.css"})

	assert.Equal(t, []string{a}, c.Files())
	assert.Equal(t, []string{a, b}, c.WatchFiles())
}

func TestFileCollection_Clear(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, root, "a.js")

	c := New(root)
	c.AddFile("a.js")
	c.AddWatchFile("a.js")
	c.Clear()

	assert.Empty(t, c.Files())
	assert.Empty(t, c.WatchFiles())
	assert.Equal(t, root, c.Root())

	c.AddFile("a.js")
	assert.Len(t, c.Files(), 1)
}

func TestFileCollection_ReturnsCopies(t *testing.T) {
	root := tempRoot(t)
	writeFile(t, root, "a.js")

	c := New(root)
	c.AddFile("a.js")

	files := c.Files()
	files[0] = "mutated"
	assert.NotEqual(t, "mutated", c.Files()[0])
}
