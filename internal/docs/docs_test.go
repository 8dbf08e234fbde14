package docs

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha content")
	writeFile(t, dir, "b.md", "beta content")
	writeFile(t, dir, "c.bin", "ignored")

	docs, err := LoadPaths([]string{filepath.Join(dir, "*")})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	names := []string{docs[0].Name, docs[1].Name}
	assert.ElementsMatch(t, []string{"a.txt", "b.md"}, names)
}

func TestLoadPaths_NoDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "c.bin", "ignored")

	_, err := LoadPaths([]string{filepath.Join(dir, "*")})
	assert.Error(t, err)
}

func TestRegistry_LoadAndSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "second")
	writeFile(t, dir, "a.txt", "first")

	reg := NewRegistry(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, reg.Load())

	docs := reg.Documents()
	require.Len(t, docs, 2)
	// Deterministic name order regardless of directory iteration.
	assert.Equal(t, "a.txt", docs[0].Name)
	assert.Equal(t, "b.txt", docs[1].Name)

	// The snapshot is a copy; mutating it does not affect the registry.
	docs[0].Text = "mutated"
	assert.Equal(t, "first", reg.Documents()[0].Text)
}

func TestAddWatchTargets_IncludesSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested", "deep")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()

	require.NoError(t, addWatchTargets(watcher, dir))
	list := watcher.WatchList()
	assert.Contains(t, list, dir)
	assert.Contains(t, list, filepath.Join(dir, "nested"))
	assert.Contains(t, list, sub)
}

func TestRegistry_LoadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "first")

	reg := NewRegistry(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, reg.Load())
	require.Len(t, reg.Documents(), 1)

	writeFile(t, dir, "b.txt", "second")
	require.NoError(t, reg.Load())
	assert.Len(t, reg.Documents(), 2)
}
