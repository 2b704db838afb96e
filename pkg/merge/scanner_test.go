package merge

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanner_DeterministicOrder(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string][]byte{
		"b.txt":       []byte("b\n"),
		"a.txt":       []byte("a\n"),
		"sub/c.txt":   []byte("c\n"),
		"sub/in/d.md": []byte("d\n"),
	})

	s := NewScanner(dir, false, &NoOpHooks{}, discardLogger())
	first, err := s.Scan(context.Background())
	require.NoError(t, err)
	second, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second, "two scans of the same tree must agree")

	var paths []string
	for _, e := range first {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"a.txt", "b.txt", "sub", "sub/c.txt", "sub/in", "sub/in/d.md"}, paths)
}

func TestScanner_DepthAndSize(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string][]byte{
		"top.txt":     []byte("12345"),
		"a/b/c/d.txt": []byte("deep"),
	})

	s := NewScanner(dir, false, &NoOpHooks{}, discardLogger())
	entries, err := s.Scan(context.Background())
	require.NoError(t, err)

	byPath := make(map[string]ScanEntry, len(entries))
	for _, e := range entries {
		byPath[e.Path] = e
	}

	require.Contains(t, byPath, "top.txt")
	assert.Equal(t, 1, byPath["top.txt"].Depth)
	assert.Equal(t, int64(5), byPath["top.txt"].Size)
	assert.True(t, byPath["top.txt"].IsFile)

	require.Contains(t, byPath, "a/b/c/d.txt")
	assert.Equal(t, 4, byPath["a/b/c/d.txt"].Depth)

	require.Contains(t, byPath, "a/b")
	assert.False(t, byPath["a/b"].IsFile)
	assert.Equal(t, 2, byPath["a/b"].Depth)
}

func TestScanner_RootNotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	s := NewScanner(file, false, &NoOpHooks{}, discardLogger())
	_, err := s.Scan(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScan)
}

func TestScanner_RootMissing(t *testing.T) {
	s := NewScanner(filepath.Join(t.TempDir(), "nope"), false, &NoOpHooks{}, discardLogger())
	_, err := s.Scan(context.Background())
	assert.ErrorIs(t, err, ErrScan)
}

func TestScanner_SymlinksSkippedByDefault(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}
	dir := t.TempDir()
	writeTree(t, dir, map[string][]byte{
		"real/data.txt": []byte("hello\n"),
	})
	require.NoError(t, os.Symlink(filepath.Join(dir, "real"), filepath.Join(dir, "link")))

	s := NewScanner(dir, false, &NoOpHooks{}, discardLogger())
	entries, err := s.Scan(context.Background())
	require.NoError(t, err)

	for _, e := range entries {
		assert.NotEqual(t, "link", e.Path)
	}
}

func TestScanner_FollowSymlinksVisitsTargetOnce(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}
	dir := t.TempDir()
	writeTree(t, dir, map[string][]byte{
		"real/data.txt": []byte("hello\n"),
	})
	// A cycle: real/loop points back at the root.
	require.NoError(t, os.Symlink(dir, filepath.Join(dir, "real", "loop")))

	s := NewScanner(dir, true, &NoOpHooks{}, discardLogger())
	entries, err := s.Scan(context.Background())
	require.NoError(t, err)

	seen := 0
	for _, e := range entries {
		if e.Path == "real/data.txt" {
			seen++
		}
	}
	assert.Equal(t, 1, seen, "cycle guard must keep each real file to one visit")
}

func TestScanner_ContextCancellation(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string][]byte{"a.txt": []byte("a")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewScanner(dir, false, &NoOpHooks{}, discardLogger())
	_, err := s.Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanner_HooksFirePerEntry(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string][]byte{
		"a.txt":     []byte("a"),
		"sub/b.txt": []byte("b"),
	})

	hooks := newRecordingHooks()
	s := NewScanner(dir, false, hooks, discardLogger())
	entries, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, hooks.discoveredPaths(), len(entries))
}
