package merge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseOptions(root, output string) Options {
	return Options{
		RootPath:   root,
		OutputPath: output,
		Logger:     discardLogger(),
	}
}

func TestRun_MergesTextSkipsBinaryAndBuiltins(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string][]byte{
		"main.go":     []byte("package main\n"),
		"README.md":   []byte("# readme\n"),
		"logo.png":    {0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00},
		".git/config": []byte("[core]\n"),
	})
	out := filepath.Join(t.TempDir(), "out.txt")

	report, err := Run(context.Background(), baseOptions(dir, out))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Summary.MergedCount)
	assert.Equal(t, 1, report.Summary.ChunkCount)

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "########## README.md\n\n# readme\n")
	assert.Contains(t, text, "########## main.go\n\npackage main\n")
	assert.NotContains(t, text, "logo.png")
	assert.NotContains(t, text, ".git/config")

	// Sorted by relative path, so README.md comes first.
	assert.Less(t, strings.Index(text, "README.md"), strings.Index(text, "main.go"))

	reasons := make(map[string]string)
	for _, s := range report.SkippedFiles {
		reasons[s.Path] = s.Reason
	}
	assert.Equal(t, SkipReasonNonText, reasons["logo.png"])
	assert.Equal(t, SkipReasonFiltered, reasons[".git/config"])
}

func TestRun_SplitScenario(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string][]byte{
		"a.txt": []byte("1\n2\n3\n"),
		"b.txt": []byte("1\n2\n3\n"),
	})
	outDir := t.TempDir()
	out := filepath.Join(outDir, "merged.txt")

	opts := baseOptions(dir, out)
	opts.SplitEvery = 4
	opts.HeaderStyle = HeaderPlain

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, report.Chunks, 2)
	assert.Equal(t, out, report.Chunks[0].Path)
	assert.Equal(t, filepath.Join(outDir, "merged.part1.txt"), report.Chunks[1].Path)

	require.Len(t, report.MergedFiles, 2)
	assert.Equal(t, 0, report.MergedFiles[0].Chunk)
	assert.Equal(t, 1, report.MergedFiles[1].Chunk)

	first, err := os.ReadFile(report.Chunks[0].Path)
	require.NoError(t, err)
	assert.Equal(t, ">>> a.txt\n\n1\n2\n3\n", string(first))
}

func TestRun_NoMatchOnBinaryOnlyTree(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string][]byte{
		"blob.bin": {0x00, 0x01, 0x02, 0x03},
	})

	_, err := Run(context.Background(), baseOptions(dir, filepath.Join(t.TempDir(), "out.txt")))
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestRun_AllFilesDisablesBuiltinExcludes(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string][]byte{
		".git/config": []byte("[core]\n"),
		"a.txt":       []byte("hello\n"),
	})
	out := filepath.Join(t.TempDir(), "out.txt")

	opts := baseOptions(dir, out)
	opts.AllFiles = true

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.MergedCount)

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(content), ".git/config")
}

func TestRun_IncludeOverridesExclude(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string][]byte{
		"keep.md": []byte("kept\n"),
		"drop.md": []byte("dropped\n"),
	})
	out := filepath.Join(t.TempDir(), "out.txt")

	opts := baseOptions(dir, out)
	opts.ExcludePatterns = []string{"*.md"}
	opts.IncludePatterns = []string{"keep.md"}

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, report.MergedFiles, 1)
	assert.Equal(t, "keep.md", report.MergedFiles[0].Path)
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string][]byte{
		"a.txt": []byte("hello\n"),
	})
	out := filepath.Join(t.TempDir(), "out.txt")

	opts := baseOptions(dir, out)
	opts.DryRun = true

	hooks := newRecordingHooks()
	opts.EventHooks = hooks

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, report.Summary.DryRun)
	assert.Equal(t, 1, report.Summary.CandidateCount)
	assert.Zero(t, report.Summary.MergedCount)
	assert.Empty(t, report.Chunks)
	require.Len(t, report.MergedFiles, 1)
	assert.Equal(t, "a.txt", report.MergedFiles[0].Path)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "dry run must not create output")
	assert.NotNil(t, hooks.report)
}

func TestRun_RoundTripContent(t *testing.T) {
	dir := t.TempDir()
	content := []byte("tabs\tand spaces\n\n  indented\nno trailing newline")
	writeTree(t, dir, map[string][]byte{"odd.txt": content})
	out := filepath.Join(t.TempDir(), "out.txt")

	opts := baseOptions(dir, out)
	opts.HeaderStyle = HeaderPlain

	_, err := Run(context.Background(), opts)
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, ">>> odd.txt\n\n"+string(content), string(got))
}

func TestRun_ExtAllowlistAuthoritative(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string][]byte{
		"main.go":  []byte("package main\n"),
		"notes.md": []byte("# notes\n"),
	})
	out := filepath.Join(t.TempDir(), "out.txt")

	opts := baseOptions(dir, out)
	opts.ExtAllowlist = []string{"go"}

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, report.MergedFiles, 1)
	assert.Equal(t, "main.go", report.MergedFiles[0].Path)
}

func TestRun_ConfigValidationErrors(t *testing.T) {
	valid := t.TempDir()
	writeTree(t, valid, map[string][]byte{"a.txt": []byte("a\n")})

	cases := []struct {
		name   string
		mutate func(*Options)
	}{
		{"missing root", func(o *Options) { o.RootPath = "" }},
		{"root not a directory", func(o *Options) {
			f := filepath.Join(t.TempDir(), "f.txt")
			require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
			o.RootPath = f
		}},
		{"negative split", func(o *Options) { o.SplitEvery = -1 }},
		{"bad header style", func(o *Options) { o.HeaderStyle = "fancy" }},
		{"bad glob", func(o *Options) { o.IncludePatterns = []string{"[unclosed"} }},
		{"unknown encoding", func(o *Options) { o.Encoding = "klingon-8" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := baseOptions(valid, filepath.Join(t.TempDir(), "out.txt"))
			tc.mutate(&opts)
			_, err := Run(context.Background(), opts)
			assert.ErrorIs(t, err, ErrConfigValidation)
		})
	}
}

func TestRun_NilLoggerRejected(t *testing.T) {
	opts := baseOptions(t.TempDir(), "out.txt")
	opts.Logger = nil
	_, err := Run(context.Background(), opts)
	assert.ErrorIs(t, err, ErrConfigValidation)
}

func TestRun_HookSequence(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string][]byte{
		"a.txt":    []byte("a\n"),
		"blob.bin": {0x00, 0x01},
	})
	out := filepath.Join(t.TempDir(), "out.txt")

	hooks := newRecordingHooks()
	opts := baseOptions(dir, out)
	opts.EventHooks = hooks

	_, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Len(t, hooks.discoveredPaths(), 2)
	assert.Equal(t, 1, hooks.plannedCount)
	assert.Equal(t, StatusMerged, hooks.lastStatus("a.txt"))
	assert.Equal(t, StatusSkipped, hooks.lastStatus("blob.bin"))
	require.NotNil(t, hooks.report)
	assert.Equal(t, 1, hooks.report.Summary.MergedCount)
}

func TestRun_DefaultOutputName(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "myproj")
	require.NoError(t, os.Mkdir(root, 0o755))
	writeTree(t, root, map[string][]byte{"a.txt": []byte("a\n")})

	wd, err := os.Getwd()
	require.NoError(t, err)
	workDir := t.TempDir()
	require.NoError(t, os.Chdir(workDir))
	t.Cleanup(func() { os.Chdir(wd) })

	report, runErr := Run(context.Background(), baseOptions(root, ""))
	require.NoError(t, runErr)
	assert.Equal(t, "myproj.txt", report.Summary.OutputPath)

	_, statErr := os.Stat(filepath.Join(workDir, "myproj.txt"))
	assert.NoError(t, statErr)
}

func TestRun_ContextCancelled(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string][]byte{"a.txt": []byte("a\n")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, baseOptions(dir, filepath.Join(t.TempDir(), "out.txt")))
	assert.ErrorIs(t, err, context.Canceled)
}
