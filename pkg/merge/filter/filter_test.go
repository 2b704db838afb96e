package filter_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b-rodrigues/treemerge/pkg/merge/filter"
)

func mustNew(t *testing.T, includes, excludes []string, allFiles bool) *filter.Filter {
	t.Helper()
	f, err := filter.New(includes, excludes, allFiles, "")
	require.NoError(t, err)
	return f
}

func TestInvalidPatternFailsFast(t *testing.T) {
	_, err := filter.New([]string{"src/[a-"}, nil, false, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, filter.ErrInvalidPattern)
	assert.Contains(t, err.Error(), "src/[a-", "error should name the offending pattern")

	_, err = filter.New(nil, []string{"{unclosed"}, false, "")
	assert.ErrorIs(t, err, filter.ErrInvalidPattern)
}

func TestIncludeOverridesAllExclusion(t *testing.T) {
	f := mustNew(t, []string{"**/*.go"}, []string{"**/*.go"}, false)

	d := f.Evaluate("internal/server/main.go")
	assert.True(t, d.Include, "include match must override an identical exclude match")
	assert.Contains(t, d.Reason, "include pattern")

	// Include even beats the built-in VCS exclusion.
	f = mustNew(t, []string{".git/config"}, nil, false)
	assert.True(t, f.Include(".git/config"))
}

func TestExplicitExcludeBeatsDefault(t *testing.T) {
	f := mustNew(t, nil, []string{"vendor/**"}, false)

	assert.False(t, f.Include("vendor/lib/code.go"))
	assert.True(t, f.Include("cmd/main.go"))
}

func TestBuiltinExcludes(t *testing.T) {
	f := mustNew(t, nil, nil, false)

	cases := map[string]bool{
		".git/config":                     false,
		"sub/project/.git/HEAD":           false,
		"node_modules/left-pad/index.js":  false,
		"Cargo.lock":                      false,
		"deep/nested/yarn.lock":           false,
		"LICENSE":                         false,
		"LICENSE.md":                      false,
		"bin/tool.exe":                    false,
		"lib/native.so":                   false,
		"docs/_build/index.html":          false,
		"src/main.go":                     true,
		"README.md":                       true,
		"docs/guide.md":                   true,
		"gitter/config":                   true, // ".git/**" must not match "gitter"
		"locker/notes.txt":                true,
	}
	for path, want := range cases {
		assert.Equal(t, want, f.Include(path), "path %q", path)
	}
}

func TestAllFilesDisablesBuiltins(t *testing.T) {
	f := mustNew(t, nil, nil, true)

	assert.True(t, f.Include(".git/config"))
	assert.True(t, f.Include("node_modules/pkg/index.js"))
	assert.True(t, f.Include("Cargo.lock"))

	// Explicit excludes still apply under all-files.
	f = mustNew(t, nil, []string{"*.log"}, true)
	assert.False(t, f.Include("server/debug.log"))
}

func TestDoublestarRecursion(t *testing.T) {
	f := mustNew(t, []string{"src/**/*.rs"}, nil, false)

	assert.True(t, f.Include("src/main.rs"))
	assert.True(t, f.Include("src/a/b/c/mod.rs"))

	d := f.Evaluate("tests/integration.rs")
	assert.True(t, d.Include)
	assert.Equal(t, "default", d.Reason)
}

func TestIgnoreFile(t *testing.T) {
	root := t.TempDir()
	content := "# generated artifacts\n*.gen.go\nscratch/\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, filter.IgnoreFileName), []byte(content), 0o644))

	f, err := filter.New(nil, nil, false, root)
	require.NoError(t, err)

	assert.False(t, f.Include("api/types.gen.go"))
	assert.False(t, f.Include("scratch/notes.txt"))
	assert.True(t, f.Include("api/types.go"))

	// Explicit include still wins over the ignore file.
	f, err = filter.New([]string{"**/*.gen.go"}, nil, false, root)
	require.NoError(t, err)
	assert.True(t, f.Include("api/types.gen.go"))
}

func TestEvaluateIsDeterministic(t *testing.T) {
	f := mustNew(t, []string{"keep/**"}, []string{"drop/**"}, false)
	for i := 0; i < 5; i++ {
		assert.True(t, f.Include("keep/a.txt"))
		assert.False(t, f.Include("drop/a.txt"))
		assert.False(t, f.Include(".git/config"))
	}
}

func TestDefaultExcludesCopy(t *testing.T) {
	a := filter.DefaultExcludes()
	require.NotEmpty(t, a)
	a[0] = "mutated"
	assert.NotEqual(t, a[0], filter.DefaultExcludes()[0])
}
