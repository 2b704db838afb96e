// Package filter implements the path selection policy for a merge run:
// explicit include patterns, explicit exclude patterns, an optional
// .treemergeignore file, and a fixed built-in exclude list, evaluated in
// that order with first match winning.
package filter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// ErrInvalidPattern indicates that a user-supplied glob pattern failed to
// compile. The wrapped message names the offending pattern. Raised by New
// before any traversal begins.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// IgnoreFileName is the optional per-tree ignore file, gitignore syntax,
// looked up in the root directory only.
const IgnoreFileName = ".treemergeignore"

// defaultExcludes is the built-in exclude list: VCS internals, build and
// cache directories, docs output, license boilerplate, lockfiles and common
// binary extensions. Inert when the all-files override is set.
var defaultExcludes = []string{
	// VCS
	".git/**",
	".svn/**",
	".hg/**",
	// build dirs
	"target/**",
	"dist/**",
	"build/**",
	"out/**",
	// caches
	"__pycache__/**",
	".cache/**",
	".mypy_cache/**",
	".pytest_cache/**",
	".venv/**",
	".idea/**",
	".vscode/**",
	"node_modules/**",
	// docs output
	"_site/**",
	"_book/**",
	"docs/_build/**",
	// boilerplate
	"LICENSE",
	"LICENSE.*",
	"COPYING",
	"NOTICE",
	// lockfiles
	"*.lock",
	"package-lock.json",
	"poetry.lock",
	"Pipfile.lock",
	"pnpm-lock.yaml",
	"yarn.lock",
	// binaries
	"*.pyc",
	"*.pyo",
	"*.o",
	"*.so",
	"*.dll",
	"*.exe",
}

// Decision records the outcome of evaluating one path, with the tier and
// pattern that settled it (for logging and skip reports).
type Decision struct {
	Include bool
	Reason  string
}

// Filter holds the compiled pattern sets. Immutable after New; safe for
// concurrent use by the selection workers.
type Filter struct {
	includes   []string
	excludes   []string
	builtins   []string
	ignoreFile *ignore.GitIgnore
}

// New compiles the three pattern sets and, when present, the root's
// .treemergeignore file. Malformed globs fail fast with ErrInvalidPattern;
// the filter never reports a pattern error per-path afterwards.
//
// When allFiles is true the built-in exclude list is left empty, matching
// the "all files" override semantics.
func New(includes, excludes []string, allFiles bool, rootPath string) (*Filter, error) {
	f := &Filter{}

	var err error
	if f.includes, err = compile(includes); err != nil {
		return nil, err
	}
	if f.excludes, err = compile(excludes); err != nil {
		return nil, err
	}
	if !allFiles {
		// The built-in list is code-owned; a failure here is a programming
		// error, but it goes through the same validation path regardless.
		if f.builtins, err = compile(defaultExcludes); err != nil {
			return nil, err
		}
	}

	if rootPath != "" {
		ignorePath := filepath.Join(rootPath, IgnoreFileName)
		if _, statErr := os.Stat(ignorePath); statErr == nil {
			gi, compErr := ignore.CompileIgnoreFile(ignorePath)
			if compErr != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPattern, ignorePath, compErr)
			}
			f.ignoreFile = gi
		}
	}

	return f, nil
}

// compile validates each pattern up front and returns the set unchanged.
func compile(patterns []string) ([]string, error) {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		norm := filepath.ToSlash(strings.TrimSpace(p))
		if norm == "" {
			continue
		}
		if !doublestar.ValidatePattern(norm) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
		out = append(out, norm)
	}
	return out, nil
}

// Evaluate decides whether the given slash-normalized, root-relative path is
// included. Precedence, first match wins: explicit include, explicit
// exclude, ignore-file exclude, built-in exclude, default include.
// Pure function of the compiled state; no IO.
func (f *Filter) Evaluate(relPath string) Decision {
	relPath = filepath.ToSlash(relPath)

	if p, ok := matchAny(f.includes, relPath); ok {
		return Decision{Include: true, Reason: fmt.Sprintf("include pattern %q", p)}
	}
	if p, ok := matchAny(f.excludes, relPath); ok {
		return Decision{Include: false, Reason: fmt.Sprintf("exclude pattern %q", p)}
	}
	if f.ignoreFile != nil && f.ignoreFile.MatchesPath(relPath) {
		return Decision{Include: false, Reason: IgnoreFileName}
	}
	if p, ok := matchAny(f.builtins, relPath); ok {
		return Decision{Include: false, Reason: fmt.Sprintf("built-in exclude %q", p)}
	}
	return Decision{Include: true, Reason: "default"}
}

// Include is the boolean shorthand used by the selection workers.
func (f *Filter) Include(relPath string) bool {
	return f.Evaluate(relPath).Include
}

// matchAny reports the first pattern matching the path. A pattern that is
// not already anchored with "**/" is also tried with that prefix, so
// "*.lock" and ".git/**" apply at any depth while "/"-rooted doublestar
// patterns keep their anchored meaning.
func matchAny(patterns []string, relPath string) (string, bool) {
	for _, p := range patterns {
		// Patterns were validated in New; Match cannot fail here.
		if ok, _ := doublestar.Match(p, relPath); ok {
			return p, true
		}
		if !strings.HasPrefix(p, "**/") {
			if ok, _ := doublestar.Match("**/"+p, relPath); ok {
				return p, true
			}
		}
	}
	return "", false
}

// DefaultExcludes returns a copy of the built-in exclude list, for display
// in help output and tests.
func DefaultExcludes() []string {
	out := make([]string, len(defaultExcludes))
	copy(out, defaultExcludes)
	return out
}
