package merge

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
)

// maxWalkDepth is a hard recursion cap protecting against symlink chains
// that defeat the visited-path guard. Far beyond RiskMaxDepth, which only
// warns.
const maxWalkDepth = 128

// ScanEntry is one filesystem entry found below the root. Immutable after
// the scan; the same collected snapshot feeds risk assessment and
// selection, so the tree is walked exactly once.
type ScanEntry struct {
	// Path is root-relative with forward slashes.
	Path string
	// AbsPath is the native absolute path, used for opening the file.
	AbsPath string
	IsFile  bool
	// Size in bytes; 0 for directories.
	Size int64
	// Depth below the root: direct children are 1.
	Depth int
}

// Scanner walks a directory tree once, producing ScanEntries in a
// deterministic (lexicographic per directory, parents first) order.
// Unreadable entries are skipped silently; symlinks are only followed when
// configured, with a visited-real-path guard against cycles.
type Scanner struct {
	root           string
	followSymlinks bool
	hooks          Hooks
	logger         *slog.Logger
}

// NewScanner creates a Scanner rooted at the given absolute path.
func NewScanner(root string, followSymlinks bool, hooks Hooks, loggerHandler slog.Handler) *Scanner {
	return &Scanner{
		root:           root,
		followSymlinks: followSymlinks,
		hooks:          hooks,
		logger:         slog.New(loggerHandler).With(slog.String("component", "scanner")),
	}
}

// Scan validates the root and walks the tree. The root itself is not
// emitted as an entry.
func (s *Scanner) Scan(ctx context.Context) ([]ScanEntry, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot access root %q: %v", ErrScan, s.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: root %q is not a directory", ErrScan, s.root)
	}

	visited := make(map[string]struct{})
	entries := make([]ScanEntry, 0, 256)
	if err := s.walk(ctx, s.root, "", 0, visited, &entries); err != nil {
		return nil, err
	}
	s.logger.Debug("Scan complete", slog.Int("entries", len(entries)))
	return entries, nil
}

// walk recurses into dir. rel is the slash-form path of dir relative to the
// root ("" for the root itself); depth is dir's depth below the root.
func (s *Scanner) walk(ctx context.Context, dir, rel string, depth int, visited map[string]struct{}, entries *[]ScanEntry) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if depth >= maxWalkDepth {
		s.logger.Warn("Recursion cap reached, subtree skipped", slog.String("path", rel))
		return nil
	}

	if s.followSymlinks {
		// Guard on the resolved path so a link back to any ancestor (or a
		// diamond of links) is visited once.
		resolved, err := filepath.EvalSymlinks(dir)
		if err != nil {
			s.logger.Debug("Cannot resolve directory, skipping", slog.String("path", dir), slog.String("error", err.Error()))
			return nil
		}
		if _, seen := visited[resolved]; seen {
			s.logger.Debug("Symlink cycle detected, skipping", slog.String("path", rel))
			return nil
		}
		visited[resolved] = struct{}{}
	}

	des, err := os.ReadDir(dir)
	if err != nil {
		// Unreadable directory: skip silently, the scan continues.
		s.logger.Debug("Unreadable directory skipped", slog.String("path", dir), slog.String("error", err.Error()))
		return nil
	}

	for _, de := range des {
		childRel := path.Join(rel, de.Name())
		childAbs := filepath.Join(dir, de.Name())
		childDepth := depth + 1

		if de.Type()&fs.ModeSymlink != 0 {
			if !s.followSymlinks {
				s.logger.Debug("Symlink skipped", slog.String("path", childRel))
				continue
			}
			ti, statErr := os.Stat(childAbs)
			if statErr != nil {
				s.logger.Debug("Broken symlink skipped", slog.String("path", childRel))
				continue
			}
			if ti.IsDir() {
				s.emit(entries, ScanEntry{Path: childRel, AbsPath: childAbs, IsFile: false, Depth: childDepth})
				if err := s.walk(ctx, childAbs, childRel, childDepth, visited, entries); err != nil {
					return err
				}
			} else if ti.Mode().IsRegular() {
				s.emit(entries, ScanEntry{Path: childRel, AbsPath: childAbs, IsFile: true, Size: ti.Size(), Depth: childDepth})
			}
			continue
		}

		if de.IsDir() {
			s.emit(entries, ScanEntry{Path: childRel, AbsPath: childAbs, IsFile: false, Depth: childDepth})
			if err := s.walk(ctx, childAbs, childRel, childDepth, visited, entries); err != nil {
				return err
			}
			continue
		}

		if de.Type().IsRegular() {
			fi, infoErr := de.Info()
			if infoErr != nil {
				s.logger.Debug("Cannot stat entry, skipping", slog.String("path", childRel))
				continue
			}
			s.emit(entries, ScanEntry{Path: childRel, AbsPath: childAbs, IsFile: true, Size: fi.Size(), Depth: childDepth})
		}
		// Other entry types (sockets, devices, pipes) are never merged.
	}
	return nil
}

func (s *Scanner) emit(entries *[]ScanEntry, e ScanEntry) {
	*entries = append(*entries, e)
	if err := s.hooks.OnFileDiscovered(e.Path); err != nil {
		s.logger.Warn("OnFileDiscovered hook failed", slog.String("path", e.Path), slog.String("error", err.Error()))
	}
}
