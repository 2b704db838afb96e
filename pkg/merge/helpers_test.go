package merge

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeTree materializes a map of relative path -> content under dir.
// Parent directories are created as needed; keys use forward slashes.
func writeTree(t *testing.T, dir string, files map[string][]byte) {
	t.Helper()
	for rel, content := range files {
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, content, 0o644))
	}
}

func discardLogger() slog.Handler {
	return slog.NewTextHandler(io.Discard, nil)
}

// recordingHooks captures every hook invocation for assertions.
type recordingHooks struct {
	mu           sync.Mutex
	discovered   []string
	plannedCount int
	statuses     map[string][]Status
	report       *Report
}

func newRecordingHooks() *recordingHooks {
	return &recordingHooks{statuses: make(map[string][]Status)}
}

func (h *recordingHooks) OnFileDiscovered(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.discovered = append(h.discovered, path)
	return nil
}

func (h *recordingHooks) OnMergePlanned(fileCount int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.plannedCount = fileCount
	return nil
}

func (h *recordingHooks) OnFileStatusUpdate(path string, status Status, _ string, _ time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses[path] = append(h.statuses[path], status)
	return nil
}

func (h *recordingHooks) OnRunComplete(report Report) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.report = &report
	return nil
}

func (h *recordingHooks) discoveredPaths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.discovered))
	copy(out, h.discovered)
	return out
}

func (h *recordingHooks) lastStatus(path string) Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	ss := h.statuses[path]
	if len(ss) == 0 {
		return ""
	}
	return ss[len(ss)-1]
}
