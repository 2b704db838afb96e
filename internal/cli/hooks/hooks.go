// Package hooks bridges merge engine events to the CLI's presentation
// layer: the Bubble Tea TUI, the progress bar, or plain logging, depending
// on how the command was invoked.
package hooks

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/b-rodrigues/treemerge/pkg/merge"
)

// --- TUI message structs ---

// FileDiscoveredMsg signals that the scanner found a filesystem entry.
type FileDiscoveredMsg struct{ Path string }

// MergePlannedMsg signals that selection finished and carries the number of
// files to merge.
type MergePlannedMsg struct{ FileCount int }

// FileStatusUpdateMsg signals a change in a file's processing status.
type FileStatusUpdateMsg struct {
	Path     string
	Status   merge.Status
	Message  string
	Duration time.Duration
}

// RunCompleteMsg signals the completion of the run.
type RunCompleteMsg struct{ Report merge.Report }

// TUIProgram is the slice of *tea.Program the hooks need.
type TUIProgram interface {
	Send(msg tea.Msg)
}

// ProgressBar is the slice of *progressbar.ProgressBar the hooks need.
type ProgressBar interface {
	Add(num int) error
	ChangeMax(max int)
	Close() error
}

// NoOpTUIProgram is the null TUIProgram.
type NoOpTUIProgram struct{}

func (*NoOpTUIProgram) Send(msg tea.Msg) {}

// NoOpProgressBar is the null ProgressBar.
type NoOpProgressBar struct{}

func (*NoOpProgressBar) Add(int) error { return nil }
func (*NoOpProgressBar) ChangeMax(int) {}
func (*NoOpProgressBar) Close() error  { return nil }

// CLIHooks implements merge.Hooks for the command-line frontend. Exactly
// one of the TUI, the progress bar or verbose logging is active per run.
type CLIHooks struct {
	logger         *slog.Logger
	tuiEnabled     bool
	verboseEnabled bool
	tuiProgram     TUIProgram
	progressBar    ProgressBar
	mu             sync.Mutex
}

// NewCLIHooks creates the hook bridge. Pass nil for tuiProgram or
// progressBar when not applicable; no-op versions are substituted.
func NewCLIHooks(logger *slog.Logger, tuiEnabled, verboseEnabled bool, tuiProg TUIProgram, progBar ProgressBar) *CLIHooks {
	if tuiProg == nil {
		tuiProg = &NoOpTUIProgram{}
	}
	if progBar == nil {
		progBar = &NoOpProgressBar{}
	}
	return &CLIHooks{
		logger:         logger,
		tuiEnabled:     tuiEnabled,
		verboseEnabled: verboseEnabled,
		tuiProgram:     tuiProg,
		progressBar:    progBar,
	}
}

// OnFileDiscovered handles scanner discovery events.
func (h *CLIHooks) OnFileDiscovered(path string) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(FileDiscoveredMsg{Path: path})
	} else if h.verboseEnabled {
		h.logger.Debug("Entry discovered", slog.String("path", path))
	}
	return nil
}

// OnMergePlanned sizes the progress bar once the candidate count is known.
func (h *CLIHooks) OnMergePlanned(fileCount int) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(MergePlannedMsg{FileCount: fileCount})
		return nil
	}
	if h.verboseEnabled {
		h.logger.Info("Merge planned", slog.Int("files", fileCount))
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.progressBar.ChangeMax(fileCount)
	return nil
}

// OnFileStatusUpdate routes per-file state changes. Must be thread-safe:
// selection events arrive concurrently from the worker pool.
func (h *CLIHooks) OnFileStatusUpdate(path string, status merge.Status, message string, duration time.Duration) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(FileStatusUpdateMsg{
			Path:     path,
			Status:   status,
			Message:  message,
			Duration: duration,
		})
		return nil
	}

	if h.verboseEnabled {
		logLevel := slog.LevelDebug
		logMsg := "File status updated"
		attrs := []any{
			slog.String("path", path),
			slog.String("status", string(status)),
		}
		if duration > 0 {
			attrs = append(attrs, slog.Duration("duration", duration))
		}
		if message != "" {
			logKey := "message"
			if status == merge.StatusFailed {
				logKey = "error"
			}
			attrs = append(attrs, slog.String(logKey, message))
		}
		switch status {
		case merge.StatusMerged, merge.StatusSkipped:
			logLevel = slog.LevelInfo
		case merge.StatusFailed:
			logLevel = slog.LevelError
			logMsg = "File processing failed"
		}
		h.logger.Log(nil, logLevel, logMsg, attrs...)
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if status == merge.StatusMerged || status == merge.StatusFailed {
		_ = h.progressBar.Add(1)
	}
	if status == merge.StatusFailed {
		h.logger.Error("File processing failed", slog.String("path", path), slog.String("error", message))
	}
	return nil
}

// OnRunComplete forwards the report to the TUI or finalizes the progress
// bar. The final text summary is rendered by the cli package.
func (h *CLIHooks) OnRunComplete(report merge.Report) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(RunCompleteMsg{Report: report})
		return nil
	}
	h.mu.Lock()
	_ = h.progressBar.Close()
	h.mu.Unlock()
	if !h.verboseEnabled {
		// Keep the shell prompt off the bar's final line.
		fmt.Fprintln(os.Stderr)
	}
	return nil
}
