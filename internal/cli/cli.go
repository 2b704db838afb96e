// Package cli orchestrates a merge run for the command-line frontend: it
// picks the presentation mode (TUI, progress bar, verbose logging or plain),
// wires the matching hooks into the engine, and renders the final report.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/b-rodrigues/treemerge/internal/cli/hooks"
	"github.com/b-rodrigues/treemerge/internal/cli/ui"
	"github.com/b-rodrigues/treemerge/pkg/merge"
)

// Run executes the merge with the presentation mode implied by the options
// and the terminal. tuiEnabled is the config-level switch; the TUI still
// requires a real terminal on stderr.
func Run(ctx context.Context, opts merge.Options, tuiEnabled bool, logger *slog.Logger, version string) error {
	isTTY := term.IsTerminal(int(os.Stderr.Fd()))
	useTUI := tuiEnabled && isTTY && !opts.Verbose && !opts.DryRun

	var report merge.Report
	var err error
	switch {
	case useTUI:
		report, err = runWithTUI(ctx, opts, logger, version)
	case !opts.Verbose && !opts.DryRun && isTTY:
		report, err = runWithProgressBar(ctx, opts, logger)
	default:
		opts.EventHooks = hooks.NewCLIHooks(logger, false, opts.Verbose, nil, nil)
		report, err = merge.Run(ctx, opts)
	}
	if err != nil {
		if errors.Is(err, merge.ErrAbortedByUser) {
			logger.Warn("Merge aborted by user")
		} else {
			logger.Error("Merge failed", slog.Any("error", err))
		}
		return err
	}

	return renderReport(os.Stdout, report, opts.OutputFormat)
}

// runWithTUI drives the engine underneath a Bubble Tea program. The engine
// runs on its own goroutine and feeds the model through the hook bridge;
// the program quits once the run finishes.
func runWithTUI(ctx context.Context, opts merge.Options, logger *slog.Logger, version string) (merge.Report, error) {
	model := ui.NewModel(version)
	program := tea.NewProgram(&model, tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	opts.EventHooks = hooks.NewCLIHooks(logger, true, false, program, nil)

	var report merge.Report
	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		report, runErr = merge.Run(ctx, opts)
		program.Quit()
	}()

	if _, teaErr := program.Run(); teaErr != nil && !errors.Is(teaErr, tea.ErrProgramKilled) {
		logger.Warn("TUI terminated abnormally", slog.Any("error", teaErr))
	}
	<-done
	return report, runErr
}

// runWithProgressBar is the non-interactive TTY mode: one bar on stderr,
// resized once selection settles on the candidate count.
func runWithProgressBar(ctx context.Context, opts merge.Options, logger *slog.Logger) (merge.Report, error) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("merging"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(65*time.Millisecond),
	)
	opts.EventHooks = hooks.NewCLIHooks(logger, false, false, nil, bar)
	return merge.Run(ctx, opts)
}

// renderReport writes the final (or dry-run) report to w.
func renderReport(w io.Writer, report merge.Report, format merge.OutputFormat) error {
	if format == merge.OutputFormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode JSON report: %w", err)
		}
		return nil
	}

	if report.Summary.DryRun {
		fmt.Fprintf(w, "Dry-run. Would merge %d files into %s:\n", report.Summary.CandidateCount, report.Summary.OutputPath)
		for _, f := range report.MergedFiles {
			fmt.Fprintln(w, f.Path)
		}
		return nil
	}

	fmt.Fprintf(w, "Merged %d files (%d lines) into %d chunk(s), skipped %d.\n",
		report.Summary.MergedCount,
		report.Summary.LinesWritten,
		report.Summary.ChunkCount,
		report.Summary.SkippedCount,
	)
	for _, c := range report.Chunks {
		fmt.Fprintf(w, "  %s (%d files, %d lines, %d bytes)\n", c.Path, c.Files, c.Lines, c.Bytes)
	}
	return nil
}
