package merge

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// RiskReport aggregates the scan statistics the thresholds are judged
// against. Built from the scan snapshot before any file content is read.
type RiskReport struct {
	FileCount          int
	TotalInputBytes    int64
	MaxDepth           int
	LargestFileBytes   int64
	LargestFilePath    string
	OversizedFileCount int
	// EstimatedOutputBytes is total input plus a flat per-file header
	// allowance. An upper-bound heuristic, not a promise.
	EstimatedOutputBytes int64
}

// BuildRiskReport folds the scan entries into a RiskReport.
func BuildRiskReport(entries []ScanEntry) RiskReport {
	var r RiskReport
	for _, e := range entries {
		if e.Depth > r.MaxDepth {
			r.MaxDepth = e.Depth
		}
		if !e.IsFile {
			continue
		}
		r.FileCount++
		r.TotalInputBytes += e.Size
		if e.Size >= RiskMaxSingleFileBytes {
			r.OversizedFileCount++
		}
		if e.Size > r.LargestFileBytes {
			r.LargestFileBytes = e.Size
			r.LargestFilePath = e.Path
		}
	}
	r.EstimatedOutputBytes = r.TotalInputBytes + int64(r.FileCount)*headerOverheadBytes
	return r
}

// Warnings returns one human-readable line per exceeded threshold, empty
// when the scan looks safe.
func (r RiskReport) Warnings() []string {
	var w []string
	if r.FileCount > RiskMaxFileCount {
		w = append(w, fmt.Sprintf("file count %d exceeds %d", r.FileCount, RiskMaxFileCount))
	}
	if r.OversizedFileCount > 0 {
		w = append(w, fmt.Sprintf("%d file(s) of 200 MB or more (largest: %s, %d bytes)",
			r.OversizedFileCount, r.LargestFilePath, r.LargestFileBytes))
	}
	if r.TotalInputBytes > RiskMaxTotalInputBytes {
		w = append(w, fmt.Sprintf("total input size %d bytes exceeds %d", r.TotalInputBytes, RiskMaxTotalInputBytes))
	}
	if r.EstimatedOutputBytes > RiskMaxEstimatedOutputBytes {
		w = append(w, fmt.Sprintf("estimated output size %d bytes exceeds %d", r.EstimatedOutputBytes, RiskMaxEstimatedOutputBytes))
	}
	if r.MaxDepth > RiskMaxDepth {
		w = append(w, fmt.Sprintf("directory depth %d exceeds %d", r.MaxDepth, RiskMaxDepth))
	}
	return w
}

// Assessor decides whether a risky-looking run may proceed. In dry-run
// mode warnings are logged and the run continues; with confirmation
// disabled the same; otherwise the user is prompted once for all exceeded
// thresholds together.
type Assessor struct {
	noConfirm bool
	dryRun    bool
	in        io.Reader
	out       io.Writer
	logger    *slog.Logger
}

// NewAssessor builds an Assessor. in and out carry the interactive prompt.
func NewAssessor(noConfirm, dryRun bool, in io.Reader, out io.Writer, loggerHandler slog.Handler) *Assessor {
	return &Assessor{
		noConfirm: noConfirm,
		dryRun:    dryRun,
		in:        in,
		out:       out,
		logger:    slog.New(loggerHandler).With(slog.String("component", "risk")),
	}
}

// Assess logs every exceeded threshold and, when interactive confirmation
// applies, prompts on out and reads one line from in. Only "y" or "yes"
// (case-insensitive) lets the run proceed; anything else, including end of
// input, returns ErrAbortedByUser.
func (a *Assessor) Assess(report RiskReport) error {
	warnings := report.Warnings()
	if len(warnings) == 0 {
		return nil
	}
	for _, w := range warnings {
		a.logger.Warn("Risk threshold exceeded", slog.String("detail", w))
	}
	if a.dryRun || a.noConfirm {
		return nil
	}

	fmt.Fprintln(a.out, "Warning: this merge looks risky:")
	for _, w := range warnings {
		fmt.Fprintf(a.out, "  - %s\n", w)
	}
	fmt.Fprint(a.out, "Proceed anyway? [y/N] ")

	scanner := bufio.NewScanner(a.in)
	if !scanner.Scan() {
		// Closed stdin or read error: refuse rather than guess.
		return fmt.Errorf("%w: no confirmation received", ErrAbortedByUser)
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	if answer == "y" || answer == "yes" {
		a.logger.Info("User confirmed risky merge")
		return nil
	}
	return ErrAbortedByUser
}
