// Package merge implements the core engine: it scans a directory tree,
// selects the text files under it, and concatenates them into one or more
// output files with a header line per source file. The package is
// UI-agnostic; callers observe progress through the Hooks interface and
// inject logging via a slog.Handler.
package merge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/b-rodrigues/treemerge/pkg/merge/encoding"
	"github.com/b-rodrigues/treemerge/pkg/merge/filter"
	"github.com/b-rodrigues/treemerge/pkg/merge/language"
	"github.com/b-rodrigues/treemerge/pkg/merge/textclass"
)

// candidate is a file that passed filtering and classification.
type candidate struct {
	entry    ScanEntry
	language string
}

// skip records why a scanned file was left out.
type skip struct {
	path    string
	reason  string
	details string
}

// selection holds one worker's share of the classification results.
type selection struct {
	candidates []candidate
	skips      []skip
}

// Run executes one merge. Selection (filtering and content sniffing) runs
// on a worker pool; writing is sequential so output order is the
// deterministic scan order regardless of concurrency. The returned Report
// is valid whenever err is nil, including dry runs.
func Run(ctx context.Context, opts Options) (Report, error) {
	startTime := time.Now()

	if opts.Logger == nil {
		return Report{}, fmt.Errorf("%w: Logger (slog.Handler) must not be nil", ErrConfigValidation)
	}
	logger := slog.New(opts.Logger).With(slog.String("component", "merge"))

	hooks := opts.EventHooks
	if hooks == nil {
		hooks = &NoOpHooks{}
	}
	confirmIn := opts.ConfirmInput
	if confirmIn == nil {
		confirmIn = os.Stdin
	}
	confirmOut := opts.ConfirmOutput
	if confirmOut == nil {
		confirmOut = os.Stderr
	}

	if opts.RootPath == "" {
		return Report{}, fmt.Errorf("%w: root path is required", ErrConfigValidation)
	}
	rootAbs, err := filepath.Abs(opts.RootPath)
	if err != nil {
		return Report{}, fmt.Errorf("%w: cannot resolve root path %q: %v", ErrConfigValidation, opts.RootPath, err)
	}
	rootInfo, err := os.Stat(rootAbs)
	if err != nil {
		return Report{}, fmt.Errorf("%w: root path %q: %v", ErrConfigValidation, opts.RootPath, err)
	}
	if !rootInfo.IsDir() {
		return Report{}, fmt.Errorf("%w: root path %q is not a directory", ErrConfigValidation, opts.RootPath)
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		outputPath = filepath.Base(rootAbs) + DefaultOutputExtension
	}

	style := opts.HeaderStyle
	if style == "" {
		style = DefaultHeaderStyle
	} else if _, err := ParseHeaderStyle(string(style)); err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrConfigValidation, err)
	}

	if opts.SplitEvery < 0 {
		return Report{}, fmt.Errorf("%w: split-every must not be negative", ErrConfigValidation)
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	classifier := opts.Classifier
	if classifier == nil {
		classifier = textclass.New(opts.ExtAllowlist)
	}
	detector := opts.LanguageDetector
	if detector == nil {
		detector = language.NewEnryDetector()
	}
	encHandler := opts.EncodingHandler
	if encHandler == nil && opts.Encoding != "" {
		encHandler, err = encoding.NewCharsetHandler(opts.Encoding)
		if err != nil {
			return Report{}, fmt.Errorf("%w: %v", ErrConfigValidation, err)
		}
	}

	flt, err := filter.New(opts.IncludePatterns, opts.ExcludePatterns, opts.AllFiles, rootAbs)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrConfigValidation, err)
	}

	logger.Info("Starting merge run",
		slog.String("root", rootAbs),
		slog.String("output", outputPath),
		slog.Bool("dryRun", opts.DryRun),
		slog.Int("concurrency", concurrency),
	)

	scanner := NewScanner(rootAbs, opts.FollowSymlinks, hooks, opts.Logger)
	entries, err := scanner.Scan(ctx)
	if err != nil {
		return Report{}, err
	}

	riskReport := BuildRiskReport(entries)
	assessor := NewAssessor(opts.NoConfirm, opts.DryRun, confirmIn, confirmOut, opts.Logger)
	if err := assessor.Assess(riskReport); err != nil {
		return Report{}, err
	}

	candidates, skips, err := selectFiles(ctx, entries, flt, classifier, detector, concurrency)
	if err != nil {
		return Report{}, err
	}

	for _, s := range skips {
		if hookErr := hooks.OnFileStatusUpdate(s.path, StatusSkipped, s.reason+": "+s.details, 0); hookErr != nil {
			logger.Warn("Status hook failed", slog.String("path", s.path), slog.String("error", hookErr.Error()))
		}
	}
	for _, c := range candidates {
		if hookErr := hooks.OnFileStatusUpdate(c.entry.Path, StatusPending, "", 0); hookErr != nil {
			logger.Warn("Status hook failed", slog.String("path", c.entry.Path), slog.String("error", hookErr.Error()))
		}
	}

	if len(candidates) == 0 {
		return Report{}, ErrNoMatch
	}
	if hookErr := hooks.OnMergePlanned(len(candidates)); hookErr != nil {
		logger.Warn("Plan hook failed", slog.String("error", hookErr.Error()))
	}

	report := Report{
		Summary: ReportSummary{
			RootPath:       rootAbs,
			OutputPath:     outputPath,
			ConfigFilePath: opts.ConfigFilePath,
			EntriesScanned: len(entries),
			CandidateCount: len(candidates),
			SkippedCount:   len(skips),
			DryRun:         opts.DryRun,
			Concurrency:    concurrency,
			Timestamp:      startTime.UTC(),
		},
	}
	for _, s := range skips {
		report.SkippedFiles = append(report.SkippedFiles, SkippedInfo{Path: s.path, Reason: s.reason, Details: s.details})
	}
	var totalInput int64
	for _, c := range candidates {
		totalInput += c.entry.Size
	}
	report.Summary.TotalInputBytes = totalInput
	report.Summary.EstimatedOutputBytes = totalInput + int64(len(candidates))*headerOverheadBytes

	if opts.DryRun {
		for _, c := range candidates {
			report.MergedFiles = append(report.MergedFiles, FileInfo{
				Path:      c.entry.Path,
				SizeBytes: c.entry.Size,
				Language:  c.language,
			})
		}
		report.Summary.DurationSeconds = time.Since(startTime).Seconds()
		logger.Info("Dry run complete", slog.Int("candidates", len(candidates)))
		if hookErr := hooks.OnRunComplete(report); hookErr != nil {
			logger.Warn("Completion hook failed", slog.String("error", hookErr.Error()))
		}
		return report, nil
	}

	cw := NewChunkWriter(outputPath, opts.SplitEvery, style, encHandler, opts.Logger)
	for _, c := range candidates {
		select {
		case <-ctx.Done():
			cw.Close()
			return Report{}, ctx.Err()
		default:
		}

		fileStart := time.Now()
		hooks.OnFileStatusUpdate(c.entry.Path, StatusProcessing, "", 0)

		lines, chunkIdx, writeErr := cw.WriteFile(c.entry.Path, c.entry.AbsPath)
		if writeErr != nil {
			hooks.OnFileStatusUpdate(c.entry.Path, StatusFailed, writeErr.Error(), time.Since(fileStart))
			cw.Close()
			return Report{}, writeErr
		}
		hooks.OnFileStatusUpdate(c.entry.Path, StatusMerged, "", time.Since(fileStart))

		report.MergedFiles = append(report.MergedFiles, FileInfo{
			Path:      c.entry.Path,
			SizeBytes: c.entry.Size,
			Lines:     lines,
			Language:  c.language,
			Chunk:     chunkIdx,
		})
	}
	if err := cw.Close(); err != nil {
		return Report{}, err
	}

	report.Chunks = cw.Chunks()
	report.Summary.MergedCount = len(report.MergedFiles)
	report.Summary.ChunkCount = len(report.Chunks)
	report.Summary.LinesWritten = cw.TotalLines()
	report.Summary.DurationSeconds = time.Since(startTime).Seconds()

	logger.Info("Merge complete",
		slog.Int("merged", report.Summary.MergedCount),
		slog.Int("skipped", report.Summary.SkippedCount),
		slog.Int("chunks", report.Summary.ChunkCount),
		slog.Int64("lines", report.Summary.LinesWritten),
	)
	if hookErr := hooks.OnRunComplete(report); hookErr != nil {
		logger.Warn("Completion hook failed", slog.String("error", hookErr.Error()))
	}
	return report, nil
}

// selectFiles runs filtering and classification over all scanned files on
// a pool of workers. Results are re-sorted by relative path, so the output
// is independent of worker scheduling.
func selectFiles(ctx context.Context, entries []ScanEntry, flt *filter.Filter, classifier textclass.Classifier, detector language.Detector, concurrency int) ([]candidate, []skip, error) {
	jobs := make(chan ScanEntry)
	results := make([]selection, concurrency)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			sel := &results[slot]
			for e := range jobs {
				decision := flt.Evaluate(e.Path)
				if !decision.Include {
					sel.skips = append(sel.skips, skip{path: e.Path, reason: SkipReasonFiltered, details: decision.Reason})
					continue
				}
				res, err := classifier.Classify(e.AbsPath)
				if err != nil {
					sel.skips = append(sel.skips, skip{path: e.Path, reason: SkipReasonUnreadable, details: err.Error()})
					continue
				}
				if !res.Text {
					sel.skips = append(sel.skips, skip{path: e.Path, reason: SkipReasonNonText, details: res.Reason})
					continue
				}
				lang, _ := detector.Detect(res.Prefix, e.Path)
				sel.candidates = append(sel.candidates, candidate{entry: e, language: lang})
			}
		}(i)
	}

feed:
	for _, e := range entries {
		if !e.IsFile {
			continue
		}
		select {
		case jobs <- e:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var candidates []candidate
	var skips []skip
	for _, sel := range results {
		candidates = append(candidates, sel.candidates...)
		skips = append(skips, sel.skips...)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].entry.Path < candidates[j].entry.Path })
	sort.Slice(skips, func(i, j int) bool { return skips[i].path < skips[j].path })
	return candidates, skips, nil
}
