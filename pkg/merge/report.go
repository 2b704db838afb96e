package merge

import "time"

// Report summarizes the result of one Run. In dry-run mode MergedFiles
// lists the candidates that would be merged and Chunks is empty.
type Report struct {
	Summary      ReportSummary `json:"summary"`
	MergedFiles  []FileInfo    `json:"mergedFiles"`
	SkippedFiles []SkippedInfo `json:"skippedFiles,omitempty"`
	Chunks       []ChunkInfo   `json:"chunks,omitempty"`
}

// ReportSummary holds the aggregate statistics of a run.
type ReportSummary struct {
	RootPath             string    `json:"rootPath"`
	OutputPath           string    `json:"outputPath"`
	ConfigFilePath       string    `json:"configFilePath,omitempty"`
	EntriesScanned       int       `json:"entriesScanned"`
	CandidateCount       int       `json:"candidateCount"`
	MergedCount          int       `json:"mergedCount"`
	SkippedCount         int       `json:"skippedCount"`
	ChunkCount           int       `json:"chunkCount"`
	TotalInputBytes      int64     `json:"totalInputBytes"`
	EstimatedOutputBytes int64     `json:"estimatedOutputBytes"`
	LinesWritten         int64     `json:"linesWritten"`
	DryRun               bool      `json:"dryRun"`
	Concurrency          int       `json:"concurrency"`
	DurationSeconds      float64   `json:"durationSeconds"`
	Timestamp            time.Time `json:"timestamp"`
}

// FileInfo details one selected file.
type FileInfo struct {
	// Path is root-relative with forward slashes.
	Path      string `json:"path"`
	SizeBytes int64  `json:"sizeBytes"`
	// Lines is the content line count written; 0 until merged (dry-run).
	Lines    int    `json:"lines,omitempty"`
	Language string `json:"language,omitempty"`
	// Chunk is the index of the chunk the file landed in.
	Chunk int `json:"chunk"`
}

// SkippedInfo details one file rejected during selection.
type SkippedInfo struct {
	Path    string `json:"path"`
	Reason  string `json:"reason"`
	Details string `json:"details,omitempty"`
}

// ChunkInfo describes one output file produced by the writer.
type ChunkInfo struct {
	// Index is 0 for the base chunk, then 1, 2, ...
	Index int    `json:"index"`
	Path  string `json:"path"`
	Files int    `json:"files"`
	Lines int    `json:"lines"`
	Bytes int64  `json:"bytes"`
}
