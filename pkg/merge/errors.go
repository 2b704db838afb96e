package merge

import "errors"

// Error categories returned by Run. Callers check them with errors.Is;
// wrapped messages carry the offending path or pattern.
var (
	// ErrConfigValidation covers invalid Options: missing or non-directory
	// root, bad enum values, unresolvable output path. Reported before any
	// traversal or IO.
	ErrConfigValidation = errors.New("invalid configuration options provided")

	// ErrScan indicates the directory walk itself failed (the root became
	// unreadable mid-run, for instance). Individual unreadable entries are
	// skipped silently and do not raise it.
	ErrScan = errors.New("directory scan failed")

	// ErrAbortedByUser is returned when a risk threshold was exceeded and
	// interactive confirmation was declined (or the input stream ended).
	ErrAbortedByUser = errors.New("aborted by user")

	// ErrNoMatch is returned when filtering and classification produced no
	// candidate files.
	ErrNoMatch = errors.New("no text files matched the merge criteria")

	// ErrReadFailed indicates a source file could not be read during the
	// merge phase. Fatal: the run stops immediately.
	ErrReadFailed = errors.New("failed to read file")

	// ErrWriteFailed indicates an output chunk could not be created or
	// written. Fatal: the run stops immediately, the current chunk is left
	// as-is on disk.
	ErrWriteFailed = errors.New("failed to write output file")
)
