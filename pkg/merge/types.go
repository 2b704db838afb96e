package merge

import "fmt"

// Status is the processing state of a file as reported through Hooks.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusMerged     Status = "merged"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

// HeaderStyle selects the per-file header written before each merged file.
type HeaderStyle string

const (
	// HeaderPlain writes a single ">>> path" line.
	HeaderPlain HeaderStyle = "plain"
	// HeaderHash writes a single "########## path" line.
	HeaderHash HeaderStyle = "hash"
	// HeaderUnderline writes the path followed by a line of "=" matching
	// its display length.
	HeaderUnderline HeaderStyle = "underline"
)

// ParseHeaderStyle validates a user-supplied style name.
func ParseHeaderStyle(s string) (HeaderStyle, error) {
	switch HeaderStyle(s) {
	case HeaderPlain, HeaderHash, HeaderUnderline:
		return HeaderStyle(s), nil
	default:
		return "", fmt.Errorf("invalid header style %q (allowed: plain, hash, underline)", s)
	}
}

// headerLines is the number of lines a header contributes to the chunk's
// line budget. The blank separator line after a header is not budgeted.
func (h HeaderStyle) headerLines() int {
	if h == HeaderUnderline {
		return 2
	}
	return 1
}

// OutputFormat selects how the final (or dry-run) report is rendered.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)
