package merge

// Defaults used when setting up configuration loading.
const (
	// DefaultConcurrency of 0 means runtime.NumCPU() selection workers.
	DefaultConcurrency = 0
	// DefaultHeaderStyle matches the original CLI default.
	DefaultHeaderStyle = HeaderHash
	// DefaultOutputFormat is the report rendering used when not overridden.
	DefaultOutputFormat = OutputFormatText
	// DefaultOutputExtension is appended to the root directory's name when
	// no output path is given.
	DefaultOutputExtension = ".txt"
)

// Risk thresholds. Fixed configuration constants, not user-tunable: when
// any is exceeded the run warns and, unless confirmation is disabled,
// requires an interactive yes.
const (
	// RiskMaxFileCount triggers above 20,000 scanned files.
	RiskMaxFileCount = 20_000
	// RiskMaxSingleFileBytes triggers at and above 200 MB for any one file.
	RiskMaxSingleFileBytes = 200 * 1024 * 1024
	// RiskMaxTotalInputBytes triggers above 4 GB of total input.
	RiskMaxTotalInputBytes = 4 * 1024 * 1024 * 1024
	// RiskMaxEstimatedOutputBytes triggers above 1 GB of estimated output.
	RiskMaxEstimatedOutputBytes = 1 * 1024 * 1024 * 1024
	// RiskMaxDepth triggers above 20 directory levels below the root.
	RiskMaxDepth = 20

	// headerOverheadBytes is the flat per-file allowance added to the
	// output size estimate. Deliberately ignores header-style differences;
	// the estimate only feeds the risk warning.
	headerOverheadBytes = 64
)

// chunkPartSeparator joins the output stem and the chunk index for second
// and later chunks: base.txt, base.part1.txt, base.part2.txt, ...
const chunkPartSeparator = ".part"

// Skip reasons surfaced in the report and Hooks messages.
const (
	SkipReasonFiltered   = "filtered"
	SkipReasonNonText    = "non_text"
	SkipReasonUnreadable = "unreadable"
)
