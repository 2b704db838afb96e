package merge

import (
	"io"
	"log/slog"
	"time"

	"github.com/b-rodrigues/treemerge/pkg/merge/encoding"
	"github.com/b-rodrigues/treemerge/pkg/merge/language"
	"github.com/b-rodrigues/treemerge/pkg/merge/textclass"
)

// Hooks receives progress events during a run. Implementations MUST be
// thread-safe: selection events arrive concurrently from the worker pool.
type Hooks interface {
	// OnFileDiscovered fires once per filesystem entry found by the scan.
	OnFileDiscovered(path string) error
	// OnMergePlanned fires after selection with the number of files that
	// will be merged (or listed, in dry-run mode).
	OnMergePlanned(fileCount int) error
	// OnFileStatusUpdate fires whenever a file's processing state changes.
	OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error
	// OnRunComplete fires exactly once with the final report.
	OnRunComplete(report Report) error
}

// NoOpHooks is the default do-nothing Hooks implementation.
type NoOpHooks struct{}

func (*NoOpHooks) OnFileDiscovered(string) error                              { return nil }
func (*NoOpHooks) OnMergePlanned(int) error                                   { return nil }
func (*NoOpHooks) OnFileStatusUpdate(string, Status, string, time.Duration) error { return nil }
func (*NoOpHooks) OnRunComplete(Report) error                                 { return nil }

// Options holds the fully-resolved configuration for one merge run. The CLI
// layer populates it from flags/config/env; library users fill it directly.
type Options struct {
	// RootPath is the directory to merge. Must exist and be a directory.
	RootPath string `mapstructure:"root"`
	// OutputPath is the base output file. Empty derives
	// "<root dirname>.txt" in the working directory.
	OutputPath string `mapstructure:"output"`

	// IncludePatterns force-include matching paths, overriding every
	// exclusion tier.
	IncludePatterns []string `mapstructure:"include"`
	// ExcludePatterns exclude matching paths unless an include matches.
	ExcludePatterns []string `mapstructure:"exclude"`
	// AllFiles disables the built-in exclude list.
	AllFiles bool `mapstructure:"allFiles"`
	// ExtAllowlist, when non-empty, makes classification purely
	// extension-based and authoritative.
	ExtAllowlist []string `mapstructure:"ext"`

	// SplitEvery caps the line count per output chunk; 0 means a single
	// unbounded output file. A file's lines are never split across chunks.
	SplitEvery int `mapstructure:"splitEvery"`
	// HeaderStyle selects the per-file header format.
	HeaderStyle HeaderStyle `mapstructure:"headerStyle"`
	// Encoding, when set, names the source charset; file content is
	// decoded to UTF-8 while merging. Empty copies bytes verbatim.
	Encoding string `mapstructure:"encoding"`

	FollowSymlinks bool `mapstructure:"followSymlinks"`
	NoConfirm      bool `mapstructure:"noConfirm"`
	DryRun         bool `mapstructure:"dryRun"`
	Verbose        bool `mapstructure:"verbose"`

	// Concurrency is the selection worker count; 0 auto-detects CPUs.
	Concurrency int `mapstructure:"concurrency"`

	// OutputFormat controls report rendering in the CLI layer.
	OutputFormat OutputFormat `mapstructure:"outputFormat"`

	// ConfigFilePath records the loaded config file, for reporting.
	ConfigFilePath string `mapstructure:"-"`

	// EventHooks receives progress callbacks; nil gets NoOpHooks.
	EventHooks Hooks `mapstructure:"-"`
	// Logger is the logging backend. Required.
	Logger slog.Handler `mapstructure:"-"`

	// Classifier, Detector and EncodingHandler are injectable for tests;
	// nil selects the defaults (allowlist/sniff classifier, go-enry
	// detector, charset handler derived from Encoding).
	Classifier       textclass.Classifier `mapstructure:"-"`
	LanguageDetector language.Detector    `mapstructure:"-"`
	EncodingHandler  encoding.Handler     `mapstructure:"-"`

	// ConfirmInput and ConfirmOutput carry the interactive risk
	// confirmation. Defaults: os.Stdin and os.Stderr.
	ConfirmInput  io.Reader `mapstructure:"-"`
	ConfirmOutput io.Writer `mapstructure:"-"`
}
