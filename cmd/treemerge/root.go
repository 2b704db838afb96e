package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/b-rodrigues/treemerge/internal/cli"
	"github.com/b-rodrigues/treemerge/internal/cli/config"
	"github.com/b-rodrigues/treemerge/pkg/merge"
)

var (
	// Set at build time with -ldflags.
	version = "dev"
	commit  = "none"
	date    = "unknown"

	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "treemerge <root>",
	Short: "Merges all text files under a directory into a single output file.",
	Long: `treemerge recursively scans a directory, selects the text files under it,
and concatenates them into one output file with a header line per source
file. Binary files and common build/VCS clutter are excluded automatically.

It features:
  - Glob-based include/exclude patterns (include wins over exclude).
  - Content sniffing to keep binaries out, or a strict extension allowlist.
  - Output splitting every N lines without ever breaking a file apart.
  - A safety check with interactive confirmation for very large merges.
  - An interactive Terminal UI (TUI) for monitoring progress.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		opts, tuiEnabled, logger, err := config.LoadAndValidate(cfgFile, args[0], cmd.Flags())
		if err != nil {
			return err
		}

		// Give the TUI a moment to claim the terminal before engine output.
		if tuiEnabled && term.IsTerminal(int(os.Stderr.Fd())) && !opts.Verbose && !opts.DryRun {
			time.Sleep(100 * time.Millisecond)
		}

		return cli.Run(ctx, opts, tuiEnabled, logger, version)
	},
}

// Execute runs the root command. Cobra prints the error and exits non-zero
// when RunE fails.
func Execute() {
	rootCmd.SetVersionTemplate(`{{.Use}} version {{.Version}}` + "\n")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path (default is to search ., $HOME/.config/treemerge/)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging output (disables TUI)")

	// Output
	rootCmd.Flags().StringP("output", "o", "", "Output file path (default: <root dirname>.txt in the working directory)")
	rootCmd.Flags().Int("split-every", 0, "Start a new output chunk after this many lines (0 = never split)")
	rootCmd.Flags().String("header-style", string(merge.DefaultHeaderStyle), `Per-file header style ("plain", "hash", "underline")`)
	rootCmd.Flags().String("output-format", string(merge.DefaultOutputFormat), `Final report format ("text", "json")`)

	// Selection
	rootCmd.Flags().StringSliceP("include", "i", nil, "Glob patterns to force-include (overrides all exclusions; repeatable)")
	rootCmd.Flags().StringSliceP("exclude", "x", nil, "Glob patterns to exclude (repeatable)")
	rootCmd.Flags().StringSliceP("ext", "e", nil, "Extension allowlist; when set, only these extensions are merged and content sniffing is skipped")
	rootCmd.Flags().Bool("all-files", false, "Disable the built-in exclude list (.git, node_modules, lockfiles, ...)")

	// Traversal & safety
	rootCmd.Flags().Bool("follow-symlinks", false, "Follow symbolic links during the scan (cycles are detected)")
	rootCmd.Flags().Bool("no-confirm", false, "Proceed without asking when a risk threshold is exceeded")
	rootCmd.Flags().Bool("dry-run", false, "List the files that would be merged without writing anything")

	// Behavior
	rootCmd.Flags().Int("concurrency", merge.DefaultConcurrency, "Number of selection workers (0 for auto-detect CPU cores)")
	rootCmd.Flags().String("encoding", "", `Source charset to transcode to UTF-8 (e.g. "latin1"); default copies bytes verbatim`)
	rootCmd.Flags().Bool("no-tui", false, "Disable the interactive Terminal UI even in a TTY")
}
