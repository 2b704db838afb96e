// Package config loads the CLI configuration from defaults, an optional
// treemerge.yaml file, TREEMERGE_* environment variables and command-line
// flags (in ascending precedence), then validates the merged result into a
// merge.Options ready for merge.Run.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/b-rodrigues/treemerge/pkg/merge"
	"github.com/b-rodrigues/treemerge/pkg/merge/encoding"
)

const (
	EnvPrefix         = "TREEMERGE"
	DefaultConfigName = "treemerge"
)

// LoadAndValidate assembles the final configuration. rootArg is the
// positional root directory argument; flags is the command's flag set. The
// returned bool reports whether the TUI should be considered (the CLI layer
// still checks for a terminal). The returned logger is always usable, even
// on error.
func LoadAndValidate(cfgFile, rootArg string, flags *pflag.FlagSet) (merge.Options, bool, *slog.Logger, error) {
	var opts merge.Options
	v := viper.New()

	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return opts, false, tempLogger, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
		v.AddConfigPath(filepath.Join(home, "."+DefaultConfigName))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			tempLogger.Debug("No configuration file found, using defaults/env/flags")
		} else {
			used := cfgFile
			if used == "" {
				used = fmt.Sprintf("searched locations for %s.yaml", DefaultConfigName)
			}
			return opts, false, tempLogger, fmt.Errorf("error reading config file '%s': %w", used, err)
		}
	} else {
		opts.ConfigFilePath = v.ConfigFileUsed()
		tempLogger.Debug("Using configuration file", slog.String("path", opts.ConfigFilePath))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Each dashed flag is bound straight to the camelCase key used in
	// config files, so one key name flows through defaults, file, env and
	// flags alike.
	flagBindings := map[string]string{
		"output":         "output",
		"include":        "include",
		"exclude":        "exclude",
		"ext":            "ext",
		"allFiles":       "all-files",
		"splitEvery":     "split-every",
		"headerStyle":    "header-style",
		"encoding":       "encoding",
		"followSymlinks": "follow-symlinks",
		"noConfirm":      "no-confirm",
		"dryRun":         "dry-run",
		"verbose":        "verbose",
		"concurrency":    "concurrency",
		"outputFormat":   "output-format",
	}
	for key, flagName := range flagBindings {
		if flag := flags.Lookup(flagName); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return opts, false, tempLogger, fmt.Errorf("error binding flag '--%s': %w", flagName, err)
			}
		}
	}

	if err := v.Unmarshal(&opts); err != nil {
		return opts, false, tempLogger, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Boolean flag binding through viper can be shadowed by config values;
	// an explicitly set flag always wins.
	if flags.Changed("verbose") {
		opts.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Changed("all-files") {
		opts.AllFiles, _ = flags.GetBool("all-files")
	}
	if flags.Changed("follow-symlinks") {
		opts.FollowSymlinks, _ = flags.GetBool("follow-symlinks")
	}
	if flags.Changed("no-confirm") {
		opts.NoConfirm, _ = flags.GetBool("no-confirm")
	}
	if flags.Changed("dry-run") {
		opts.DryRun, _ = flags.GetBool("dry-run")
	}

	opts.RootPath = rootArg

	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logHandler)
	opts.Logger = logHandler

	tuiEnabled := v.GetBool("tuiEnabled")
	if flags.Changed("no-tui") {
		if noTui, _ := flags.GetBool("no-tui"); noTui {
			tuiEnabled = false
		}
	}
	if opts.Verbose || opts.DryRun {
		tuiEnabled = false
	}

	if err := validateAndDeriveOptions(&opts, logger); err != nil {
		return opts, tuiEnabled, logger, err
	}

	logger.Debug("Configuration loading and validation complete",
		slog.String("configFile", opts.ConfigFilePath),
		slog.String("root", opts.RootPath),
		slog.String("output", opts.OutputPath),
		slog.Bool("verbose", opts.Verbose),
	)
	return opts, tuiEnabled, logger, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output", "")
	v.SetDefault("include", []string{})
	v.SetDefault("exclude", []string{})
	v.SetDefault("ext", []string{})
	v.SetDefault("allFiles", false)
	v.SetDefault("splitEvery", 0)
	v.SetDefault("headerStyle", string(merge.DefaultHeaderStyle))
	v.SetDefault("encoding", "")
	v.SetDefault("followSymlinks", false)
	v.SetDefault("noConfirm", false)
	v.SetDefault("dryRun", false)
	v.SetDefault("verbose", false)
	v.SetDefault("concurrency", merge.DefaultConcurrency)
	v.SetDefault("outputFormat", string(merge.DefaultOutputFormat))
	v.SetDefault("tuiEnabled", true)
}

func isValidEnumValue[T ~string](value T, allowed []T) bool {
	return slices.Contains(allowed, value)
}

// validateAndDeriveOptions performs semantic validation on the merged
// options and derives the output path. Errors wrap merge.ErrConfigValidation.
func validateAndDeriveOptions(opts *merge.Options, logger *slog.Logger) error {
	if opts.RootPath == "" {
		err := fmt.Errorf("%w: root directory argument is required", merge.ErrConfigValidation)
		logger.Error(err.Error(), slog.String("key", "root"))
		return err
	}
	absRoot, err := filepath.Abs(opts.RootPath)
	if err != nil {
		err = fmt.Errorf("%w: cannot resolve root path '%s': %w", merge.ErrConfigValidation, opts.RootPath, err)
		logger.Error(err.Error(), slog.String("key", "root"))
		return err
	}
	opts.RootPath = absRoot
	info, err := os.Stat(opts.RootPath)
	if err != nil {
		if os.IsNotExist(err) {
			err = fmt.Errorf("%w: root path '%s' does not exist", merge.ErrConfigValidation, opts.RootPath)
		} else {
			err = fmt.Errorf("%w: cannot access root path '%s': %w", merge.ErrConfigValidation, opts.RootPath, err)
		}
		logger.Error(err.Error(), slog.String("key", "root"))
		return err
	}
	if !info.IsDir() {
		err = fmt.Errorf("%w: root path '%s' is not a directory", merge.ErrConfigValidation, opts.RootPath)
		logger.Error(err.Error(), slog.String("key", "root"))
		return err
	}

	if opts.OutputPath == "" {
		opts.OutputPath = filepath.Base(opts.RootPath) + merge.DefaultOutputExtension
		logger.Debug("Output path derived from root directory name", slog.String("output", opts.OutputPath))
	}

	if opts.HeaderStyle == "" {
		opts.HeaderStyle = merge.DefaultHeaderStyle
	} else if _, err := merge.ParseHeaderStyle(string(opts.HeaderStyle)); err != nil {
		err = fmt.Errorf("%w: %w", merge.ErrConfigValidation, err)
		logger.Error(err.Error(), slog.String("key", "headerStyle"))
		return err
	}

	if opts.SplitEvery < 0 {
		err := fmt.Errorf("%w: invalid value '%d' for key 'splitEvery' (flag --split-every). Must be >= 0", merge.ErrConfigValidation, opts.SplitEvery)
		logger.Error(err.Error(), slog.String("key", "splitEvery"))
		return err
	}
	if opts.Concurrency < 0 {
		err := fmt.Errorf("%w: invalid value '%d' for key 'concurrency' (flag --concurrency). Must be >= 0", merge.ErrConfigValidation, opts.Concurrency)
		logger.Error(err.Error(), slog.String("key", "concurrency"))
		return err
	}

	allowedFormats := []merge.OutputFormat{merge.OutputFormatText, merge.OutputFormatJSON}
	if !isValidEnumValue(opts.OutputFormat, allowedFormats) {
		err := fmt.Errorf("%w: invalid value '%s' for key 'outputFormat' (flag --output-format). Allowed: %v", merge.ErrConfigValidation, opts.OutputFormat, allowedFormats)
		logger.Error(err.Error(), slog.String("key", "outputFormat"))
		return err
	}

	// Unknown charset labels are rejected here, before any file is read.
	if opts.Encoding != "" && opts.EncodingHandler == nil {
		handler, err := encoding.NewCharsetHandler(opts.Encoding)
		if err != nil {
			err = fmt.Errorf("%w: %w", merge.ErrConfigValidation, err)
			logger.Error(err.Error(), slog.String("key", "encoding"), slog.String("value", opts.Encoding))
			return err
		}
		opts.EncodingHandler = handler
		logger.Debug("Source encoding configured", slog.String("encoding", handler.Name()))
	}

	return nil
}
