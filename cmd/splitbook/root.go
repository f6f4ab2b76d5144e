package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/splitbook/internal/config"
	"github.com/jackzampolin/splitbook/internal/detect"
	"github.com/jackzampolin/splitbook/internal/home"
	"github.com/jackzampolin/splitbook/version"
)

// skipConfig marks commands that must run even when the config is broken.
const skipConfig = "skip-config"

// errReported is returned by commands that have already printed why they failed.
var errReported = errors.New("failure already reported")

var (
	cfgFile string
	homeDir string
	verbose bool

	// Set by the root command before any subcommand runs.
	appConfig *config.Config
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "splitbook",
	Short: "Split a PDF book into one PDF per chapter",
	Long: `Splitbook finds the chapters of a PDF book and writes each one to its
own PDF file, alongside a manifest.json describing the split.

Chapters come from the PDF's bookmarks (table of contents) at the
requested outline level. Books without usable bookmarks fall back to
scanning each page for a "Chapter N" heading.

Examples:
  splitbook detect book.pdf             # Show what would be split
  splitbook split book.pdf              # Preview, confirm, and split into ./book/
  splitbook split book.pdf -l 2 -y      # Split at sections without asking
  splitbook verify book/                # Check a split directory`,
	Version:       version.GitRelease,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipConfig] != "" {
			logger = newLogger(cmd, slog.LevelInfo)
			appConfig = config.DefaultConfig()
			return nil
		}

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		mgr, err := config.NewManager(cfgFile, h.Path())
		if err != nil {
			return err
		}
		appConfig = mgr.Get()

		level, err := appConfig.LogLevel()
		if err != nil {
			return err
		}
		if verbose {
			level = slog.LevelDebug
		}
		logger = newLogger(cmd, level)
		logger.Debug("configuration loaded", "file", mgr.ConfigFile(), "home", h.Path())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.splitbook/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "splitbook home directory (default: $SPLITBOOK_HOME or ~/.splitbook)",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging",
	)

	rootCmd.AddCommand(versionCmd)
}

func newLogger(cmd *cobra.Command, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	}))
}

// checkInput reports a missing input file and warns about a non-PDF extension.
func checkInput(cmd *cobra.Command, input string) error {
	info, err := os.Stat(input)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: File not found: %s\n", input)
			return errReported
		}
		return fmt.Errorf("failed to stat input: %w", err)
	}
	if info.IsDir() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: Not a file: %s\n", input)
		return errReported
	}
	if !strings.EqualFold(filepath.Ext(input), ".pdf") {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: File does not have .pdf extension: %s\n", input)
	}
	return nil
}

// detectOptions merges the --level flag over the configured detect options.
func detectOptions(cmd *cobra.Command, level int) (detect.Options, error) {
	opts := appConfig.DetectOptions()
	if cmd.Flags().Changed("level") {
		if level < 1 {
			return opts, fmt.Errorf("%w: got %d", detect.ErrInvalidLevel, level)
		}
		opts.Level = level
	}
	return opts, nil
}
