package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/splitbook/internal/detect"
	"github.com/jackzampolin/splitbook/internal/manifest"
	"github.com/jackzampolin/splitbook/internal/pdf"
	"github.com/jackzampolin/splitbook/internal/preview"
	"github.com/jackzampolin/splitbook/internal/split"
)

var (
	splitOutput string
	splitLevel  int
	splitYes    bool
)

var splitCmd = &cobra.Command{
	Use:   "split <input.pdf>",
	Short: "Split a PDF into one file per chapter",
	Long: `Detect the chapters of a PDF, show them, and after confirmation write
each chapter to its own PDF plus a manifest.json.

Files are named NN_Title.pdf in chapter order. The output directory
defaults to the input path without its extension and is created if
needed. Declining the prompt exits cleanly without writing anything.

Examples:
  splitbook split book.pdf
  splitbook split book.pdf -o chapters/
  splitbook split book.pdf -l 2 --yes`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		input := args[0]
		out := cmd.OutOrStdout()

		opts, err := detectOptions(cmd, splitLevel)
		if err != nil {
			return err
		}
		if err := checkInput(cmd, input); err != nil {
			return err
		}

		doc, err := pdf.Open(input)
		if err != nil {
			return err
		}
		defer doc.Close()

		result, err := detect.New(opts, logger).Detect(ctx, doc)
		if err != nil {
			return err
		}
		if len(result.Chapters) == 0 {
			preview.NoChaptersHelp(out, input)
			return errReported
		}

		outputDir := splitOutput
		if outputDir == "" {
			outputDir = defaultOutputDir(input)
		}

		preview.RenderTable(out, input, result.Chapters)

		if !splitYes && !preview.ConfirmContext(ctx, cmd.InOrStdin(), out, "Proceed with split? [Y/n]: ") {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}

		fmt.Fprintf(out, "\nSplitting to %s/\n\n", strings.TrimSuffix(outputDir, string(filepath.Separator)))

		splitOpts := appConfig.SplitOptions()
		splitOpts.Progress = func(path string) {
			fmt.Fprintf(out, "  Created: %s\n", filepath.Base(path))
		}
		paths, err := split.New(splitOpts, logger).Split(ctx, doc, filepath.Base(input), result.Chapters, outputDir)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "\n  Manifest: %s\n", manifest.Path(outputDir))
		fmt.Fprintf(out, "\nDone! %d chapters created.\n", len(paths))
		return nil
	},
}

// defaultOutputDir is the input path without its extension. An input
// with no extension gets a "_chapters" suffix so the directory does not
// collide with the file itself.
func defaultOutputDir(input string) string {
	dir := strings.TrimSuffix(input, filepath.Ext(input))
	if dir == input {
		dir += "_chapters"
	}
	return dir
}

func init() {
	splitCmd.Flags().StringVarP(&splitOutput, "output", "o", "", "output directory (default: input path without extension)")
	splitCmd.Flags().IntVarP(&splitLevel, "level", "l", detect.DefaultLevel, "bookmark level treated as chapters")
	splitCmd.Flags().BoolVarP(&splitYes, "yes", "y", false, "skip the confirmation prompt")

	rootCmd.AddCommand(splitCmd)
}
