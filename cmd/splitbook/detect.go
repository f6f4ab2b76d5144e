package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/splitbook/internal/detect"
	"github.com/jackzampolin/splitbook/internal/output"
	"github.com/jackzampolin/splitbook/internal/preview"
)

var (
	detectLevel  int
	detectFormat string
)

var detectCmd = &cobra.Command{
	Use:   "detect <input.pdf>",
	Short: "Detect chapters and print them without splitting",
	Long: `Detect the chapters of a PDF and print them.

Bookmarks at the requested outline level are used when present; otherwise
each page is scanned for a "Chapter N" heading. Exits with status 1 when
no chapters are found.

Examples:
  splitbook detect book.pdf
  splitbook detect book.pdf -l 2
  splitbook detect book.pdf -f json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]

		format, err := output.ParseFormat(detectFormat)
		if err != nil {
			return err
		}
		opts, err := detectOptions(cmd, detectLevel)
		if err != nil {
			return err
		}
		if err := checkInput(cmd, input); err != nil {
			return err
		}

		result, err := detect.DetectFile(cmd.Context(), input, opts, logger)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if format.IsStructured() {
			if err := output.To(out, format, result); err != nil {
				return err
			}
			if len(result.Chapters) == 0 {
				preview.NoChaptersHelp(cmd.ErrOrStderr(), input)
				return errReported
			}
			return nil
		}

		if len(result.Chapters) == 0 {
			preview.NoChaptersHelp(out, input)
			return errReported
		}
		preview.RenderTable(out, input, result.Chapters)
		return nil
	},
}

func init() {
	detectCmd.Flags().IntVarP(&detectLevel, "level", "l", detect.DefaultLevel, "bookmark level treated as chapters")
	detectCmd.Flags().StringVarP(&detectFormat, "format", "f", string(output.FormatTable), "output format: table, json, or yaml")

	rootCmd.AddCommand(detectCmd)
}
