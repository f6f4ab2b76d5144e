package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/splitbook/internal/manifest"
	"github.com/jackzampolin/splitbook/internal/output"
	"github.com/jackzampolin/splitbook/internal/pdf"
)

var verifyFormat string

var verifyCmd = &cobra.Command{
	Use:   "verify <output-dir>",
	Short: "Check a split directory against its manifest",
	Long: `Load manifest.json from a split directory and check that every chapter
file exists, page ranges are contiguous, and each file holds as many
pages as its range says. Exits with status 1 when anything is off.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]

		format, err := output.ParseFormat(verifyFormat)
		if err != nil {
			return err
		}

		report, err := manifest.Verify(dir, pdf.CountPages)
		if errors.Is(err, manifest.ErrNotFound) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: No %s in %s\n", manifest.FileName, dir)
			return errReported
		}
		if err != nil {
			return err
		}
		logger.Debug("verified manifest", "dir", dir, "chapters", report.Chapters, "problems", len(report.Problems))

		out := cmd.OutOrStdout()
		if format.IsStructured() {
			if err := output.To(out, format, report); err != nil {
				return err
			}
		} else if report.OK() {
			fmt.Fprintf(out, "OK: %d chapters from %s verified in %s\n", report.Chapters, report.Source, dir)
		} else {
			fmt.Fprintf(out, "Found %d problems in %s:\n", len(report.Problems), dir)
			for _, p := range report.Problems {
				if p.File == "" {
					fmt.Fprintf(out, "  %s\n", p.Message)
					continue
				}
				fmt.Fprintf(out, "  %s: %s\n", p.File, p.Message)
			}
		}

		if !report.OK() {
			return errReported
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyFormat, "format", "f", string(output.FormatTable), "output format: table, json, or yaml")

	rootCmd.AddCommand(verifyCmd)
}
