package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/splitbook/internal/config"
	"github.com/jackzampolin/splitbook/internal/home"
	"github.com/jackzampolin/splitbook/internal/output"
)

var (
	configForce  bool
	configFormat string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage splitbook configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Long: `Write the default configuration to --config, or to config.yaml in the
splitbook home directory. An existing file is left alone unless --force
is given.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			_, err := os.Stat(cfgFile)
			return writeDefaultConfig(cmd, cfgFile, err == nil)
		}

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		return writeDefaultConfig(cmd, h.ConfigPath(), h.ConfigExists())
	},
}

func writeDefaultConfig(cmd *cobra.Command, path string, exists bool) error {
	if exists && !configForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}
	if err := config.WriteDefault(path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", path)
	return nil
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging defaults, the config file, and
SPLITBOOK_* environment variables.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(configFormat)
		if err != nil {
			return err
		}
		if !format.IsStructured() {
			format = output.FormatYAML
		}
		return output.To(cmd.OutOrStdout(), format, appConfig)
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing config file")
	configShowCmd.Flags().StringVarP(&configFormat, "format", "f", string(output.FormatYAML), "output format: yaml or json")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
