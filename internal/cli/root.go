// Package cli wires the bridge command-line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// Execute runs the CLI
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	var showVersion bool

	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Bridge - ETL migration portal",
		Long: `Bridge - ETL migration portal

Bridge serves a web portal for migrating legacy ETL definitions to
Databricks: upload exported XML, run the analyzer and transpiler through a
remote backend or a local migration tool, and validate the generated code.

Examples:
  bridge serve
  bridge serve --port 9090
  bridge sources
  bridge --version`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "bridge version "+version)
				return err
			}
			return cmd.Help()
		},
	}

	cmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Show version information")

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newSourcesCommand())

	return cmd
}
