package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lakeops/bridge/internal/catalog"
)

// newSourcesCommand creates the sources subcommand
func newSourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the supported source technologies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load(os.Getenv("BRIDGE_CATALOG_FILE"))
			if err != nil {
				return fmt.Errorf("failed to load source catalog: %w", err)
			}
			for _, label := range cat.Labels() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), label); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
