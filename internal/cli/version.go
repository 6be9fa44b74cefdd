package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agusx1211/loopdash/internal/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bi := buildinfo.Current()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(cmd.OutOrStdout(), bi)
		}
		fmt.Fprintln(cmd.OutOrStdout(), bi.String())
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("json", false, "Output as JSON")
	rootCmd.AddCommand(versionCmd)
}
