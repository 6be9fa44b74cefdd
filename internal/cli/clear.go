package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the trace history of an agent",
	Long: `Remove every recorded subagent event, hierarchy and summary for an agent.
Stories are not touched.

Examples:
  loopdash clear --agent main`,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().String("agent", "", "Agent whose history to delete")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	s, err := openStoreRequired()
	if err != nil {
		return err
	}
	agentID, _ := cmd.Flags().GetString("agent")
	if agentID == "" {
		return errAgentRequired
	}
	if err := s.ClearAgent(agentID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared history for %s%s%s\n", styleBoldWhite, agentID, colorReset)
	return nil
}
