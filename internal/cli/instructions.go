package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agusx1211/loopdash/pkg/protocol"
)

var instructionsCmd = &cobra.Command{
	Use:     "instructions",
	Aliases: []string{"prompt"},
	Short:   "Print the reporting instructions for an agent loop",
	Long: `Print a system prompt fragment that teaches an agent loop how to report
story progress and subagents to loopdash.

Examples:
  loopdash instructions --agent main > .loopdash/PROMPT.md`,
	Args: cobra.NoArgs,
	RunE: runInstructions,
}

func init() {
	instructionsCmd.Flags().String("agent", "", "Agent name to fill in")
	rootCmd.AddCommand(instructionsCmd)
}

func runInstructions(cmd *cobra.Command, args []string) error {
	s, err := openStoreRequired()
	if err != nil {
		return err
	}
	agentID, _ := cmd.Flags().GetString("agent")
	fmt.Fprint(cmd.OutOrStdout(), protocol.AgentInstructions(projectName(s), agentID))
	return nil
}
