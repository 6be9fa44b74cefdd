package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agusx1211/loopdash/internal/dashboard"
)

var dashCmd = &cobra.Command{
	Use:     "dash",
	Aliases: []string{"dashboard", "watch"},
	Short:   "Launch the live dashboard",
	Long: `Open the terminal dashboard: stories by dependency layer on the left, the
subagent tree of an agent on the right. Both refresh every poll interval.

Without --agent the configured default agent, the most recently watched one,
or the only agent with history is used. With none of those the dashboard
shows stories only.

Keys: q quit, r refresh now, c clear the agent's history, j/k scroll.

Examples:
  loopdash dash
  loopdash dash --agent main --interval 500ms`,
	RunE: runDash,
}

func init() {
	addDashFlags(dashCmd)
	addBoardFlags(dashCmd)
	rootCmd.AddCommand(dashCmd)
}

func addDashFlags(cmd *cobra.Command) {
	cmd.Flags().String("agent", "", "Agent whose subagents to show")
	cmd.Flags().Duration("interval", 0, "Refresh interval (default from config)")
}

func runDash(cmd *cobra.Command, args []string) error {
	s, err := openStoreRequired()
	if err != nil {
		return err
	}
	cfg := loadConfig()
	policy, err := missingPolicy(cmd, cfg)
	if err != nil {
		return err
	}
	agentID, err := resolveAgent(cmd, s, cfg)
	if err != nil {
		return err
	}
	if agentID != "" {
		rememberAgent(cfg, agentID)
	}

	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		interval = cfg.PollInterval()
	}

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = dashboard.Run(ctx, dashboard.RunConfig{
		Work:            s,
		Events:          s,
		ProjectName:     projectName(s),
		AgentID:         agentID,
		Interval:        interval,
		HighlightWindow: cfg.HighlightWindow(),
		MissingPolicy:   policy,
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
