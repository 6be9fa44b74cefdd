package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agusx1211/loopdash/internal/config"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"cfg"},
	Short:   "Show or change loopdash settings",
	Long: `Show the global settings stored in ~/.loopdash/config.json
(or $LOOPDASH_HOME/config.json).

Keys:
  missing_dependency_policy   block, ignore or pending
  poll_interval_ms            dashboard and --watch refresh interval
  highlight_window_ms         how long new subagents stay highlighted (-1 disables)
  default_agent               agent used when --agent is omitted

Examples:
  loopdash config
  loopdash config set missing_dependency_policy pending
  loopdash config set poll_interval_ms 1000`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	policy, _ := cfg.MissingPolicy()

	out := cmd.OutOrStdout()
	printHeader(out, "Configuration")
	printField(out, "Directory", config.Dir())
	printField(out, "Missing deps", policy.String())
	printField(out, "Poll interval", cfg.PollInterval().String())
	printField(out, "Highlight", highlightLabel(cfg))
	agent := cfg.DefaultAgent
	if agent == "" {
		agent = colorDim + "(none)" + colorReset
	}
	printField(out, "Default agent", agent)
	if len(cfg.RecentAgents) > 0 {
		printHeader(out, "Recent agents")
		rows := make([][]string, 0, len(cfg.RecentAgents))
		for i, ra := range cfg.RecentAgents {
			rows = append(rows, []string{strconv.Itoa(i + 1), ra.Agent, ra.UsedAt.Local().Format("2006-01-02 15:04")})
		}
		printTable(out, []string{"#", "AGENT", "LAST USED"}, rows)
	}
	fmt.Fprintln(out)
	return nil
}

func highlightLabel(cfg *config.GlobalConfig) string {
	if d := cfg.HighlightWindow(); d > 0 {
		return d.String()
	}
	return "off"
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Set(args[0], args[1]); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s%s%s = %s\n", styleBoldWhite, args[0], colorReset, args[1])
	return nil
}
