package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agusx1211/loopdash/internal/config"
	"github.com/agusx1211/loopdash/internal/hexid"
	"github.com/agusx1211/loopdash/internal/monitor"
	"github.com/agusx1211/loopdash/internal/poll"
	"github.com/agusx1211/loopdash/internal/trace"
)

var treeCmd = &cobra.Command{
	Use:     "tree",
	Aliases: []string{"hierarchy", "subagents"},
	Short:   "Show the subagent tree of an agent",
	Long: `Rebuild the subagent hierarchy of an agent from its trace events and
print it as a tree with status, elapsed time and description.

Roots and siblings are listed newest first. Subagents started within the
highlight window are marked with *. Use --watch for a live view.

Examples:
  loopdash tree --agent main
  loopdash tree --agent main --watch
  loopdash tree --agent main --json`,
	RunE: runTree,
}

func init() {
	treeCmd.Flags().String("agent", "", "Agent whose subagents to show")
	treeCmd.Flags().Bool("watch", false, "Refresh until interrupted")
	treeCmd.Flags().Duration("interval", 0, "Refresh interval for --watch (default from config)")
	treeCmd.Flags().Bool("json", false, "Output as JSON")
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, args []string) error {
	watch, _ := cmd.Flags().GetBool("watch")
	asJSON, _ := cmd.Flags().GetBool("json")
	interval, _ := cmd.Flags().GetDuration("interval")

	s, err := openStoreRequired()
	if err != nil {
		return err
	}
	cfg := loadConfig()
	agentID, err := resolveAgent(cmd, s, cfg)
	if err != nil {
		return err
	}
	if agentID == "" {
		return errAgentRequired
	}
	rememberAgent(cfg, agentID)

	agent := monitor.NewAgent(s, agentID, trace.WithHighlightWindow(cfg.HighlightWindow()))
	out := cmd.OutOrStdout()

	render := func(context.Context) error {
		view, err := agent.Refresh()
		if err != nil {
			return err
		}
		if watch {
			// Clear screen.
			fmt.Fprint(out, "\033[2J\033[H")
		}
		if asJSON {
			return writeJSON(out, view)
		}
		printTree(out, view, time.Now())
		return nil
	}

	if !watch {
		return render(cmd.Context())
	}

	if interval <= 0 {
		interval = cfg.PollInterval()
	}
	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := poll.New(interval, render)
	p.OnError = func(err error) {
		fmt.Fprintf(os.Stderr, "%swarning:%s %v\n", colorYellow, colorReset, err)
	}
	return p.Run(ctx)
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// rememberAgent records agentID as recently watched. Failures only matter
// for the next default, so they are logged and ignored.
func rememberAgent(cfg *config.GlobalConfig, agentID string) {
	cfg.RecordRecentAgent(agentID)
	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%swarning:%s saving config: %v\n", colorYellow, colorReset, err)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTree(w io.Writer, view monitor.View, now time.Time) {
	snap := view.Snapshot
	if len(snap.Roots) == 0 {
		fmt.Fprintf(w, "No subagents recorded for %s.\n", view.AgentID)
		return
	}

	fmt.Fprintln(w, styleBoldCyan+"Subagents of "+view.AgentID+colorReset)
	fmt.Fprintln(w, colorDim+"──────────"+colorReset)

	snap.Walk(func(n *trace.Node, level int) {
		indent := ""
		for i := 0; i < level; i++ {
			indent += "  "
		}
		mark := " "
		if n.Highlighted {
			mark = styleBoldYellow + "*" + colorReset
		}
		line := fmt.Sprintf("%s%s%s (%s) [%s]", indent, mark, hexid.Short(n.ID, 12), coloredStatus(n.Status), n.Elapsed(now).Round(time.Second))
		if n.Description != "" {
			line += fmt.Sprintf(" - %q", truncate(firstLine(n.Description), 60))
		}
		fmt.Fprintln(w, line)
		if n.Status == trace.StatusFailed && n.Error != "" {
			fmt.Fprintf(w, "%s    %sError: %s%s\n", indent, colorRed, truncate(firstLine(n.Error), 80), colorReset)
		}
	})

	fmt.Fprintf(w, "\n  active %d  total %d  %scompleted %d%s  %sfailed %d%s\n",
		snap.ActiveCount, snap.TotalCount,
		colorGreen, snap.Outcomes.Completed, colorReset,
		colorRed, snap.Outcomes.Failed, colorReset)
	if view.Summary.Finished() > 0 {
		fmt.Fprintf(w, "  %sbackend: completed %d  failed %d%s\n", colorDim, view.Summary.Completed, view.Summary.Failed, colorReset)
	}
}

func coloredStatus(status trace.Status) string {
	switch status {
	case trace.StatusProgress:
		return colorYellow + string(status) + colorReset
	case trace.StatusSpawned:
		return colorBlue + string(status) + colorReset
	case trace.StatusCompleted:
		return colorGreen + string(status) + colorReset
	case trace.StatusFailed:
		return colorRed + string(status) + colorReset
	default:
		return string(status)
	}
}
