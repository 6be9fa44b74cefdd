package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agusx1211/loopdash/internal/store"
	"github.com/agusx1211/loopdash/internal/trace"
)

var emitCmd = &cobra.Command{
	Use:   "emit",
	Short: "Record a subagent trace event",
	Long: `Append one subagent event to an agent's trace log. Agent runners call this
(or write events.jsonl directly) to feed the tree and the dashboard.

After appending, the agent's active set and outcome summary are recomputed
from the full log. --record-hierarchy also stores the parent to children
mapping derived from the events.

Event types: spawned, progress, completed, failed.

Examples:
  loopdash emit --agent main --id sub-1 --type spawned --desc "write tests"
  loopdash emit --agent main --id sub-2 --parent sub-1 --depth 1 --type spawned
  loopdash emit --agent main --id sub-2 --type failed --error "exit status 1"`,
	RunE: runEmit,
}

func init() {
	emitCmd.Flags().String("agent", "", "Agent the subagent belongs to (required)")
	emitCmd.Flags().String("id", "", "Subagent id (required)")
	emitCmd.Flags().String("type", "", "Event type: spawned, progress, completed, failed (required)")
	emitCmd.Flags().String("parent", "", "Parent subagent id")
	emitCmd.Flags().Int("depth", 0, "Nesting depth (0 for top-level)")
	emitCmd.Flags().String("desc", "", "Task description")
	emitCmd.Flags().String("error", "", "Error message for failed events")
	emitCmd.Flags().Float64("duration", 0, "Run time in seconds for completed/failed events")
	emitCmd.Flags().String("at", "", "Event time, RFC3339 (default now)")
	emitCmd.Flags().Bool("record-hierarchy", false, "Also store the derived parent/children mapping")
	rootCmd.AddCommand(emitCmd)
}

func runEmit(cmd *cobra.Command, args []string) error {
	agentID, _ := cmd.Flags().GetString("agent")
	id, _ := cmd.Flags().GetString("id")
	typ, _ := cmd.Flags().GetString("type")
	parent, _ := cmd.Flags().GetString("parent")
	depth, _ := cmd.Flags().GetInt("depth")
	desc, _ := cmd.Flags().GetString("desc")
	errMsg, _ := cmd.Flags().GetString("error")
	duration, _ := cmd.Flags().GetFloat64("duration")
	at, _ := cmd.Flags().GetString("at")
	recordHierarchy, _ := cmd.Flags().GetBool("record-hierarchy")

	if strings.TrimSpace(agentID) == "" {
		return errAgentRequired
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("--id is required")
	}
	eventType := trace.EventType(strings.ToLower(strings.TrimSpace(typ)))
	if !eventType.Known() {
		return fmt.Errorf("unknown event type %q (valid: spawned, progress, completed, failed)", typ)
	}

	ts := time.Now().UTC()
	if at != "" {
		parsed, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return fmt.Errorf("parsing --at: %w", err)
		}
		ts = parsed
	}

	s, err := openStoreRequired()
	if err != nil {
		return err
	}

	e := trace.Event{
		SubagentID:    strings.TrimSpace(id),
		ParentAgentID: strings.TrimSpace(parent),
		Type:          eventType,
		Depth:         depth,
		Description:   desc,
		Timestamp:     ts,
		Error:         errMsg,
		DurationSecs:  duration,
	}
	if err := s.AppendEvent(agentID, e); err != nil {
		return err
	}
	if err := syncAgentState(s, agentID, recordHierarchy); err != nil {
		return fmt.Errorf("updating agent state: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s %s%s%s for %s\n", eventType, styleBoldWhite, e.SubagentID, colorReset, agentID)
	return nil
}

// syncAgentState replays the agent's whole log and rewrites the derived
// active set and summary the way a telemetry backend would report them.
func syncAgentState(s *store.Store, agentID string, recordHierarchy bool) error {
	batch, _, err := s.PollEvents(agentID, 0)
	if err != nil {
		return err
	}
	agg := trace.New(trace.WithHighlightWindow(0))
	agg.Ingest(batch.Events, nil)
	snap := agg.Snapshot()

	active := []string{}
	hierarchy := trace.Hierarchy{}
	snap.Walk(func(n *trace.Node, _ int) {
		if n.Status.Active() {
			active = append(active, n.ID)
		}
		for _, c := range n.Children {
			hierarchy[n.ID] = append(hierarchy[n.ID], c.ID)
		}
	})

	if err := s.SetActive(agentID, active); err != nil {
		return err
	}
	if err := s.SetSummary(agentID, snap.Outcomes); err != nil {
		return err
	}
	if recordHierarchy {
		return s.SetHierarchy(agentID, hierarchy)
	}
	return nil
}
