package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agusx1211/loopdash/internal/monitor"
	"github.com/agusx1211/loopdash/internal/story"
)

var storiesCmd = &cobra.Command{
	Use:     "stories",
	Aliases: []string{"board", "layers"},
	Short:   "Show stories by dependency layer",
	Long: `Resolve the stories in .loopdash/stories.yaml against the running set
and print them layer by layer with their status.

A story is done when it passes, running while the loop works on it, blocked
while a known dependency has not passed, ready when every dependency passed,
and otherwise pending. Dependency cycles are reported and their members are
listed in a final unordered layer.

--missing-deps decides what an unknown dependency id means:
  block    the dependency is unmet (default)
  ignore   the dependency is treated as satisfied
  pending  the story stays pending

Examples:
  loopdash stories
  loopdash stories --missing-deps ignore
  loopdash stories --json`,
	RunE: runStories,
}

func init() {
	addBoardFlags(storiesCmd)
	rootCmd.AddCommand(storiesCmd)
}

func addBoardFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "Output as JSON")
	cmd.Flags().String("missing-deps", "", "Unknown dependency ids: block, ignore or pending")
}

func runStories(cmd *cobra.Command, args []string) error {
	s, err := openStoreRequired()
	if err != nil {
		return err
	}
	cfg := loadConfig()
	policy, err := missingPolicy(cmd, cfg)
	if err != nil {
		return err
	}

	board := &monitor.Board{Source: s, Resolver: story.Resolver{MissingPolicy: policy}}
	res, err := board.Refresh()
	if err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		return writeBoardJSON(cmd.OutOrStdout(), res)
	}
	printBoard(cmd.OutOrStdout(), res)
	return nil
}

type boardJSON struct {
	story.Result
	Counts map[string]int `json:"counts"`
	Next   string         `json:"next,omitempty"`
}

func writeBoardJSON(w io.Writer, res story.Result) error {
	out := boardJSON{Result: res, Counts: make(map[string]int)}
	for st, n := range res.Counts() {
		out.Counts[st.String()] = n
	}
	if next, ok := res.NextReady(); ok {
		out.Next = next.ID
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func storyColor(st story.Status) string {
	switch st {
	case story.StatusDone:
		return colorGreen
	case story.StatusRunning:
		return colorBlue
	case story.StatusReady:
		return colorCyan
	case story.StatusBlocked:
		return colorRed
	default:
		return colorDim
	}
}

func storyBadge(st story.Status) string {
	return fmt.Sprintf("%s[%s]%s", storyColor(st), st, colorReset)
}

func printBoard(w io.Writer, res story.Result) {
	if len(res.Layers) == 0 {
		fmt.Fprintln(w, "No stories found.")
		return
	}

	if len(res.Cycle) > 0 {
		fmt.Fprintf(w, "%sWarning: dependency cycle: %s%s\n", styleBoldYellow, res.Cycle, colorReset)
	}

	for _, layer := range res.Layers {
		title := fmt.Sprintf("Layer %d", layer.Index+1)
		if layer.Overflow {
			title = "Unordered (cycle)"
		}
		printHeader(w, title)

		rows := make([][]string, 0, len(layer.Items))
		for _, it := range layer.Items {
			deps := strings.Join(it.DependencyIDs, ", ")
			if missing := res.Graph.Missing(it.ID); len(missing) > 0 {
				deps += colorRed + " (unknown: " + strings.Join(missing, ", ") + ")" + colorReset
			}
			rows = append(rows, []string{
				storyBadge(res.Statuses[it.ID]),
				it.ID,
				truncate(firstLine(it.Title), 50),
				deps,
			})
		}
		printTable(w, []string{"STATUS", "ID", "TITLE", "DEPENDS ON"}, rows)
	}

	counts := res.Counts()
	var parts []string
	for _, st := range story.AllStatuses() {
		parts = append(parts, fmt.Sprintf("%s%d %s%s", storyColor(st), counts[st], st, colorReset))
	}
	fmt.Fprintf(w, "\n  %s\n", strings.Join(parts, "  "))
	if next, ok := res.NextReady(); ok {
		fmt.Fprintf(w, "  %sNext:%s %s\n", colorBold, colorReset, next.ID)
	}
}
