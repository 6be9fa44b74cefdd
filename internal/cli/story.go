package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agusx1211/loopdash/internal/monitor"
	"github.com/agusx1211/loopdash/internal/store"
	"github.com/agusx1211/loopdash/internal/story"
)

var storyCmd = &cobra.Command{
	Use:   "story",
	Short: "Edit stories and the running set",
	Long: `Add stories, mark them as passing or failing, and record which story the
loop is working on right now.

Examples:
  loopdash story add auth --title "Auth API" --priority 1
  loopdash story add ui --title "Login page" --dep auth
  loopdash story start auth
  loopdash story pass auth
  loopdash story next`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var storyAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add a story",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoryAdd,
}

var storyPassCmd = &cobra.Command{
	Use:   "pass <id>",
	Short: "Mark a story as passing",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runStorySetPasses(cmd, args[0], true) },
}

var storyFailCmd = &cobra.Command{
	Use:     "fail <id>",
	Aliases: []string{"reopen"},
	Short:   "Mark a story as not passing",
	Args:    cobra.ExactArgs(1),
	RunE:    func(cmd *cobra.Command, args []string) error { return runStorySetPasses(cmd, args[0], false) },
}

var storyStartCmd = &cobra.Command{
	Use:   "start <id>",
	Short: "Add a story to the running set",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runStorySetRunning(cmd, args[0], true) },
}

var storyStopCmd = &cobra.Command{
	Use:   "stop <id>",
	Short: "Remove a story from the running set",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runStorySetRunning(cmd, args[0], false) },
}

var storyNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Print the ready story with the highest priority",
	Args:  cobra.NoArgs,
	RunE:  runStoryNext,
}

func init() {
	storyAddCmd.Flags().String("title", "", "Story title")
	storyAddCmd.Flags().StringSlice("dep", nil, "Dependency story id (repeatable or comma separated)")
	storyAddCmd.Flags().Int("priority", 0, "Priority (lower runs first)")
	storyAddCmd.Flags().String("effort", "", "Effort estimate, free form")
	storyAddCmd.Flags().Bool("passes", false, "Add the story as already passing")
	addBoardFlags(storyNextCmd)

	storyCmd.AddCommand(storyAddCmd, storyPassCmd, storyFailCmd, storyStartCmd, storyStopCmd, storyNextCmd)
	rootCmd.AddCommand(storyCmd)
}

func runStoryAdd(cmd *cobra.Command, args []string) error {
	s, err := openStoreRequired()
	if err != nil {
		return err
	}
	title, _ := cmd.Flags().GetString("title")
	deps, _ := cmd.Flags().GetStringSlice("dep")
	priority, _ := cmd.Flags().GetInt("priority")
	effort, _ := cmd.Flags().GetString("effort")
	passes, _ := cmd.Flags().GetBool("passes")

	item := story.WorkItem{
		ID:            strings.TrimSpace(args[0]),
		Title:         strings.TrimSpace(title),
		DependencyIDs: cleanIDs(deps),
		Priority:      priority,
		Effort:        strings.TrimSpace(effort),
		Passes:        passes,
	}
	if err := s.AddWorkItem(item); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added story %s%s%s\n", styleBoldWhite, item.ID, colorReset)
	return nil
}

func cleanIDs(ids []string) []string {
	var out []string
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func runStorySetPasses(cmd *cobra.Command, id string, passes bool) error {
	s, err := openStoreRequired()
	if err != nil {
		return err
	}
	if err := s.UpdateWorkItem(id, func(w *story.WorkItem) { w.Passes = passes }); err != nil {
		return err
	}
	// A passing story is no longer being worked on.
	if passes {
		if err := s.SetRunning(id, false); err != nil {
			return err
		}
	}
	state := "failing"
	if passes {
		state = "passing"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Story %s%s%s marked %s\n", styleBoldWhite, id, colorReset, state)
	return nil
}

func runStorySetRunning(cmd *cobra.Command, id string, running bool) error {
	s, err := openStoreRequired()
	if err != nil {
		return err
	}
	if running {
		if err := requireStory(s, id); err != nil {
			return err
		}
	}
	if err := s.SetRunning(id, running); err != nil {
		return err
	}
	verb := "stopped"
	if running {
		verb = "started"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Story %s%s%s %s\n", styleBoldWhite, id, colorReset, verb)
	return nil
}

func requireStory(s *store.Store, id string) error {
	items, err := s.ListWorkItems()
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.ID == id {
			return nil
		}
	}
	return fmt.Errorf("story %q: %w", id, store.ErrNotFound)
}

func runStoryNext(cmd *cobra.Command, args []string) error {
	s, err := openStoreRequired()
	if err != nil {
		return err
	}
	policy, err := missingPolicy(cmd, loadConfig())
	if err != nil {
		return err
	}
	res, err := (&monitor.Board{Source: s, Resolver: story.Resolver{MissingPolicy: policy}}).Refresh()
	if err != nil {
		return err
	}
	next, ok := res.NextReady()
	if !ok {
		return fmt.Errorf("no story is ready")
	}
	fmt.Fprintln(cmd.OutOrStdout(), next.ID)
	return nil
}
