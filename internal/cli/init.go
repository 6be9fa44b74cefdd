package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agusx1211/loopdash/internal/store"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Aliases: []string{"initialize", "setup"},
	Short:   "Initialize a loopdash project",
	Long: `Initialize a loopdash project in the current directory (or --dir).
Creates .loopdash/ with an empty stories.yaml and an agents/ directory
for subagent trace logs. Running it again is safe and keeps existing stories.

Examples:
  loopdash init
  loopdash init --dir /path/to/repo`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("dir", ".", "Project directory")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving project dir: %w", err)
	}

	s, err := store.New(abs)
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	existed := s.Exists()
	if err := s.Init(); err != nil {
		return fmt.Errorf("initializing project: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	if existed {
		fmt.Fprintf(out, "  %sloopdash project already exists%s\n", styleBoldCyan, colorReset)
	} else {
		fmt.Fprintf(out, "  %sInitialized loopdash project%s\n", styleBoldGreen, colorReset)
	}
	printField(out, "Project", filepath.Base(abs))
	printField(out, "Store", s.Root())
	fmt.Fprintln(out)
	return nil
}
