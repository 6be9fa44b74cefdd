package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"

	"github.com/agusx1211/loopdash/internal/config"
	"github.com/agusx1211/loopdash/internal/store"
	"github.com/agusx1211/loopdash/internal/story"
)

const envProjectDir = "LOOPDASH_PROJECT_DIR"

// openStore creates a Store for LOOPDASH_PROJECT_DIR, the nearest ancestor
// holding a .loopdash directory, or the current directory, in that order.
func openStore() (*store.Store, error) {
	if projectDir := strings.TrimSpace(os.Getenv(envProjectDir)); projectDir != "" {
		return store.New(projectDir)
	}

	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	if found, err := store.FindProjectDir(dir); err == nil {
		dir = found
	}
	return store.New(dir)
}

// openStoreRequired creates a Store and checks that the project exists.
func openStoreRequired() (*store.Store, error) {
	s, err := openStore()
	if err != nil {
		return nil, err
	}
	if !s.Exists() {
		return nil, store.ErrNoProject
	}
	return s, nil
}

// projectName is the directory that holds .loopdash.
func projectName(s *store.Store) string {
	return filepath.Base(filepath.Dir(s.Root()))
}

// loadConfig reads the global config, falling back to defaults on error so a
// broken config never blocks read-only commands.
func loadConfig() *config.GlobalConfig {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%swarning:%s %v (using defaults)\n", colorYellow, colorReset, err)
		return &config.GlobalConfig{}
	}
	return cfg
}

// missingPolicy resolves --missing-deps, then the config, then the default.
func missingPolicy(cmd *cobra.Command, cfg *config.GlobalConfig) (story.MissingPolicy, error) {
	if f := cmd.Flags().Lookup("missing-deps"); f != nil && f.Changed {
		return story.ParseMissingPolicy(f.Value.String())
	}
	return cfg.MissingPolicy()
}

// resolveAgent picks the agent to follow: --agent, then the configured or
// most recent one, then the only agent with history.
func resolveAgent(cmd *cobra.Command, s *store.Store, cfg *config.GlobalConfig) (string, error) {
	if agent, _ := cmd.Flags().GetString("agent"); strings.TrimSpace(agent) != "" {
		return strings.TrimSpace(agent), nil
	}
	if agent := cfg.PreferredAgent(); agent != "" {
		return agent, nil
	}
	agents, err := s.ListAgents()
	if err != nil {
		return "", err
	}
	if len(agents) == 1 {
		return agents[0], nil
	}
	return "", nil
}

var errAgentRequired = errors.New("--agent is required")

// printHeader prints a formatted section header.
func printHeader(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s%s%s\n", styleBoldCyan, title, colorReset)
	fmt.Fprintln(w, colorDim+strings.Repeat("-", len(title)+2)+colorReset)
}

// printField prints a labeled field.
func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %s%-16s%s %s\n", colorBold, label+":", colorReset, value)
}

// printTable prints a simple table with headers and rows. Cell widths ignore
// ANSI escapes.
func printTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, colorDim+"  (none)"+colorReset)
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				if cw := ansi.StringWidth(cell); cw > widths[i] {
					widths[i] = cw
				}
			}
		}
	}

	headerLine := "  "
	for i, h := range headers {
		headerLine += fmt.Sprintf("%s%-*s%s", colorBold, widths[i]+2, h, colorReset)
	}
	fmt.Fprintln(w, headerLine)

	sepLine := "  "
	for _, wd := range widths {
		sepLine += colorDim + strings.Repeat("-", wd+2) + colorReset
	}
	fmt.Fprintln(w, sepLine)

	for _, row := range rows {
		rowLine := "  "
		for i, cell := range row {
			if i < len(widths) {
				padding := max(widths[i]-ansi.StringWidth(cell), 0)
				rowLine += cell + strings.Repeat(" ", padding+2)
			}
		}
		fmt.Fprintln(w, strings.TrimRight(rowLine, " "))
	}
}

// truncate shortens s to maxLen display cells, adding "..." if needed.
func truncate(s string, maxLen int) string {
	return ansi.Truncate(s, maxLen, "...")
}

// firstLine returns the first line of a multi-line string.
func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
