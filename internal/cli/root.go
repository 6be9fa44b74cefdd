package cli

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/agusx1211/loopdash/internal/buildinfo"
	"github.com/agusx1211/loopdash/internal/debug"
)

const (
	// ANSI color codes
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"

	// Combined styles
	styleBoldCyan   = "\033[1;36m"
	styleBoldGreen  = "\033[1;32m"
	styleBoldYellow = "\033[1;33m"
	styleBoldRed    = "\033[1;31m"
	styleBoldWhite  = "\033[1;37m"
)

var rootCmd = &cobra.Command{
	Use:   "loopdash",
	Short: "Live dashboard for autonomous agent loops",
	Long: colorBold + `loopdash` + colorReset + ` v` + buildinfo.Current().Version + `

  Watch an autonomous agent loop work through its stories.
  loopdash orders stories into dependency layers, reports cycles,
  classifies each story as done, running, ready, blocked or pending,
  and rebuilds the live tree of subagents from their trace events.

` + colorBold + `Getting Started:` + colorReset + `
  loopdash init                         Create .loopdash/ here
  loopdash story add auth --title "Auth API"
  loopdash story add ui --dep auth      Declare a dependency
  loopdash stories                      Show layers and statuses
  loopdash tree --agent main --watch    Follow subagents of an agent
  loopdash                              Launch the dashboard`,

	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return cmd.Help()
		}
		if !s.Exists() {
			fmt.Println(styleBoldYellow + "No loopdash project found in this directory." + colorReset)
			fmt.Println("Run " + styleBoldWhite + "loopdash init" + colorReset + " to create one.")
			return nil
		}
		if isatty.IsTerminal(os.Stdout.Fd()) {
			return runDash(cmd, args)
		}
		return runStories(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.PersistentFlags().Bool("debug", false, "Enable verbose debug logging to ~/.loopdash/debug/")
	addDashFlags(rootCmd)
	addBoardFlags(rootCmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		debugFlag, _ := cmd.Flags().GetBool("debug")
		if !debugFlag && !debug.ShouldEnableFromEnv() {
			return nil
		}
		logPath, err := debug.Init()
		if err != nil {
			return fmt.Errorf("initializing debug logger: %w", err)
		}
		fmt.Fprintf(os.Stderr, "%s[debug]%s logging to %s\n", colorDim, colorReset, logPath)
		bi := buildinfo.Current()
		debug.LogKV("cli", "loopdash starting",
			"version", bi.Version,
			"commit", bi.CommitHash,
			"build_date", bi.BuildDate,
			"pid", os.Getpid(),
			"command", cmd.Name(),
			"args", args,
		)
		return nil
	}
}

// Execute runs the root command.
func Execute() {
	defer debug.Close()
	if err := rootCmd.Execute(); err != nil {
		debug.Logf("cli", "exit with error: %v", err)
		fmt.Fprintf(os.Stderr, "%sError: %s%s\n", colorRed, err, colorReset)
		debug.Close()
		os.Exit(1)
	}
	debug.Log("cli", "exit success")
}
