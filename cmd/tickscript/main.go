// Package main is the entry point for the tickscript host.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/tickscript/internal/config"
	"github.com/dshills/tickscript/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	scriptsDir string
	logLevel   string

	// settings is resolved once before any command runs.
	settings *config.Settings
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "tickscript",
		Short:         "Run sandboxed Lua scripts inside a tick loop",
		Long:          "tickscript watches a directory of Lua scripts, loads them into isolated sandboxes and feeds them host events every tick.",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings(flags)
			if err != nil {
				return err
			}
			flags.settings = settings

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(logging.WithContext(ctx, newLogger(settings)))
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Path to a TOML or YAML configuration file")
	pf.StringVarP(&flags.scriptsDir, "scripts", "s", "", "Script directory (overrides configuration)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(runCmd(flags))
	root.AddCommand(newCmd(flags))
	root.AddCommand(listCmd(flags))
	root.AddCommand(autoloadCmd(flags))
	return root
}
