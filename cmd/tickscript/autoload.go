package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dshills/tickscript/internal/script"
)

func autoloadCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "autoload FILE on|off",
		Short:     "Set whether a script loads when the host starts",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			name, state := args[0], args[1]
			var on bool
			switch state {
			case "on":
				on = true
			case "off":
			default:
				return fmt.Errorf("expected on or off, got %q", state)
			}

			settings := flags.settings
			names, err := newLoader(settings).Discover()
			if err != nil {
				return err
			}
			if !slices.Contains(names, name) {
				return fmt.Errorf("%w: %s", script.ErrScriptNotFound, name)
			}

			store, err := openStore(settings)
			if err != nil {
				return err
			}
			if err := store.SetAutoload(name, on); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s autoload %s\n", name, state)
			return nil
		},
	}
}
