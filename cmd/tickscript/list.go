package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/tickscript/internal/script"
)

func listCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scripts with their metadata and autoload flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := flags.settings
			store, err := openStore(settings)
			if err != nil {
				return err
			}
			loader := newLoader(settings)
			names, err := loader.Discover()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tNAME\tAUTHOR\tAUTOLOAD\tSELECTED")
			for _, name := range names {
				inst := script.NewInstance(loader.Path(name))
				if err := inst.LoadContents(); err != nil {
					return err
				}
				meta := inst.Metadata()
				selected := ""
				if store.Selected() == name {
					selected = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n",
					name, meta.Name, meta.Author, store.Autoload(name), selected)
			}
			return tw.Flush()
		},
	}
}
