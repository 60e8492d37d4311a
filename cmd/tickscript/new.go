package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/tickscript/internal/event"
	"github.com/dshills/tickscript/internal/logging"
	"github.com/dshills/tickscript/internal/script"
)

func newCmd(flags *globalFlags) *cobra.Command {
	var (
		meta   script.Metadata
		events []string
	)
	cmd := &cobra.Command{
		Use:   "new FILE",
		Short: "Create a script with empty event handlers",
		Example: `  tickscript new clock.lua --name Clock --author ada --event onDraw
  tickscript new chat.lua --event onChatMessageUnhandled --event onKeyUp`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemas := make([]*event.Schema, 0, len(events))
			for _, name := range events {
				s, err := event.Lookup(name)
				if err != nil {
					return err
				}
				schemas = append(schemas, s)
			}

			settings := flags.settings
			store, err := openStore(settings)
			if err != nil {
				return err
			}

			reg := script.NewRegistry(newLoader(settings), store,
				script.WithRegistryLogger(logging.FromContext(cmd.Context())))
			defer reg.Close(context.Background())

			inst, err := reg.Create(args[0], meta, schemas)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", inst.Path())
			return nil
		},
	}
	cmd.Flags().StringVar(&meta.Name, "name", "", "Display name written to the metadata header")
	cmd.Flags().StringVar(&meta.Author, "author", "", "Author written to the metadata header")
	cmd.Flags().StringArrayVar(&events, "event", nil, "Event handler to generate (repeatable)")
	return cmd
}
