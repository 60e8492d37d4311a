package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/dshills/tickscript/internal/host"
	"github.com/dshills/tickscript/internal/logging"
)

const keyCommand = "/key "

func runCmd(flags *globalFlags) *cobra.Command {
	var sender string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the host loop until interrupted",
		Long: `Run discovers the scripts, loads those marked for autoload and ticks until
SIGINT or SIGTERM. Each stdin line is a chat message; "/key NAME" taps a key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := flags.settings
			logger := logging.FromContext(cmd.Context())

			out := cmd.OutOrStdout()
			var (
				app  *host.App
				last host.Frame
				err  error
			)
			app, err = host.New(settings,
				host.WithLogger(logger),
				host.WithFrameHandler(func(f host.Frame) {
					for _, line := range app.Chat().Outbox() {
						fmt.Fprintf(out, "> %s\n", line)
					}
					if !cmp.Equal(f, last) {
						f.Render(out)
						last = f
					}
				}),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go readInput(ctx, cmd.InOrStdin(), app, sender)

			runErr := app.Run(ctx)
			if err := app.Close(context.Background()); err != nil && runErr == nil {
				runErr = err
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&sender, "sender", defaultSender(), "Name used for chat lines read from stdin")
	return cmd
}

// readInput feeds stdin lines to the host until ctx is done or input ends.
func readInput(ctx context.Context, r io.Reader, app *host.App, sender string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if name, ok := strings.CutPrefix(line, keyCommand); ok {
			if err := app.Keys().TapName(strings.TrimSpace(name)); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			continue
		}
		app.Chat().Say(0, sender, line)
	}
}

func defaultSender() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "you"
}
