package cli

import (
	"fmt"
	"log/slog"

	"jackautoplug/converge"
	"jackautoplug/daemon"
	"jackautoplug/internal/ui"

	"github.com/spf13/cobra"
)

func checkCmd(flags *connFlags, open daemon.Opener) *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Show the state of the desired connections without changing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve()
			if err != nil {
				return err
			}
			pairs, err := cfg.Pairs()
			if err != nil {
				return err
			}

			rt, err := open(cfg.Name()+"-check", cfg.StartServer)
			if err != nil {
				return fmt.Errorf("open graph runtime: %w", err)
			}
			defer func() {
				if err := rt.Close(); err != nil {
					slog.Warn("close graph runtime", "err", err)
				}
			}()

			states := converge.New(pairs).Inspect(rt)

			ui.ConfigureColor(noColor)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderStates(states))

			connected := 0
			for _, st := range states {
				if st.Connected {
					connected++
				}
			}
			if connected == len(states) {
				fmt.Fprintln(out, ui.SuccessMsg("%d of %d connections present", connected, len(states)))
			} else {
				fmt.Fprintln(out, ui.WarnMsg("%d of %d connections present", connected, len(states)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	return cmd
}

func renderStates(states []converge.PairState) string {
	rows := make([][]string, 0, len(states))
	for _, st := range states {
		var state string
		switch {
		case st.Err != nil:
			state = ui.Error("error: " + st.Err.Error())
		case st.Connected:
			state = ui.Success("connected")
		case st.SourceExists && st.DestinationExists:
			state = ui.Warn("not connected")
		default:
			state = ui.Muted("waiting for ports")
		}
		rows = append(rows, []string{
			st.Pair.From,
			ui.Present(st.SourceExists),
			st.Pair.To,
			ui.Present(st.DestinationExists),
			state,
		})
	}
	return ui.Table([]string{"FROM", "", "TO", "", "STATE"}, rows)
}
