package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cmdStatus)
}

// `goscore status` reports the scoreboard header, slot usage and the daemon.
// A missing scoreboard is reported, not treated as an error.
var cmdStatus = &cobra.Command{
	Use:   "status",
	Short: "Show scoreboard and daemon state",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := controller().Inspect()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !st.Exists {
			fmt.Fprintf(out, "scoreboard: %s (%s, missing)\n", st.Path, st.RunMode)
		} else {
			fmt.Fprintf(out, "scoreboard: %s (%s)\n", st.Path, st.RunMode)
			if st.OwnerPID > 0 {
				fmt.Fprintf(out, "owner: pid %d\n", st.OwnerPID)
			} else {
				fmt.Fprintln(out, "owner: none")
			}
			fmt.Fprintf(out, "slots: %d used, %d live, %d free\n", st.Slots, st.Live, st.Free())
		}
		switch {
		case st.Daemon.Running && st.Daemon.PID > 0:
			fmt.Fprintf(out, "daemon: running (pid %d)\n", st.Daemon.PID)
		case st.Daemon.Running:
			fmt.Fprintln(out, "daemon: running")
		default:
			fmt.Fprintln(out, "daemon: not running")
		}
		return nil
	},
}
