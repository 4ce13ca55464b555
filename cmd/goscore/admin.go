package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"goscore/internal/app"
)

var (
	resetYes   bool
	resetForce bool
)

func init() {
	rootCmd.AddCommand(cmdReap, cmdReset, cmdDump)
	cmdReset.Flags().BoolVarP(&resetYes, "yes", "y", false, "Confirm deleting the scoreboard file")
	cmdReset.Flags().BoolVar(&resetForce, "force", false, "Delete even while the daemon owns the scoreboard")
}

var cmdReap = &cobra.Command{
	Use:   "reap",
	Short: "Free slots whose worker process no longer exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := controller().Reap()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reaped %d stale slot(s)\n", n)
		return nil
	},
}

var cmdReset = &cobra.Command{
	Use:   "reset",
	Short: "Delete the scoreboard file",
	Long:  "Removes the scoreboard file. Workers that still hold it open keep writing to the unlinked file until they restart. Requires --yes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := controller().Reset(app.ResetParams{Confirmed: resetYes, Force: resetForce}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Scoreboard deleted")
		return nil
	},
}

var cmdDump = &cobra.Command{
	Use:   "dump <file>",
	Short: "Write a JSON snapshot of the live sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := controller().Dump(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d session(s) to %s\n", n, args[0])
		return nil
	},
}
