package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

var (
	daemonForceRestart bool
	stopForce          bool
)

func init() {
	rootCmd.AddCommand(cmdDaemon, cmdStop)
	cmdDaemon.Flags().BoolVarP(&daemonForceRestart, "force", "f", false, "Restart the daemon if it is already running")
	cmdStop.Flags().BoolVarP(&stopForce, "force", "f", false, "Send SIGKILL if the daemon ignores SIGTERM")
}

var cmdDaemon = &cobra.Command{
	Use:   "daemon",
	Short: "Own the scoreboard and reap dead slots until interrupted",
	Long: `Runs the standalone scoreboard owner in the foreground. The scoreboard is
recreated empty on start, stale slots are reaped on an interval, and the file
is removed on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := controller()
		out := cmd.OutOrStdout()
		status, err := ctrl.Status()
		if err != nil {
			return fmt.Errorf("check daemon: %w", err)
		}
		if status.Running {
			if !daemonForceRestart {
				if status.PID != 0 {
					fmt.Fprintf(out, "Daemon is already running (pid %d). Stop it or re-run with --force.\n", status.PID)
				} else {
					fmt.Fprintln(out, "Daemon is already running. Stop it or re-run with --force.")
				}
				return nil
			}
			fmt.Fprintln(out, "Stopping existing daemon process...")
			if err := ctrl.StopDaemon(true); err != nil {
				return err
			}
		}

		h, err := ctrl.StartDaemon()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Daemon owns %s\n", h.Path())
		runSpin := spinner.New(spinner.CharSets[21], 120*time.Millisecond, spinner.WithWriter(out))
		runSpin.Suffix = " Running..."
		runSpin.Start()

		sigc := make(chan os.Signal, 2)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		select {
		case <-sigc:
		case <-cmd.Context().Done():
		}
		runSpin.Stop()
		return h.Close()
	},
}

var cmdStop = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := controller().StopDaemon(stopForce); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped")
		return nil
	},
}
