package main

import (
	"os"

	"github.com/spf13/cobra"

	"goscore/internal/app"
)

var (
	runUser     string
	runClass    string
	runMaxClass int
	runClient   string
	runClientIP string
	runCwd      string
)

func init() {
	rootCmd.AddCommand(cmdRun)

	cmdRun.Flags().StringVar(&runUser, "user", "", "User to publish for the session (defaults to the OS user)")
	cmdRun.Flags().StringVar(&runClass, "class", "", "Connection class of the session")
	cmdRun.Flags().IntVar(&runMaxClass, "max-class", 0, "Refuse to start when the class already has this many sessions")
	cmdRun.Flags().StringVar(&runClient, "client", "", "Client host name")
	cmdRun.Flags().StringVar(&runClientIP, "client-ip", "", "Client address")
	cmdRun.Flags().StringVar(&runCwd, "cwd", "", "Working directory to publish (defaults to the current one)")
}

var cmdRun = &cobra.Command{
	Use:   "run -- <command> [args...]",
	Short: "Run a command as a worker session on the scoreboard",
	Long:  "Publishes a scoreboard entry for this process, runs the command, and frees the slot when it exits. goscore exits with the command's status.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := controller().Run(cmd.Context(), app.RunParams{
			Args:       args,
			User:       runUser,
			Class:      runClass,
			MaxClass:   runMaxClass,
			ClientName: runClient,
			ClientIP:   runClientIP,
			Cwd:        runCwd,
			Stdin:      os.Stdin,
			Stdout:     cmd.OutOrStdout(),
			Stderr:     cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return exitCodeError(res.ExitCode)
		}
		return nil
	},
}
