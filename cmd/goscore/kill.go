package main

import (
	"fmt"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"goscore/internal/app"
)

var (
	killFilters filterFlags
	killAll     bool
	killSignal  string
)

func init() {
	rootCmd.AddCommand(cmdKill)
	killFilters.register(cmdKill)
	cmdKill.Flags().BoolVar(&killAll, "all", false, "Signal every session that matches the selector")
	cmdKill.Flags().StringVarP(&killSignal, "signal", "s", "TERM", "Signal name to send (TERM, HUP, KILL, ...)")
}

var cmdKill = &cobra.Command{
	Use:   "kill",
	Short: "Signal the workers behind matching sessions",
	Long:  "Selects sessions via the same filters as `who` and signals their worker processes. Slots of workers that are already gone are left for `reap`.",
	RunE: func(cmd *cobra.Command, args []string) error {
		sig, err := parseSignal(killSignal)
		if err != nil {
			return err
		}
		res, err := controller().Kill(cmd.Context(), app.KillParams{
			Filters:         killFilters.filters(),
			AllowAll:        killAll,
			RequireSelector: true,
			Signal:          sig,
		})
		out := cmd.OutOrStdout()
		if res.Message != "" {
			fmt.Fprintln(out, res.Message)
		}
		for _, event := range res.Events {
			user := dash(event.Session.User)
			switch event.Kind {
			case "success":
				fmt.Fprintf(out, "Signalled pid=%d user=%s cmd=%s\n", event.Session.PID, user, dash(event.Command))
			case "kill_failure":
				fmt.Fprintf(out, "Failed to signal pid=%d user=%s: %v\n", event.Session.PID, user, event.Err)
			}
		}
		return err
	},
}

func parseSignal(name string) (syscall.Signal, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return syscall.SIGTERM, nil
	}
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig := unix.SignalNum(name)
	if sig == 0 {
		return 0, fmt.Errorf("unknown signal %q", name)
	}
	return sig, nil
}
