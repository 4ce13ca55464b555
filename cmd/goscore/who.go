package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"goscore/internal/app"
)

// filterFlags are the selectors shared by who and kill.
type filterFlags struct {
	users   []string
	classes []string
	servers []string
	pids    []int
	search  string
	idle    bool
	active  bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.users, "user", nil, "Match sessions logged in as any of these users")
	cmd.Flags().StringSliceVar(&f.classes, "class", nil, "Match sessions in any of these connection classes")
	cmd.Flags().StringSliceVar(&f.servers, "server", nil, "Match sessions on a server address or name")
	cmd.Flags().IntSliceVar(&f.pids, "pid", nil, "Filter by worker PID (repeatable)")
	cmd.Flags().StringVar(&f.search, "search", "", "Substring to match against the current command")
	cmd.Flags().BoolVar(&f.idle, "idle", false, "Only idle sessions")
	cmd.Flags().BoolVar(&f.active, "active", false, "Only sessions that are not idle")
}

func (f *filterFlags) filters() app.ListFilters {
	return app.ListFilters{
		Users:      f.users,
		Classes:    f.classes,
		Servers:    f.servers,
		PIDs:       f.pids,
		IdleOnly:   f.idle,
		ActiveOnly: f.active,
		TextSearch: f.search,
	}
}

var (
	whoFilters filterFlags
	whoJSON    bool
	whoFrom    string
)

func init() {
	rootCmd.AddCommand(cmdWho)
	whoFilters.register(cmdWho)
	cmdWho.Flags().BoolVar(&whoJSON, "json", false, "Print sessions as JSON")
	cmdWho.Flags().StringVar(&whoFrom, "from", "", "Read a snapshot written by dump instead of the live scoreboard")
}

var cmdWho = &cobra.Command{
	Use:     "who",
	Aliases: []string{"list", "ls"},
	Short:   "List live sessions on the scoreboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := controller().List(cmd.Context(), app.ListParams{
			Filters:      whoFilters.filters(),
			SnapshotPath: whoFrom,
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if whoJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if sessions == nil {
				sessions = []app.Session{}
			}
			return enc.Encode(sessions)
		}
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No sessions")
			return nil
		}
		renderSessions(out, sessions, time.Now())
		return nil
	},
}

func renderSessions(out io.Writer, sessions []app.Session, now time.Time) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"PID", "USER", "CLASS", "CLIENT", "SERVER", "CWD", "AGE", "ACTIVITY"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for _, s := range sessions {
		server := s.Server
		if s.ServerName != "" {
			server = s.ServerName
		}
		table.Append([]string{
			strconv.Itoa(s.PID),
			dash(s.User),
			dash(s.Class),
			dash(s.Client),
			dash(server),
			dash(s.Cwd),
			s.Age(now),
			s.Activity(now),
		})
	}
	table.Render()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
