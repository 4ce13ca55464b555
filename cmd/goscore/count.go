package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var countFrom string

func init() {
	rootCmd.AddCommand(cmdCount)
	cmdCount.Flags().StringVar(&countFrom, "from", "", "Read a snapshot written by dump instead of the live scoreboard")
}

var cmdCount = &cobra.Command{
	Use:   "count",
	Short: "Count live sessions per connection class",
	RunE: func(cmd *cobra.Command, args []string) error {
		counts, err := controller().Counts(cmd.Context(), countFrom)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(counts) == 0 {
			fmt.Fprintln(out, "No sessions")
			return nil
		}

		classes := make([]string, 0, len(counts))
		total := 0
		for class, n := range counts {
			classes = append(classes, class)
			total += n
		}
		sort.Strings(classes)

		table := tablewriter.NewWriter(out)
		table.SetHeader([]string{"CLASS", "SESSIONS"})
		table.SetAutoFormatHeaders(false)
		for _, class := range classes {
			table.Append([]string{dash(class), strconv.Itoa(counts[class])})
		}
		table.SetFooter([]string{"TOTAL", strconv.Itoa(total)})
		table.Render()
		return nil
	},
}
