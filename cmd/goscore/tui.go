package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"goscore/internal/tui"
)

var tuiRefresh time.Duration

func init() {
	rootCmd.AddCommand(cmdTUI)
	cmdTUI.Flags().DurationVar(&tuiRefresh, "refresh", tui.DefaultRefresh, "How often to rescan the scoreboard")
}

var cmdTUI = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive session monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := tui.Run(controller(), tuiRefresh); err != nil {
			return fmt.Errorf("tui exited with error: %w", err)
		}
		return nil
	},
}
