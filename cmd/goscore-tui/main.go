package main

import (
	"flag"
	"io"

	"github.com/sirupsen/logrus"

	"goscore/internal/app"
	"goscore/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "Path to a config file (yaml, json or toml)")
	refresh := flag.Duration("refresh", tui.DefaultRefresh, "How often to rescan the scoreboard")
	flag.Parse()

	// The alt screen owns the terminal; scoreboard notices would corrupt it.
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	controller := app.New(app.Options{ConfigPath: *configPath, Logger: quiet})
	if err := tui.Run(controller, *refresh); err != nil {
		logrus.Fatalf("tui exited with error: %v", err)
	}
}
