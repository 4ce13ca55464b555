package main

import (
	"context"
	"errors"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"goscore/internal/app"
	"goscore/internal/config"
	"goscore/internal/tui"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "goscore [command]",
	Short: "goscore: shared session scoreboard",
	Long: `goscore maintains a file-resident scoreboard where every worker process
publishes its current session, and reads it back for who/count/kill style
administration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a config file (yaml, json or toml)")
}

// controllerAPI is the slice of app.App the commands use.
type controllerAPI interface {
	tui.Controller
	Inspect() (app.ScoreboardStatus, error)
	StartDaemon() (*app.DaemonHandle, error)
	StopDaemon(force bool) error
	Counts(ctx context.Context, from string) (map[string]int, error)
	Dump(ctx context.Context, path string) (int, error)
	Reap() (int, error)
	Reset(params app.ResetParams) error
	Run(ctx context.Context, params app.RunParams) (app.RunResult, error)
}

var controllerFactory = func() controllerAPI {
	return app.New(app.Options{ConfigPath: configPath, Logger: newLogger()})
}

func controller() controllerAPI {
	return controllerFactory()
}

// newLogger writes to stderr at the configured level. A config that fails to
// load keeps the default level; the command reports the error itself.
func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if cfg, err := config.Load(configPath); err == nil {
		log.SetLevel(cfg.Level())
	}
	return log
}

// exitCodeError carries a child exit status out of RunE.
type exitCodeError int

func (e exitCodeError) Error() string { return "exit status " + strconv.Itoa(int(e)) }

func main() {
	if err := rootCmd.Execute(); err != nil {
		var code exitCodeError
		if errors.As(err, &code) {
			os.Exit(int(code))
		}
		logrus.Fatal(err)
	}
}
