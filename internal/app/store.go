package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"

	"goscore/internal/config"
	"goscore/internal/daemon"
	"goscore/internal/scoreboard"
)

// Dependencies swapped out by tests.
var (
	loadConfig       = config.Load
	daemonIsRunning  = daemon.IsRunning
	daemonRunningPID = daemon.RunningPID
	describeProcess  = daemon.Describe
	signalProcess    = func(pid int, sig syscall.Signal) error { return syscall.Kill(pid, sig) }
	daemonCommand    = defaultDaemonCommand
)

func resetDeps() {
	loadConfig = config.Load
	daemonIsRunning = daemon.IsRunning
	daemonRunningPID = daemon.RunningPID
	describeProcess = daemon.Describe
	signalProcess = func(pid int, sig syscall.Signal) error { return syscall.Kill(pid, sig) }
	daemonCommand = defaultDaemonCommand
}

// errNoScoreboard is returned when an operation needs an existing file.
var errNoScoreboard = errors.New("scoreboard does not exist")

// withStore opens the configured scoreboard for the duration of fn. In
// ReadWrite mode the file must already exist unless mustExist is false.
func (a *App) withStore(mode scoreboard.Mode, mustExist bool, fn func(config.Config, *scoreboard.Store) error) error {
	cfg, err := a.Config()
	if err != nil {
		return err
	}
	if mustExist {
		if _, err := os.Stat(cfg.ScoreboardPath); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", errNoScoreboard, cfg.ScoreboardPath)
		}
	}

	store, _, err := scoreboard.Open(cfg.ScoreboardPath, mode, scoreboard.Options{
		RunMode: cfg.RunMode(),
		Logger:  a.log,
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", errNoScoreboard, cfg.ScoreboardPath)
		}
		return fmt.Errorf("open scoreboard: %w", err)
	}
	defer store.Close()

	return fn(cfg, store)
}
