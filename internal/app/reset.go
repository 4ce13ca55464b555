package app

import (
	"errors"
	"fmt"

	"goscore/internal/config"
	"goscore/internal/scoreboard"
)

// ResetParams configures the reset command.
type ResetParams struct {
	Confirmed bool
	// Force deletes the file even while a daemon owns it.
	Force bool
}

// Reset deletes the scoreboard file. Workers that still hold it open keep
// writing to the unlinked inode until they restart.
func (a *App) Reset(params ResetParams) error {
	if !params.Confirmed {
		return errors.New(`destructive command: confirmation required`)
	}
	cfg, err := a.Config()
	if err != nil {
		return err
	}
	if daemonIsRunning() && !params.Force {
		pid, _ := daemonRunningPID()
		return fmt.Errorf("daemon is running (pid %d); stop it first or pass --force", pid)
	}

	s := scoreboard.New(scoreboard.Options{Logger: a.log})
	if err := s.SetPath(cfg.ScoreboardPath); err != nil {
		return fmt.Errorf("scoreboard path: %w", err)
	}
	if err := s.Delete(); err != nil {
		return fmt.Errorf("delete scoreboard: %w", err)
	}
	a.log.WithField("path", cfg.ScoreboardPath).Info("scoreboard deleted")
	return nil
}

// Reap reclaims slots whose worker process no longer exists.
func (a *App) Reap() (int, error) {
	var n int
	err := a.withStore(scoreboard.ReadWrite, true, func(_ config.Config, s *scoreboard.Store) error {
		var err error
		n, err = s.Reap()
		if err != nil {
			return fmt.Errorf("reap scoreboard: %w", err)
		}
		return nil
	})
	return n, err
}
