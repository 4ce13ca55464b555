package app

import (
	"errors"
	"fmt"

	"goscore/internal/config"
	"goscore/internal/daemon"
	"goscore/internal/scoreboard"
)

// DaemonStatus represents current information about the daemon process.
type DaemonStatus struct {
	Running bool
	PID     int
}

// Status returns whether the daemon is running and its PID if known.
func (a *App) Status() (DaemonStatus, error) {
	if !daemonIsRunning() {
		return DaemonStatus{Running: false}, nil
	}
	pid, err := daemonRunningPID()
	if err != nil {
		return DaemonStatus{Running: true}, err
	}
	return DaemonStatus{Running: true, PID: pid}, nil
}

// ScoreboardStatus summarises the scoreboard file.
type ScoreboardStatus struct {
	Path     string
	Exists   bool
	RunMode  string
	OwnerPID int
	Slots    int
	Live     int
	Daemon   DaemonStatus
}

// Free is the number of slots available for reuse.
func (s ScoreboardStatus) Free() int { return s.Slots - s.Live }

// Inspect reports the scoreboard header and slot usage together with the
// daemon state. A missing file is not an error.
func (a *App) Inspect() (ScoreboardStatus, error) {
	var st ScoreboardStatus
	ds, err := a.Status()
	if err != nil {
		return st, err
	}
	st.Daemon = ds

	err = a.withStore(scoreboard.ReadOnly, true, func(cfg config.Config, s *scoreboard.Store) error {
		st.Path = cfg.ScoreboardPath
		st.RunMode = cfg.RunMode().String()
		st.Exists = true
		st.OwnerPID = s.Header().OwnerPID
		slots, err := s.Slots()
		if err != nil {
			return err
		}
		st.Slots = slots
		st.Live, err = s.Count(nil)
		return err
	})
	if errors.Is(err, errNoScoreboard) {
		cfg, cerr := a.Config()
		if cerr != nil {
			return st, cerr
		}
		st.Path = cfg.ScoreboardPath
		st.RunMode = cfg.RunMode().String()
		return st, nil
	}
	return st, err
}

// StopDaemon attempts to stop the running daemon.
func (a *App) StopDaemon(force bool) error {
	return daemon.StopRunningDaemon(force)
}

// DaemonHandle holds a running daemon instance.
type DaemonHandle struct {
	srv *daemon.Server
}

// Path returns the scoreboard owned by the daemon.
func (h *DaemonHandle) Path() string {
	if h == nil || h.srv == nil {
		return ""
	}
	return h.srv.Path()
}

// Close stops the running daemon instance.
func (h *DaemonHandle) Close() error {
	if h == nil || h.srv == nil {
		return nil
	}
	return h.srv.Close()
}

// StartDaemon starts the daemon and returns a handle for closing it.
func (a *App) StartDaemon() (*DaemonHandle, error) {
	cfg, err := a.Config()
	if err != nil {
		return nil, err
	}
	srv, err := daemon.Start(cfg, a.log)
	if err != nil {
		return nil, fmt.Errorf("start daemon: %w", err)
	}
	return &DaemonHandle{srv: srv}, nil
}
