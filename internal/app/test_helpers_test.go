package app

import (
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"goscore/internal/daemon"
	"goscore/internal/scoreboard"
)

func stubDaemon(t *testing.T, running bool, pid int) {
	t.Helper()
	resetDeps()
	daemonIsRunning = func() bool { return running }
	daemonRunningPID = func() (int, error) {
		if !running {
			return 0, errors.New("no pid file")
		}
		return pid, nil
	}
	t.Cleanup(resetDeps)
}

// setupScoreboard points the configuration at a private scoreboard path in
// inetd mode and returns it. The file is not created.
func setupScoreboard(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "goscore.scoreboard")
	t.Setenv("GOSCORE_RUNTIME_DIR", dir)
	t.Setenv("GOSCORE_SCOREBOARD_PATH", path)
	t.Setenv("GOSCORE_SERVER_TYPE", "inetd")
	return path
}

func quietApp() *App {
	logger := logrus.New()
	logger.Out = io.Discard
	return New(Options{Logger: logger})
}

// addWorker registers a fake worker with the given pid and applies updates.
func addWorker(t *testing.T, path string, pid int, updates ...scoreboard.FieldUpdate) *scoreboard.Store {
	t.Helper()
	s, _, err := scoreboard.Open(path, scoreboard.ReadWrite, scoreboard.Options{
		RunMode: scoreboard.PerConnection,
		PID:     pid,
		Logger:  quietApp().log,
	})
	if err != nil {
		t.Fatalf("open scoreboard: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.AddEntry(); err != nil {
		t.Fatalf("add entry: %v", err)
	}
	if len(updates) > 0 {
		if err := s.UpdateEntry(pid, updates...); err != nil {
			t.Fatalf("update entry: %v", err)
		}
	}
	return s
}

func alwaysAlive(t *testing.T) {
	t.Helper()
	describeProcess = func(pid int) daemon.Process {
		return daemon.Process{PID: pid, Alive: true, Command: "ftpd: worker"}
	}
	t.Cleanup(resetDeps)
}
