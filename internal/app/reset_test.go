package app

import (
	"errors"
	"os"
	"testing"

	"goscore/internal/daemon"
)

func TestAppResetRequiresConfirmation(t *testing.T) {
	app := quietApp()
	err := app.Reset(ResetParams{Confirmed: false})
	if err == nil || err.Error() != "destructive command: confirmation required" {
		t.Fatalf("expected confirmation error, got %v", err)
	}
}

func TestAppResetRefusesWhileDaemonRuns(t *testing.T) {
	path := setupScoreboard(t)
	addWorker(t, path, 1)
	stubDaemon(t, true, 4242)

	err := quietApp().Reset(ResetParams{Confirmed: true})
	if err == nil || err.Error() != "daemon is running (pid 4242); stop it first or pass --force" {
		t.Fatalf("expected daemon error, got %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("scoreboard should survive: %v", err)
	}
}

func TestAppResetForce(t *testing.T) {
	path := setupScoreboard(t)
	addWorker(t, path, 1)
	stubDaemon(t, true, 4242)

	if err := quietApp().Reset(ResetParams{Confirmed: true, Force: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("scoreboard should be gone, stat err=%v", err)
	}
}

func TestAppResetMissingFile(t *testing.T) {
	setupScoreboard(t)
	stubDaemon(t, false, 0)
	if err := quietApp().Reset(ResetParams{Confirmed: true}); err != nil {
		t.Fatalf("deleting a missing scoreboard should succeed, got %v", err)
	}
}

func TestAppReap(t *testing.T) {
	path := setupScoreboard(t)
	addWorker(t, path, os.Getpid())

	// A worker whose process has exited and never deleted its entry.
	gone := daemonDeadPID(t)
	stale := addWorker(t, path, gone)
	if err := stale.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	n, err := quietApp().Reap()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reaped slot, got %d", n)
	}

	sessions, err := quietApp().List(t.Context(), ListParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 || sessions[0].PID != os.Getpid() {
		t.Fatalf("unexpected sessions after reap: %+v", sessions)
	}
}

func TestAppReapMissingScoreboard(t *testing.T) {
	path := setupScoreboard(t)
	if _, err := quietApp().Reap(); !errors.Is(err, errNoScoreboard) {
		t.Fatalf("expected missing scoreboard error, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("reap must not create the scoreboard")
	}
}

func daemonDeadPID(t *testing.T) int {
	t.Helper()
	for pid := 1 << 22; pid > 1<<20; pid-- {
		if !daemon.Describe(pid).Alive {
			return pid
		}
	}
	t.Fatal("no free pid found")
	return 0
}
