package app

import (
	"errors"
	"testing"

	"goscore/internal/scoreboard"
)

func TestAppStatusNotRunning(t *testing.T) {
	stubDaemon(t, false, 0)
	st, err := quietApp().Status()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Running || st.PID != 0 {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestAppStatusRunning(t *testing.T) {
	stubDaemon(t, true, 777)
	st, err := quietApp().Status()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !st.Running || st.PID != 777 {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestAppStatusPIDError(t *testing.T) {
	stubDaemon(t, true, 0)
	daemonRunningPID = func() (int, error) { return 0, errors.New("bad pid file") }
	st, err := quietApp().Status()
	if err == nil || err.Error() != "bad pid file" {
		t.Fatalf("expected pid error, got %v", err)
	}
	if !st.Running {
		t.Fatalf("daemon should still be reported running: %+v", st)
	}
}

func TestAppInspectMissingScoreboard(t *testing.T) {
	path := setupScoreboard(t)
	stubDaemon(t, false, 0)

	st, err := quietApp().Inspect()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Exists || st.Path != path || st.RunMode != "inetd" {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestAppInspect(t *testing.T) {
	path := setupScoreboard(t)
	stubDaemon(t, true, 31)
	addWorker(t, path, 1)
	gone := addWorker(t, path, 2)
	addWorker(t, path, 3)
	if err := gone.DeleteEntry(false); err != nil {
		t.Fatalf("delete: %v", err)
	}

	st, err := quietApp().Inspect()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !st.Exists || st.Slots != 3 || st.Live != 2 || st.Free() != 1 {
		t.Fatalf("unexpected slot counts: %+v", st)
	}
	if st.OwnerPID != 0 {
		t.Fatalf("inetd scoreboard has no owner, got %d", st.OwnerPID)
	}
	if !st.Daemon.Running || st.Daemon.PID != 31 {
		t.Fatalf("unexpected daemon status: %+v", st.Daemon)
	}
}

func TestAppInspectStandaloneOwner(t *testing.T) {
	path := setupScoreboard(t)
	t.Setenv("GOSCORE_SERVER_TYPE", "standalone")
	stubDaemon(t, false, 0)

	owner, _, err := scoreboard.Open(path, scoreboard.ReadWrite, scoreboard.Options{
		RunMode: scoreboard.Standalone,
		PID:     5150,
		Logger:  quietApp().log,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = owner.Close() })

	st, err := quietApp().Inspect()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.OwnerPID != 5150 || st.RunMode != "standalone" {
		t.Fatalf("unexpected status: %+v", st)
	}
}
