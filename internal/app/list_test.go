package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"goscore/internal/scoreboard"
)

func TestAppListRejectsInvalidUserFilter(t *testing.T) {
	setupScoreboard(t)
	app := quietApp()
	_, err := app.List(context.Background(), ListParams{
		Filters: ListFilters{Users: []string{"ok", "bad name"}},
	})
	if err == nil || err.Error() != `user filter: name "bad name" contains invalid character ' ' (allowed: letters, digits, '.', '-', '_')` {
		t.Fatalf("expected name validation error, got %v", err)
	}
}

func TestAppListRejectsInvalidPIDFilter(t *testing.T) {
	setupScoreboard(t)
	app := quietApp()
	_, err := app.List(context.Background(), ListParams{
		Filters: ListFilters{PIDs: []int{1, -2}},
	})
	if err == nil || err.Error() != "pid filter: -2 is not a valid pid" {
		t.Fatalf("expected pid validation error, got %v", err)
	}
}

func TestAppListMissingScoreboard(t *testing.T) {
	path := setupScoreboard(t)
	app := quietApp()
	_, err := app.List(context.Background(), ListParams{})
	if !errors.Is(err, errNoScoreboard) {
		t.Fatalf("expected missing scoreboard error, got %v", err)
	}
	if err.Error() != "scoreboard does not exist: "+path {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestAppListSuccess(t *testing.T) {
	path := setupScoreboard(t)
	addWorker(t, path, 300, scoreboard.User("alice"), scoreboard.Class("staff"), scoreboard.Command("RETR x"))
	addWorker(t, path, 100, scoreboard.User("bob"), scoreboard.Class("guest"), scoreboard.BeginIdle())
	addWorker(t, path, 200, scoreboard.User("alice"), scoreboard.Class("staff"), scoreboard.Command("LIST"))

	app := quietApp()
	all, err := app.List(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 || all[0].PID != 100 || all[1].PID != 200 || all[2].PID != 300 {
		t.Fatalf("unexpected sessions: %+v", all)
	}

	filtered, err := app.List(context.Background(), ListParams{
		Filters: ListFilters{Users: []string{" alice "}, TextSearch: "RETR"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filtered) != 1 || filtered[0].PID != 300 || filtered[0].Class != "staff" {
		t.Fatalf("filters not applied: %+v", filtered)
	}

	idle, err := app.List(context.Background(), ListParams{Filters: ListFilters{IdleOnly: true}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(idle) != 1 || idle[0].User != "bob" {
		t.Fatalf("idle filter not applied: %+v", idle)
	}
}

func TestAppCounts(t *testing.T) {
	path := setupScoreboard(t)
	addWorker(t, path, 1, scoreboard.Class("staff"))
	addWorker(t, path, 2, scoreboard.Class("staff"))
	addWorker(t, path, 3, scoreboard.Class("guest"))

	counts, err := quietApp().Counts(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts["staff"] != 2 || counts["guest"] != 1 || len(counts) != 2 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestAppDumpAndListFromSnapshot(t *testing.T) {
	path := setupScoreboard(t)
	addWorker(t, path, 11, scoreboard.User("carol"), scoreboard.Class("vip"))
	addWorker(t, path, 12, scoreboard.User("dave"), scoreboard.Class("vip"))

	app := quietApp()
	out := filepath.Join(t.TempDir(), "dump", "sessions.json")
	n, err := app.Dump(context.Background(), out)
	if err != nil {
		t.Fatalf("dump failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 sessions dumped, got %d", n)
	}

	sessions, err := app.List(context.Background(), ListParams{
		SnapshotPath: out,
		Filters:      ListFilters{Users: []string{"dave"}},
	})
	if err != nil {
		t.Fatalf("list from snapshot failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].PID != 12 {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
}

func TestAppDumpRequiresPath(t *testing.T) {
	setupScoreboard(t)
	if _, err := quietApp().Dump(context.Background(), ""); err == nil || err.Error() != "snapshot path must not be empty" {
		t.Fatalf("expected path error, got %v", err)
	}
}

func TestAppListCanceledContext(t *testing.T) {
	path := setupScoreboard(t)
	addWorker(t, path, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := quietApp().List(ctx, ListParams{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
