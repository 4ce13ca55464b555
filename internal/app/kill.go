package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"
)

// KillParams configures kill command semantics.
type KillParams struct {
	Filters         ListFilters
	AllowAll        bool
	RequireSelector bool
	// Signal defaults to SIGTERM.
	Signal syscall.Signal
}

// KillEvent describes one action taken during kill.
type KillEvent struct {
	Kind    string
	Session Session
	Command string
	Err     error
}

// KillResult aggregates the command outcome.
type KillResult struct {
	Events       []KillEvent
	Message      string
	TotalMatches int
	TotalAlive   int
	Successes    int
}

// Kill signals the worker processes whose sessions match the filters. Slots
// of workers that are already gone are left for reap.
func (a *App) Kill(ctx context.Context, params KillParams) (KillResult, error) {
	var result KillResult
	if params.RequireSelector && !params.AllowAll && emptySelectors(params.Filters) {
		return result, errors.New("provide at least one selector (--pid/--user/--class/--server/--search/--idle/--active) or pass --all")
	}
	sig := params.Signal
	if sig == 0 {
		sig = syscall.SIGTERM
	}

	sessions, err := a.List(ctx, ListParams{Filters: params.Filters})
	if err != nil {
		return result, err
	}

	result.TotalMatches = len(sessions)
	if result.TotalMatches == 0 {
		result.Message = "No sessions match the provided selectors"
		return result, nil
	}

	type target struct {
		session Session
		command string
	}
	alive := make([]target, 0, len(sessions))
	for _, s := range sessions {
		if p := describeProcess(s.PID); p.Alive {
			alive = append(alive, target{session: s, command: p.Command})
		}
	}
	result.TotalAlive = len(alive)
	if len(alive) == 0 {
		result.Message = "Matching sessions exist but none of their processes are alive (run reap)"
		return result, nil
	}

	if len(alive) > 1 && !params.AllowAll {
		pids := make([]int, len(alive))
		for i, t := range alive {
			pids[i] = t.session.PID
		}
		return result, fmt.Errorf("multiple live sessions match filters (pids: %s). Use --all to signal all or narrow the selection", joinPIDSample(pids))
	}

	for _, t := range alive {
		if err := signalProcess(t.session.PID, sig); err != nil {
			result.Events = append(result.Events, KillEvent{
				Kind:    "kill_failure",
				Session: t.session,
				Command: t.command,
				Err:     fmt.Errorf("signal pid %d: %w", t.session.PID, err),
			})
			continue
		}
		result.Events = append(result.Events, KillEvent{
			Kind:    "success",
			Session: t.session,
			Command: t.command,
		})
		result.Successes++
	}

	switch {
	case result.Successes == result.TotalAlive:
		return result, nil
	case result.Successes == 0:
		return result, errors.New("no sessions were killed (see output above)")
	default:
		return result, fmt.Errorf("partially successful: killed %d/%d sessions", result.Successes, result.TotalAlive)
	}
}

func joinPIDSample(pids []int) string {
	limit := 5
	out := make([]string, 0, limit+1)
	for i := 0; i < len(pids) && i < limit; i++ {
		out = append(out, fmt.Sprintf("%d", pids[i]))
	}
	if len(pids) > limit {
		out = append(out, "...")
	}
	return strings.Join(out, ", ")
}
