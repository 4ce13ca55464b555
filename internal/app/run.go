package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"os/user"
	"strings"

	"github.com/sirupsen/logrus"

	"goscore/internal/config"
	"goscore/internal/scoreboard"
)

// ErrClassFull is returned by Run when the connection class is at its limit.
var ErrClassFull = errors.New("connection class is full")

// RunParams configures a worker session around a child command.
type RunParams struct {
	Args []string
	// User defaults to the current OS user.
	User  string
	Class string
	// MaxClass caps live sessions in Class; zero means no limit.
	MaxClass int
	// ClientName and ClientIP describe the peer the session serves.
	ClientName string
	ClientIP   string
	// Cwd defaults to the current directory.
	Cwd string

	Stdin          io.Reader
	Stdout, Stderr io.Writer
}

// RunResult reports how the worker session ended.
type RunResult struct {
	Slot     int64
	ExitCode int
}

// Run registers this process as a scoreboard worker for the lifetime of the
// child command and removes the entry when the child exits. A standalone
// scoreboard must already exist; an inetd one is created on demand.
func (a *App) Run(ctx context.Context, params RunParams) (RunResult, error) {
	res := RunResult{Slot: -1, ExitCode: -1}
	if len(params.Args) == 0 {
		return res, errors.New("command is required")
	}
	class, err := normalizeClass(params.Class)
	if err != nil {
		return res, err
	}
	if params.MaxClass < 0 {
		return res, fmt.Errorf("invalid class limit %d", params.MaxClass)
	}
	if params.MaxClass > 0 && class == "" {
		return res, errors.New("--max-class requires --class")
	}

	cfg, err := a.Config()
	if err != nil {
		return res, err
	}
	mustExist := cfg.RunMode() == scoreboard.Standalone

	err = a.withStore(scoreboard.ReadWrite, mustExist, func(_ config.Config, s *scoreboard.Store) error {
		if params.MaxClass > 0 {
			n, err := s.Count(func(e scoreboard.Entry) bool { return e.Class == class })
			if err != nil {
				return fmt.Errorf("count class %q: %w", class, err)
			}
			if n >= params.MaxClass {
				return fmt.Errorf("%w: %q has %d of %d sessions", ErrClassFull, class, n, params.MaxClass)
			}
		}

		if err := s.AddEntry(); err != nil {
			return fmt.Errorf("add scoreboard entry: %w", err)
		}
		defer s.DeleteEntry(true)
		res.Slot = s.Slot()

		pid := os.Getpid()
		if err := s.UpdateEntry(pid, sessionUpdates(params, class)...); err != nil {
			return fmt.Errorf("update scoreboard entry: %w", err)
		}

		// Concurrent runs can all pass the first check. Counting again with
		// our own slot published lets the late arrivals back out.
		if params.MaxClass > 0 {
			n, err := s.Count(func(e scoreboard.Entry) bool { return e.Class == class })
			if err != nil {
				return fmt.Errorf("count class %q: %w", class, err)
			}
			if n > params.MaxClass {
				return fmt.Errorf("%w: %q has %d of %d sessions", ErrClassFull, class, n-1, params.MaxClass)
			}
		}

		cmd := exec.CommandContext(ctx, params.Args[0], params.Args[1:]...)
		cmd.Stdin = params.Stdin
		cmd.Stdout = params.Stdout
		cmd.Stderr = params.Stderr
		if params.Cwd != "" {
			cmd.Dir = params.Cwd
		}

		a.log.WithFields(logrus.Fields{
			"slot":  res.Slot,
			"class": class,
		}).Debugf("running %s", strings.Join(params.Args, " "))

		runErr := cmd.Run()
		if err := s.UpdateEntry(pid, scoreboard.BeginIdle()); err != nil {
			a.log.WithError(err).Debug("unable to mark session idle")
		}

		var exitErr *exec.ExitError
		switch {
		case runErr == nil:
			res.ExitCode = 0
		case errors.As(runErr, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		default:
			return fmt.Errorf("run %s: %w", params.Args[0], runErr)
		}
		return nil
	})
	return res, err
}

func sessionUpdates(params RunParams, class string) []scoreboard.FieldUpdate {
	name := params.User
	if name == "" {
		if u, err := user.Current(); err == nil {
			name = u.Username
		}
	}
	cwd := params.Cwd
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	client := params.ClientName
	ip := net.ParseIP(params.ClientIP)
	if client == "" && ip == nil {
		client, ip = "localhost", net.IPv6loopback
	}

	return []scoreboard.FieldUpdate{
		scoreboard.BeginSession(),
		scoreboard.User(name),
		scoreboard.Class(class),
		scoreboard.Cwd(cwd),
		scoreboard.ClientAddr(client, ip),
		scoreboard.Command(strings.Join(params.Args, " ")),
	}
}

func normalizeClass(raw string) (string, error) {
	lf := ListFilters{Classes: []string{raw}}
	f, err := lf.buildFilter()
	if err != nil {
		return "", err
	}
	if len(f.Classes) == 0 {
		return "", nil
	}
	return f.Classes[0], nil
}
