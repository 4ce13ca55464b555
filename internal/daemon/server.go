package daemon

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"goscore/internal/config"
	"goscore/internal/scoreboard"
)

// Server owns the scoreboard of a standalone installation: it recreates the
// file at startup, reclaims slots of dead workers, and removes the file on
// shutdown.
type Server struct {
	store    *scoreboard.Store
	log      logrus.FieldLogger
	interval time.Duration

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Start erases any existing scoreboard at cfg.ScoreboardPath, creates a new
// one owned by this process, writes the pid file and starts the reaper.
func Start(cfg config.Config, log logrus.FieldLogger) (*Server, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.RunMode() != scoreboard.Standalone {
		return nil, fmt.Errorf("daemon requires server_type %q, got %q", config.ServerTypeStandalone, cfg.ServerType)
	}
	if cfg.ReapInterval <= 0 {
		return nil, errors.New("reap_interval must be > 0")
	}
	if IsRunning() {
		pid, _ := RunningPID()
		return nil, fmt.Errorf("daemon is already running (pid %d)", pid)
	}
	if err := config.EnsureRuntimeDir(); err != nil {
		return nil, err
	}

	store := scoreboard.New(scoreboard.Options{
		RunMode: scoreboard.Standalone,
		Logger:  log,
	})
	if err := store.SetPath(cfg.ScoreboardPath); err != nil {
		return nil, fmt.Errorf("scoreboard path: %w", err)
	}
	// Entries left by a previous owner describe workers it no longer tracks.
	if err := store.Delete(); err != nil {
		return nil, fmt.Errorf("erase scoreboard: %w", err)
	}
	if _, err := store.Open(scoreboard.ReadWrite); err != nil {
		return nil, fmt.Errorf("create scoreboard: %w", err)
	}

	s := &Server{
		store:    store,
		log:      log.WithField("scoreboard", cfg.ScoreboardPath),
		interval: cfg.ReapInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if err := WritePID(os.Getpid()); err != nil {
		_ = store.Delete()
		return nil, err
	}
	go s.reapLoop()

	s.log.WithFields(logrus.Fields{
		"pid":           os.Getpid(),
		"reap_interval": s.interval,
	}).Info("daemon started")
	return s, nil
}

// Path returns the scoreboard file owned by the server.
func (s *Server) Path() string { return s.store.Path() }

// Owner returns the pid recorded in the scoreboard header.
func (s *Server) Owner() int { return s.store.Header().OwnerPID }

// Reap runs one reclamation pass immediately.
func (s *Server) Reap() (int, error) {
	n, err := s.store.Reap()
	if err != nil {
		s.log.WithError(err).Warn("scoreboard reap failed")
		return n, err
	}
	if n > 0 {
		s.log.WithField("reaped", n).Info("reclaimed abandoned scoreboard slots")
	}
	return n, nil
}

func (s *Server) reapLoop() {
	defer close(s.done)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			_, _ = s.Reap()
		}
	}
}

// Close stops the reaper, deletes the scoreboard and removes the pid file.
// It is safe to call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
		s.closeErr = errors.Join(s.store.Delete(), RemovePID())
		s.log.Info("daemon stopped")
	})
	return s.closeErr
}

// StopRunningDaemon sends a termination signal to the currently running daemon if any.
func StopRunningDaemon(force bool) error {
	pid, err := RunningPID()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("unable to read daemon PID: %w", err)
	}
	if pid == os.Getpid() {
		return errors.New("refusing to stop current process")
	}
	if !processAlive(pid) {
		_ = RemovePID()
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := sendSignal(proc, syscall.SIGTERM); err != nil {
		return err
	}
	if waitForShutdown(stopTimeout) {
		return nil
	}
	if !force {
		return fmt.Errorf("daemon process %d did not exit after SIGTERM", pid)
	}
	if err := sendSignal(proc, syscall.SIGKILL); err != nil {
		return err
	}
	if waitForShutdown(killTimeout) {
		return nil
	}
	return fmt.Errorf("daemon process %d did not exit after SIGKILL", pid)
}

var (
	stopTimeout = 3 * time.Second
	killTimeout = 2 * time.Second
)

func sendSignal(proc *os.Process, sig syscall.Signal) error {
	if err := proc.Signal(sig); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			_ = RemovePID()
			return nil
		}
		return err
	}
	return nil
}

func waitForShutdown(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if !IsRunning() {
			_ = RemovePID()
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(100 * time.Millisecond)
	}
}
