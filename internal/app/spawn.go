package app

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"
)

// spawnTimeout bounds how long SpawnDaemon waits for the pid file.
var spawnTimeout = 5 * time.Second

// defaultDaemonCommand runs `goscore daemon` when the current binary is the
// CLI, and the goscore-daemon binary otherwise (next to us, then on PATH).
func defaultDaemonCommand(cfgPath string) (*exec.Cmd, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	var args []string
	if cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}
	if filepath.Base(self) == "goscore" {
		return exec.Command(self, append([]string{"daemon"}, args...)...), nil
	}
	bin := filepath.Join(filepath.Dir(self), "goscore-daemon")
	if _, err := os.Stat(bin); err != nil {
		if bin, err = exec.LookPath("goscore-daemon"); err != nil {
			return nil, fmt.Errorf("locate goscore-daemon: %w", err)
		}
	}
	return exec.Command(bin, args...), nil
}

// SpawnDaemon starts the daemon as a separate process in its own session and
// waits until it has published its pid file. fcntl locks are per process, so
// a daemon sharing a process with scanners would not be excluded by them;
// interactive callers use this instead of StartDaemon.
func (a *App) SpawnDaemon() (DaemonStatus, error) {
	if daemonIsRunning() {
		return a.Status()
	}
	cmd, err := daemonCommand(a.cfgPath)
	if err != nil {
		return DaemonStatus{}, err
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return DaemonStatus{}, fmt.Errorf("start daemon: %w", err)
	}
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	deadline := time.After(spawnTimeout)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case err := <-exited:
			if err == nil {
				err = errors.New("exited before publishing its pid")
			}
			return DaemonStatus{}, fmt.Errorf("daemon: %w", err)
		case <-deadline:
			return DaemonStatus{}, fmt.Errorf("daemon pid %d did not come up within %s", cmd.Process.Pid, spawnTimeout)
		case <-tick.C:
			if !daemonIsRunning() {
				continue
			}
			pid, err := daemonRunningPID()
			if err != nil {
				continue
			}
			a.log.WithField("pid", pid).Info("daemon spawned")
			return DaemonStatus{Running: true, PID: pid}, nil
		}
	}
}
