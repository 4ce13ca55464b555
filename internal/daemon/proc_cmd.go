package daemon

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Process describes the OS process behind a scoreboard slot.
type Process struct {
	PID     int
	Alive   bool
	Command string
}

// Describe looks up pid. A stale slot left by a crashed worker reports
// Alive=false and a synthetic "pid:N" command.
func Describe(pid int) Process {
	p := Process{PID: pid, Command: fmt.Sprintf("pid:%d", pid)}
	if pid <= 0 {
		return p
	}
	p.Alive = processAlive(pid)
	if !p.Alive {
		return p
	}
	for _, lookup := range commandLookups {
		if cmd, err := lookup(pid); err == nil && cmd != "" {
			p.Command = cmd
			break
		}
	}
	return p
}

// /proc first, ps(1) where there is no procfs.
var commandLookups = []func(int) (string, error){readProcCmdline, readPsCommand}

func readProcCmdline(pid int) (string, error) {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "cmdline"))
	if err != nil {
		return "", err
	}
	fields := bytes.FieldsFunc(data, func(r rune) bool { return r == 0 })
	args := make([]string, len(fields))
	for i, f := range fields {
		args[i] = string(f)
	}
	return strings.Join(args, " "), nil
}

func readPsCommand(pid int) (string, error) {
	out, err := exec.Command("ps", "-o", "command=", "-p", strconv.Itoa(pid)).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
