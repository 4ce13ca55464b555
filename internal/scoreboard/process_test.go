package scoreboard

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fcntl locks do not exclude each other within one process, so these tests
// run workers as separate processes.

func startHelper(t *testing.T, mode, path, id string) (*exec.Cmd, *bytes.Buffer) {
	t.Helper()
	var stderr bytes.Buffer
	cmd := exec.Command(os.Args[0], "-test.run=^$")
	cmd.Env = append(os.Environ(),
		helperModeEnv+"="+mode,
		helperPathEnv+"="+path,
		helperIDEnv+"="+id,
	)
	cmd.Stderr = &stderr
	require.NoError(t, cmd.Start())
	return cmd, &stderr
}

func TestConcurrentWorkersNeverTearEntries(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns processes")
	}
	path := testPath(t)
	openStore(t, path, ReadWrite, 1)

	a, aErr := startHelper(t, "update", path, "a")
	b, bErr := startHelper(t, "update", path, "b")
	require.NoError(t, a.Wait(), aErr.String())
	require.NoError(t, b.Wait(), bErr.String())

	// The children closed without deleting, so their last writes remain.
	s := openStore(t, path, ReadOnly, 99)
	entries, err := s.Snapshot()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byPID := map[int]string{a.Process.Pid: "a", b.Process.Pid: "b"}
	last := helperUpdates - 1
	for _, e := range entries {
		id, ok := byPID[e.PID]
		require.True(t, ok, "unexpected pid %d", e.PID)
		assert.Equal(t, fmt.Sprintf("worker-%s-%d", id, last), e.Command)
		assert.Equal(t, strings.Repeat(id, CwdWidth-1), e.Cwd)
		assert.EqualValues(t, last, e.TransferDone)
	}
}

func TestAddEntryWaitsForScan(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns processes")
	}
	path := testPath(t)
	addEntry(t, path, 1)

	s := openStore(t, path, ReadOnly, 99)
	require.NoError(t, s.Rewind())
	_, err := s.Next()
	require.NoError(t, err)

	child, stderr := startHelper(t, "add", path, "c")
	done := make(chan error, 1)
	go func() { done <- child.Wait() }()

	select {
	case err := <-done:
		t.Fatalf("worker finished while a scan held the read lock: %v (%s)", err, stderr.String())
	case <-time.After(300 * time.Millisecond):
	}

	_, err = s.Next()
	require.True(t, errors.Is(err, ErrEndOfData), "got %v", err)

	select {
	case err := <-done:
		require.NoError(t, err, stderr.String())
	case <-time.After(10 * time.Second):
		t.Fatal("worker still blocked after the scan ended")
	}

	n, err := s.Slots()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
