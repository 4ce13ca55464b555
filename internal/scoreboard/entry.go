package scoreboard

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// processAlive reports whether pid still names a process. EPERM means it
// exists but belongs to someone else.
var processAlive = func(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// AddEntry claims a slot for this process: the first free slot in the file,
// or a new one appended at the end. The slot's offset is kept for every later
// update and delete.
func (s *Store) AddEntry() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return ErrNotOpen
	}
	if s.live {
		return fmt.Errorf("%w: entry already allocated at offset %d", ErrInvalidState, s.slot)
	}

	if err := s.wlockFile(); err != nil {
		return err
	}
	defer s.unlockFile()

	off, err := s.findFreeSlot()
	if err != nil {
		return err
	}

	e := Entry{
		PID: s.pid,
		UID: os.Geteuid(),
		GID: os.Getegid(),
	}
	if err := s.writeEntry(off, &e); err != nil {
		s.logger().WithError(err).Warn("error writing scoreboard entry")
		return err
	}
	s.slot = off
	s.entry = e
	s.live = true
	return nil
}

// findFreeSlot returns the offset of the first free slot, or end of file.
// Caller holds the whole-file write lock.
func (s *Store) findFreeSlot() (int64, error) {
	buf := make([]byte, EntrySize)
	for off := int64(HeaderSize); ; off += EntrySize {
		n, err := s.pread(buf, off)
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return off, nil
		}
		if n < EntrySize {
			return 0, &IOError{Op: "read", Path: s.path, Err: io.ErrUnexpectedEOF}
		}
		if slotPID(buf) == 0 {
			return off, nil
		}
	}
}

func (s *Store) writeEntry(off int64, e *Entry) error {
	data, _ := e.MarshalBinary()
	return s.pwrite(data, off)
}

// DeleteEntry zeroes this process's slot and leaves it for any process to
// reuse. Only the slot is locked. A failed lock or write is logged when
// verbose and otherwise ignored; the slot may stay stale until reaped. When
// the lock fails the in-memory entry is kept so the worker can still update
// it. Deleting twice, or
// before AddEntry, does nothing.
func (s *Store) DeleteEntry(verbose bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return ErrNotOpen
	}
	if !s.live {
		return nil
	}

	if err := s.lockEntry(); err != nil {
		if verbose {
			s.logger().WithError(err).WithField("offset", s.slot).Warn("error locking scoreboard entry")
		}
		return nil
	}
	defer s.unlockEntry()

	s.entry = Entry{}

	if err := s.writeEntry(s.slot, &s.entry); err != nil {
		if verbose {
			s.logger().WithError(err).WithField("offset", s.slot).Warn("error deleting scoreboard entry")
		}
		return nil
	}
	s.live = false
	return nil
}

// Entry returns a copy of this process's in-memory entry.
func (s *Store) Entry() Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry
}

// Slot returns the absolute offset of this process's slot, or -1.
func (s *Store) Slot() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live {
		return -1
	}
	return s.slot
}

// Reap zeroes every occupied slot whose process no longer exists and returns
// how many were reclaimed. It holds the whole-file write lock for the pass.
func (s *Store) Reap() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return 0, ErrNotOpen
	}
	if err := s.wlockFile(); err != nil {
		return 0, err
	}
	defer s.unlockFile()

	buf := make([]byte, EntrySize)
	zero := make([]byte, EntrySize)
	reaped := 0
	for off := int64(HeaderSize); ; off += EntrySize {
		n, err := s.pread(buf, off)
		if err != nil {
			return reaped, err
		}
		if n == 0 {
			return reaped, nil
		}
		if n < EntrySize {
			return reaped, &IOError{Op: "read", Path: s.path, Err: io.ErrUnexpectedEOF}
		}
		pid := slotPID(buf)
		if pid == 0 || pid == s.pid || processAlive(pid) {
			continue
		}
		if err := s.pwrite(zero, off); err != nil {
			return reaped, err
		}
		s.logger().WithField("stale_pid", pid).WithField("offset", off).Debug("reclaimed scoreboard slot")
		reaped++
	}
}
