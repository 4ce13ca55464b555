package scoreboard

import (
	"io"

	"golang.org/x/sys/unix"
)

// Whole-file locks cover offset 0 to end of file, including bytes appended
// while the lock is held. Entry locks cover exactly one slot at its absolute
// offset. All of them are fcntl advisory locks, so they belong to the process
// and not to the Store.

// Raw syscalls, replaced in tests to inject failures.
var (
	sysPread  = unix.Pread
	sysPwrite = unix.Pwrite
	sysRead   = unix.Read
	sysFlock  = unix.FcntlFlock
)

func (s *Store) setLock(cmd int, typ int16, start, length int64) error {
	if s.f == nil {
		return ErrNotOpen
	}
	lk := unix.Flock_t{
		Type:   typ,
		Whence: io.SeekStart,
		Start:  start,
		Len:    length,
	}
	err := retry(s.signals, func() error {
		return sysFlock(uintptr(s.fd), cmd, &lk)
	})
	if err != nil {
		return &IOError{Op: "lock", Path: s.path, Err: err}
	}
	return nil
}

func (s *Store) rlockFile() error {
	if err := s.setLock(unix.F_SETLKW, unix.F_RDLCK, 0, 0); err != nil {
		return err
	}
	s.readLocked = true
	return nil
}

func (s *Store) wlockFile() error {
	if err := s.setLock(unix.F_SETLKW, unix.F_WRLCK, 0, 0); err != nil {
		return err
	}
	s.writeLocked = true
	return nil
}

// unlockFile drops every lock this process holds on the file.
func (s *Store) unlockFile() error {
	s.readLocked, s.writeLocked = false, false
	return s.setLock(unix.F_SETLK, unix.F_UNLCK, 0, 0)
}

func (s *Store) lockEntry() error {
	return s.setLock(unix.F_SETLKW, unix.F_WRLCK, s.slot, EntrySize)
}

func (s *Store) unlockEntry() error {
	return s.setLock(unix.F_SETLK, unix.F_UNLCK, s.slot, EntrySize)
}

func (s *Store) pread(buf []byte, off int64) (int, error) {
	var n int
	err := retry(s.signals, func() (err error) {
		n, err = sysPread(s.fd, buf, off)
		return err
	})
	if err != nil {
		return n, &IOError{Op: "read", Path: s.path, Err: err}
	}
	return n, nil
}

// read reads from the current file position and advances it.
func (s *Store) read(buf []byte) (int, error) {
	var n int
	err := retry(s.signals, func() (err error) {
		n, err = sysRead(s.fd, buf)
		return err
	})
	if err != nil {
		return n, &IOError{Op: "read", Path: s.path, Err: err}
	}
	return n, nil
}

// pwrite writes all of buf at off in a single call so readers never see a
// partial record.
func (s *Store) pwrite(buf []byte, off int64) error {
	var n int
	err := retry(s.signals, func() (err error) {
		n, err = sysPwrite(s.fd, buf, off)
		return err
	})
	if err == nil && n != len(buf) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &IOError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

func (s *Store) seek(off int64, whence int) (int64, error) {
	pos, err := unix.Seek(s.fd, off, whence)
	if err != nil {
		return pos, &IOError{Op: "seek", Path: s.path, Err: err}
	}
	return pos, nil
}
