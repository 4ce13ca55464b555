package scoreboard

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// DefaultPath is used until SetPath succeeds.
const DefaultPath = "/var/run/goscore.scoreboard"

// FileMode is forced onto the file after open, whatever the umask, so
// unprivileged monitors can read it.
const FileMode fs.FileMode = 0o644

// Mode selects how Open treats the file.
type Mode int

const (
	// ReadOnly is for monitors. A missing file is an error.
	ReadOnly Mode = iota
	// ReadWrite is for workers and the daemon. The file is created if missing.
	ReadWrite
)

// RunMode tells Open whether a new header records the creating pid.
type RunMode int

const (
	// Standalone is a long-lived daemon that owns the file.
	Standalone RunMode = iota
	// PerConnection workers may recreate the file; the header owner stays 0.
	PerConnection
)

func (m RunMode) String() string {
	switch m {
	case Standalone:
		return "standalone"
	case PerConnection:
		return "inetd"
	default:
		return fmt.Sprintf("RunMode(%d)", int(m))
	}
}

// Options configures a Store.
type Options struct {
	// Path is the initial file path. It is not validated; use SetPath for that.
	Path    string
	RunMode RunMode

	// Logger receives non-fatal persistence failures.
	Logger logrus.FieldLogger
	// Signals is called whenever a blocking call returns EINTR.
	Signals SignalHandler

	// PID overrides the identity written by AddEntry. Zero means os.Getpid().
	PID int
}

// Store is a handle on one scoreboard file. The descriptor, file position
// and lock flags are private to the handle.
type Store struct {
	mu sync.Mutex

	path    string
	runMode RunMode
	log     logrus.FieldLogger
	signals SignalHandler
	pid     int

	f      *os.File
	fd     int
	header Header

	// Own slot: absolute offset, fixed at allocation, and the in-memory copy.
	slot  int64
	live  bool
	entry Entry

	saved   int64
	rewound bool

	readLocked  bool
	writeLocked bool
}

// New returns a closed Store.
func New(opts Options) *Store {
	s := &Store{
		path:    opts.Path,
		runMode: opts.RunMode,
		log:     opts.Logger,
		signals: opts.Signals,
		pid:     opts.PID,
		fd:      -1,
		slot:    -1,
	}
	if s.path == "" {
		s.path = DefaultPath
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.signals == nil {
		s.signals = ignoreSignals{}
	}
	if s.pid == 0 {
		s.pid = os.Getpid()
	}
	return s
}

func (s *Store) logger() logrus.FieldLogger {
	return s.log.WithFields(logrus.Fields{
		"path": s.path,
		"pid":  s.pid,
	})
}

// Open validates path with SetPath and opens it.
func Open(path string, mode Mode, opts Options) (*Store, int, error) {
	s := New(opts)
	if err := s.SetPath(path); err != nil {
		return nil, 0, err
	}
	owner, err := s.Open(mode)
	if err != nil {
		return nil, 0, err
	}
	return s, owner, nil
}

// Path returns the file path used by Open.
func (s *Store) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// SetPath changes the file used by the next Open. The parent directory must
// exist and must not be writable by others. On error the path is unchanged.
func (s *Store) SetPath(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f != nil {
		return fmt.Errorf("%w: cannot change path of an open scoreboard", ErrInvalidState)
	}
	if !strings.ContainsRune(path, filepath.Separator) {
		return fmt.Errorf("%w: %q has no directory component", ErrInvalidArgument, path)
	}
	dir := filepath.Dir(path)
	fi, err := os.Stat(dir)
	if err != nil {
		return &IOError{Op: "stat", Path: dir, Err: err}
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotADirectory, dir)
	}
	if fi.Mode().Perm()&0o002 != 0 {
		return fmt.Errorf("%w: %s is world-writable", ErrPermissionDenied, dir)
	}
	s.path = path
	return nil
}

// IsOpen reports whether the handle holds an open descriptor.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f != nil
}

// Header returns the header read or written by the last successful Open.
func (s *Store) Header() Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header
}

// Open opens the file. A file that exists must carry a valid header; a new
// ReadWrite file gets one. The returned owner pid comes from an existing
// header and is 0 for a file this call initialised. On any error the handle
// stays closed.
func (s *Store) Open(mode Mode) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f != nil {
		return 0, fmt.Errorf("%w: already open", ErrInvalidState)
	}

	flags := os.O_RDONLY | unix.O_NOFOLLOW
	if mode == ReadWrite {
		flags = os.O_RDWR | os.O_CREATE | unix.O_NOFOLLOW
	}
	f, err := os.OpenFile(s.path, flags, FileMode)
	if err != nil {
		if errors.Is(err, unix.ELOOP) {
			return 0, fmt.Errorf("%w: %s is a symbolic link", ErrPermissionDenied, s.path)
		}
		return 0, &IOError{Op: "open", Path: s.path, Err: err}
	}

	// The type check happens on the open descriptor so the file cannot be
	// swapped between check and use.
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, &IOError{Op: "stat", Path: s.path, Err: err}
	}
	if fi.Mode()&fs.ModeSymlink != 0 || !fi.Mode().IsRegular() {
		f.Close()
		return 0, fmt.Errorf("%w: %s is not a regular file", ErrPermissionDenied, s.path)
	}
	if mode == ReadWrite {
		if err := f.Chmod(FileMode); err != nil {
			s.logger().WithError(err).Debug("unable to set scoreboard mode")
		}
	}

	s.f = f
	s.fd = int(f.Fd())

	owner, err := s.loadHeader(mode)
	if err != nil {
		s.closeLocked()
		return 0, err
	}
	if _, err := s.seek(HeaderSize, io.SeekStart); err != nil {
		s.closeLocked()
		return 0, err
	}
	return owner, nil
}

func (s *Store) loadHeader(mode Mode) (int, error) {
	buf := make([]byte, HeaderSize)
	n, err := s.pread(buf, 0)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		if mode != ReadWrite {
			return 0, fmt.Errorf("%w: %s has no header", ErrBadMagic, s.path)
		}
		return s.initHeader()
	}
	if n < HeaderSize {
		return 0, fmt.Errorf("%w: short header (%d bytes)", ErrBadMagic, n)
	}
	var h Header
	if err := h.UnmarshalBinary(buf); err != nil {
		return 0, err
	}
	if err := h.validate(); err != nil {
		return 0, err
	}
	s.header = h
	return h.OwnerPID, nil
}

// initHeader writes a fresh header into an empty file. It re-checks under the
// whole-file lock so racing creators write it once.
func (s *Store) initHeader() (int, error) {
	if err := s.wlockFile(); err != nil {
		return 0, err
	}
	defer s.unlockFile()

	buf := make([]byte, HeaderSize)
	n, err := s.pread(buf, 0)
	if err != nil {
		return 0, err
	}
	if n == HeaderSize {
		var h Header
		if err := h.UnmarshalBinary(buf); err != nil {
			return 0, err
		}
		if err := h.validate(); err != nil {
			return 0, err
		}
		s.header = h
		return h.OwnerPID, nil
	}

	owner := 0
	if s.runMode == Standalone {
		owner = s.pid
	}
	h := newHeader(owner)
	data, _ := h.MarshalBinary()
	if err := s.pwrite(data, 0); err != nil {
		return 0, err
	}
	s.header = h
	return 0, nil
}

// Close releases any whole-file lock and closes the descriptor. Closing a
// closed store is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Store) closeLocked() error {
	if s.f == nil {
		return nil
	}
	if s.readLocked || s.writeLocked {
		_ = s.unlockFile()
	}
	err := s.f.Close()
	s.f = nil
	s.fd = -1
	s.slot = -1
	s.live = false
	s.entry = Entry{}
	s.rewound = false
	if err != nil {
		return &IOError{Op: "close", Path: s.path, Err: err}
	}
	return nil
}

// Delete closes the store and unlinks the file. A missing file is fine.
func (s *Store) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.closeLocked()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &IOError{Op: "remove", Path: s.path, Err: err}
	}
	return nil
}

// Slots returns the number of slots in the file, free or occupied.
func (s *Store) Slots() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return 0, ErrNotOpen
	}
	var st unix.Stat_t
	if err := unix.Fstat(s.fd, &st); err != nil {
		return 0, &IOError{Op: "stat", Path: s.path, Err: err}
	}
	if st.Size <= HeaderSize {
		return 0, nil
	}
	return int((st.Size - HeaderSize) / EntrySize), nil
}
