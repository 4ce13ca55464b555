package scoreboard

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// FieldUpdate changes one field of the caller's entry. Values are built with
// the constructors below; a nil FieldUpdate is rejected.
type FieldUpdate interface {
	field() string
}

type (
	setUser       string
	setClientAddr string
	setClass      string
	setCwd        string
	setCommand    string
	setServerAddr struct {
		addr string
		port int
	}
	setServerPort   int
	setServerName   string
	beginIdle       struct{}
	beginSession    struct{}
	setTransferDone int64
	setTransferSize int64
)

func (setUser) field() string         { return "user" }
func (setClientAddr) field() string   { return "client_address" }
func (setClass) field() string        { return "connection_class" }
func (setCwd) field() string          { return "working_directory" }
func (setCommand) field() string      { return "command" }
func (setServerAddr) field() string   { return "server_address" }
func (setServerPort) field() string   { return "server_port" }
func (setServerName) field() string   { return "server_name" }
func (beginIdle) field() string       { return "begin_idle" }
func (beginSession) field() string    { return "begin_session" }
func (setTransferDone) field() string { return "transfer_bytes_done" }
func (setTransferSize) field() string { return "transfer_bytes_total" }

const unknown = "(unknown)"

// User sets the authenticated user name.
func User(name string) FieldUpdate { return setUser(name) }

// ClientAddr records the remote peer as "name [ip]".
func ClientAddr(name string, ip net.IP) FieldUpdate {
	if name == "" {
		name = unknown
	}
	addr := unknown
	if ip != nil {
		addr = ip.String()
	}
	return setClientAddr(fmt.Sprintf("%s [%s]", name, addr))
}

// Class sets the connection class used for per-class limits.
func Class(name string) FieldUpdate { return setClass(name) }

// Cwd sets the working directory in the served namespace.
func Cwd(path string) FieldUpdate { return setCwd(path) }

// Command records the latest client command verbatim. Applying it also
// clears the idle mark.
func Command(cmd string) FieldUpdate { return setCommand(cmd) }

// Commandf is Command with fmt.Sprintf formatting.
func Commandf(format string, args ...any) FieldUpdate {
	return setCommand(fmt.Sprintf(format, args...))
}

// ServerAddr records the accepting address as "ip:port" and sets the port.
func ServerAddr(ip net.IP, port int) FieldUpdate {
	host := unknown
	if ip != nil {
		host = ip.String()
	}
	return setServerAddr{addr: net.JoinHostPort(host, strconv.Itoa(port)), port: port}
}

func ServerPort(port int) FieldUpdate { return setServerPort(port) }

func ServerName(name string) FieldUpdate { return setServerName(name) }

// BeginIdle stamps the idle start with the current time.
func BeginIdle() FieldUpdate { return beginIdle{} }

// BeginSession stamps the session start with the current time.
func BeginSession() FieldUpdate { return beginSession{} }

func TransferDone(n int64) FieldUpdate { return setTransferDone(n) }

func TransferSize(n int64) FieldUpdate { return setTransferSize(n) }

var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func apply(e *Entry, u FieldUpdate, ts time.Time) error {
	switch v := u.(type) {
	case setUser:
		e.User = bound(string(v), UserWidth)
	case setClientAddr:
		e.ClientAddr = bound(string(v), ClientAddrWidth)
	case setClass:
		e.Class = bound(string(v), ClassWidth)
	case setCwd:
		e.Cwd = bound(string(v), CwdWidth)
	case setCommand:
		e.Command = bound(string(v), CommandWidth)
		e.IdleStart = time.Time{}
	case setServerAddr:
		e.ServerAddr = bound(v.addr, ServerAddrWidth)
		e.ServerPort = v.port
	case setServerPort:
		e.ServerPort = int(v)
	case setServerName:
		e.ServerName = bound(string(v), ServerNameWidth)
	case beginIdle:
		e.IdleStart = ts
	case beginSession:
		e.SessionStart = ts
	case setTransferDone:
		e.TransferDone = int64(v)
	case setTransferSize:
		e.TransferSize = int64(v)
	default:
		return fmt.Errorf("%w: unrecognized field update %T", ErrInvalidArgument, u)
	}
	return nil
}

// UpdateEntry applies updates in order to this process's entry, later ones
// winning, then writes the whole entry under the slot lock. pid must be the
// slot owner. If any update is invalid nothing changes. A failed write is
// logged and the in-memory entry is kept, so the next update carries it.
func (s *Store) UpdateEntry(pid int, updates ...FieldUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return ErrNotOpen
	}
	if !s.live {
		return fmt.Errorf("%w: no entry allocated", ErrInvalidState)
	}
	if pid != s.entry.PID {
		return fmt.Errorf("%w: slot belongs to pid %d, not %d", ErrPermissionDenied, s.entry.PID, pid)
	}

	next := s.entry
	ts := now()
	for _, u := range updates {
		if err := apply(&next, u, ts); err != nil {
			return err
		}
	}
	s.entry = next

	if err := s.lockEntry(); err != nil {
		return err
	}
	defer s.unlockEntry()

	if err := s.writeEntry(s.slot, &s.entry); err != nil {
		s.logger().WithError(err).WithField("offset", s.slot).Warn("error writing scoreboard entry")
	}
	return nil
}
