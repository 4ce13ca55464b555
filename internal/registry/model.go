package registry

import "time"

// Session is one occupied scoreboard slot as seen by monitors. It is a copy;
// changing it has no effect on the scoreboard.
type Session struct {
	PID int `json:"pid"`
	UID int `json:"uid"`
	GID int `json:"gid"`

	User       string `json:"user,omitempty"`
	Class      string `json:"class,omitempty"`
	Client     string `json:"client,omitempty"`
	Server     string `json:"server,omitempty"`
	ServerName string `json:"server_name,omitempty"`
	Port       int    `json:"port,omitempty"`
	Cwd        string `json:"cwd,omitempty"`
	Command    string `json:"command,omitempty"`

	Started   *time.Time `json:"started,omitempty"`
	IdleSince *time.Time `json:"idle_since,omitempty"`

	Transfer Transfer `json:"transfer"`
}

// Transfer is the byte progress of the current data transfer. Size is zero
// when the total is unknown.
type Transfer struct {
	Done int64 `json:"done"`
	Size int64 `json:"size"`
}

// Idle reports whether the worker is waiting for a client command.
func (s Session) Idle() bool { return s.IdleSince != nil }

// IdleFor is how long the worker has been idle at t, or zero.
func (s Session) IdleFor(t time.Time) time.Duration {
	if s.IdleSince == nil || t.Before(*s.IdleSince) {
		return 0
	}
	return t.Sub(*s.IdleSince)
}

// Uptime is the session age at t, or zero when the start is unknown.
func (s Session) Uptime(t time.Time) time.Duration {
	if s.Started == nil || t.Before(*s.Started) {
		return 0
	}
	return t.Sub(*s.Started)
}

// Percent returns transfer completion in [0,100], and false when the total
// size is unknown.
func (t Transfer) Percent() (float64, bool) {
	if t.Size <= 0 {
		return 0, false
	}
	p := float64(t.Done) / float64(t.Size) * 100
	if p > 100 {
		p = 100
	}
	return p, true
}

// ListFilter narrows a List query. Empty fields match everything.
type ListFilter struct {
	Users      []string // include if user is ANY of these
	Classes    []string // include if class is ANY of these
	PIDs       []int
	Servers    []string // matched against server address and server name
	IdleOnly   bool
	ActiveOnly bool
	TextSearch string // substring search over Command
}
