package registry

import (
	"sort"
	"strings"
	"sync"
	"time"

	"goscore/internal/scoreboard"
)

// Registry is a threadsafe, read-only catalog of the sessions found in one
// scoreboard pass. Secondary indexes enable cheap queries by user and class.
type Registry struct {
	mu      sync.RWMutex
	byPID   map[int]*Session
	byUser  map[string]map[int]struct{}
	byClass map[string]map[int]struct{}
	taken   time.Time

	// Slots holding a pid already seen earlier in the pass. A worker that
	// crashed and was restarted under a recycled pid can leave these behind.
	Duplicates int
}

// FromEntries indexes a scan result. The first slot wins for a repeated pid.
func FromEntries(entries []scoreboard.Entry) *Registry {
	r := newRegistry(now())
	for _, e := range entries {
		if e.Free() {
			continue
		}
		if _, ok := r.byPID[e.PID]; ok {
			r.Duplicates++
			continue
		}
		r.insert(sessionFromEntry(e))
	}
	return r
}

func newRegistry(taken time.Time) *Registry {
	return &Registry{
		byPID:   make(map[int]*Session),
		byUser:  make(map[string]map[int]struct{}),
		byClass: make(map[string]map[int]struct{}),
		taken:   taken,
	}
}

func sessionFromEntry(e scoreboard.Entry) Session {
	s := Session{
		PID:        e.PID,
		UID:        e.UID,
		GID:        e.GID,
		User:       e.User,
		Class:      e.Class,
		Client:     e.ClientAddr,
		Server:     e.ServerAddr,
		ServerName: e.ServerName,
		Port:       e.ServerPort,
		Cwd:        e.Cwd,
		Command:    e.Command,
		Transfer:   Transfer{Done: e.TransferDone, Size: e.TransferSize},
	}
	if !e.SessionStart.IsZero() {
		t := e.SessionStart
		s.Started = &t
	}
	if e.Idle() {
		t := e.IdleStart
		s.IdleSince = &t
	}
	return s
}

func (r *Registry) insert(s Session) {
	p := &s
	r.byPID[s.PID] = p
	if s.User != "" {
		if _, ok := r.byUser[s.User]; !ok {
			r.byUser[s.User] = make(map[int]struct{})
		}
		r.byUser[s.User][s.PID] = struct{}{}
	}
	if _, ok := r.byClass[s.Class]; !ok {
		r.byClass[s.Class] = make(map[int]struct{})
	}
	r.byClass[s.Class][s.PID] = struct{}{}
}

// Taken is when the underlying pass was indexed.
func (r *Registry) Taken() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.taken
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPID)
}

// Get returns a copy of a Session by pid.
func (r *Registry) Get(pid int) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p := r.byPID[pid]
	if p == nil {
		return Session{}, false
	}
	return *p, true
}

// List returns matching sessions, sorted by pid asc.
func (r *Registry) List(f ListFilter) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pids := make([]int, 0, len(r.byPID))
	for pid := range r.byPID {
		pids = append(pids, pid)
	}

	if len(f.PIDs) > 0 {
		pidSet := make(map[int]struct{}, len(f.PIDs))
		for _, p := range f.PIDs {
			pidSet[p] = struct{}{}
		}
		pids = filterPIDs(pids, func(pid int) bool {
			_, ok := pidSet[pid]
			return ok
		})
	}

	if len(f.Users) > 0 {
		userSet := make(map[int]struct{})
		for _, u := range f.Users {
			for pid := range r.byUser[u] {
				userSet[pid] = struct{}{}
			}
		}
		pids = filterPIDs(pids, func(pid int) bool {
			_, ok := userSet[pid]
			return ok
		})
	}

	if len(f.Classes) > 0 {
		classSet := make(map[int]struct{})
		for _, c := range f.Classes {
			for pid := range r.byClass[c] {
				classSet[pid] = struct{}{}
			}
		}
		pids = filterPIDs(pids, func(pid int) bool {
			_, ok := classSet[pid]
			return ok
		})
	}

	if len(f.Servers) > 0 {
		servers := make(strset, len(f.Servers))
		for _, s := range f.Servers {
			servers.add(strings.TrimSpace(s))
		}
		pids = filterPIDs(pids, func(pid int) bool {
			p := r.byPID[pid]
			return servers.has(p.Server) || servers.has(p.ServerName)
		})
	}

	if f.IdleOnly {
		pids = filterPIDs(pids, func(pid int) bool {
			return r.byPID[pid].Idle()
		})
	}
	if f.ActiveOnly {
		pids = filterPIDs(pids, func(pid int) bool {
			return !r.byPID[pid].Idle()
		})
	}

	if s := strings.TrimSpace(f.TextSearch); s != "" {
		pids = filterPIDs(pids, func(pid int) bool {
			return strings.Contains(r.byPID[pid].Command, s)
		})
	}

	out := make([]Session, 0, len(pids))
	for _, pid := range pids {
		out = append(out, *r.byPID[pid])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}

// CountByClass returns the number of sessions per connection class. Sessions
// without a class are counted under "".
func (r *Registry) CountByClass() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int, len(r.byClass))
	for class, pids := range r.byClass {
		out[class] = len(pids)
	}
	return out
}

// Users returns the distinct authenticated user names, sorted.
func (r *Registry) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := make(strset, len(r.byUser))
	for u := range r.byUser {
		set.add(u)
	}
	return set.sorted()
}

func filterPIDs(pids []int, keep func(int) bool) []int {
	dst := pids[:0]
	for _, pid := range pids {
		if keep(pid) {
			dst = append(dst, pid)
		}
	}
	return dst
}
