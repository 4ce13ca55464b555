package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Activity is a short human description of what the session is doing at t:
// idle time, transfer progress, or the last command.
func (s Session) Activity(t time.Time) string {
	if s.Idle() {
		return "idle " + strings.TrimSpace(humanize.RelTime(*s.IdleSince, t, "", ""))
	}
	if p := s.Transfer.String(); p != "" {
		return p
	}
	if s.Command == "" {
		return "-"
	}
	return s.Command
}

// Age is the session age at t in words, or "-" when unknown.
func (s Session) Age(t time.Time) string {
	if s.Started == nil {
		return "-"
	}
	return humanize.RelTime(*s.Started, t, "ago", "from now")
}

// String renders transfer progress such as "1.2 MB / 4.0 MB (30%)". It is
// empty when nothing has been transferred yet.
func (t Transfer) String() string {
	if t.Done == 0 && t.Size == 0 {
		return ""
	}
	done := humanize.Bytes(uint64(max(t.Done, 0)))
	pct, ok := t.Percent()
	if !ok {
		return done
	}
	return fmt.Sprintf("%s / %s (%.0f%%)", done, humanize.Bytes(uint64(t.Size)), pct)
}
