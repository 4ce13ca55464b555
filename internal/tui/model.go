package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"goscore/internal/app"
)

// DefaultRefresh is how often the session list is rescanned.
const DefaultRefresh = 2 * time.Second

// Controller defines the subset of app.App behaviour the TUI needs.
type Controller interface {
	Status() (app.DaemonStatus, error)
	SpawnDaemon() (app.DaemonStatus, error)
	List(context.Context, app.ListParams) ([]app.Session, error)
	Kill(context.Context, app.KillParams) (app.KillResult, error)
}

// Model represents the Bubble Tea state.
type Model struct {
	controller Controller
	refresh    time.Duration
	now        func() time.Time

	list     list.Model
	sessions []app.Session
	selected map[int]bool

	daemonStatus app.DaemonStatus
	statusMsg    string

	err     error
	loading bool

	width  int
	height int

	filters app.ListFilters

	lastUpdated time.Time
}

// New constructs a TUI model with default styles. A refresh of zero uses
// DefaultRefresh.
func New(ctrl Controller, refresh time.Duration) *Model {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	delegate := list.NewDefaultDelegate()
	lst := list.New([]list.Item{}, delegate, 0, 0)
	lst.Title = "Sessions"
	lst.SetShowHelp(false)
	lst.SetFilteringEnabled(false)
	lst.DisableQuitKeybindings()

	return &Model{
		controller: ctrl,
		refresh:    refresh,
		now:        time.Now,
		list:       lst,
		filters:    app.ListFilters{},
		statusMsg:  "Checking daemon status…",
		loading:    true,
		selected:   make(map[int]bool),
	}
}

// Run spins up the Bubble Tea program with sensible defaults.
func Run(ctrl Controller, refresh time.Duration) error {
	m := New(ctrl, refresh)
	prog := tea.NewProgram(m, tea.WithAltScreen())
	_, err := prog.Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(checkDaemonStatusCmd(m.controller), loadSessionsCmd(m.controller, m.filters), tickCmd(m.refresh))
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.height > 12 {
			m.list.SetSize(msg.Width, msg.Height-12)
		}

	case daemonStatusMsg:
		m.daemonStatus = msg.status
		if msg.status.Running {
			if msg.status.PID > 0 {
				m.statusMsg = fmt.Sprintf("Daemon running (pid %d).", msg.status.PID)
			} else {
				m.statusMsg = "Daemon running."
			}
		} else {
			m.statusMsg = "Daemon is not running. Press s to start it."
		}

	case sessionsLoadedMsg:
		m.loading = false
		m.err = nil
		m.setSessions(msg.sessions)
		m.lastUpdated = m.now()

	case tickMsg:
		return m, tea.Batch(checkDaemonStatusCmd(m.controller), loadSessionsCmd(m.controller, m.filters), tickCmd(m.refresh))

	case daemonStartedMsg:
		m.daemonStatus = msg.status
		m.statusMsg = fmt.Sprintf("Daemon started (pid %d).", msg.status.PID)
		return m, loadSessionsCmd(m.controller, m.filters)

	case killedMsg:
		m.statusMsg = msg.summary
		m.clearSelection()
		return m, loadSessionsCmd(m.controller, m.filters)

	case errMsg:
		m.loading = false
		m.err = msg.err

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.loading = true
			return m, loadSessionsCmd(m.controller, m.filters)
		case "s":
			if !m.daemonStatus.Running {
				m.statusMsg = "Starting daemon…"
				return m, startDaemonCmd(m.controller)
			}
		case "i":
			m.filters.IdleOnly = !m.filters.IdleOnly
			m.loading = true
			return m, loadSessionsCmd(m.controller, m.filters)
		case " ":
			m.toggleCurrentSelection()
		case "c":
			if len(m.selected) > 0 {
				m.clearSelection()
			}
		case "k":
			if pids := m.selectedPIDs(); len(pids) > 0 {
				m.statusMsg = fmt.Sprintf("Signalling %d session(s)…", len(pids))
				return m, killCmd(m.controller, pids)
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) setSessions(sessions []app.Session) {
	m.sessions = sessions
	now := m.now()
	newSelected := make(map[int]bool)
	items := make([]list.Item, 0, len(sessions))
	for _, s := range sessions {
		selected := m.selected[s.PID]
		if selected {
			newSelected[s.PID] = true
		}
		items = append(items, sessionItem{Session: s, Selected: selected, now: now})
	}
	m.selected = newSelected
	m.list.SetItems(items)
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	statusStyle := lipgloss.NewStyle().Bold(true)
	if !m.daemonStatus.Running {
		statusStyle = statusStyle.Foreground(lipgloss.Color("203"))
	} else {
		statusStyle = statusStyle.Foreground(lipgloss.Color("42"))
	}
	b.WriteString(statusStyle.Render(m.statusMsg))
	b.WriteByte('\n')

	if m.loading {
		b.WriteString("Scanning scoreboard…\n")
	} else if m.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
		b.WriteString(errStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteByte('\n')
	}

	if len(m.list.Items()) == 0 && !m.loading && m.err == nil {
		b.WriteString("No sessions.\n")
	} else {
		b.WriteString(m.list.View())
		b.WriteByte('\n')
	}

	if current := m.currentSession(); current != nil {
		detailStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).MarginBottom(1)
		b.WriteString(detailStyle.Render(m.detail(*current)))
		b.WriteByte('\n')
	}

	help := "Commands: q quit • r rescan • s start daemon • i idle only • space select • c clear • k kill selected"
	if m.filters.IdleOnly {
		help += " • idle filter on"
	}
	if count := len(m.selected); count > 0 {
		help += fmt.Sprintf(" • selected=%d", count)
	}
	if !m.lastUpdated.IsZero() {
		help += fmt.Sprintf(" • last scan %s", m.lastUpdated.Format(time.Kitchen))
	}
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func (m *Model) detail(s app.Session) string {
	now := m.now()
	server := valueOrDash(s.Server)
	if s.ServerName != "" {
		server = fmt.Sprintf("%s (%s)", server, s.ServerName)
	}
	transfer := s.Transfer.String()
	if transfer == "" {
		transfer = "-"
	}
	idle := "no"
	if s.Idle() {
		idle = humanize.RelTime(*s.IdleSince, now, "", "")
	}
	return fmt.Sprintf(
		"pid=%d uid=%d gid=%d\nuser=%s class=%s\nclient=%s\nserver=%s\ncwd=%s\ncmd=%s\nstarted=%s idle=%s\ntransfer=%s",
		s.PID, s.UID, s.GID,
		valueOrDash(s.User), valueOrDash(s.Class),
		valueOrDash(s.Client),
		server,
		valueOrDash(s.Cwd),
		valueOrDash(s.Command),
		s.Age(now), strings.TrimSpace(idle),
		transfer,
	)
}

// sessionItem adapts app.Session to the bubbles list item interface.
type sessionItem struct {
	Session  app.Session
	Selected bool
	now      time.Time
}

func (i sessionItem) Title() string {
	mark := " "
	if i.Selected {
		mark = "✓"
	}
	return fmt.Sprintf("[%s] [pid=%d] %s (%s)", mark, i.Session.PID, valueOrDash(i.Session.User), valueOrDash(i.Session.Class))
}

func (i sessionItem) Description() string {
	return fmt.Sprintf("%s | %s", valueOrDash(i.Session.Client), i.Session.Activity(i.now))
}

func (i sessionItem) FilterValue() string {
	return fmt.Sprintf("%d %s %s %s", i.Session.PID, i.Session.User, i.Session.Class, i.Session.Command)
}

func (m *Model) toggleCurrentSelection() {
	if len(m.sessions) == 0 {
		return
	}
	idx := m.list.Index()
	if idx < 0 || idx >= len(m.sessions) {
		return
	}
	item, ok := m.list.Items()[idx].(sessionItem)
	if !ok {
		return
	}
	if item.Selected {
		delete(m.selected, item.Session.PID)
	} else {
		m.selected[item.Session.PID] = true
	}
	item.Selected = !item.Selected
	m.list.SetItem(idx, item)
}

func (m *Model) clearSelection() {
	m.selected = make(map[int]bool)
	items := m.list.Items()
	for i, it := range items {
		if si, ok := it.(sessionItem); ok && si.Selected {
			si.Selected = false
			m.list.SetItem(i, si)
		}
	}
}

func (m *Model) selectedPIDs() []int {
	pids := make([]int, 0, len(m.selected))
	for _, s := range m.sessions {
		if m.selected[s.PID] {
			pids = append(pids, s.PID)
		}
	}
	return pids
}

func (m *Model) currentSession() *app.Session {
	if len(m.sessions) == 0 {
		return nil
	}
	idx := m.list.Index()
	if idx < 0 || idx >= len(m.sessions) {
		return nil
	}
	return &m.sessions[idx]
}

func valueOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

type daemonStatusMsg struct {
	status app.DaemonStatus
}

type sessionsLoadedMsg struct {
	sessions []app.Session
}

type tickMsg time.Time

type daemonStartedMsg struct {
	status app.DaemonStatus
}

type killedMsg struct {
	summary string
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func checkDaemonStatusCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		status, err := ctrl.Status()
		if err != nil {
			return errMsg{err}
		}
		return daemonStatusMsg{status: status}
	}
}

func loadSessionsCmd(ctrl Controller, filters app.ListFilters) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		sessions, err := ctrl.List(ctx, app.ListParams{Filters: filters})
		if err != nil {
			return errMsg{err}
		}
		return sessionsLoadedMsg{sessions: sessions}
	}
}

func startDaemonCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		status, err := ctrl.SpawnDaemon()
		if err != nil {
			return errMsg{err}
		}
		return daemonStartedMsg{status: status}
	}
}

func killCmd(ctrl Controller, pids []int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		res, err := ctrl.Kill(ctx, app.KillParams{
			Filters:  app.ListFilters{PIDs: pids},
			AllowAll: true,
		})
		if err != nil {
			return errMsg{err}
		}
		if res.Message != "" {
			return killedMsg{summary: res.Message}
		}
		return killedMsg{summary: fmt.Sprintf("Sent SIGTERM to %d session(s).", res.Successes)}
	}
}
