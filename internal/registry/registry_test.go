package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goscore/internal/scoreboard"
)

var epoch = time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

func stubNow(t *testing.T) {
	t.Helper()
	orig := now
	now = func() time.Time { return epoch }
	t.Cleanup(func() { now = orig })
}

func sampleEntries() []scoreboard.Entry {
	return []scoreboard.Entry{
		{PID: 30, User: "alice", Class: "staff", Command: "RETR a.txt", ServerAddr: "10.0.0.1:21", ServerName: "main",
			SessionStart: epoch.Add(-time.Hour), TransferDone: 50, TransferSize: 200},
		{PID: 10, User: "bob", Class: "guest", ServerAddr: "10.0.0.2:21", ServerName: "aux",
			IdleStart: epoch.Add(-5 * time.Minute)},
		{},
		{PID: 20, User: "alice", Class: "staff", Command: "LIST", ServerAddr: "10.0.0.1:21", ServerName: "main"},
		{PID: 10, User: "stale"},
		{PID: 40, Class: ""},
	}
}

func TestFromEntries(t *testing.T) {
	stubNow(t)
	r := FromEntries(sampleEntries())

	assert.Equal(t, 4, r.Len())
	assert.Equal(t, 1, r.Duplicates)
	assert.Equal(t, epoch, r.Taken())
	assert.Equal(t, []string{"alice", "bob"}, r.Users())

	bob, ok := r.Get(10)
	require.True(t, ok)
	assert.Equal(t, "bob", bob.User, "first slot wins for a repeated pid")
	assert.True(t, bob.Idle())
	assert.Equal(t, 5*time.Minute, bob.IdleFor(epoch))
	assert.Nil(t, bob.Started)

	alice, ok := r.Get(30)
	require.True(t, ok)
	assert.False(t, alice.Idle())
	assert.Equal(t, time.Hour, alice.Uptime(epoch))
	pct, known := alice.Transfer.Percent()
	assert.True(t, known)
	assert.InDelta(t, 25.0, pct, 0.001)

	_, ok = r.Get(99)
	assert.False(t, ok)
}

func TestList(t *testing.T) {
	r := FromEntries(sampleEntries())

	cases := []struct {
		name   string
		filter ListFilter
		want   []int
	}{
		{"all sorted by pid", ListFilter{}, []int{10, 20, 30, 40}},
		{"users", ListFilter{Users: []string{"alice"}}, []int{20, 30}},
		{"classes", ListFilter{Classes: []string{"guest", "staff"}}, []int{10, 20, 30}},
		{"pids", ListFilter{PIDs: []int{30, 40, 77}}, []int{30, 40}},
		{"server by name", ListFilter{Servers: []string{"aux"}}, []int{10}},
		{"server by address", ListFilter{Servers: []string{"10.0.0.1:21"}}, []int{20, 30}},
		{"idle only", ListFilter{IdleOnly: true}, []int{10}},
		{"active only", ListFilter{ActiveOnly: true}, []int{20, 30, 40}},
		{"text search", ListFilter{TextSearch: " RETR "}, []int{30}},
		{"combined", ListFilter{Users: []string{"alice"}, TextSearch: "LIST"}, []int{20}},
		{"no match", ListFilter{Users: []string{"nobody"}}, []int{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := r.List(tc.filter)
			pids := make([]int, 0, len(got))
			for _, s := range got {
				pids = append(pids, s.PID)
			}
			assert.Equal(t, tc.want, pids)
		})
	}
}

func TestCountByClass(t *testing.T) {
	r := FromEntries(sampleEntries())
	assert.Equal(t, map[string]int{"staff": 2, "guest": 1, "": 1}, r.CountByClass())
}

func TestListFilterValidate(t *testing.T) {
	f := ListFilter{Users: []string{" alice ", "alice", ""}, Classes: []string{"vip.1"}, TextSearch: "  STOR "}
	require.NoError(t, f.Validate())
	assert.Equal(t, []string{"alice"}, f.Users)
	assert.Equal(t, []string{"vip.1"}, f.Classes)
	assert.Equal(t, "STOR", f.TextSearch)

	bad := []ListFilter{
		{Users: []string{"al ice"}},
		{Classes: []string{"a/b"}},
		{Users: []string{"abcdefghijklmnopqrstuvwxyz0123456789"}},
		{IdleOnly: true, ActiveOnly: true},
		{PIDs: []int{0}},
	}
	for _, f := range bad {
		assert.Error(t, f.Validate(), "%+v", f)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	stubNow(t)
	r := FromEntries(sampleEntries())
	path := filepath.Join(t.TempDir(), "nested", "sessions.json")

	require.NoError(t, r.SaveSnapshot(path))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, r.List(ListFilter{}), loaded.List(ListFilter{}))
	assert.Equal(t, r.CountByClass(), loaded.CountByClass())
	assert.Equal(t, 1, loaded.Duplicates)
	assert.True(t, epoch.Equal(loaded.Taken()))
}

func TestLoadSnapshotRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "sessions": []}`), 0o600))
	_, err := LoadSnapshot(path)
	assert.ErrorContains(t, err, "newer than supported")
}
