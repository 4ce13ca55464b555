package scoreboard

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestUpdateEntryFields(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	stubNow(t, ts)

	path := testPath(t)
	s := addEntry(t, path, 77)

	err := s.UpdateEntry(77,
		User("dave"),
		ClientAddr("host.example.net", net.ParseIP("198.51.100.4")),
		Class("vip"),
		Cwd("/pub"),
		ServerAddr(net.ParseIP("203.0.113.9"), 2121),
		ServerName("Primary"),
		BeginSession(),
		TransferSize(4096),
		TransferDone(1024),
	)
	require.NoError(t, err)

	want := Entry{
		PID:          77,
		UID:          s.Entry().UID,
		GID:          s.Entry().GID,
		User:         "dave",
		ClientAddr:   "host.example.net [198.51.100.4]",
		ServerAddr:   "203.0.113.9:2121",
		ServerName:   "Primary",
		ServerPort:   2121,
		Class:        "vip",
		Cwd:          "/pub",
		SessionStart: ts,
		TransferDone: 1024,
		TransferSize: 4096,
	}
	assert.Equal(t, want, s.Entry())

	var onDisk Entry
	require.NoError(t, onDisk.UnmarshalBinary(readSlot(t, path, s.Slot())))
	assert.Equal(t, want, onDisk)
}

func TestUpdateEntryLaterUpdatesWin(t *testing.T) {
	s := addEntry(t, testPath(t), 5)
	require.NoError(t, s.UpdateEntry(5, User("first"), User("second"), ServerPort(21), ServerPort(990)))
	assert.Equal(t, "second", s.Entry().User)
	assert.Equal(t, 990, s.Entry().ServerPort)
}

func TestCommandClearsIdle(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	stubNow(t, ts)

	s := addEntry(t, testPath(t), 8)
	require.NoError(t, s.UpdateEntry(8, BeginIdle()))
	assert.Equal(t, ts, s.Entry().IdleStart)
	assert.True(t, s.Entry().Idle())

	require.NoError(t, s.UpdateEntry(8, Commandf("STOR %s", "upload.bin")))
	assert.Equal(t, "STOR upload.bin", s.Entry().Command)
	assert.True(t, s.Entry().IdleStart.IsZero())
	assert.False(t, s.Entry().Idle())
}

func TestCommandIsLiteral(t *testing.T) {
	s := addEntry(t, testPath(t), 8)
	require.NoError(t, s.UpdateEntry(8, Command("SITE 100%")))
	assert.Equal(t, "SITE 100%", s.Entry().Command)
}

func TestAddressesWithoutPeerInfo(t *testing.T) {
	s := addEntry(t, testPath(t), 8)
	require.NoError(t, s.UpdateEntry(8, ClientAddr("", nil), ServerAddr(nil, 21)))
	assert.Equal(t, "(unknown) [(unknown)]", s.Entry().ClientAddr)
	assert.Equal(t, "(unknown):21", s.Entry().ServerAddr)

	require.NoError(t, s.UpdateEntry(8, ServerAddr(net.ParseIP("2001:db8::1"), 21)))
	assert.Equal(t, "[2001:db8::1]:21", s.Entry().ServerAddr)
}

func TestUpdateEntryTruncates(t *testing.T) {
	path := testPath(t)
	s := addEntry(t, path, 8)
	require.NoError(t, s.UpdateEntry(8, Cwd(strings.Repeat("a", 1000))))
	assert.Len(t, s.Entry().Cwd, CwdWidth-1)

	var onDisk Entry
	require.NoError(t, onDisk.UnmarshalBinary(readSlot(t, path, s.Slot())))
	assert.Equal(t, s.Entry().Cwd, onDisk.Cwd)
}

func TestUpdateEntryErrors(t *testing.T) {
	path := testPath(t)

	t.Run("closed", func(t *testing.T) {
		s := New(Options{})
		assert.ErrorIs(t, s.UpdateEntry(1, User("x")), ErrNotOpen)
	})

	t.Run("no entry", func(t *testing.T) {
		s := openStore(t, path, ReadWrite, 1)
		assert.ErrorIs(t, s.UpdateEntry(1, User("x")), ErrInvalidState)
	})

	t.Run("foreign pid", func(t *testing.T) {
		s := addEntry(t, path, 2)
		assert.ErrorIs(t, s.UpdateEntry(3, User("x")), ErrPermissionDenied)
		assert.Empty(t, s.Entry().User)
	})

	t.Run("nil update leaves entry unchanged", func(t *testing.T) {
		s := addEntry(t, path, 4)
		require.NoError(t, s.UpdateEntry(4, User("before")))

		err := s.UpdateEntry(4, User("after"), nil)
		assert.ErrorIs(t, err, ErrInvalidArgument)
		assert.Equal(t, "before", s.Entry().User)

		var onDisk Entry
		require.NoError(t, onDisk.UnmarshalBinary(readSlot(t, path, s.Slot())))
		assert.Equal(t, "before", onDisk.User)
	})
}

func TestUpdateEntryWriteFailureKeepsMemory(t *testing.T) {
	path := testPath(t)
	logger, hook := test.NewNullLogger()
	s, _, err := Open(path, ReadWrite, Options{RunMode: PerConnection, Logger: logger, PID: 66})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.AddEntry())

	orig := sysPwrite
	sysPwrite = func(int, []byte, int64) (int, error) { return 0, unix.EIO }
	require.NoError(t, s.UpdateEntry(66, User("erin")))
	sysPwrite = orig

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "erin", s.Entry().User)

	// The next successful write carries the earlier change.
	require.NoError(t, s.UpdateEntry(66, Class("late")))
	var onDisk Entry
	require.NoError(t, onDisk.UnmarshalBinary(readSlot(t, path, s.Slot())))
	assert.Equal(t, "erin", onDisk.User)
	assert.Equal(t, "late", onDisk.Class)
}

func TestUpdateEntryShortWrite(t *testing.T) {
	path := testPath(t)
	logger, hook := test.NewNullLogger()
	s, _, err := Open(path, ReadWrite, Options{RunMode: PerConnection, Logger: logger, PID: 67})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.AddEntry())

	stubPwrite(t, func(_ int, p []byte, _ int64) (int, error) { return len(p) / 2, nil })
	require.NoError(t, s.UpdateEntry(67, User("frank")))
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Data[logrus.ErrorKey].(error).Error(), "short write")
}
