package scoreboard

import (
	"encoding/binary"
	"fmt"
	"time"
	"unicode/utf8"
)

// Format identification written into every header.
const (
	Magic   uint32 = 0xdeadbeef
	Version uint32 = 0x00010003
)

// HeaderSize is the byte length of the header; entry slots start right after it.
const HeaderSize = 12

// Fixed widths of the string fields, including the terminating NUL.
const (
	UserWidth       = 32
	ClientAddrWidth = 80
	ServerAddrWidth = 80
	ServerNameWidth = 32
	ClassWidth      = 32
	CwdWidth        = 256
	CommandWidth    = 80
)

// Byte positions inside one entry slot. Numbers use the host byte order.
const (
	pidOff          = 0
	uidOff          = 4
	gidOff          = 8
	userOff         = 12
	clientAddrOff   = userOff + UserWidth
	serverAddrOff   = clientAddrOff + ClientAddrWidth
	serverNameOff   = serverAddrOff + ServerAddrWidth
	serverPortOff   = serverNameOff + ServerNameWidth
	classOff        = serverPortOff + 4
	cwdOff          = classOff + ClassWidth
	commandOff      = cwdOff + CwdWidth
	sessionStartOff = commandOff + CommandWidth
	idleStartOff    = sessionStartOff + 8
	transferDoneOff = idleStartOff + 8
	transferSizeOff = transferDoneOff + 8

	// EntrySize is the byte length of one slot.
	EntrySize = transferSizeOff + 8
)

var byteOrder = binary.NativeEndian

// Header is the fixed prefix of a scoreboard file.
type Header struct {
	Magic    uint32
	Version  uint32
	OwnerPID int // daemon that created the file, 0 when recreated per connection
}

func newHeader(ownerPID int) Header {
	return Header{Magic: Magic, Version: Version, OwnerPID: ownerPID}
}

func (h *Header) MarshalBinary() ([]byte, error) {
	data := make([]byte, HeaderSize)
	byteOrder.PutUint32(data[0:4], h.Magic)
	byteOrder.PutUint32(data[4:8], h.Version)
	byteOrder.PutUint32(data[8:12], uint32(h.OwnerPID))
	return data, nil
}

func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) != HeaderSize {
		return fmt.Errorf("%w: header is %d bytes, want %d", ErrInvalidArgument, len(data), HeaderSize)
	}
	h.Magic = byteOrder.Uint32(data[0:4])
	h.Version = byteOrder.Uint32(data[4:8])
	h.OwnerPID = int(int32(byteOrder.Uint32(data[8:12])))
	return nil
}

// validate checks magic and version against this implementation.
func (h Header) validate() error {
	switch {
	case h.Magic != Magic:
		return fmt.Errorf("%w: %#x", ErrBadMagic, h.Magic)
	case h.Version < Version:
		return fmt.Errorf("%w: file version %#x, want %#x", ErrTooOld, h.Version, Version)
	case h.Version > Version:
		return fmt.Errorf("%w: file version %#x, want %#x", ErrTooNew, h.Version, Version)
	}
	return nil
}

// Entry is one worker's slot. PID zero marks the slot free.
//
// Times are stored as whole Unix seconds and decode in UTC, with 0 meaning
// unset, so the Unix epoch itself reads back as the zero time. Times set by
// BeginIdle and BeginSession already have that form and round-trip exactly.
type Entry struct {
	PID int
	UID int
	GID int

	User       string
	ClientAddr string // "name [ip]"
	ServerAddr string // "ip:port"
	ServerName string
	ServerPort int
	Class      string
	Cwd        string
	Command    string

	SessionStart time.Time
	IdleStart    time.Time // zero while the worker is busy

	TransferDone int64
	TransferSize int64
}

// Free reports whether the slot is unoccupied.
func (e Entry) Free() bool { return e.PID == 0 }

// Idle reports whether the worker marked itself idle.
func (e Entry) Idle() bool { return !e.IdleStart.IsZero() }

func (e *Entry) MarshalBinary() ([]byte, error) {
	data := make([]byte, EntrySize)
	e.encode(data)
	return data, nil
}

// encode writes e into data, which must be EntrySize bytes long.
func (e *Entry) encode(data []byte) {
	byteOrder.PutUint32(data[pidOff:], uint32(e.PID))
	byteOrder.PutUint32(data[uidOff:], uint32(e.UID))
	byteOrder.PutUint32(data[gidOff:], uint32(e.GID))
	putString(data[userOff:userOff+UserWidth], e.User)
	putString(data[clientAddrOff:clientAddrOff+ClientAddrWidth], e.ClientAddr)
	putString(data[serverAddrOff:serverAddrOff+ServerAddrWidth], e.ServerAddr)
	putString(data[serverNameOff:serverNameOff+ServerNameWidth], e.ServerName)
	byteOrder.PutUint32(data[serverPortOff:], uint32(e.ServerPort))
	putString(data[classOff:classOff+ClassWidth], e.Class)
	putString(data[cwdOff:cwdOff+CwdWidth], e.Cwd)
	putString(data[commandOff:commandOff+CommandWidth], e.Command)
	putTime(data[sessionStartOff:], e.SessionStart)
	putTime(data[idleStartOff:], e.IdleStart)
	byteOrder.PutUint64(data[transferDoneOff:], uint64(e.TransferDone))
	byteOrder.PutUint64(data[transferSizeOff:], uint64(e.TransferSize))
}

func (e *Entry) UnmarshalBinary(data []byte) error {
	if len(data) != EntrySize {
		return fmt.Errorf("%w: entry is %d bytes, want %d", ErrInvalidArgument, len(data), EntrySize)
	}
	*e = Entry{
		PID:          int(int32(byteOrder.Uint32(data[pidOff:]))),
		UID:          int(byteOrder.Uint32(data[uidOff:])),
		GID:          int(byteOrder.Uint32(data[gidOff:])),
		User:         getString(data[userOff : userOff+UserWidth]),
		ClientAddr:   getString(data[clientAddrOff : clientAddrOff+ClientAddrWidth]),
		ServerAddr:   getString(data[serverAddrOff : serverAddrOff+ServerAddrWidth]),
		ServerName:   getString(data[serverNameOff : serverNameOff+ServerNameWidth]),
		ServerPort:   int(byteOrder.Uint32(data[serverPortOff:])),
		Class:        getString(data[classOff : classOff+ClassWidth]),
		Cwd:          getString(data[cwdOff : cwdOff+CwdWidth]),
		Command:      getString(data[commandOff : commandOff+CommandWidth]),
		SessionStart: getTime(data[sessionStartOff:]),
		IdleStart:    getTime(data[idleStartOff:]),
		TransferDone: int64(byteOrder.Uint64(data[transferDoneOff:])),
		TransferSize: int64(byteOrder.Uint64(data[transferSizeOff:])),
	}
	return nil
}

// slotPID reads only the occupancy field of an encoded entry.
func slotPID(data []byte) int {
	return int(int32(byteOrder.Uint32(data[pidOff:])))
}

func putString(dst []byte, s string) {
	clear(dst)
	copy(dst, bound(s, len(dst)))
}

func getString(src []byte) string {
	for i, b := range src {
		if b == 0 {
			return string(src[:i])
		}
	}
	return string(src)
}

// bound truncates s so it fits a field of the given width with room for the
// terminating NUL. Cuts never split a UTF-8 sequence.
func bound(s string, width int) string {
	n := width - 1
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func putTime(dst []byte, t time.Time) {
	var v int64
	if !t.IsZero() {
		v = t.Unix()
	}
	byteOrder.PutUint64(dst, uint64(v))
}

func getTime(src []byte) time.Time {
	v := int64(byteOrder.Uint64(src))
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0).UTC()
}
