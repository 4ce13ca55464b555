package scoreboard

import (
	"errors"
	"fmt"
	"io"
	"iter"
)

// Rewind saves the current file position and moves to the first slot.
func (s *Store) Rewind() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return ErrNotOpen
	}
	pos, err := s.seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := s.seek(HeaderSize, io.SeekStart); err != nil {
		return err
	}
	s.saved = pos
	s.rewound = true
	return nil
}

// Restore returns to the position saved by the last Rewind. On a closed
// store the error matches both ErrInvalidState and ErrNotOpen.
func (s *Store) Restore() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, ErrNotOpen)
	}
	if !s.rewound {
		return fmt.Errorf("%w: restore without rewind", ErrInvalidState)
	}
	_, err := s.seek(s.saved, io.SeekStart)
	return err
}

// Next returns the next occupied entry from the current position. The first
// call takes the whole-file read lock, which is held until ErrEndOfData or an
// error ends the pass. Free slots are skipped.
func (s *Store) Next() (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return Entry{}, ErrNotOpen
	}
	if !s.readLocked {
		if err := s.rlockFile(); err != nil {
			return Entry{}, err
		}
	}

	buf := make([]byte, EntrySize)
	for {
		n, err := s.read(buf)
		if err != nil {
			_ = s.unlockFile()
			return Entry{}, err
		}
		if n < EntrySize {
			_ = s.unlockFile()
			return Entry{}, ErrEndOfData
		}
		if slotPID(buf) == 0 {
			continue
		}
		var e Entry
		if err := e.UnmarshalBinary(buf); err != nil {
			_ = s.unlockFile()
			return Entry{}, err
		}
		return e, nil
	}
}

// endScan releases the read lock of a pass abandoned before ErrEndOfData.
func (s *Store) endScan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f != nil && s.readLocked {
		_ = s.unlockFile()
	}
}

// Entries yields every occupied entry in slot order. It rewinds first and
// restores the file position when done, whether or not iteration finished.
func (s *Store) Entries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		if err := s.Rewind(); err != nil {
			yield(Entry{}, err)
			return
		}
		defer s.Restore()

		for {
			e, err := s.Next()
			if errors.Is(err, ErrEndOfData) {
				return
			}
			if err != nil {
				yield(Entry{}, err)
				return
			}
			if !yield(e, nil) {
				s.endScan()
				return
			}
		}
	}
}

// Snapshot collects one full pass.
func (s *Store) Snapshot() ([]Entry, error) {
	var out []Entry
	for e, err := range s.Entries() {
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Count returns how many occupied entries match fn in one pass.
func (s *Store) Count(fn func(Entry) bool) (int, error) {
	n := 0
	for e, err := range s.Entries() {
		if err != nil {
			return 0, err
		}
		if fn == nil || fn(e) {
			n++
		}
	}
	return n, nil
}
