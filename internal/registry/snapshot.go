package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Snapshot schema versioning for forward-compatibility.
const snapshotVersion = 1

type snapshot struct {
	Version    int       `json:"version"`
	Taken      time.Time `json:"taken"`
	Duplicates int       `json:"duplicates,omitempty"`
	Sessions   []Session `json:"sessions"`
}

// MarshalJSON encodes the registry in the snapshot format, sessions sorted by
// pid.
func (r *Registry) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.snapshot())
}

func (r *Registry) snapshot() snapshot {
	sessions := r.List(ListFilter{})
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot{
		Version:    snapshotVersion,
		Taken:      r.taken,
		Duplicates: r.Duplicates,
		Sessions:   sessions,
	}
}

// SaveSnapshot writes the registry to path as indented JSON. The file is
// replaced atomically.
func (r *Registry) SaveSnapshot(path string) error {
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	b, err := json.MarshalIndent(r.snapshot(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadSnapshot reads a file written by SaveSnapshot.
func LoadSnapshot(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	if s.Version > snapshotVersion {
		return nil, fmt.Errorf("snapshot %s has version %d, newer than supported %d", path, s.Version, snapshotVersion)
	}

	r := newRegistry(s.Taken)
	r.Duplicates = s.Duplicates
	for _, sess := range s.Sessions {
		if _, ok := r.byPID[sess.PID]; ok {
			r.Duplicates++
			continue
		}
		r.insert(sess)
	}
	return r, nil
}
