package app

import (
	"context"
	"fmt"

	"goscore/internal/config"
	"goscore/internal/registry"
	"goscore/internal/scoreboard"
)

// ListParams defines filters and the data source.
type ListParams struct {
	Filters ListFilters
	// SnapshotPath reads a file written by Dump instead of the live scoreboard.
	SnapshotPath string
}

// Registry indexes one pass over the live scoreboard, or loads a snapshot
// when from is set.
func (a *App) Registry(ctx context.Context, from string) (*registry.Registry, error) {
	if from != "" {
		reg, err := registry.LoadSnapshot(from)
		if err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		return reg, nil
	}

	var reg *registry.Registry
	err := a.withStore(scoreboard.ReadOnly, true, func(_ config.Config, s *scoreboard.Store) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := s.Snapshot()
		if err != nil {
			return fmt.Errorf("scan scoreboard: %w", err)
		}
		reg = registry.FromEntries(entries)
		if reg.Duplicates > 0 {
			a.log.WithField("duplicates", reg.Duplicates).Warn("scoreboard holds repeated pids; run reap")
		}
		return nil
	})
	return reg, err
}

// List fetches sessions matching the provided filters.
func (a *App) List(ctx context.Context, params ListParams) ([]Session, error) {
	filter, err := params.Filters.buildFilter()
	if err != nil {
		return nil, err
	}
	reg, err := a.Registry(ctx, params.SnapshotPath)
	if err != nil {
		return nil, err
	}
	return reg.List(filter), nil
}

// Counts returns sessions per connection class.
func (a *App) Counts(ctx context.Context, from string) (map[string]int, error) {
	reg, err := a.Registry(ctx, from)
	if err != nil {
		return nil, err
	}
	return reg.CountByClass(), nil
}

// Dump writes a JSON snapshot of the live scoreboard to path and returns the
// number of sessions written.
func (a *App) Dump(ctx context.Context, path string) (int, error) {
	if path == "" {
		return 0, fmt.Errorf("snapshot path must not be empty")
	}
	reg, err := a.Registry(ctx, "")
	if err != nil {
		return 0, err
	}
	if err := reg.SaveSnapshot(path); err != nil {
		return 0, fmt.Errorf("write snapshot: %w", err)
	}
	return reg.Len(), nil
}
