package app

import (
	"strings"

	"goscore/internal/registry"
)

// Session mirrors one occupied scoreboard slot.
type Session = registry.Session

// ListFilters aggregates selectors shared across commands.
type ListFilters struct {
	Users      []string
	Classes    []string
	Servers    []string
	PIDs       []int
	IdleOnly   bool
	ActiveOnly bool
	TextSearch string
}

func (f ListFilters) buildFilter() (registry.ListFilter, error) {
	lf := registry.ListFilter{
		Users:      append([]string(nil), f.Users...),
		Classes:    append([]string(nil), f.Classes...),
		Servers:    append([]string(nil), f.Servers...),
		PIDs:       append([]int(nil), f.PIDs...),
		IdleOnly:   f.IdleOnly,
		ActiveOnly: f.ActiveOnly,
		TextSearch: f.TextSearch,
	}
	if err := lf.Validate(); err != nil {
		return lf, err
	}
	return lf, nil
}

func emptySelectors(filters ListFilters) bool {
	return len(filters.Users) == 0 &&
		len(filters.Classes) == 0 &&
		len(filters.Servers) == 0 &&
		len(filters.PIDs) == 0 &&
		!filters.IdleOnly &&
		!filters.ActiveOnly &&
		strings.TrimSpace(filters.TextSearch) == ""
}
