package registry

import (
	"fmt"
	"strings"
	"unicode"
)

const maxNameLen = 32

// NormalizeName trims a user or class name used in a filter and checks that
// it could be stored in a scoreboard slot.
func NormalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", nil
	}
	if len(name) >= maxNameLen {
		return "", fmt.Errorf("name %q is too long (max %d characters)", name, maxNameLen-1)
	}
	for _, r := range name {
		if isAllowedNameRune(r) {
			continue
		}
		return "", fmt.Errorf("name %q contains invalid character %q (allowed: letters, digits, '.', '-', '_')", name, r)
	}
	return name, nil
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '-', '_', '.':
		return true
	default:
		return false
	}
}

func normalizeNames(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(strset, len(raw))
	for _, r := range raw {
		name, err := NormalizeName(r)
		if err != nil {
			return nil, err
		}
		if name == "" || seen.has(name) {
			continue
		}
		seen.add(name)
		out = append(out, name)
	}
	return out, nil
}

// Validate normalizes the name lists of f in place.
func (f *ListFilter) Validate() error {
	users, err := normalizeNames(f.Users)
	if err != nil {
		return fmt.Errorf("user filter: %w", err)
	}
	classes, err := normalizeNames(f.Classes)
	if err != nil {
		return fmt.Errorf("class filter: %w", err)
	}
	if f.IdleOnly && f.ActiveOnly {
		return fmt.Errorf("idle-only and active-only filters are mutually exclusive")
	}
	for _, pid := range f.PIDs {
		if pid <= 0 {
			return fmt.Errorf("pid filter: %d is not a valid pid", pid)
		}
	}
	f.Users = users
	f.Classes = classes
	f.TextSearch = strings.TrimSpace(f.TextSearch)
	return nil
}
