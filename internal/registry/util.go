package registry

import (
	"sort"
	"time"
)

type strset map[string]struct{}

func (s strset) add(v string) {
	s[v] = struct{}{}
}

func (s strset) has(v string) bool {
	_, ok := s[v]
	return ok
}

func (s strset) sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var now = func() time.Time {
	return time.Now().UTC()
}
