package ir

import (
	"sort"
	"strings"
)

// PathResolver rewrites attribute values that refer to project files.
type PathResolver interface {
	Resolve(value string) (string, bool)
}

// AliasResolver maps path prefixes such as "@/" or "~/" to replacements. The
// longest matching prefix wins.
type AliasResolver map[string]string

// Resolve implements PathResolver.
func (r AliasResolver) Resolve(value string) (string, bool) {
	prefixes := make([]string, 0, len(r))
	for p := range r {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(value, p) {
			return r[p] + strings.TrimPrefix(value, p), true
		}
	}
	return "", false
}
