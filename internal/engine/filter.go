package engine

import (
	"path"
	"strings"

	"taur/internal/repo"
)

// FilterHandles applies name patterns to discovered handles, keeping order.
// With include patterns set a handle must match at least one; it must match
// none of the exclude patterns.
func FilterHandles(handles []repo.Handle, include, exclude []string) []repo.Handle {
	if len(include) == 0 && len(exclude) == 0 {
		return handles
	}

	filtered := make([]repo.Handle, 0, len(handles))
	for _, h := range handles {
		if len(include) > 0 && !matchesAnyPattern(include, h.Name) {
			continue
		}
		if len(exclude) > 0 && matchesAnyPattern(exclude, h.Name) {
			continue
		}
		filtered = append(filtered, h)
	}
	return filtered
}

func matchesAnyPattern(patterns []string, name string) bool {
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if matched, _ := path.Match(p, name); matched {
			return true
		}
	}
	return false
}
