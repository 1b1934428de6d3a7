package crawler

import (
	"slices"
	"strings"
)

// hostDenyList matches hosts against exact names and "*.suffix" wildcards.
type hostDenyList struct {
	exact    map[string]struct{}
	suffixes []string
}

// newHostDenyList returns nil when patterns contains nothing usable, so
// callers can skip matching entirely.
func newHostDenyList(patterns []string) *hostDenyList {
	deny := &hostDenyList{exact: make(map[string]struct{})}
	for _, raw := range patterns {
		value := strings.ToLower(strings.TrimSpace(raw))
		if value == "" {
			continue
		}
		if suffix, ok := cutWildcard(value); ok {
			if suffix != "" && !slices.Contains(deny.suffixes, suffix) {
				deny.suffixes = append(deny.suffixes, suffix)
			}
			continue
		}
		deny.exact[value] = struct{}{}
	}
	if len(deny.exact) == 0 && len(deny.suffixes) == 0 {
		return nil
	}
	return deny
}

func cutWildcard(value string) (string, bool) {
	if s, ok := strings.CutPrefix(value, "*."); ok {
		return s, true
	}
	return strings.CutPrefix(value, ".")
}

// Denies reports whether host is covered by the list. A nil list denies nothing.
func (d *hostDenyList) Denies(host string) bool {
	if d == nil {
		return false
	}
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return false
	}
	if _, ok := d.exact[host]; ok {
		return true
	}
	return slices.ContainsFunc(d.suffixes, func(suffix string) bool {
		return host == suffix || strings.HasSuffix(host, "."+suffix)
	})
}
