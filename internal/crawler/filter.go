package crawler

import "strings"

// URLFilter decides whether a candidate URL is worth scheduling at all.
// It is a pure predicate; a false negative only loses a page.
type URLFilter struct {
	blocked []string
}

// NewURLFilter builds a filter rejecting URLs that contain any of the given
// extensions. A nil slice selects DefaultBlockedExtensions.
func NewURLFilter(extensions []string) *URLFilter {
	if extensions == nil {
		extensions = DefaultBlockedExtensions
	}
	return &URLFilter{blocked: normalizeExtensions(extensions)}
}

// Admissible reports whether rawURL is an absolute http(s) URL without a
// fragment marker that does not look like a binary resource.
func (f *URLFilter) Admissible(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	lower := strings.ToLower(rawURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	if strings.Contains(lower, "#") {
		return false
	}
	for _, ext := range f.blocked {
		if strings.Contains(lower, ext) {
			return false
		}
	}
	return true
}

func normalizeExtensions(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, ext := range in {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}
