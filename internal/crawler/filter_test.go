package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestURLFilterAdmissible(t *testing.T) {
	t.Parallel()

	filter := NewURLFilter(nil)
	cases := []struct {
		name string
		url  string
		want bool
	}{
		{"https page", "https://example.com/about", true},
		{"http page", "http://example.com/", true},
		{"uppercase scheme", "HTTPS://example.com/x", true},
		{"empty", "", false},
		{"mailto", "mailto:someone@example.com", false},
		{"javascript", "javascript:void(0)", false},
		{"relative", "/about", false},
		{"ftp", "ftp://example.com/file", false},
		{"fragment", "https://example.com/page#section", false},
		{"pdf", "https://example.com/doc.pdf", false},
		{"uppercase jpg", "https://example.com/IMG.JPG", false},
		{"png anywhere", "https://example.com/img.png?size=2", false},
		{"zip", "https://example.com/archive.zip", false},
		{"query is fine", "https://example.com/search?q=go", true},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, filter.Admissible(tc.url), tc.name)
	}
}

func TestURLFilterCustomExtensions(t *testing.T) {
	t.Parallel()

	filter := NewURLFilter([]string{"GIF", " .svg ", ""})
	require.False(t, filter.Admissible("https://example.com/logo.gif"))
	require.False(t, filter.Admissible("https://example.com/logo.svg"))
	require.True(t, filter.Admissible("https://example.com/doc.pdf"), "custom list replaces the defaults")
}
