package resolver

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// VideoMatcher decides whether a URL points at a supported video host.
type VideoMatcher struct {
	patterns []glob.Glob
}

// NewVideoMatcher compiles host patterns such as "youtube.com" or "*.youtube.com".
// '.' is the separator, so "*" never spans more than one label.
func NewVideoMatcher(hosts []string) (*VideoMatcher, error) {
	m := &VideoMatcher{}
	for _, h := range hosts {
		g, err := glob.Compile(strings.ToLower(h), '.')
		if err != nil {
			return nil, fmt.Errorf("invalid video host pattern %q: %w", h, err)
		}
		m.patterns = append(m.patterns, g)
	}
	return m, nil
}

// Match reports whether u's host matches any pattern.
func (m *VideoMatcher) Match(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	for _, g := range m.patterns {
		if g.Match(host) {
			return true
		}
	}
	return false
}

// VideoID extracts the YouTube video id from a watch, short-link, shorts or embed URL.
func VideoID(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	path := strings.Trim(u.Path, "/")
	if host == "youtu.be" {
		id, _, _ := strings.Cut(path, "/")
		return id
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	for _, prefix := range []string{"shorts/", "embed/", "live/"} {
		if rest, ok := strings.CutPrefix(path, prefix); ok {
			id, _, _ := strings.Cut(rest, "/")
			return id
		}
	}
	return ""
}
