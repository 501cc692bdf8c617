package scrape

import (
	"net/url"
	"path"
	"strings"
)

// DefaultExcludes skips content sections and binary assets that say nothing
// about a merchant's policies or products.
var DefaultExcludes = []string{
	"/blog/*",
	"/news/*",
	"/press/*",
	"/careers/*",
	"/wp-content/*",
	"/cdn-cgi/*",
	"*.pdf",
	"*.jpg",
	"*.jpeg",
	"*.png",
	"*.gif",
	"*.svg",
	"*.zip",
}

// PathMatcher excludes URLs whose path matches a glob. A trailing "/*"
// matches any depth below the prefix; a leading "*" matches the final
// segment only.
type PathMatcher struct {
	patterns []string
}

// NewPathMatcher compiles patterns, falling back to DefaultExcludes.
func NewPathMatcher(patterns []string) *PathMatcher {
	if len(patterns) == 0 {
		patterns = DefaultExcludes
	}
	lower := make([]string, len(patterns))
	for i, p := range patterns {
		lower[i] = strings.ToLower(p)
	}
	return &PathMatcher{patterns: lower}
}

// Patterns returns the active patterns.
func (m *PathMatcher) Patterns() []string { return m.patterns }

// IsExcluded reports whether rawURL is unparseable or matches a pattern.
func (m *PathMatcher) IsExcluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	p := strings.ToLower(u.Path)
	for _, pat := range m.patterns {
		if matchPath(pat, p) {
			return true
		}
	}
	return false
}

func matchPath(pattern, p string) bool {
	if ok, _ := path.Match(pattern, p); ok {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return p == prefix || strings.HasPrefix(p, prefix+"/")
	}
	if strings.HasPrefix(pattern, "*") {
		ok, _ := path.Match(pattern, path.Base(p))
		return ok
	}
	return false
}
