// Package preview builds site preview frames and serves the proxy that lets
// framing-hostile sites load inside them.
package preview

import (
	"net/url"
	"strings"

	"github.com/sells-group/agent-console/pkg/compliance"
)

// Preview is the view model of the site preview modal. The fallback panel
// with OpenURL is always rendered behind the frame.
type Preview struct {
	Target   string
	Host     string
	FrameSrc string
	OpenURL  string
	Valid    bool
}

// New builds a preview of target served through the proxy at proxyBase.
// A target that is not an absolute http(s) URL yields an invalid preview
// with no frame source.
func New(proxyBase, target string) Preview {
	target = strings.TrimSpace(target)
	p := Preview{Target: target}

	u, ok := ParseTarget(target)
	if !ok {
		return p
	}
	p.Valid = true
	p.Host = u.Host
	p.OpenURL = u.String()
	p.FrameSrc = compliance.ProxyURL(proxyBase, p.OpenURL)
	return p
}

// ParseTarget accepts absolute http and https URLs with a host.
func ParseTarget(raw string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return nil, false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u, true
	default:
		return nil, false
	}
}
