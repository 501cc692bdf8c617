package preview

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultMaxBody = 5 << 20

// strippedHeaders are dropped from upstream responses. Framing headers
// would block the preview; the rest no longer describe the rewritten body
// or only apply to a single hop.
var strippedHeaders = []string{
	"X-Frame-Options",
	"Content-Security-Policy",
	"Content-Security-Policy-Report-Only",
	"Content-Length",
	"Content-Encoding",
	"Connection",
	"Keep-Alive",
	"Transfer-Encoding",
	"Set-Cookie",
	"Strict-Transport-Security",
}

// ProxyOption configures a Proxy.
type ProxyOption func(*Proxy)

// WithHTTPClient sets the client used for upstream fetches. The client is
// copied and its redirect policy replaced; its transport is used as is, so
// dial-time address checks apply only to the default client.
func WithHTTPClient(hc *http.Client) ProxyOption {
	return func(p *Proxy) {
		p.client = hc
	}
}

// WithAddressPolicy replaces PublicOnly.
func WithAddressPolicy(allow AddressPolicy) ProxyOption {
	return func(p *Proxy) {
		if allow != nil {
			p.allow = allow
		}
	}
}

// WithRate limits upstream fetches to perSec with the given burst.
func WithRate(perSec float64, burst int) ProxyOption {
	return func(p *Proxy) {
		p.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

// WithMaxBody caps the number of upstream bytes relayed.
func WithMaxBody(n int64) ProxyOption {
	return func(p *Proxy) {
		p.maxBody = n
	}
}

// WithUserAgent sets the User-Agent sent upstream.
func WithUserAgent(ua string) ProxyOption {
	return func(p *Proxy) {
		p.userAgent = ua
	}
}

// Proxy fetches ?url= targets on public hosts and relays them with framing
// restrictions removed.
type Proxy struct {
	client    *http.Client
	allow     AddressPolicy
	limiter   *rate.Limiter
	maxBody   int64
	userAgent string
}

// NewProxy creates a preview proxy.
func NewProxy(opts ...ProxyOption) *Proxy {
	p := &Proxy{
		allow:     PublicOnly,
		limiter:   rate.NewLimiter(5, 5),
		maxBody:   defaultMaxBody,
		userAgent: "agent-console/1.0",
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second, Control: p.dialControl}
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.Proxy = nil
		tr.DialContext = dialer.DialContext
		p.client = &http.Client{Timeout: 20 * time.Second, Transport: tr}
	}
	c := *p.client
	c.CheckRedirect = p.checkRedirect
	p.client = &c
	return p
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	target, ok := ParseTarget(raw)
	if !ok {
		http.Error(w, "url must be an absolute http or https URL", http.StatusBadRequest)
		return
	}
	if err := p.checkHost(target.Hostname()); err != nil {
		http.Error(w, "url must point to a public host", http.StatusBadRequest)
		return
	}

	if err := p.limiter.Wait(r.Context()); err != nil {
		http.Error(w, "too many preview requests", http.StatusTooManyRequests)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		http.Error(w, "invalid upstream request", http.StatusBadRequest)
		return
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if errors.Is(err, ErrBlockedAddress) {
		zap.L().Warn("preview: blocked non-public upstream", zap.String("url", target.String()), zap.Error(err))
		http.Error(w, "url must point to a public host", http.StatusBadRequest)
		return
	}
	if err != nil {
		zap.L().Warn("preview: upstream fetch failed", zap.String("url", target.String()), zap.Error(err))
		http.Error(w, "upstream fetch failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBody))
	if err != nil {
		zap.L().Warn("preview: upstream read failed", zap.String("url", target.String()), zap.Error(err))
		http.Error(w, "upstream read failed", http.StatusBadGateway)
		return
	}

	if isHTML(resp.Header.Get("Content-Type")) {
		// Relative assets resolve against the final URL after redirects.
		rewritten, err := InjectBase(body, resp.Request.URL.String())
		if err != nil {
			zap.L().Debug("preview: html rewrite skipped", zap.String("url", target.String()), zap.Error(err))
		} else {
			body = rewritten
		}
	}

	h := w.Header()
	for k, vs := range resp.Header {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	for _, k := range strippedHeaders {
		h.Del(k)
	}

	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(body)
}

// InjectBase adds <base href> to an HTML document unless it already has one.
func InjectBase(doc []byte, href string) ([]byte, error) {
	d, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return nil, eris.Wrap(err, "preview: parse html")
	}

	if d.Find("base[href]").Length() == 0 {
		base := `<base href="` + htmlAttrEscaper.Replace(href) + `">`
		d.Find("head").First().PrependHtml(base)
	}

	out, err := d.Html()
	if err != nil {
		return nil, eris.Wrap(err, "preview: render html")
	}
	return []byte(out), nil
}

var htmlAttrEscaper = strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;")

func isHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}
