package preview

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopbackProxy lets tests reach httptest servers on 127.0.0.1.
func loopbackProxy(opts ...ProxyOption) *Proxy {
	allow := WithAddressPolicy(func(a netip.Addr) bool { return a.IsLoopback() })
	return NewProxy(append([]ProxyOption{allow}, opts...)...)
}

func TestNew(t *testing.T) {
	t.Parallel()

	p := New("http://localhost:3001", "https://shop.example.com/privacy")
	assert.True(t, p.Valid)
	assert.Equal(t, "shop.example.com", p.Host)
	assert.Equal(t, "https://shop.example.com/privacy", p.OpenURL)
	assert.Equal(t, "http://localhost:3001/api/monitoring/proxy?url=https%3A%2F%2Fshop.example.com%2Fprivacy", p.FrameSrc)
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()

	for _, target := range []string{"", "shop.example.com", "javascript:alert(1)", "ftp://files.example.com/a", "/relative"} {
		p := New("http://localhost:3001", target)
		assert.False(t, p.Valid, target)
		assert.Empty(t, p.FrameSrc, target)
	}
}

func TestProxy_StripsFramingHeadersAndInjectsBase(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "agent-console/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("X-Custom", "kept")
		w.Write([]byte(`<html><head><title>Shop</title></head><body><img src="logo.png"></body></html>`))
	}))
	defer upstream.Close()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/monitoring/proxy?url="+upstream.URL+"/about", nil)
	loopbackProxy().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "kept", rec.Header().Get("X-Custom"))

	body := rec.Body.String()
	assert.Contains(t, body, `<base href="`+upstream.URL+`/about"/>`)
	assert.Contains(t, body, "<title>Shop</title>")
}

func TestProxy_PassesNonHTMLThrough(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"missing":true}`))
	}))
	defer upstream.Close()

	rec := httptest.NewRecorder()
	loopbackProxy().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?url="+upstream.URL, nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, `{"missing":true}`, rec.Body.String())
}

func TestProxy_RejectsBadTargets(t *testing.T) {
	t.Parallel()

	for _, q := range []string{"", "?url=", "?url=file:///etc/passwd", "?url=example.com"} {
		rec := httptest.NewRecorder()
		NewProxy().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestProxy_UpstreamDown(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.NotFoundHandler())
	addr := upstream.URL
	upstream.Close()

	rec := httptest.NewRecorder()
	loopbackProxy().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?url="+addr, nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestProxy_MaxBody(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, strings.Repeat("x", 100))
	}))
	defer upstream.Close()

	rec := httptest.NewRecorder()
	loopbackProxy(WithMaxBody(10)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?url="+upstream.URL, nil))
	assert.Equal(t, strings.Repeat("x", 10), rec.Body.String())
}

func TestProxy_BlocksNonPublicTargets(t *testing.T) {
	t.Parallel()

	for _, target := range []string{
		"http://127.0.0.1/",
		"http://127.0.0.1:3001/api/tasks",
		"http://169.254.169.254/latest/meta-data/",
		"http://[::1]:8080/",
		"http://localhost:8080/",
		"http://admin.localhost/",
		"http://10.0.0.5/",
		"http://192.168.1.1/",
		"http://100.64.1.1/",
		"http://0.0.0.0/",
	} {
		rec := httptest.NewRecorder()
		NewProxy().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?url="+target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "public host", target)
	}
}

func TestProxy_BlocksRedirectToPrivate(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://169.254.169.254/latest/meta-data/", http.StatusFound)
	}))
	defer upstream.Close()

	rec := httptest.NewRecorder()
	loopbackProxy().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?url="+upstream.URL, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProxy_DialControl(t *testing.T) {
	t.Parallel()

	p := NewProxy()
	assert.ErrorIs(t, p.dialControl("tcp4", "127.0.0.1:80", nil), ErrBlockedAddress)
	assert.ErrorIs(t, p.dialControl("tcp6", "[::1]:443", nil), ErrBlockedAddress)
	assert.ErrorIs(t, p.dialControl("tcp4", "169.254.169.254:80", nil), ErrBlockedAddress)
	assert.ErrorIs(t, p.dialControl("tcp4", "garbage", nil), ErrBlockedAddress)
	assert.NoError(t, p.dialControl("tcp4", "93.184.216.34:443", nil))
}

func TestPublicOnly(t *testing.T) {
	t.Parallel()

	for addr, want := range map[string]bool{
		"93.184.216.34":        true,
		"2606:2800:220:1::1":   true,
		"127.0.0.1":            false,
		"::1":                  false,
		"10.1.2.3":             false,
		"172.16.0.1":           false,
		"192.168.0.10":         false,
		"169.254.169.254":      false,
		"fe80::1":              false,
		"fd00::1":              false,
		"100.64.0.1":           false,
		"0.0.0.0":              false,
		"224.0.0.1":            false,
		"::ffff:127.0.0.1":     false,
		"::ffff:93.184.216.34": true,
	} {
		assert.Equal(t, want, PublicOnly(netip.MustParseAddr(addr)), addr)
	}
}

func TestWithHTTPClient_LeavesCallerClient(t *testing.T) {
	t.Parallel()

	hc := &http.Client{}
	p := NewProxy(WithHTTPClient(hc))
	assert.Nil(t, hc.CheckRedirect)
	assert.NotSame(t, hc, p.client)
	assert.NotNil(t, p.client.CheckRedirect)

	assert.NotNil(t, NewProxy(WithHTTPClient(nil)).client)
}

func TestInjectBase_KeepsExisting(t *testing.T) {
	t.Parallel()

	out, err := InjectBase([]byte(`<html><head><base href="https://cdn.example.com/"></head><body></body></html>`), "https://shop.example.com/")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(out), "<base"))
	assert.Contains(t, string(out), "https://cdn.example.com/")
}

func TestInjectBase_Fragment(t *testing.T) {
	t.Parallel()

	out, err := InjectBase([]byte(`<p>no head here</p>`), `https://shop.example.com/a"b`)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<head><base")
	assert.Contains(t, string(out), "<p>no head here</p>")
}
