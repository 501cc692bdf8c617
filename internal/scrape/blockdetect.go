package scrape

import (
	"bytes"
	"net/http"
)

// BlockType names an anti-bot wall.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

var (
	cloudflareMarkers = [][]byte{[]byte("checking your browser"), []byte("cf-browser-verification"), []byte("just a moment...")}
	captchaMarkers    = [][]byte{[]byte("captcha")}
)

// DetectBlock inspects a response for a challenge page instead of content.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("cf-cache-status") != "" ||
			resp.Header.Get("server") == "cloudflare" {
			return true, BlockCloudflare
		}
	}

	lower := bytes.ToLower(body)
	for _, m := range cloudflareMarkers {
		if bytes.Contains(lower, m) {
			return true, BlockCloudflare
		}
	}
	// Matches recaptcha and hcaptcha too.
	for _, m := range captchaMarkers {
		if bytes.Contains(lower, m) {
			return true, BlockCaptcha
		}
	}
	if len(body) < 2000 {
		if bytes.Contains(lower, []byte("<noscript")) && bytes.Contains(lower, []byte("javascript")) {
			return true, BlockJSShell
		}
		if bytes.Contains(lower, []byte(`http-equiv="refresh"`)) {
			return true, BlockJSShell
		}
	}
	return false, BlockNone
}
