package scrape

import (
	"net/url"
	"strings"
)

// PolicyKind is a policy page a card-network site review expects to find.
type PolicyKind string

const (
	PolicyPrivacy  PolicyKind = "privacy_policy"
	PolicyTerms    PolicyKind = "terms_of_service"
	PolicyRefund   PolicyKind = "refund_policy"
	PolicyShipping PolicyKind = "shipping_policy"
	PolicyContact  PolicyKind = "contact_page"
	PolicyAbout    PolicyKind = "about_page"
)

// PolicyKinds lists every kind in report order.
var PolicyKinds = []PolicyKind{PolicyPrivacy, PolicyTerms, PolicyRefund, PolicyShipping, PolicyContact, PolicyAbout}

// Checked in order; refund before terms so "return-terms" lands on refund.
var policyKeywords = []struct {
	kind  PolicyKind
	words []string
}{
	{PolicyPrivacy, []string{"privacy"}},
	{PolicyRefund, []string{"refund", "return", "cancellation"}},
	{PolicyShipping, []string{"shipping", "delivery"}},
	{PolicyTerms, []string{"terms", "conditions", "legal"}},
	{PolicyContact, []string{"contact"}},
	{PolicyAbout, []string{"about"}},
}

// ClassifyLink returns the policy kind a link points at, judged by its path
// then its anchor text.
func ClassifyLink(l Link) (PolicyKind, bool) {
	var p string
	if u, err := url.Parse(l.URL); err == nil {
		p = strings.ToLower(u.Path)
	}
	text := strings.ToLower(l.Text)
	for _, h := range []string{p, text} {
		if h == "" || h == "/" {
			continue
		}
		for _, kw := range policyKeywords {
			for _, w := range kw.words {
				if strings.Contains(h, w) {
					return kw.kind, true
				}
			}
		}
	}
	return "", false
}

// FindPolicies maps each policy kind to the first same-host link of that
// kind among links.
func FindPolicies(host string, links []Link) map[PolicyKind]string {
	out := map[PolicyKind]string{}
	for _, l := range links {
		if !SameHost(host, l.URL) {
			continue
		}
		if kind, ok := ClassifyLink(l); ok {
			if _, dup := out[kind]; !dup {
				out[kind] = l.URL
			}
		}
	}
	return out
}

// SameHost reports whether rawURL is on host, ignoring a "www." prefix.
func SameHost(host, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.") ==
		strings.TrimPrefix(strings.ToLower(host), "www.")
}
