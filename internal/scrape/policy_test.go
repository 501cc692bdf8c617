package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyLink(t *testing.T) {
	t.Parallel()
	cases := []struct {
		link Link
		want PolicyKind
		ok   bool
	}{
		{Link{URL: "https://a.example/policies/privacy-policy"}, PolicyPrivacy, true},
		{Link{URL: "https://a.example/pages/returns"}, PolicyRefund, true},
		{Link{URL: "https://a.example/return-terms"}, PolicyRefund, true},
		{Link{URL: "https://a.example/pages/shipping-info"}, PolicyShipping, true},
		{Link{URL: "https://a.example/legal"}, PolicyTerms, true},
		{Link{URL: "https://a.example/p/42", Text: "Terms & Conditions"}, PolicyTerms, true},
		{Link{URL: "https://a.example/contact-us"}, PolicyContact, true},
		{Link{URL: "https://a.example/", Text: "About Us"}, PolicyAbout, true},
		{Link{URL: "https://a.example/photos"}, "", false},
		{Link{URL: "https://a.example/products/soap", Text: "Lavender soap"}, "", false},
	}
	for _, tc := range cases {
		got, ok := ClassifyLink(tc.link)
		assert.Equal(t, tc.ok, ok, tc.link.URL)
		assert.Equal(t, tc.want, got, tc.link.URL)
	}
}

func TestFindPolicies_SameHostFirstWins(t *testing.T) {
	t.Parallel()
	got := FindPolicies("shop.example", []Link{
		{URL: "https://other.example/privacy"},
		{URL: "https://www.shop.example/privacy"},
		{URL: "https://shop.example/privacy-2"},
		{URL: "https://shop.example/refunds"},
	})
	assert.Equal(t, map[PolicyKind]string{
		PolicyPrivacy: "https://www.shop.example/privacy",
		PolicyRefund:  "https://shop.example/refunds",
	}, got)
}

func TestSameHost(t *testing.T) {
	t.Parallel()
	assert.True(t, SameHost("www.A.example", "https://a.example:8443/x"))
	assert.False(t, SameHost("a.example", "https://b.example"))
	assert.False(t, SameHost("a.example", "://bad"))
}
