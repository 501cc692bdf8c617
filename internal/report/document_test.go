package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const richJSON = `{
  "comprehensive_site_scan": {
    "base_url": "https://shop.example.com",
    "compliance_intelligence": {"overall_risk_score": "42", "risk_level": "medium",
      "findings": [{"check": "refund_policy", "status": "pass", "severity": "low"}],
      "recommendations": "Publish shipping times, Add contact page"},
    "policy_details": {"privacy_policy": {"url": "https://shop.example.com/privacy"}, "refund_policy": false, "terms": "https://shop.example.com/terms"},
    "mcc_codes": {"primary_mcc": {"mcc_code": 5812, "description": "Eating places", "confidence": 0.82},
                  "secondary_mcc": {"mcc_code": "5814", "description": "Fast food"}},
    "change_intelligence": {"changes_detected": "yes", "changes": [
      {"category": "policy", "field": "refund_policy", "before": "Refunds within 30 days", "after": "Refunds within 14 days"}]},
    "content_risk": "not-an-object",
    "scan_status": "completed"
  }
}`

func TestAnalyze_RichComprehensiveScan(t *testing.T) {
	t.Parallel()

	doc := Analyze(Parse(richJSON))
	require.Equal(t, LayoutRich, doc.Layout)
	require.NotNil(t, doc.Scan)

	s := doc.Scan
	assert.Equal(t, "https://shop.example.com", s.BaseURL)
	assert.Equal(t, "5812", doc.PrimaryMccCode())
	require.NotNil(t, s.ComplianceIntelligence)
	assert.InDelta(t, 42.0, s.ComplianceIntelligence.OverallScore.Value, 0.001)
	assert.Equal(t, []string{"Publish shipping times", "Add contact page"}, []string(s.ComplianceIntelligence.Recommendations))

	require.NotNil(t, s.PolicyDetails)
	assert.True(t, s.PolicyDetails.Policies["privacy_policy"].Present.Value)
	assert.False(t, s.PolicyDetails.Policies["refund_policy"].Present.Value)
	assert.Equal(t, "https://shop.example.com/terms", s.PolicyDetails.Policies["terms"].URL)

	require.NotNil(t, s.MccCodes)
	require.Len(t, s.MccCodes.SecondaryMcc, 1)
	assert.Equal(t, Text("5814"), s.MccCodes.SecondaryMcc[0].MccCode)

	assert.Nil(t, s.ContentRisk)
	assert.Contains(t, s.Malformed, "content_risk")
	require.NotNil(t, s.ScanStatus)
	assert.Equal(t, "completed", s.ScanStatus.Status)
	assert.Nil(t, s.ProductDetails)
}

func TestAnalyze_TopLevelScanKeys(t *testing.T) {
	t.Parallel()

	doc := Analyze(Parse(scanJSON))
	assert.Equal(t, LayoutRich, doc.Layout)
	assert.Equal(t, "5812", doc.PrimaryMccCode())
}

func TestAnalyze_Legacy(t *testing.T) {
	t.Parallel()

	doc := Analyze(Parse(`{"base_url":"https://old.example.com","compliance_checks":{"ssl":true,"privacy_policy":"missing"}}`))
	require.Equal(t, LayoutLegacy, doc.Layout)
	require.NotNil(t, doc.Legacy)
	assert.Equal(t, "https://old.example.com", doc.Legacy.BaseURL)
	assert.Equal(t, true, doc.Legacy.ComplianceChecks["ssl"])
	assert.Equal(t, "", doc.PrimaryMccCode())

	doc = Analyze(Parse(`{"base_url":"https://bare.example.com"}`))
	assert.Equal(t, LayoutLegacy, doc.Layout)
}

func TestAnalyze_UnknownAndText(t *testing.T) {
	t.Parallel()

	doc := Analyze(Parse(`{"foo":"bar"}`))
	assert.Equal(t, LayoutUnknown, doc.Layout)
	assert.Contains(t, doc.View(TabCompliance).Raw, `"foo": "bar"`)

	doc = Analyze(Parse("just words"))
	assert.Equal(t, LayoutText, doc.Layout)
	v := doc.View(TabMcc)
	assert.Equal(t, "just words", v.Raw)
	assert.Nil(t, v.Tab)
	assert.Empty(t, v.Tabs)
}

func TestDecodeScan_NeverPanicsOnGarbage(t *testing.T) {
	t.Parallel()

	for _, in := range []string{`[]`, `"x"`, `{"mcc_codes": 5}`, `{"policy_details": []}`, `{"rdap": null}`} {
		r := DecodeScan([]byte(in))
		require.NotNil(t, r)
		assert.Equal(t, "", r.PrimaryMccCode())
	}
}
