package report

import (
	"github.com/tidwall/gjson"

	"github.com/sells-group/agent-console/internal/model"
)

// Layout is the rendering path chosen for a payload.
type Layout string

const (
	// LayoutRich renders the tabbed site-scan viewer.
	LayoutRich Layout = "rich"
	// LayoutLegacy renders the older base_url + compliance_checks format.
	LayoutLegacy Layout = "legacy"
	// LayoutUnknown renders an object of unrecognised shape as JSON.
	LayoutUnknown Layout = "unknown"
	// LayoutText renders non-object output verbatim.
	LayoutText Layout = "text"
)

// scanKeys are the top-level keys that identify a site-scan object even when
// it is not wrapped in comprehensive_site_scan.
var scanKeys = []string{
	"compliance_intelligence",
	"policy_details",
	"mcc_codes",
	"product_details",
	"business_details",
	"change_intelligence",
	"content_risk",
	"crawl_summary",
	"rdap",
	"scan_status",
}

// LegacyReport is the older report format.
type LegacyReport struct {
	BaseURL          string
	ComplianceChecks map[string]any
}

// Document is a parsed task output with its layout resolved.
type Document struct {
	Payload Payload
	Layout  Layout
	Scan    *SiteScanReport
	Legacy  *LegacyReport
}

// FromTask parses a task's output into a Document.
func FromTask(t model.Task) Document {
	return Analyze(ParseOutput(t.Output))
}

// Analyze resolves the layout for a payload.
func Analyze(p Payload) Document {
	doc := Document{Payload: p}
	if p.Kind != KindObject {
		doc.Layout = LayoutText
		return doc
	}

	root := gjson.ParseBytes(p.JSON)
	if css := root.Get("comprehensive_site_scan"); css.IsObject() {
		doc.Layout = LayoutRich
		doc.Scan = DecodeScan([]byte(css.Raw))
		if doc.Scan.BaseURL == "" {
			doc.Scan.BaseURL = root.Get("base_url").String()
		}
		return doc
	}

	if root.Get("compliance_checks").Exists() {
		doc.Layout = LayoutLegacy
		doc.Legacy = decodeLegacy(root)
		return doc
	}

	for _, k := range scanKeys {
		if root.Get(k).Exists() {
			doc.Layout = LayoutRich
			doc.Scan = DecodeScan(p.JSON)
			return doc
		}
	}

	if root.Get("base_url").Exists() {
		doc.Layout = LayoutLegacy
		doc.Legacy = decodeLegacy(root)
		return doc
	}

	doc.Layout = LayoutUnknown
	return doc
}

func decodeLegacy(root gjson.Result) *LegacyReport {
	lr := &LegacyReport{BaseURL: root.Get("base_url").String()}
	if checks, ok := root.Get("compliance_checks").Value().(map[string]any); ok {
		lr.ComplianceChecks = checks
	}
	return lr
}

// PrimaryMccCode returns the suggested primary MCC for rich documents.
func (d Document) PrimaryMccCode() string {
	if d.Layout != LayoutRich {
		return ""
	}
	return d.Scan.PrimaryMccCode()
}

// HasScan reports whether the document renders through the tabbed viewer.
func (d Document) HasScan() bool {
	return d.Layout == LayoutRich && d.Scan != nil
}
