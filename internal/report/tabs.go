package report

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Tab names one pane of the report viewer. Exactly one tab is active.
type Tab string

const (
	TabCompliance  Tab = "compliance"
	TabPolicy      Tab = "policy"
	TabMcc         Tab = "mcc"
	TabProduct     Tab = "product"
	TabBusiness    Tab = "business"
	TabChanges     Tab = "changes"
	TabContentRisk Tab = "content-risk"
	TabCrawl       Tab = "crawl"
)

var allTabs = []Tab{TabCompliance, TabPolicy, TabMcc, TabProduct, TabBusiness, TabChanges, TabContentRisk, TabCrawl}

var tabLabels = map[Tab]string{
	TabCompliance:  "Compliance",
	TabPolicy:      "Policies",
	TabMcc:         "MCC",
	TabProduct:     "Products",
	TabBusiness:    "Business",
	TabChanges:     "Changes",
	TabContentRisk: "Content Risk",
	TabCrawl:       "Crawl",
}

// Tabs returns the viewer tabs in display order.
func Tabs() []Tab {
	out := make([]Tab, len(allTabs))
	copy(out, allTabs)
	return out
}

// ParseTab maps a query value to a tab, defaulting to TabCompliance.
func ParseTab(s string) Tab {
	t := Tab(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := tabLabels[t]; ok {
		return t
	}
	return TabCompliance
}

// Label is the tab's display name.
func (t Tab) Label() string { return tabLabels[t] }

// Row is a labelled value.
type Row struct {
	Label string
	Value string
}

// Section is a titled block of a tab. A section with a Placeholder has no
// data to show.
type Section struct {
	Title       string
	Rows        []Row
	Items       []string
	Diff        []DiffSegment
	Placeholder string

	key string // scan section behind a placeholder
}

// TabView is the rendered content of one tab.
type TabView struct {
	Tab      Tab
	Title    string
	Sections []Section
}

// View is everything the report modal renders for a document.
type View struct {
	Layout Layout
	Tabs   []Tab
	Active Tab
	Tab    *TabView
	Legacy []Section
	// Raw is the verbatim text, or pretty JSON for unknown objects and
	// non-object JSON values.
	Raw string
}

// View renders the document for the given active tab.
func (d Document) View(active Tab) View {
	v := View{Layout: d.Layout, Active: ParseTab(string(active))}
	switch d.Layout {
	case LayoutRich:
		v.Tabs = Tabs()
		tv := BuildTab(d.Scan, v.Active)
		v.Tab = &tv
	case LayoutLegacy:
		v.Legacy = legacySections(d.Legacy)
	case LayoutUnknown:
		v.Raw = d.Payload.Pretty()
	default:
		// Pretty returns plain text verbatim.
		v.Raw = d.Payload.Pretty()
	}
	return v
}

// BuildTab renders one tab of a site scan. Missing sections yield
// placeholders.
func BuildTab(scan *SiteScanReport, tab Tab) TabView {
	if scan == nil {
		scan = &SiteScanReport{}
	}
	tv := TabView{Tab: tab, Title: tab.Label()}
	switch tab {
	case TabPolicy:
		tv.Sections = policySections(scan.PolicyDetails)
	case TabMcc:
		tv.Sections = mccSections(scan.MccCodes)
	case TabProduct:
		tv.Sections = productSections(scan.ProductDetails)
	case TabBusiness:
		tv.Sections = businessSections(scan.BusinessDetails, scan.Rdap)
	case TabChanges:
		tv.Sections = changeSections(scan.ChangeIntelligence)
	case TabContentRisk:
		tv.Sections = contentRiskSections(scan.ContentRisk)
	case TabCrawl:
		tv.Sections = crawlSections(scan.CrawlSummary, scan.ScanStatus, scan.BaseURL)
	default:
		tv.Tab = TabCompliance
		tv.Title = TabCompliance.Label()
		tv.Sections = complianceSections(scan.ComplianceIntelligence)
	}
	for i, sec := range tv.Sections {
		if sec.key != "" && slices.Contains(scan.Malformed, sec.key) {
			tv.Sections[i].Placeholder = sec.Title + " data could not be read"
		}
	}
	return tv
}

func placeholder(title, what, key string) Section {
	return Section{Title: title, Placeholder: fmt.Sprintf("No %s data available", what), key: key}
}

// rows builds rows from label/value pairs, dropping empty values.
func rows(pairs ...string) []Row {
	var out []Row
	for i := 0; i+1 < len(pairs); i += 2 {
		if v := strings.TrimSpace(pairs[i+1]); v != "" {
			out = append(out, Row{Label: pairs[i], Value: v})
		}
	}
	return out
}

func complianceSections(ci *ComplianceIntelligence) []Section {
	if ci == nil {
		return []Section{placeholder("Compliance Overview", "compliance", "compliance_intelligence")}
	}
	out := []Section{{
		Title: "Compliance Overview",
		Rows: rows(
			"Risk score", ci.OverallScore.Format(),
			"Risk level", ci.RiskLevel,
			"Status", ci.ComplianceStatus,
			"Summary", ci.Summary,
		),
	}}

	findings := Section{Title: "Findings"}
	for _, f := range ci.Findings {
		label := f.Check
		if f.Severity != "" {
			label = fmt.Sprintf("%s (%s)", f.Check, f.Severity)
		}
		value := f.Status
		if f.Details != "" {
			value = strings.TrimSpace(value + " " + f.Details)
		}
		findings.Rows = append(findings.Rows, Row{Label: label, Value: value})
	}
	if len(findings.Rows) == 0 {
		findings.Placeholder = "No findings reported"
	}
	out = append(out, findings)

	if len(ci.Recommendations) > 0 {
		out = append(out, Section{Title: "Recommendations", Items: ci.Recommendations})
	}
	return out
}

func policySections(pd *PolicyDetails) []Section {
	if pd == nil || len(pd.Policies) == 0 {
		return []Section{placeholder("Policies", "policy", "policy_details")}
	}
	var out []Section
	for _, name := range pd.Names() {
		p := pd.Policies[name]
		s := Section{
			Title: humanize(name),
			Rows: rows(
				"Present", p.Present.Label(),
				"URL", p.URL,
				"Last updated", p.LastUpdated,
				"Summary", p.Summary,
			),
		}
		if len(s.Rows) == 0 {
			s.Placeholder = "Not found"
		}
		out = append(out, s)
	}
	return out
}

func mccSections(mc *MccCodes) []Section {
	if mc == nil || (mc.PrimaryMcc == nil && len(mc.SecondaryMcc) == 0) {
		return []Section{placeholder("Primary MCC", "MCC", "mcc_codes")}
	}
	var out []Section
	if p := mc.PrimaryMcc; p != nil {
		out = append(out, Section{Title: "Primary MCC", Rows: mccRows(*p)})
	} else {
		out = append(out, placeholder("Primary MCC", "primary MCC", ""))
	}
	for i, s := range mc.SecondaryMcc {
		out = append(out, Section{Title: fmt.Sprintf("Secondary MCC %d", i+1), Rows: mccRows(s)})
	}
	return out
}

func mccRows(s MccSuggestion) []Row {
	return rows(
		"Code", string(s.MccCode),
		"Description", s.Description,
		"Category", s.Category,
		"Confidence", s.Confidence.Percent(),
		"Reasoning", s.Reasoning,
	)
}

func productSections(pd *ProductDetails) []Section {
	if pd == nil {
		return []Section{placeholder("Products", "product", "product_details")}
	}
	out := []Section{{
		Title: "Overview",
		Rows: rows(
			"Summary", pd.Summary,
			"Pricing model", pd.PricingModel,
			"Categories", strings.Join(pd.Categories, ", "),
		),
	}}
	catalog := Section{Title: "Products"}
	for _, p := range pd.Products {
		value := p.Description
		if p.Price != "" {
			value = strings.TrimSpace(fmt.Sprintf("%s %s", p.Price, value))
		}
		label := p.Name
		if p.Category != "" {
			label = fmt.Sprintf("%s [%s]", p.Name, p.Category)
		}
		catalog.Rows = append(catalog.Rows, Row{Label: label, Value: value})
	}
	if len(catalog.Rows) == 0 {
		catalog.Placeholder = "No products listed"
	}
	out = append(out, catalog)
	if len(pd.RestrictedProducts) > 0 {
		out = append(out, Section{Title: "Restricted products", Items: pd.RestrictedProducts})
	}
	return out
}

func businessSections(bd *BusinessDetails, rd *Rdap) []Section {
	var out []Section
	if bd == nil {
		out = append(out, placeholder("Business", "business", "business_details"))
	} else {
		out = append(out, Section{
			Title: "Business",
			Rows: rows(
				"Legal name", bd.LegalName,
				"DBA", bd.DBAName,
				"Industry", bd.Industry,
				"Description", bd.Description,
				"Address", bd.Address,
				"Country", bd.Country,
				"Phone", bd.Phone,
				"Email", bd.Email,
				"Founded", string(bd.FoundedYear),
			),
		})
	}
	if rd == nil {
		out = append(out, placeholder("Domain registration", "RDAP", "rdap"))
	} else {
		out = append(out, Section{
			Title: "Domain registration",
			Rows: rows(
				"Domain", rd.Domain,
				"Registrar", rd.Registrar,
				"Registered", rd.RegisteredAt,
				"Expires", rd.ExpiresAt,
				"Age (days)", rd.DomainAgeDays.Format(),
				"Registrant", rd.RegistrantOrg,
				"Registrant country", rd.RegistrantCtry,
				"Status", strings.Join(rd.Status, ", "),
				"Nameservers", strings.Join(rd.Nameservers, ", "),
			),
		})
	}
	return out
}

func changeSections(ch *ChangeIntelligence) []Section {
	if ch == nil {
		return []Section{placeholder("Changes", "change", "change_intelligence")}
	}
	out := []Section{{
		Title: "Summary",
		Rows: rows(
			"Last scan", ch.LastScanDate,
			"Changes detected", ch.ChangesDetected.Label(),
			"Summary", ch.Summary,
		),
	}}
	if len(ch.Changes) == 0 {
		out = append(out, Section{Title: "Changes", Placeholder: "No changes since the last scan"})
		return out
	}
	for _, c := range ch.Changes {
		title := humanize(c.Category)
		switch {
		case title != "" && c.Field != "":
			title += ": " + c.Field
		case c.Field != "":
			title = c.Field
		case title == "":
			title = "Change"
		}
		s := Section{
			Title: title,
			Rows:  rows("Description", c.Description, "Severity", c.Severity, "Detected", c.DetectedAt),
		}
		if c.Before != "" && c.After != "" {
			s.Diff = TextDiff(c.Before, c.After)
		} else {
			s.Rows = append(s.Rows, rows("Before", c.Before, "After", c.After)...)
		}
		out = append(out, s)
	}
	return out
}

func contentRiskSections(cr *ContentRisk) []Section {
	if cr == nil {
		return []Section{placeholder("Content Risk", "content risk", "content_risk")}
	}
	out := []Section{{
		Title: "Content Risk",
		Rows:  rows("Risk level", cr.RiskLevel, "Risk score", cr.Score.Format()),
	}}
	flags := Section{Title: "Flags"}
	for _, f := range cr.Flags {
		label := humanize(f.Category)
		if f.Severity != "" {
			label = fmt.Sprintf("%s (%s)", label, f.Severity)
		}
		value := f.Description
		if f.URL != "" {
			value = strings.TrimSpace(value + " " + f.URL)
		}
		flags.Rows = append(flags.Rows, Row{Label: label, Value: value})
	}
	if len(flags.Rows) == 0 {
		flags.Placeholder = "No content flags raised"
	}
	out = append(out, flags)
	if len(cr.ProhibitedContent) > 0 {
		out = append(out, Section{Title: "Prohibited content", Items: cr.ProhibitedContent})
	}
	return out
}

func crawlSections(cs *CrawlSummary, st *ScanStatus, baseURL string) []Section {
	var out []Section
	if cs == nil {
		out = append(out, placeholder("Crawl", "crawl", "crawl_summary"))
	} else {
		start := cs.StartURL
		if start == "" {
			start = baseURL
		}
		out = append(out, Section{
			Title: "Crawl",
			Rows: rows(
				"Start URL", start,
				"Pages crawled", cs.PagesCrawled.Format(),
				"Pages failed", cs.PagesFailed.Format(),
				"Duration", string(cs.Duration),
				"Completed", cs.CompletedAt,
			),
			Items: cs.URLs,
		})
	}
	if st != nil {
		out = append(out, Section{
			Title: "Scan status",
			Rows:  rows("Status", st.Status, "Message", st.Message, "Completed", st.CompletedAt),
		})
	}
	return out
}

func legacySections(lr *LegacyReport) []Section {
	if lr == nil {
		return []Section{placeholder("Compliance checks", "compliance", "")}
	}
	s := Section{Title: "Compliance checks", Rows: rows("Base URL", lr.BaseURL)}
	keys := make([]string, 0, len(lr.ComplianceChecks))
	for k := range lr.ComplianceChecks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.Rows = append(s.Rows, Row{Label: humanize(k), Value: scalar(lr.ComplianceChecks[k])})
	}
	if len(keys) == 0 {
		s.Placeholder = "No compliance checks reported"
	}
	return []Section{s}
}

// scalar renders an arbitrary decoded JSON value on one line.
func scalar(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		return val
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case float64:
		return Number{Value: val, Valid: true}.Format()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// humanize turns snake_case keys into display titles.
func humanize(key string) string {
	key = strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(key))
	if key == "" {
		return ""
	}
	return strings.ToUpper(key[:1]) + key[1:]
}
