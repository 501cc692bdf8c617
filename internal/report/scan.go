package report

import (
	"bytes"
	"encoding/json"
	"sort"
)

// SiteScanReport is the typed view of a comprehensive site scan. Every
// section is optional; a nil section was absent or did not decode.
type SiteScanReport struct {
	BaseURL                string
	ComplianceIntelligence *ComplianceIntelligence
	PolicyDetails          *PolicyDetails
	MccCodes               *MccCodes
	ProductDetails         *ProductDetails
	BusinessDetails        *BusinessDetails
	ChangeIntelligence     *ChangeIntelligence
	ContentRisk            *ContentRisk
	CrawlSummary           *CrawlSummary
	Rdap                   *Rdap
	ScanStatus             *ScanStatus

	// Malformed lists section keys that were present but could not be
	// decoded into their typed form.
	Malformed []string
}

// ComplianceIntelligence summarises the compliance posture of a site.
type ComplianceIntelligence struct {
	OverallScore     Number    `json:"overall_risk_score"`
	RiskLevel        string    `json:"risk_level"`
	ComplianceStatus string    `json:"compliance_status"`
	Summary          string    `json:"summary"`
	Findings         []Finding `json:"findings"`
	Recommendations  Strings   `json:"recommendations"`
}

// Finding is a single compliance check outcome.
type Finding struct {
	Check    string `json:"check"`
	Status   string `json:"status"`
	Severity string `json:"severity"`
	Details  string `json:"details"`
}

// Policy describes one published site policy.
type Policy struct {
	Present     Flag   `json:"present"`
	URL         string `json:"url"`
	Summary     string `json:"summary"`
	LastUpdated string `json:"last_updated"`
}

// PolicyDetails maps policy names (privacy_policy, refund_policy, ...) to
// what the scan found for each.
type PolicyDetails struct {
	Policies map[string]Policy
}

// UnmarshalJSON accepts policy entries as objects, booleans or bare URLs.
func (p *PolicyDetails) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Policies = make(map[string]Policy, len(raw))
	for name, v := range raw {
		v = bytes.TrimSpace(v)
		if len(v) == 0 {
			continue
		}
		var pol Policy
		switch v[0] {
		case '{':
			if err := json.Unmarshal(v, &pol); err != nil {
				continue
			}
			if !pol.Present.Valid && pol.URL != "" {
				pol.Present = Flag{Value: true, Valid: true}
			}
		case '"':
			var u string
			_ = json.Unmarshal(v, &u)
			pol.URL = u
			pol.Present = Flag{Value: u != "", Valid: true}
		default:
			_ = json.Unmarshal(v, &pol.Present)
		}
		p.Policies[name] = pol
	}
	return nil
}

// Names returns the policy names in stable order.
func (p *PolicyDetails) Names() []string {
	names := make([]string, 0, len(p.Policies))
	for n := range p.Policies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// MccSuggestion is one merchant category code proposed by the scan.
type MccSuggestion struct {
	MccCode     Text   `json:"mcc_code"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Confidence  Number `json:"confidence"`
	Reasoning   string `json:"reasoning"`
}

// MccCodes holds the primary and secondary MCC suggestions.
type MccCodes struct {
	PrimaryMcc   *MccSuggestion
	SecondaryMcc []MccSuggestion
}

// UnmarshalJSON accepts secondary_mcc as a single object or a list.
func (m *MccCodes) UnmarshalJSON(data []byte) error {
	var raw struct {
		Primary   json.RawMessage `json:"primary_mcc"`
		Secondary json.RawMessage `json:"secondary_mcc"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if s := bytes.TrimSpace(raw.Primary); len(s) > 0 && s[0] == '{' {
		var p MccSuggestion
		if err := json.Unmarshal(s, &p); err == nil {
			m.PrimaryMcc = &p
		}
	}
	s := bytes.TrimSpace(raw.Secondary)
	if len(s) == 0 {
		return nil
	}
	switch s[0] {
	case '{':
		var one MccSuggestion
		if err := json.Unmarshal(s, &one); err == nil {
			m.SecondaryMcc = []MccSuggestion{one}
		}
	case '[':
		var many []MccSuggestion
		if err := json.Unmarshal(s, &many); err == nil {
			m.SecondaryMcc = many
		}
	}
	return nil
}

// Product is a single product or service observed on the site.
type Product struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Price       Text   `json:"price"`
	Description string `json:"description"`
}

// ProductDetails describes what the site sells.
type ProductDetails struct {
	Summary            string    `json:"summary"`
	Products           []Product `json:"products"`
	Categories         Strings   `json:"categories"`
	PricingModel       string    `json:"pricing_model"`
	RestrictedProducts Strings   `json:"restricted_products"`
}

// BusinessDetails identifies the business behind the site.
type BusinessDetails struct {
	LegalName   string `json:"legal_name"`
	DBAName     string `json:"dba_name"`
	Industry    string `json:"industry"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	FoundedYear Text   `json:"founded_year"`
}

// Change is one difference detected against a previous scan.
type Change struct {
	Category    string `json:"category"`
	Field       string `json:"field"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Before      string `json:"before"`
	After       string `json:"after"`
	DetectedAt  string `json:"detected_at"`
}

// ChangeIntelligence reports what changed since the last scan.
type ChangeIntelligence struct {
	LastScanDate    string   `json:"last_scan_date"`
	ChangesDetected Flag     `json:"changes_detected"`
	Summary         string   `json:"summary"`
	Changes         []Change `json:"changes"`
}

// RiskFlag is a content risk observation.
type RiskFlag struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	URL         string `json:"url"`
}

// ContentRisk summarises prohibited or risky content found on the site.
type ContentRisk struct {
	RiskLevel         string     `json:"risk_level"`
	Score             Number     `json:"risk_score"`
	Flags             []RiskFlag `json:"flags"`
	ProhibitedContent Strings    `json:"prohibited_content"`
}

// CrawlSummary records what the scanner crawled.
type CrawlSummary struct {
	StartURL     string  `json:"start_url"`
	PagesCrawled Number  `json:"pages_crawled"`
	PagesFailed  Number  `json:"pages_failed"`
	Duration     Text    `json:"crawl_duration"`
	URLs         Strings `json:"urls_crawled"`
	CompletedAt  string  `json:"completed_at"`
}

// Rdap holds domain registration data.
type Rdap struct {
	Domain         string  `json:"domain"`
	Registrar      string  `json:"registrar"`
	RegisteredAt   string  `json:"registration_date"`
	ExpiresAt      string  `json:"expiration_date"`
	DomainAgeDays  Number  `json:"domain_age_days"`
	Status         Strings `json:"status"`
	Nameservers    Strings `json:"nameservers"`
	RegistrantOrg  string  `json:"registrant_organization"`
	RegistrantCtry string  `json:"registrant_country"`
}

// ScanStatus is the scanner's own completion report.
type ScanStatus struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	CompletedAt string `json:"completed_at"`
}

// UnmarshalJSON accepts scan_status as a bare string or an object.
func (s *ScanStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &s.Status)
	}
	type plain ScanStatus
	return json.Unmarshal(data, (*plain)(s))
}

// DecodeScan decodes a site-scan object section by section so that one
// malformed section does not hide the others.
func DecodeScan(obj []byte) *SiteScanReport {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(obj, &raw); err != nil {
		return &SiteScanReport{}
	}

	r := &SiteScanReport{}
	if v, ok := raw["base_url"]; ok {
		var t Text
		_ = json.Unmarshal(v, &t)
		r.BaseURL = string(t)
	}

	r.ComplianceIntelligence = section[ComplianceIntelligence](raw, "compliance_intelligence", r)
	r.PolicyDetails = section[PolicyDetails](raw, "policy_details", r)
	r.MccCodes = section[MccCodes](raw, "mcc_codes", r)
	r.ProductDetails = section[ProductDetails](raw, "product_details", r)
	r.BusinessDetails = section[BusinessDetails](raw, "business_details", r)
	r.ChangeIntelligence = section[ChangeIntelligence](raw, "change_intelligence", r)
	r.ContentRisk = section[ContentRisk](raw, "content_risk", r)
	r.CrawlSummary = section[CrawlSummary](raw, "crawl_summary", r)
	r.Rdap = section[Rdap](raw, "rdap", r)
	r.ScanStatus = section[ScanStatus](raw, "scan_status", r)

	if r.BaseURL == "" && r.CrawlSummary != nil {
		r.BaseURL = r.CrawlSummary.StartURL
	}
	return r
}

func section[T any](raw map[string]json.RawMessage, key string, r *SiteScanReport) *T {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return nil
	}
	var out T
	if err := json.Unmarshal(v, &out); err != nil {
		r.Malformed = append(r.Malformed, key)
		return nil
	}
	return &out
}

// PrimaryMccCode returns the suggested primary MCC, or "" when the scan has
// none.
func (r *SiteScanReport) PrimaryMccCode() string {
	if r == nil || r.MccCodes == nil || r.MccCodes.PrimaryMcc == nil {
		return ""
	}
	return string(r.MccCodes.PrimaryMcc.MccCode)
}
