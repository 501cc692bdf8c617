package research

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/sells-group/agent-console/internal/scrape"
)

// Envelope is the top-level report object.
type Envelope struct {
	Scan *Scan `json:"comprehensive_site_scan"`
}

// Scan is the report body written by Draft.
type Scan struct {
	BaseURL    string                `json:"base_url"`
	Compliance Compliance            `json:"compliance_intelligence"`
	Policies   map[string]PolicyNote `json:"policy_details"`
	Mcc        MccCodes              `json:"mcc_codes"`
	Products   Products              `json:"product_details"`
	Business   Business              `json:"business_details"`
	Risk       Risk                  `json:"content_risk"`
	Crawl      CrawlSummary          `json:"crawl_summary"`
	Status     Status                `json:"scan_status"`
}

type Compliance struct {
	Score           int       `json:"overall_risk_score"`
	RiskLevel       string    `json:"risk_level"`
	Status          string    `json:"compliance_status"`
	Summary         string    `json:"summary"`
	Findings        []Finding `json:"findings"`
	Recommendations []string  `json:"recommendations,omitempty"`
}

type Finding struct {
	Check    string `json:"check"`
	Status   string `json:"status"`
	Severity string `json:"severity"`
	Details  string `json:"details"`
}

type PolicyNote struct {
	Present bool   `json:"present"`
	URL     string `json:"url,omitempty"`
	Summary string `json:"summary,omitempty"`
}

type MccSuggestion struct {
	Code        string  `json:"mcc_code"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

type MccCodes struct {
	Primary   MccSuggestion   `json:"primary_mcc"`
	Secondary []MccSuggestion `json:"secondary_mcc,omitempty"`
}

type Products struct {
	Summary    string   `json:"summary"`
	Categories []string `json:"categories,omitempty"`
}

type Business struct {
	LegalName   string `json:"legal_name,omitempty"`
	Description string `json:"description,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

type RiskFlag struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	URL         string `json:"url"`
}

type Risk struct {
	RiskLevel  string     `json:"risk_level"`
	Score      int        `json:"risk_score"`
	Flags      []RiskFlag `json:"flags"`
	Prohibited []string   `json:"prohibited_content"`
}

type CrawlSummary struct {
	StartURL     string   `json:"start_url"`
	PagesCrawled int      `json:"pages_crawled"`
	PagesFailed  int      `json:"pages_failed"`
	Duration     string   `json:"crawl_duration"`
	URLs         []string `json:"urls_crawled"`
	CompletedAt  string   `json:"completed_at"`
}

type Status struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	CompletedAt string `json:"completed_at"`
}

// requiredPolicies are the pages whose absence is a finding, with severity.
var requiredPolicies = []struct {
	kind     scrape.PolicyKind
	label    string
	severity string
}{
	{scrape.PolicyPrivacy, "Privacy policy", "high"},
	{scrape.PolicyTerms, "Terms of service", "high"},
	{scrape.PolicyRefund, "Refund policy", "high"},
	{scrape.PolicyShipping, "Shipping policy", "medium"},
	{scrape.PolicyContact, "Contact information", "medium"},
}

type mccRule struct {
	code, description, category string
	words                       []string
}

var mccRules = []mccRule{
	{"5411", "Grocery Stores, Supermarkets", "Retail", []string{"grocery", "groceries", "supermarket", "produce"}},
	{"5812", "Eating Places, Restaurants", "Food & Dining", []string{"restaurant", "our menu", "reservation", "dine-in", "catering"}},
	{"5814", "Fast Food Restaurants", "Food & Dining", []string{"drive-thru", "fast food", "burger"}},
	{"5651", "Family Clothing Stores", "Retail", []string{"clothing", "apparel", "t-shirt", "dresses"}},
	{"5732", "Electronics Stores", "Retail", []string{"electronics", "laptop", "headphones", "smartphone"}},
	{"5942", "Book Stores", "Retail", []string{"books", "paperback", "hardcover"}},
	{"5912", "Drug Stores and Pharmacies", "Health", []string{"pharmacy", "prescription"}},
	{"5968", "Direct Marketing - Continuity/Subscription", "Direct Marketing", []string{"subscription", "monthly box", "auto-renew"}},
	{"7372", "Computer Programming, Data Processing", "Services", []string{"software", "saas", "api docs", "developers"}},
	{"8299", "Schools and Educational Services", "Education", []string{"courses", "tuition", "enroll", "curriculum"}},
	{"8398", "Charitable Organizations", "Nonprofit", []string{"donate", "donation", "nonprofit", "charity"}},
	{"7995", "Betting, Casino Gambling", "High Risk", []string{"casino", "sportsbook", "betting", "poker"}},
}

var fallbackMcc = MccSuggestion{
	Code:        "5999",
	Description: "Miscellaneous and Specialty Retail",
	Category:    "Retail",
	Confidence:  0.3,
	Reasoning:   "No category keywords matched; defaulting to specialty retail.",
}

var prohibitedTerms = []struct{ term, category, severity string }{
	{"cbd", "Regulated products", "high"},
	{"kratom", "Regulated products", "high"},
	{"vape", "Regulated products", "medium"},
	{"firearm", "Weapons", "high"},
	{"ammunition", "Weapons", "high"},
	{"casino", "Gambling", "high"},
	{"replica", "Counterfeit goods", "high"},
	{"adult content", "Adult", "high"},
	{"guaranteed income", "Deceptive marketing", "medium"},
}

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?\(?\d{3}\)?[\s.\-]\d{3}[\s.\-]\d{4}`)
)

// Draft builds a scan from the crawl alone.
func Draft(c *scrape.Crawl, now time.Time) *Scan {
	completed := now.UTC().Format(time.RFC3339)
	s := &Scan{
		BaseURL:  c.StartURL,
		Policies: map[string]PolicyNote{},
		Crawl: CrawlSummary{
			StartURL:     c.StartURL,
			PagesCrawled: len(c.Pages),
			PagesFailed:  len(c.Failed),
			Duration:     c.Duration.Round(time.Millisecond).String(),
			CompletedAt:  completed,
		},
		Status: Status{Status: "completed", Message: "Scan drafted from crawled pages.", CompletedAt: completed},
	}
	for _, p := range c.Pages {
		s.Crawl.URLs = append(s.Crawl.URLs, p.URL)
	}

	for _, kind := range scrape.PolicyKinds {
		note := PolicyNote{}
		if u, ok := c.Policies[kind]; ok {
			note.Present = true
			note.URL = u
			if p := c.Page(u); p != nil {
				note.Summary = excerpt(p.Text, 240)
			}
		}
		s.Policies[string(kind)] = note
	}

	s.Risk = contentRisk(c)
	s.Compliance = compliance(c, s.Risk)
	s.Mcc = suggestMcc(c)
	s.Products = products(c, s.Mcc)
	s.Business = business(c)
	return s
}

func compliance(c *scrape.Crawl, risk Risk) Compliance {
	out := Compliance{}
	missing := 0
	for _, rp := range requiredPolicies {
		f := Finding{Check: rp.label, Severity: rp.severity}
		if u, ok := c.Policies[rp.kind]; ok {
			f.Status = "pass"
			f.Details = "Found at " + u
		} else {
			f.Status = "fail"
			f.Details = "No link found on the home page."
			missing++
			out.Recommendations = append(out.Recommendations, "Publish a "+strings.ToLower(rp.label)+" and link it from every page.")
			if rp.severity == "high" {
				out.Score += 15
			} else {
				out.Score += 5
			}
		}
		out.Findings = append(out.Findings, f)
	}
	out.Score = min(out.Score+risk.Score/2, 100)
	out.RiskLevel = riskLevel(out.Score)

	switch {
	case out.RiskLevel == "high":
		out.Status = "non_compliant"
	case missing > 0 || len(risk.Flags) > 0:
		out.Status = "needs_review"
	default:
		out.Status = "compliant"
	}
	out.Summary = fmt.Sprintf("%d of %d required pages found; %d content risk flag(s).",
		len(requiredPolicies)-missing, len(requiredPolicies), len(risk.Flags))
	return out
}

func riskLevel(score int) string {
	switch {
	case score >= 60:
		return "high"
	case score >= 30:
		return "medium"
	}
	return "low"
}

func contentRisk(c *scrape.Crawl) Risk {
	r := Risk{Flags: []RiskFlag{}, Prohibited: []string{}}
	seen := map[string]bool{}
	for _, p := range c.Pages {
		lower := strings.ToLower(p.Text)
		for _, pt := range prohibitedTerms {
			if seen[pt.term] || !strings.Contains(lower, pt.term) {
				continue
			}
			seen[pt.term] = true
			r.Prohibited = append(r.Prohibited, pt.term)
			r.Flags = append(r.Flags, RiskFlag{
				Category:    pt.category,
				Description: fmt.Sprintf("Page mentions %q.", pt.term),
				Severity:    pt.severity,
				URL:         p.URL,
			})
			if pt.severity == "high" {
				r.Score += 30
			} else {
				r.Score += 15
			}
		}
	}
	r.Score = min(r.Score, 100)
	r.RiskLevel = riskLevel(r.Score)
	return r
}

func suggestMcc(c *scrape.Crawl) MccCodes {
	type hit struct {
		rule  mccRule
		count int
		words []string
	}
	var hits []hit
	for _, rule := range mccRules {
		h := hit{rule: rule}
		for _, w := range rule.words {
			n := 0
			for _, p := range c.Pages {
				n += strings.Count(strings.ToLower(p.Title+" "+p.Text), w)
			}
			if n > 0 {
				h.count += n
				h.words = append(h.words, w)
			}
		}
		if h.count > 0 {
			hits = append(hits, h)
		}
	}
	if len(hits) == 0 {
		return MccCodes{Primary: fallbackMcc}
	}
	slices.SortStableFunc(hits, func(a, b hit) int { return cmp.Compare(b.count, a.count) })

	suggest := func(h hit) MccSuggestion {
		return MccSuggestion{
			Code:        h.rule.code,
			Description: h.rule.description,
			Category:    h.rule.category,
			Confidence:  min(0.4+0.1*float64(h.count), 0.95),
			Reasoning:   "Site text mentions " + strings.Join(h.words, ", ") + ".",
		}
	}
	out := MccCodes{Primary: suggest(hits[0])}
	for _, h := range hits[1:min(len(hits), 3)] {
		out.Secondary = append(out.Secondary, suggest(h))
	}
	return out
}

func products(c *scrape.Crawl, mcc MccCodes) Products {
	p := Products{}
	if len(c.Pages) > 0 {
		p.Summary = excerpt(c.Pages[0].Text, 240)
	}
	p.Categories = append(p.Categories, mcc.Primary.Description)
	for _, s := range mcc.Secondary {
		p.Categories = append(p.Categories, s.Description)
	}
	return p
}

var titleSeparators = []string{" | ", " – ", " - ", " — ", " :: "}

func business(c *scrape.Crawl) Business {
	b := Business{}
	if len(c.Pages) == 0 {
		return b
	}
	name := c.Pages[0].Title
	for _, sep := range titleSeparators {
		if before, _, ok := strings.Cut(name, sep); ok {
			name = before
		}
	}
	b.LegalName = strings.TrimSpace(name)
	b.Description = excerpt(c.Pages[0].Text, 160)

	// Contact pages beat the home page for contact details.
	pages := slices.Clone(c.Pages)
	if u, ok := c.Policies[scrape.PolicyContact]; ok {
		slices.SortStableFunc(pages, func(x, y scrape.Page) int {
			return cmp.Compare(boolRank(y.URL == u), boolRank(x.URL == u))
		})
	}
	for _, p := range pages {
		if b.Email == "" {
			b.Email = emailRe.FindString(p.Text)
		}
		if b.Phone == "" {
			b.Phone = phoneRe.FindString(p.Text)
		}
	}
	return b
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
