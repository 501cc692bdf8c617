package research

import (
	"fmt"
	"strings"

	"github.com/sells-group/agent-console/internal/scrape"
)

const pageExcerptRunes = 3000

const systemPrompt = `You are a merchant underwriting analyst reviewing a merchant's website for card acceptance.
You receive the text of crawled pages and a draft scan built from simple heuristics.
Correct and complete the draft using only evidence from the pages.

Respond with a single JSON object and nothing else. The object has one key,
"comprehensive_site_scan", whose value may contain these sections:
base_url, compliance_intelligence, policy_details, mcc_codes, product_details,
business_details, change_intelligence, content_risk, crawl_summary, rdap, scan_status.

Keep the draft's field names. mcc_codes.primary_mcc must have mcc_code, description,
confidence (0 to 1) and reasoning. Keep crawl_summary exactly as drafted.
Leave out sections you have no evidence for.`

func userPrompt(c *scrape.Crawl, draft []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Site: %s\n\n", c.StartURL)
	for _, p := range c.Pages {
		fmt.Fprintf(&b, "=== %s", p.URL)
		if p.Title != "" {
			fmt.Fprintf(&b, " (%s)", p.Title)
		}
		b.WriteString(" ===\n")
		b.WriteString(excerpt(p.Text, pageExcerptRunes))
		b.WriteString("\n\n")
	}
	b.WriteString("Draft scan:\n")
	b.Write(draft)
	return b.String()
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
