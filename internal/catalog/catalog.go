// Package catalog holds the static content of each agent page: KPI cards,
// sample task history, skills, conversations, logs and config settings.
package catalog

import (
	_ "embed"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/agent-console/internal/model"
)

//go:embed agents.yaml
var agentsYAML []byte

// Page tabs rendered by the agent layout shell.
const (
	TabOverview      = "overview"
	TabConversations = "conversations"
	TabSkills        = "skills"
	TabLogs          = "logs"
	TabConfig        = "config"
)

// PageTabs lists the layout tabs in display order.
var PageTabs = []string{TabOverview, TabConversations, TabSkills, TabLogs, TabConfig}

// KPI is a headline metric card.
type KPI struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
	Delta string `yaml:"delta"`
}

// Up reports whether the delta is a non-negative change.
func (k KPI) Up() bool {
	return len(k.Delta) == 0 || k.Delta[0] != '-'
}

// MockTask is a sample history row for pages without a live backend.
type MockTask struct {
	ID     string           `yaml:"id"`
	Action string           `yaml:"action"`
	Topic  string           `yaml:"topic"`
	Status model.TaskStatus `yaml:"status"`
	Error  string           `yaml:"error"`
	When   string           `yaml:"when"`
}

// Skill is a capability card.
type Skill struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Enabled     bool   `yaml:"enabled"`
}

// Message is one line of a conversation transcript.
type Message struct {
	From string `yaml:"from"`
	Text string `yaml:"text"`
}

// Conversation is a sample operator/agent exchange.
type Conversation struct {
	Title    string    `yaml:"title"`
	Messages []Message `yaml:"messages"`
}

// LogEntry is a sample activity log line.
type LogEntry struct {
	Time    string `yaml:"time"`
	Level   string `yaml:"level"`
	Message string `yaml:"message"`
}

// Setting is a read-only config field.
type Setting struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

// Page is one agent page.
type Page struct {
	Slug          string          `yaml:"slug"`
	Title         string          `yaml:"title"`
	Description   string          `yaml:"description"`
	AgentType     model.AgentType `yaml:"agent_type"`
	Live          bool            `yaml:"live"`
	KPIs          []KPI           `yaml:"kpis"`
	Tasks         []MockTask      `yaml:"tasks"`
	Skills        []Skill         `yaml:"skills"`
	Conversations []Conversation  `yaml:"conversations"`
	Logs          []LogEntry      `yaml:"logs"`
	Settings      []Setting       `yaml:"settings"`
	Order         int             `yaml:"order"`
}

// Catalog is the parsed set of agent pages.
type Catalog struct {
	pages  []Page
	bySlug map[string]int
}

type file struct {
	Pages []Page `yaml:"pages"`
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(agentsYAML)
}

// Parse decodes a catalog document. Slugs must be unique and non-empty.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "catalog: parse yaml")
	}

	sort.SliceStable(f.Pages, func(i, j int) bool { return f.Pages[i].Order < f.Pages[j].Order })

	c := &Catalog{pages: f.Pages, bySlug: make(map[string]int, len(f.Pages))}
	for i, p := range f.Pages {
		if p.Slug == "" {
			return nil, eris.Errorf("catalog: page %d has no slug", i)
		}
		if _, dup := c.bySlug[p.Slug]; dup {
			return nil, eris.Errorf("catalog: duplicate slug %q", p.Slug)
		}
		c.bySlug[p.Slug] = i
	}
	return c, nil
}

// Pages returns the pages in navigation order.
func (c *Catalog) Pages() []Page {
	return c.pages
}

// Get looks up a page by slug.
func (c *Catalog) Get(slug string) (Page, bool) {
	i, ok := c.bySlug[slug]
	if !ok {
		return Page{}, false
	}
	return c.pages[i], true
}

// ParseTab normalizes a page tab name, defaulting to overview.
func ParseTab(s string) string {
	for _, t := range PageTabs {
		if t == s {
			return t
		}
	}
	return TabOverview
}
