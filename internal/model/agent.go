package model

// AgentType identifies a backend agent by its business domain.
type AgentType string

const (
	AgentTypeIntelligence   AgentType = "intelligence"
	AgentTypeLeadSourcing   AgentType = "lead_sourcing"
	AgentTypeHR             AgentType = "hr"
	AgentTypeSupport        AgentType = "support"
	AgentTypeMarketResearch AgentType = "market_research"
	AgentTypeLegal          AgentType = "legal"
)

// Agent is a backend agent record.
type Agent struct {
	ID   string    `json:"id"`
	Type AgentType `json:"type"`
	Name string    `json:"name"`
}

// FindAgent returns the first agent of the given type, or nil.
func FindAgent(agents []Agent, t AgentType) *Agent {
	for i := range agents {
		if agents[i].Type == t {
			return &agents[i]
		}
	}
	return nil
}
