package store

import (
	"github.com/google/uuid"

	"github.com/sells-group/agent-console/internal/model"
)

// agentNamespace derives stable agent IDs so both drivers seed the same roster.
var agentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("agent-console/agents"))

// AgentID returns the seeded ID of the agent of type t.
func AgentID(t model.AgentType) string {
	return uuid.NewSHA1(agentNamespace, []byte(t)).String()
}

// SeedAgents is the agent roster created by Migrate.
func SeedAgents() []model.Agent {
	roster := []struct {
		t    model.AgentType
		name string
	}{
		{model.AgentTypeIntelligence, "Intelligence Agent"},
		{model.AgentTypeLeadSourcing, "Lead Sourcing Agent"},
		{model.AgentTypeHR, "HR Agent"},
		{model.AgentTypeSupport, "Support Agent"},
		{model.AgentTypeMarketResearch, "Market Research Agent"},
		{model.AgentTypeLegal, "Legal Agent"},
	}
	out := make([]model.Agent, len(roster))
	for i, r := range roster {
		out[i] = model.Agent{ID: AgentID(r.t), Type: r.t, Name: r.name}
	}
	return out
}

// SeedMccs is the MCC reference list created by Migrate.
func SeedMccs() []model.MccRecord {
	return []model.MccRecord{
		{Code: "4812", Description: "Telecommunication Equipment and Telephone Sales", Category: "Telecommunications", Active: true},
		{Code: "4816", Description: "Computer Network/Information Services", Category: "Telecommunications", Active: true},
		{Code: "5045", Description: "Computers, Peripherals, and Software", Category: "Wholesale", Active: true},
		{Code: "5122", Description: "Drugs, Drug Proprietaries, and Druggist Sundries", Category: "Wholesale", Active: true},
		{Code: "5311", Description: "Department Stores", Category: "Retail", Active: true},
		{Code: "5399", Description: "Miscellaneous General Merchandise", Category: "Retail", Active: true},
		{Code: "5411", Description: "Grocery Stores, Supermarkets", Category: "Retail", Active: true},
		{Code: "5499", Description: "Miscellaneous Food Stores", Category: "Retail", Active: true},
		{Code: "5651", Description: "Family Clothing Stores", Category: "Retail", Active: true},
		{Code: "5691", Description: "Men's and Women's Clothing Stores", Category: "Retail", Active: true},
		{Code: "5732", Description: "Electronics Stores", Category: "Retail", Active: true},
		{Code: "5812", Description: "Eating Places, Restaurants", Category: "Food & Dining", Active: true},
		{Code: "5814", Description: "Fast Food Restaurants", Category: "Food & Dining", Active: true},
		{Code: "5912", Description: "Drug Stores and Pharmacies", Category: "Health", Active: true},
		{Code: "5942", Description: "Book Stores", Category: "Retail", Active: true},
		{Code: "5961", Description: "Catalog and Mail Order Merchants", Category: "Direct Marketing", Active: true},
		{Code: "5964", Description: "Direct Marketing - Catalog Merchant", Category: "Direct Marketing", Active: true},
		{Code: "5967", Description: "Direct Marketing - Inbound Teleservices", Category: "High Risk", Active: true},
		{Code: "5968", Description: "Direct Marketing - Continuity/Subscription", Category: "Direct Marketing", Active: true},
		{Code: "5993", Description: "Cigar Stores and Stands", Category: "High Risk", Active: true},
		{Code: "5999", Description: "Miscellaneous and Specialty Retail", Category: "Retail", Active: true},
		{Code: "7273", Description: "Dating and Escort Services", Category: "High Risk", Active: true},
		{Code: "7299", Description: "Miscellaneous Personal Services", Category: "Services", Active: true},
		{Code: "7372", Description: "Computer Programming, Data Processing", Category: "Services", Active: true},
		{Code: "7995", Description: "Betting, Casino Gambling", Category: "High Risk", Active: true},
		{Code: "8011", Description: "Doctors and Physicians", Category: "Health", Active: true},
		{Code: "8299", Description: "Schools and Educational Services", Category: "Education", Active: true},
		{Code: "8398", Description: "Charitable Organizations", Category: "Nonprofit", Active: true},
		{Code: "8999", Description: "Professional Services", Category: "Services", Active: true},
		{Code: "5960", Description: "Direct Marketing - Insurance Services", Category: "Direct Marketing", Active: false},
	}
}
