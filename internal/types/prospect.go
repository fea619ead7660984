// Package types provides type definitions for structured data used throughout the prospect research system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// ParseFailure marks a stage record whose model response could not be recovered as JSON.
// It serializes as the sentinel {"error": ..., "rawResponse": ...} object.
type ParseFailure struct {
	Error       string `json:"error,omitempty"`
	RawResponse string `json:"rawResponse,omitempty"`
}

// Failed reports whether the record is a parse failure sentinel.
func (p ParseFailure) Failed() bool {
	return p.Error != ""
}

// ProspectProfile is the company overview produced by the profile stage.
type ProspectProfile struct {
	ParseFailure
	Name            string   `json:"name,omitempty"`
	Description     string   `json:"description,omitempty"`
	Founded         string   `json:"founded,omitempty"`
	Locations       []string `json:"locations,omitempty"`
	Size            string   `json:"size,omitempty"`
	Cuisine         string   `json:"cuisine,omitempty"`
	MenuHighlights  []string `json:"menuHighlights,omitempty"`
	PriceRange      string   `json:"priceRange,omitempty"`
	Website         string   `json:"website,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	Email           string   `json:"email,omitempty"`
	BusinessHours   string   `json:"businessHours,omitempty"`
	Rating          float64  `json:"rating,omitempty"`
	ReviewCount     int      `json:"reviewCount,omitempty"`
	DigitalMaturity string   `json:"digitalMaturity,omitempty"` // Low, Medium, High
	FranchiseStatus string   `json:"franchiseStatus,omitempty"` // Independent, Franchise, Chain
}

// CustomerSentiment holds 0-5 scores per experience aspect.
type CustomerSentiment struct {
	Overall  float64 `json:"overall"`
	Food     float64 `json:"food"`
	Service  float64 `json:"service"`
	Ambiance float64 `json:"ambiance"`
}

// DigitalPresence summarizes the prospect's online footprint.
type DigitalPresence struct {
	HasWebsite        bool `json:"hasWebsite"`
	HasOnlineOrdering bool `json:"hasOnlineOrdering"`
	SocialMediaActive bool `json:"socialMediaActive"`
	ReviewsManaged    bool `json:"reviewsManaged"`
}

// BusinessInsights is the sales-oriented analysis produced by the insights stage.
type BusinessInsights struct {
	ParseFailure
	RecentUpdates         []string           `json:"recentUpdates,omitempty"`
	KeyStrengths          []string           `json:"keyStrengths,omitempty"`
	Challenges            []string           `json:"challenges,omitempty"`
	MarketPosition        string             `json:"marketPosition,omitempty"`
	CustomerSentiment     *CustomerSentiment `json:"customerSentiment,omitempty"`
	PainPoints            []string           `json:"painPoints,omitempty"`
	GrowthSignals         []string           `json:"growthSignals,omitempty"`
	CompetitiveAdvantages []string           `json:"competitiveAdvantages,omitempty"`
	DigitalPresence       *DigitalPresence   `json:"digitalPresence,omitempty"`
	OperationalChallenges []string           `json:"operationalChallenges,omitempty"`
}

// Objection pairs a likely prospect objection with a suggested response.
type Objection struct {
	Objection string `json:"objection"`
	Response  string `json:"response"`
}

// SalesTools is the talk track produced by the sales tools stage.
type SalesTools struct {
	ParseFailure
	ConversationStarters []string    `json:"conversationStarters,omitempty"`
	PotentialObjections  []Objection `json:"potentialObjections,omitempty"`
	ValuePropositions    []string    `json:"valuePropositions,omitempty"`
}

// MinObjections is the number of objections the sales tools stage should provide.
const MinObjections = 5
