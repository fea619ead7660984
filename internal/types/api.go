package types

// Business type labels reported by the search endpoint.
const (
	BusinessTypeRestaurant  = "Restaurant"
	BusinessTypeFoodService = "Food Service"
)

// SearchResponse is returned by the prospect search endpoint.
// Exactly one of ComprehensiveData or SearchData is set.
type SearchResponse struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Domain            string             `json:"domain"`
	Type              string             `json:"type"`
	Confidence        float64            `json:"confidence"`
	ComprehensiveData *ComprehensiveData `json:"comprehensiveData,omitempty"`
	SearchData        *BasicSearchData   `json:"searchData,omitempty"`
	Sources           []DataSource       `json:"sources"`
}

// AnalyzeRequest is the body accepted by the prospect analyze endpoint.
type AnalyzeRequest struct {
	ID                string             `json:"id" validate:"required"`
	ComprehensiveData *ComprehensiveData `json:"comprehensiveData,omitempty"`
	SearchData        *BasicSearchData   `json:"searchData,omitempty"`
	Sources           []DataSource       `json:"sources,omitempty"`
	IncludeReviews    *bool              `json:"includeReviews,omitempty"`
	IncludeSocial     *bool              `json:"includeSocial,omitempty"`
}

// HasData reports whether the request carries collected search data.
func (r *AnalyzeRequest) HasData() bool {
	return r.ComprehensiveData != nil || r.SearchData != nil
}

// AnalyzeResponse is returned by the prospect analyze endpoint.
type AnalyzeResponse struct {
	Profile    ProspectProfile  `json:"profile"`
	Insights   BusinessInsights `json:"insights"`
	SalesTools SalesTools       `json:"salesTools"`
	Sources    []DataSource     `json:"sources"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Service     string `json:"service"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}
