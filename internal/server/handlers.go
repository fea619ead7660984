package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/collect"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/fetch"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/types"
)

// isoMillis matches the millisecond ISO-8601 timestamps clients expect.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// genericNameTerms mark business names scraped from boilerplate page titles.
var genericNameTerms = []string{"contact us", "locate us", "find us", "about us", "home", "menu"}

var validate = validator.New(validator.WithRequiredStructEnabled())

// AnalyzeStatusResponse is returned by GET /api/prospect/analyze
type AnalyzeStatusResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

// IndustryNewsResponse is returned by GET /api/industry-news
type IndustryNewsResponse struct {
	News []types.NewsData `json:"news"`
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, types.HealthResponse{
		Status:      "healthy",
		Timestamp:   s.timestamp(),
		Service:     serviceName,
		Version:     serviceVersion,
		Environment: s.environment,
	})
}

// handleSearch runs the prospect search for the query and location parameters.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	location := strings.TrimSpace(r.URL.Query().Get("location"))
	if query == "" {
		s.writeError(w, &ErrValidation{Field: "query", Message: msgQueryRequired})
		return
	}

	resp, err := Search(r.Context(), s.collector, NewProspectID(s.now()), query, location)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// Search runs the comprehensive search for query and falls back to the basic web search when
// it fails. When both fail the error is an *ErrServiceUnavailable.
func Search(ctx context.Context, c Collector, id, query, location string) (*types.SearchResponse, error) {
	data, sources, err := c.Comprehensive(ctx, query, location)
	if err == nil {
		return ComprehensiveResponse(id, query, data, sources), nil
	}
	zap.L().Warn("comprehensive search failed, falling back to basic search",
		zap.String("query", query), zap.Error(err))

	basic, sources, err := c.BasicSearch(ctx, query)
	if err != nil {
		return nil, &ErrServiceUnavailable{Service: "search", Message: msgSearchUnavailable, Cause: err}
	}
	return BasicResponse(id, query, basic, sources), nil
}

// ComprehensiveResponse builds the search response for comprehensive data.
func ComprehensiveResponse(id, query string, data *types.ComprehensiveData, sources []types.DataSource) *types.SearchResponse {
	isRestaurant, confidence := Classify(data)

	var results []types.SearchResult
	if data.BasicInfo != nil {
		results = data.BasicInfo.SearchResults
	}

	domain := ""
	if data.BusinessData != nil && data.BusinessData.Website != "" {
		if u, err := url.Parse(data.BusinessData.Website); err == nil {
			domain = u.Hostname()
		}
	}
	if domain == "" {
		domain = ExtractDomain(results)
	}

	return &types.SearchResponse{
		ID:                id,
		Name:              BusinessName(query, data),
		Domain:            domain,
		Type:              businessType(isRestaurant),
		Confidence:        math.Round(confidence*100) / 100,
		ComprehensiveData: data,
		Sources:           nonNil(sources),
	}
}

// BasicResponse builds the search response for the basic web search fallback.
func BasicResponse(id, query string, data *types.BasicSearchData, sources []types.DataSource) *types.SearchResponse {
	isRestaurant := data.ExtractedInfo.Cuisine != "" || collect.MentionsFood(data.SearchResults)
	confidence := 0.5
	if isRestaurant {
		confidence = 0.7
	}

	name := query
	switch {
	case len(data.SearchResults) > 0 && data.SearchResults[0].Title != "":
		name = data.SearchResults[0].Title
	case data.Name != "":
		name = data.Name
	}

	return &types.SearchResponse{
		ID:         id,
		Name:       name,
		Domain:     ExtractDomain(data.SearchResults),
		Type:       businessType(isRestaurant),
		Confidence: confidence,
		SearchData: data,
		Sources:    nonNil(sources),
	}
}

// Classify decides whether comprehensive data describes a restaurant and how confident that
// call is. Business data is checked first, then the basic search, and a scraped menu always
// confirms a restaurant.
func Classify(data *types.ComprehensiveData) (isRestaurant bool, confidence float64) {
	confidence = 0.5

	if b := data.BusinessData; b != nil {
		name := strings.ToLower(b.Name)
		description := strings.ToLower(b.Description)
		isRestaurant = len(b.Cuisine) > 0 ||
			strings.Contains(name, "restaurant") ||
			strings.Contains(name, "cafe") ||
			strings.Contains(name, "bar") ||
			strings.Contains(description, "restaurant") ||
			strings.Contains(description, "food")
		confidence = 0.7
		if isRestaurant {
			confidence = 0.9
		}
	}

	if !isRestaurant && data.BasicInfo != nil {
		isRestaurant = data.BasicInfo.ExtractedInfo.Cuisine != "" || collect.MentionsFood(data.BasicInfo.SearchResults)
		confidence = 0.6
		if isRestaurant {
			confidence = 0.8
		}
	}

	if data.HasMenuItems() {
		isRestaurant = true
		confidence = math.Max(confidence, 0.9)
	}
	return isRestaurant, confidence
}

// BusinessName picks the display name for a prospect: the scraped business name unless it is
// page boilerplate, else a name cut from the first search result title, else the query.
func BusinessName(query string, data *types.ComprehensiveData) string {
	if b := data.BusinessData; b != nil && b.Name != "" {
		lower := strings.ToLower(b.Name)
		generic := false
		for _, term := range genericNameTerms {
			if strings.Contains(lower, term) {
				generic = true
				break
			}
		}
		if !generic {
			return b.Name
		}
	}

	if data.BasicInfo != nil && len(data.BasicInfo.SearchResults) > 0 {
		if name := NameFromTitle(data.BasicInfo.SearchResults[0].Title, query); name != "" {
			return name
		}
	}
	return query
}

// NameFromTitle finds the title segment mentioning the first word of query and returns that
// word with at most two words following it. Trademark symbols are removed.
func NameFromTitle(title, query string) string {
	fields := strings.Fields(strings.ToLower(query))
	if title == "" || len(fields) == 0 {
		return ""
	}
	first := fields[0]

	parts := strings.FieldsFunc(title, func(r rune) bool {
		return r == ':' || r == '|' || r == '–' || r == '-'
	})
	for _, part := range parts {
		words := strings.Fields(part)
		for i, word := range words {
			if !strings.Contains(strings.ToLower(word), first) {
				continue
			}
			end := min(i+3, len(words))
			name := strings.Join(words[i:end], " ")
			name = strings.NewReplacer("®", "", "™", "", "©", "").Replace(name)
			if name = strings.TrimSpace(name); name != "" {
				return name
			}
		}
	}
	return ""
}

// ExtractDomain returns the hostname of the first result that is not a social, review or
// search site.
func ExtractDomain(results []types.SearchResult) string {
	for _, r := range results {
		if r.URL == "" || fetch.IsThirdPartyHost(r.URL) {
			continue
		}
		if u, err := url.Parse(r.URL); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	return ""
}

// handleAnalyze runs the analysis stages on a previously searched prospect.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req types.AnalyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := validate.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "ID" {
			s.writeError(w, &ErrValidation{Field: "id", Message: msgIDRequired})
			return
		}
		s.writeError(w, &ErrValidation{Field: "body", Message: "Invalid request body: " + err.Error()})
		return
	}

	if !req.HasData() {
		s.writeError(w, &ErrNotFound{Resource: "search data", Message: msgSearchDataNotFound})
		return
	}

	resp, err := s.analyzer.Analyze(r.Context(), &req)
	if err != nil {
		s.writeError(w, analysisError(err))
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleAnalyzeStatus reports that the analysis service is reachable.
func (s *Server) handleAnalyzeStatus(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, AnalyzeStatusResponse{
		Status:    "ok",
		Service:   "prospect-analysis",
		Timestamp: s.timestamp(),
	})
}

// handleIndustryNews returns recent restaurant industry news, optionally for a location.
func (s *Server) handleIndustryNews(w http.ResponseWriter, r *http.Request) {
	location := strings.TrimSpace(r.URL.Query().Get("location"))
	news := s.collector.IndustryNews(r.Context(), location)
	if news == nil {
		news = []types.NewsData{}
	}
	s.jsonResponse(w, http.StatusOK, IndustryNewsResponse{News: news})
}

// NewProspectID returns prospect_<unix millis>_<9 random characters>.
func NewProspectID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("prospect_%d_%s", now.UnixMilli(), random[:9])
}

func (s *Server) timestamp() string {
	return s.now().UTC().Format(isoMillis)
}

func businessType(isRestaurant bool) string {
	if isRestaurant {
		return types.BusinessTypeRestaurant
	}
	return types.BusinessTypeFoodService
}

func nonNil(sources []types.DataSource) []types.DataSource {
	if sources == nil {
		return []types.DataSource{}
	}
	return sources
}
