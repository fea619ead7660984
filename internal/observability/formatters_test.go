package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/types"
)

func TestPrintSearch_Comprehensive(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintSearch(&types.SearchResponse{
		ID:         "prospect_1_abc",
		Name:       "Luigi's Pizzeria",
		Domain:     "luigis.example",
		Type:       types.BusinessTypeRestaurant,
		Confidence: 0.9,
		ComprehensiveData: &types.ComprehensiveData{
			BusinessData: &types.BusinessData{Phone: "(555) 123-4567", Rating: 4.5, ReviewCount: 1024},
			MenuData:     &types.MenuData{Items: []types.MenuItem{{Name: "Margherita"}}},
			ReviewsData:  []types.ReviewData{{Text: "Great"}},
		},
		Sources: []types.DataSource{{Type: types.SourceSearch}},
	})
	output := buf.String()

	assert.Contains(t, output, "PROSPECT SEARCH")
	assert.Contains(t, output, "Luigi's Pizzeria")
	assert.Contains(t, output, "luigis.example")
	assert.Contains(t, output, "0.90")
	assert.Contains(t, output, "(555) 123-4567")
	assert.Contains(t, output, "4.5 (1024 reviews)")
	assert.Contains(t, output, "Menu items:  1")
	assert.Contains(t, output, "Sources:     1")
}

func TestPrintSearch_Basic(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintSearch(&types.SearchResponse{
		Name: "Blue Fin",
		SearchData: &types.BasicSearchData{
			SearchResults: []types.SearchResult{{Title: "a"}, {Title: "b"}},
			ExtractedInfo: types.ExtractedInfo{Cuisine: "Sushi"},
		},
	})
	output := buf.String()

	assert.Contains(t, output, "Results:     2")
	assert.Contains(t, output, "Sushi")
	assert.NotContains(t, output, "Domain:")
}

func TestPrintSearch_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintSearch(nil)
	assert.Empty(t, buf.String())
}

func TestPrintAnalysis(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintAnalysis(&types.AnalyzeResponse{
		Profile: types.ProspectProfile{
			Name:           "Luigi's Pizzeria",
			Cuisine:        "Pizza",
			Locations:      []string{"Springfield", "Shelbyville", "Capital City", "Ogdenville"},
			MenuHighlights: []string{"Margherita"},
		},
		Insights: types.BusinessInsights{
			MarketPosition:    "Local favourite",
			CustomerSentiment: &types.CustomerSentiment{Overall: 4.2, Food: 4.5, Service: 3.9, Ambiance: 4},
			PainPoints:        []string{"Slow service"},
		},
		SalesTools: types.SalesTools{
			ConversationStarters: []string{"Congrats on the new site"},
			PotentialObjections:  []types.Objection{{Objection: "Too expensive", Response: "ROI in 6 months"}},
		},
	})
	output := buf.String()

	assert.Contains(t, output, "PROSPECT PROFILE")
	assert.Contains(t, output, "... and 1 more")
	assert.Contains(t, output, "BUSINESS INSIGHTS")
	assert.Contains(t, output, "overall 4.2")
	assert.Contains(t, output, "Slow service")
	assert.Contains(t, output, "SALES TOOLS")
	assert.Contains(t, output, "Objections (1):")
	assert.Contains(t, output, "ROI in 6 months")
}

func TestPrintAnalysis_ParseFailure(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintInsights(&types.BusinessInsights{ParseFailure: types.ParseFailure{
		Error:       "Failed to parse AI response",
		RawResponse: "Sorry...",
	}})
	output := buf.String()

	assert.Contains(t, output, "BUSINESS INSIGHTS")
	assert.Contains(t, output, "Failed to parse AI response")
	assert.Contains(t, output, "Sorry...")
}

func TestPrintBox_TruncatesByRune(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("T", strings.Repeat("é", 100))

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
	assert.Contains(t, buf.String(), "...")
}
