package collect

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/fetch"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/observability"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/search"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/types"
)

var locationPattern = regexp.MustCompile(`(?:located|in|at)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`)

// minDescriptionLength is the snippet length above which a snippet can serve as a description.
const minDescriptionLength = 50

// BasicSearch runs the general web search for query and extracts cuisine, locations and a
// description from the results. A missing search provider yields empty data and no error;
// any other provider failure is returned.
func (c *Collector) BasicSearch(ctx context.Context, query string) (*types.BasicSearchData, []types.DataSource, error) {
	started := time.Now()

	results, err := c.searchResults(ctx, query+" restaurant menu location contact", 10)
	if err != nil {
		c.fail(NameBasic, started, err, zap.String("query", query))
		return ExtractBasicData(query, nil), nil, eris.Wrapf(err, "basic search for %q", query)
	}

	sources := make([]types.DataSource, 0, len(results))
	for _, r := range results {
		sources = append(sources, types.NewSource(types.SourceSearch, r.Link))
	}

	data := ExtractBasicData(query, results)
	outcome := observability.OutcomeOK
	if len(results) == 0 {
		outcome = observability.OutcomeEmpty
	}
	c.record(NameBasic, outcome, started, zap.String("query", query), zap.Int("results", len(results)))
	return data, sources, nil
}

// ExtractBasicData builds the basic search record from raw results.
func ExtractBasicData(query string, results []search.Result) *types.BasicSearchData {
	data := &types.BasicSearchData{
		Name:          query,
		SearchResults: make([]types.SearchResult, 0, len(results)),
		ExtractedInfo: types.ExtractedInfo{Locations: []string{}},
	}

	seen := map[string]bool{}
	for _, r := range results {
		data.SearchResults = append(data.SearchResults, types.SearchResult{
			Title:   r.Title,
			Snippet: r.Snippet,
			URL:     r.Link,
			Date:    r.Date,
		})

		info := &data.ExtractedInfo
		if info.Cuisine == "" {
			if found := cuisinesIn(r.Title+" "+r.Snippet, basicCuisineKeywords, 1); len(found) > 0 {
				info.Cuisine = found[0]
			}
		}

		for _, m := range locationPattern.FindAllStringSubmatch(r.Snippet, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				info.Locations = append(info.Locations, m[1])
			}
		}

		if info.Description == "" && len(r.Snippet) > minDescriptionLength {
			info.Description = r.Snippet
		}
	}
	return data
}

// WebsiteFromResults returns the first result URL that is not a social, review or search site.
func WebsiteFromResults(results []types.SearchResult) string {
	for _, r := range results {
		if r.URL == "" || fetch.IsListingHost(r.URL) {
			continue
		}
		if host := fetch.Hostname(r.URL); host != "" {
			return r.URL
		}
	}
	return ""
}

// MentionsFood reports whether any snippet talks about restaurants, food or menus.
func MentionsFood(results []types.SearchResult) bool {
	for _, r := range results {
		s := strings.ToLower(r.Snippet)
		if strings.Contains(s, "restaurant") || strings.Contains(s, "food") || strings.Contains(s, "menu") {
			return true
		}
	}
	return false
}
