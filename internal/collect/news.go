package collect

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/observability"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/search"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/types"
)

const newsSourceURL = "https://news.google.com"

const (
	newsPerQuery   = 5
	maxNewsResults = 10
	maxRelevance   = 2.0
)

var (
	newsQuerySuffixes = []string{
		"restaurant news",
		"opening expansion new location",
		"award best restaurant",
	}
	businessKeywords = []string{"restaurant", "food", "dining", "menu", "chef", "kitchen"}
	eventKeywords    = []string{"opening", "expansion", "award", "partnership", "investment"}

	leadingNumber = regexp.MustCompile(`\d+`)

	absoluteDateLayouts = []string{
		time.RFC3339,
		"2006-01-02",
		"Jan 2, 2006",
		"January 2, 2006",
		"2 Jan 2006",
		"02 Jan 2006",
		"Jan 2 2006",
		"Mon, 02 Jan 2006 15:04:05 MST",
		"01/02/2006",
	}
)

// News searches the past year of news about a business, ranks the articles by relevance and
// recency, and returns the top ten.
func (c *Collector) News(ctx context.Context, name, location string) ([]types.NewsData, types.DataSource) {
	started := time.Now()
	logFields := []zap.Field{zap.String("query", name), zap.String("location", location)}

	var all []search.NewsResult
	seen := map[string]bool{}
	for _, suffix := range newsQuerySuffixes {
		results, err := c.search.News(ctx, quotedQuery(name, location, suffix), newsPerQuery, search.PastYear)
		if err != nil {
			if isNotConfigured(err) {
				c.record(NameNews, observability.OutcomeEmpty, started, logFields...)
				return []types.NewsData{}, types.NewScoredSource(types.SourceNews, newsSourceURL, 0, 0)
			}
			zap.L().Warn("news query failed", append(logFields, zap.String("suffix", suffix), zap.Error(err))...)
			continue
		}
		for _, r := range results {
			if r.Link == "" || seen[r.Link] {
				continue
			}
			seen[r.Link] = true
			all = append(all, r)
		}
	}

	ranked := RankNews(all, name, c.now())
	news := make([]types.NewsData, 0, len(ranked))
	for _, r := range ranked {
		news = append(news, c.newsItem(r))
	}

	if len(news) == 0 {
		c.record(NameNews, observability.OutcomeEmpty, started, logFields...)
		return news, types.NewScoredSource(types.SourceNews, newsSourceURL, 0, 0)
	}
	c.record(NameNews, observability.OutcomeOK, started, append(logFields, zap.Int("articles", len(news)))...)
	return news, types.NewScoredSource(types.SourceNews, newsSourceURL, 0.8, len(news))
}

// IndustryNews returns last month's restaurant industry news, optionally for a location.
func (c *Collector) IndustryNews(ctx context.Context, location string) []types.NewsData {
	started := time.Now()

	query := "restaurant industry news trends"
	if location != "" {
		query = fmt.Sprintf("restaurant industry news %q trends", location)
	}

	results, err := c.search.News(ctx, query, newsPerQuery, search.PastMonth)
	if err != nil {
		if isNotConfigured(err) {
			c.record(NameIndustry, observability.OutcomeEmpty, started, zap.String("location", location))
		} else {
			c.fail(NameIndustry, started, err, zap.String("location", location))
		}
		return []types.NewsData{}
	}

	news := make([]types.NewsData, 0, len(results))
	for _, r := range results {
		news = append(news, c.newsItem(r))
	}
	outcome := observability.OutcomeOK
	if len(news) == 0 {
		outcome = observability.OutcomeEmpty
	}
	c.record(NameIndustry, outcome, started, zap.String("location", location))
	return news
}

func (c *Collector) newsItem(r search.NewsResult) types.NewsData {
	now := c.now()
	date, ok := StandardizeDate(r.Date, now)
	if !ok {
		date = now
	}
	return types.NewsData{
		Title:     r.Title,
		Summary:   r.Snippet,
		Date:      date.UTC().Format(time.RFC3339),
		Source:    r.Source,
		URL:       r.Link,
		Sentiment: Sentiment(r.Title + " " + r.Snippet),
	}
}

// RankNews orders articles by 0.7 x relevance + 0.3 x recency and keeps the top ten.
func RankNews(results []search.NewsResult, businessName string, now time.Time) []search.NewsResult {
	type scored struct {
		result search.NewsResult
		score  float64
	}
	items := make([]scored, 0, len(results))
	for _, r := range results {
		items = append(items, scored{
			result: r,
			score:  Relevance(r, businessName)*0.7 + Recency(r.Date, now)*0.3,
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].score > items[j].score })

	if len(items) > maxNewsResults {
		items = items[:maxNewsResults]
	}
	ranked := make([]search.NewsResult, 0, len(items))
	for _, it := range items {
		ranked = append(ranked, it.result)
	}
	return ranked
}

// Relevance scores an article: 1.0 for naming the business, 0.1 per food business keyword and
// 0.2 per business event keyword, capped at 2.0.
func Relevance(r search.NewsResult, businessName string) float64 {
	text := strings.ToLower(r.Title + " " + r.Snippet)
	score := 0.0
	if name := strings.ToLower(businessName); name != "" && strings.Contains(text, name) {
		score += 1.0
	}
	for _, kw := range businessKeywords {
		if strings.Contains(text, kw) {
			score += 0.1
		}
	}
	for _, kw := range eventKeywords {
		if strings.Contains(text, kw) {
			score += 0.2
		}
	}
	if score > maxRelevance {
		return maxRelevance
	}
	return score
}

// Recency scores an article date from 1.0 (past week) down to 0.2 (over a year). Dates that
// cannot be read score 0.5.
func Recency(raw string, now time.Time) float64 {
	date, ok := StandardizeDate(raw, now)
	if !ok {
		return 0.5
	}
	days := now.Sub(date).Hours() / 24
	switch {
	case days <= 7:
		return 1.0
	case days <= 30:
		return 0.8
	case days <= 90:
		return 0.6
	case days <= 365:
		return 0.4
	default:
		return 0.2
	}
}

// StandardizeDate reads relative dates such as "3 days ago" and common absolute formats.
func StandardizeDate(raw string, now time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	lower := strings.ToLower(raw)
	if strings.Contains(lower, "ago") {
		n := 0
		if m := leadingNumber.FindString(lower); m != "" {
			n, _ = strconv.Atoi(m)
		}
		switch {
		case strings.Contains(lower, "min"):
			return now.Add(-time.Duration(n) * time.Minute), true
		case strings.Contains(lower, "hour"):
			return now.Add(-time.Duration(n) * time.Hour), true
		case strings.Contains(lower, "day"):
			return now.AddDate(0, 0, -n), true
		case strings.Contains(lower, "week"):
			return now.AddDate(0, 0, -7*n), true
		case strings.Contains(lower, "month"):
			return now.AddDate(0, -n, 0), true
		case strings.Contains(lower, "year"):
			return now.AddDate(-n, 0, 0), true
		default:
			return now, true
		}
	}

	for _, layout := range absoluteDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
