package collect

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/fetch"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/observability"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/types"
)

// businessSourceURL is the provenance recorded for search-derived business data.
const businessSourceURL = "https://google.com/search"

const (
	maxSnippetReviews   = 3
	defaultReviewRating = 4
	maxHoursLines       = 7
	maxHoursLineLength  = 100
	maxDescCuisines     = 3
)

var (
	ratingPattern      = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:stars?|/5|rating)`)
	reviewCountPattern = regexp.MustCompile(`(?i)(\d+(?:,\d+)*)\s*reviews?`)
	pricePattern       = regexp.MustCompile(`(\$+)`)
	hoursPattern       = regexp.MustCompile(`(?i)\d{1,2}:\d{2}|am|pm`)
	titleSuffixes      = []*regexp.Regexp{
		regexp.MustCompile(`\s*-\s*.*$`),
		regexp.MustCompile(`\s*\|\s*.*$`),
		regexp.MustCompile(`\s*\.\.\.$`),
	}
)

// BusinessData gathers contact details, social links, review signals and opening hours
// for a business from web search and its own website. It returns nil when nothing was found.
func (c *Collector) BusinessData(ctx context.Context, name, location string) (*types.BusinessData, []types.DataSource) {
	started := time.Now()
	logFields := []zap.Field{zap.String("query", name), zap.String("location", location)}

	results, err := c.searchResults(ctx, quotedQuery(name, location, "restaurant contact address phone"), 5)
	if err != nil {
		c.fail(NameBusiness, started, err, logFields...)
		return nil, nil
	}
	if len(results) == 0 {
		c.record(NameBusiness, observability.OutcomeEmpty, started, logFields...)
		return nil, nil
	}

	first := results[0]
	data := &types.BusinessData{
		Name:        CleanBusinessName(first.Title),
		Description: first.Snippet,
		Website:     first.Link,
		Address:     extractAddress(first.Snippet),
		Phone:       extractPhone(first.Snippet),
		Reviews:     []types.ReviewData{},
	}

	data.SocialMedia = c.socialLinks(ctx, name, location)
	c.reviewSignals(ctx, name, location, data)
	if data.Website != "" {
		data.Hours = c.websiteHours(ctx, data.Website)
	}
	data.Cuisine = cuisinesIn(data.Description, descriptionCuisineKeywords, maxDescCuisines)

	points := countNonEmpty(
		data.Name != "", data.Description != "", data.Address != "", data.Phone != "",
		data.Website != "", data.Rating > 0, data.ReviewCount > 0, len(data.Cuisine) > 0,
		data.PriceRange != "", len(data.Hours) > 0, len(data.Reviews) > 0,
		data.SocialMedia != (types.SocialLinks{}),
	)
	c.record(NameBusiness, observability.OutcomeOK, started, append(logFields, zap.Int("data_points", points))...)
	return data, []types.DataSource{types.NewScoredSource(types.SourceSearch, businessSourceURL, 0.8, points)}
}

// CleanBusinessName strips page-title decorations such as " - Home" or " | Menu".
func CleanBusinessName(title string) string {
	for _, re := range titleSuffixes {
		title = re.ReplaceAllString(title, "")
	}
	return strings.TrimSpace(title)
}

func (c *Collector) socialLinks(ctx context.Context, name, location string) types.SocialLinks {
	var links types.SocialLinks

	fbSuffix := "restaurant"
	if location != "" {
		fbSuffix = ""
	}
	queries := []struct {
		query string
		set   func(string)
	}{
		{"site:facebook.com " + quotedQuery(name, location, fbSuffix), func(u string) { links.Facebook = u }},
		{"site:instagram.com " + quotedQuery(name, location, ""), func(u string) { links.Instagram = u }},
	}

	for _, q := range queries {
		results, err := c.searchResults(ctx, q.query, 3)
		if err != nil {
			zap.L().Debug("social link search failed", zap.String("query", q.query), zap.Error(err))
			continue
		}
		if len(results) > 0 {
			q.set(results[0].Link)
		}
	}
	return links
}

// reviewSignals fills rating, review count, price range and snippet reviews.
func (c *Collector) reviewSignals(ctx context.Context, name, location string, data *types.BusinessData) {
	suffix := "reviews rating stars"
	if location == "" {
		suffix = "restaurant reviews rating stars"
	}
	results, err := c.searchResults(ctx, quotedQuery(name, location, suffix), 5)
	if err != nil {
		zap.L().Debug("review search failed", zap.String("query", name), zap.Error(err))
		return
	}

	data.Rating, data.ReviewCount, data.PriceRange, data.Reviews = ReviewSignals(snippetsOf(results), c.now())
}

// ReviewSignals extracts the first rating, review count and price level mentioned in
// snippets, plus up to three snippets usable as reviews.
func ReviewSignals(snippets []string, now time.Time) (rating float64, count int, price string, reviews []types.ReviewData) {
	reviews = []types.ReviewData{}
	for _, snippet := range snippets {
		if m := ratingPattern.FindStringSubmatch(snippet); m != nil && rating == 0 {
			rating, _ = strconv.ParseFloat(m[1], 64)
		}
		if m := reviewCountPattern.FindStringSubmatch(snippet); m != nil && count == 0 {
			count, _ = strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		}
		if m := pricePattern.FindStringSubmatch(snippet); m != nil && price == "" {
			price = m[1]
		}

		if len(snippet) > minDescriptionLength && len(reviews) < maxSnippetReviews {
			r := rating
			if r == 0 {
				r = defaultReviewRating
			}
			reviews = append(reviews, types.ReviewData{
				Source: "Google Search",
				Rating: r,
				Text:   snippet,
				Date:   now.UTC().Format(time.RFC3339),
				Author: "Anonymous",
			})
		}
	}
	return rating, count, price, reviews
}

// websiteHours scrapes short lines that look like opening hours from a business website.
func (c *Collector) websiteHours(ctx context.Context, website string) []string {
	started := time.Now()
	result, err := fetch.URL(ctx, website, c.pageOptions())
	if err != nil {
		c.fail(NameWebsite, started, err, zap.String("url", website))
		return nil
	}
	hours := ExtractHours(result.HTML)
	outcome := observability.OutcomeOK
	if len(hours) == 0 {
		outcome = observability.OutcomeEmpty
	}
	c.record(NameWebsite, outcome, started, zap.String("url", website))
	return hours
}

// ExtractHours returns up to seven distinct short text blocks that mention opening hours.
func ExtractHours(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	doc.Find("script, style, noscript").Remove()

	var hours []string
	seen := map[string]bool{}
	doc.Find("body *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" || len(text) >= maxHoursLineLength || seen[text] {
			return true
		}
		lower := strings.ToLower(text)
		if !mentionsHours(lower) || !hoursPattern.MatchString(text) {
			return true
		}
		seen[text] = true
		hours = append(hours, text)
		return len(hours) < maxHoursLines
	})
	return hours
}

func mentionsHours(lower string) bool {
	for _, kw := range []string{"hours", "open", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
