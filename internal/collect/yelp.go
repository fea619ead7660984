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
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/search"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/types"
)

const (
	yelpHomeURL       = "https://yelp.com"
	maxYelpReviews    = 10
	yelpBaseDataPoint = 10
)

var (
	starRatingPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*star`)
	firstCountPattern = regexp.MustCompile(`\d+(?:,\d+)*`)
	dollarSigns       = regexp.MustCompile(`^\$+$`)
)

// Yelp finds the business's Yelp page via search and scrapes ratings, details and reviews.
func (c *Collector) Yelp(ctx context.Context, name, location string) (*types.YelpBusiness, types.DataSource) {
	started := time.Now()
	logFields := []zap.Field{zap.String("query", name), zap.String("location", location)}
	empty := types.NewScoredSource(types.SourceReviews, yelpHomeURL, 0, 0)

	suffix := ""
	if location == "" {
		suffix = "restaurant"
	}
	results, err := c.searchResults(ctx, "site:yelp.com "+quotedQuery(name, location, suffix), 3)
	if err != nil {
		c.fail(NameYelp, started, err, logFields...)
		return nil, empty
	}

	pageURL := YelpBusinessURL(results)
	if pageURL == "" {
		c.record(NameYelp, observability.OutcomeEmpty, started, logFields...)
		return nil, empty
	}
	logFields = append(logFields, zap.String("url", pageURL))

	opts := c.pageOptions()
	opts.Timeout = 15 * time.Second
	page, err := fetch.URL(ctx, pageURL, opts)
	if err != nil {
		c.fail(NameYelp, started, err, logFields...)
		return nil, types.NewScoredSource(types.SourceReviews, pageURL, 0, 0)
	}

	biz := ParseYelpPage(page.HTML)
	if biz == nil {
		c.record(NameYelp, observability.OutcomeEmpty, started, logFields...)
		return nil, types.NewScoredSource(types.SourceReviews, pageURL, 0, 0)
	}

	c.record(NameYelp, observability.OutcomeOK, started, append(logFields, zap.Int("reviews", len(biz.Reviews)))...)
	return biz, types.NewScoredSource(types.SourceReviews, pageURL, 0.85, len(biz.Reviews)+yelpBaseDataPoint)
}

// YelpBusinessURL returns the first result that is a Yelp business page rather than its
// photo or review listing.
func YelpBusinessURL(results []search.Result) string {
	for _, r := range results {
		if strings.Contains(r.Link, "yelp.com/biz/") &&
			!strings.Contains(r.Link, "/photos") &&
			!strings.Contains(r.Link, "/reviews") {
			return r.Link
		}
	}
	return ""
}

// ParseYelpPage extracts business details from a Yelp business page. It returns nil when the
// page has no business name.
func ParseYelpPage(html string) *types.YelpBusiness {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	doc.Find(strings.Join(fetch.PlatformNoiseSelectors(fetch.PlatformYelp), ", ")).Remove()

	name := firstDocText(doc, "h1[data-testid='business-name']", "h1", ".biz-page-title")
	if name == "" {
		return nil
	}

	return &types.YelpBusiness{
		Name:        name,
		Rating:      yelpRating(doc),
		ReviewCount: yelpReviewCount(doc),
		PriceRange:  yelpPriceRange(doc),
		Cuisine:     yelpCategories(doc),
		Address:     firstDocText(doc, "[data-testid='business-address']", ".street-address"),
		Phone:       firstDocText(doc, "[data-testid='business-phone']", ".biz-phone", "a[href^='tel:']"),
		Website:     yelpWebsite(doc),
		Hours:       yelpHours(doc),
		Features:    distinctTexts(doc.Find("[data-testid='amenities'] span, .amenity-text, .feature-item")),
		Reviews:     yelpReviews(doc),
	}
}

func firstDocText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func ratingFromLabel(s *goquery.Selection) (float64, bool) {
	label, _ := s.Attr("aria-label")
	m := starRatingPattern.FindStringSubmatch(label)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	return v, err == nil
}

func yelpRating(doc *goquery.Document) float64 {
	for _, sel := range []string{"[data-testid='rating'] [aria-label*='star']", ".i-stars", "[aria-label*='star rating']"} {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if v, ok := ratingFromLabel(el); ok {
			return v
		}
	}
	return 0
}

func yelpReviewCount(doc *goquery.Document) int {
	candidates := []*goquery.Selection{
		doc.Find("[data-testid='review-count']").First(),
		doc.Find(".review-count").First(),
		doc.Find("span").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(s.Text(), "reviews")
		}).First(),
	}
	for _, el := range candidates {
		if el.Length() == 0 {
			continue
		}
		if m := firstCountPattern.FindString(el.Text()); m != "" {
			n, _ := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
			return n
		}
	}
	return 0
}

func yelpPriceRange(doc *goquery.Document) string {
	candidates := []*goquery.Selection{
		doc.Find("[data-testid='price-range']").First(),
		doc.Find(".price-range").First(),
		doc.Find("span").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return dollarSigns.MatchString(strings.TrimSpace(s.Text()))
		}).First(),
	}
	for _, el := range candidates {
		if text := strings.TrimSpace(el.Text()); dollarSigns.MatchString(text) {
			return text
		}
	}
	return ""
}

func yelpCategories(doc *goquery.Document) []string {
	for _, sel := range []string{"[data-testid='business-categories'] a", ".category-str-list a", ".biz-page-header .category-str-list"} {
		if found := distinctTexts(doc.Find(sel)); len(found) > 0 {
			return found
		}
	}
	return []string{}
}

func yelpWebsite(doc *goquery.Document) string {
	candidates := []*goquery.Selection{
		doc.Find("[data-testid='business-website'] a").First(),
		doc.Find(".biz-website a").First(),
		doc.Find("a").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(strings.ToLower(s.Text()), "website")
		}).First(),
	}
	for _, el := range candidates {
		href, ok := el.Attr("href")
		if ok && href != "" && !strings.Contains(href, "yelp.com") {
			return href
		}
	}
	return ""
}

func yelpHours(doc *goquery.Document) []string {
	var hours []string
	doc.Find("[data-testid='business-hours'] tr, .hours-table tr").Each(func(_ int, row *goquery.Selection) {
		day := strings.TrimSpace(row.Find("th, td").First().Text())
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		t := strings.TrimSpace(cells.Last().Text())
		if day != "" && t != "" && day != t {
			hours = append(hours, day+": "+t)
		}
	})
	return hours
}

func yelpReviews(doc *goquery.Document) []types.ReviewData {
	reviews := []types.ReviewData{}
	doc.Find("[data-testid='review'], .review, .review-content").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		rating := 0.0
		if v, ok := ratingFromLabel(el.Find("[aria-label*='star'], .i-stars").First()); ok {
			rating = float64(int(v))
		}
		text := strings.TrimSpace(el.Find(".review-text, .comment, p").First().Text())
		if text == "" || rating <= 0 {
			return true
		}

		date := strings.TrimSpace(el.Find(".review-date, .date, time").First().Text())
		if date == "" {
			date = time.Now().UTC().Format(time.RFC3339)
		}
		author := strings.TrimSpace(el.Find(".user-name, .reviewer-name, .author").First().Text())
		if author == "" {
			author = "Anonymous"
		}

		reviews = append(reviews, types.ReviewData{
			Source: "Yelp",
			Rating: rating,
			Text:   text,
			Date:   date,
			Author: author,
		})
		return len(reviews) < maxYelpReviews
	})
	return reviews
}

func distinctTexts(sel *goquery.Selection) []string {
	var out []string
	seen := map[string]bool{}
	sel.Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" && !seen[text] {
			seen[text] = true
			out = append(out, text)
		}
	})
	return out
}
