package collect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/search"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/types"
)

func TestBasicSearch(t *testing.T) {
	t.Run("unconfigured provider is not an error", func(t *testing.T) {
		c := newTestCollector(search.Unconfigured{})
		data, sources, err := c.BasicSearch(context.Background(), "Noodle House")
		require.NoError(t, err)
		assert.Equal(t, "Noodle House", data.Name)
		assert.Empty(t, data.SearchResults)
		assert.Empty(t, sources)
	})

	t.Run("provider failure is reported", func(t *testing.T) {
		c := newTestCollector(&fakeSearcher{err: errors.New("boom")})
		data, _, err := c.BasicSearch(context.Background(), "Noodle House")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Noodle House")
		require.NotNil(t, data)
		assert.Equal(t, "Noodle House", data.Name)
	})

	t.Run("query shape and sources", func(t *testing.T) {
		fake := &fakeSearcher{results: map[string][]search.Result{
			"restaurant menu location contact": {
				{Title: "Noodle House", Link: "https://noodlehouse.example", Snippet: "Hand-pulled noodles."},
			},
		}}
		c := newTestCollector(fake)
		_, sources, err := c.BasicSearch(context.Background(), "Noodle House")
		require.NoError(t, err)
		assert.Equal(t, []string{"Noodle House restaurant menu location contact"}, fake.seen())
		require.Len(t, sources, 1)
		assert.Equal(t, types.SourceSearch, sources[0].Type)
		assert.Equal(t, "https://noodlehouse.example", sources[0].URL)
	})
}

func TestExtractBasicData(t *testing.T) {
	results := []search.Result{
		{Title: "Sakura Sushi Bar", Snippet: "Fresh sushi served daily.", Link: "https://sakura.example"},
		{Title: "Sakura reviews", Snippet: "A Japanese restaurant located in San Francisco with a second branch at Oakland Hills near the bay.", Link: "https://yelp.com/biz/sakura"},
		{Title: "Sakura", Snippet: "Visit us in San Francisco today.", Link: "https://maps.example"},
	}

	data := ExtractBasicData("Sakura", results)

	assert.Equal(t, "Sakura", data.Name)
	assert.Len(t, data.SearchResults, 3)
	assert.Equal(t, "Sushi", data.ExtractedInfo.Cuisine, "first result with a keyword wins")
	assert.Equal(t, []string{"San Francisco", "Oakland Hills"}, data.ExtractedInfo.Locations)
	assert.Equal(t, results[1].Snippet, data.ExtractedInfo.Description)
}

func TestExtractBasicData_Empty(t *testing.T) {
	data := ExtractBasicData("Nothing", nil)
	assert.Empty(t, data.SearchResults)
	assert.Empty(t, data.ExtractedInfo.Cuisine)
	assert.NotNil(t, data.ExtractedInfo.Locations)
	assert.Empty(t, data.ExtractedInfo.Description)
}

func TestWebsiteFromResults(t *testing.T) {
	tests := []struct {
		name    string
		results []types.SearchResult
		want    string
	}{
		{"skips listings", []types.SearchResult{
			{URL: "https://www.yelp.com/biz/x"},
			{URL: "https://www.facebook.com/x"},
			{URL: "https://x.example/menu"},
		}, "https://x.example/menu"},
		{"skips empty and unparseable", []types.SearchResult{{URL: ""}, {URL: "::"}}, ""},
		{"no results", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WebsiteFromResults(tt.results))
		})
	}
}

func TestMentionsFood(t *testing.T) {
	assert.True(t, MentionsFood([]types.SearchResult{{Snippet: "Our MENU changes weekly"}}))
	assert.False(t, MentionsFood([]types.SearchResult{{Snippet: "Plumbing services"}}))
}

func TestCleanBusinessName(t *testing.T) {
	tests := map[string]string{
		"Luigi's Pizzeria - Home":        "Luigi's Pizzeria",
		"Luigi's Pizzeria | Order Online": "Luigi's Pizzeria",
		"Luigi's Pizzeria...":             "Luigi's Pizzeria",
		"  Plain Name  ":                  "Plain Name",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanBusinessName(in), in)
	}
}

func TestReviewSignals(t *testing.T) {
	snippets := []string{
		"Short one.",
		"Rated 4.2/5 by 312 reviews. Prices $$$ and the noodles are worth every single cent.",
		"Another long snippet mentioning 3.9 stars that should not override the first rating seen.",
	}

	rating, count, price, reviews := ReviewSignals(snippets, fixedNow)

	assert.Equal(t, 4.2, rating)
	assert.Equal(t, 312, count)
	assert.Equal(t, "$$$", price)
	require.Len(t, reviews, 2)
	for _, r := range reviews {
		assert.Equal(t, "Google Search", r.Source)
		assert.Equal(t, "Anonymous", r.Author)
		assert.Equal(t, 4.2, r.Rating)
		assert.Equal(t, "2025-06-15T12:00:00Z", r.Date)
	}
}

func TestReviewSignals_DefaultRating(t *testing.T) {
	_, _, _, reviews := ReviewSignals([]string{
		"A long snippet without any numeric rating but plenty of words about the food.",
	}, fixedNow)
	require.Len(t, reviews, 1)
	assert.Equal(t, 4.0, reviews[0].Rating)
}

func TestExtractHours(t *testing.T) {
	html := `<html><body>
		<script>var open = "9:00";</script>
		<footer>
			<p>Open daily 11am - 10pm</p>
			<p>Open daily 11am - 10pm</p>
			<p>Sunday: closed</p>
			<p>Call 9:00 to book</p>
		</footer>
	</body></html>`

	hours := ExtractHours(html)

	assert.Contains(t, hours, "Open daily 11am - 10pm")
	assert.NotContains(t, hours, "Call 9:00 to book", "no hours keyword")
	assert.NotContains(t, hours, "Sunday: closed", "no time")
	count := 0
	for _, h := range hours {
		if h == "Open daily 11am - 10pm" {
			count++
		}
	}
	assert.Equal(t, 1, count, "duplicates removed")
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in    string
		want  float64
		found bool
	}{
		{"$12.50", 12.50, true},
		{"£ 9", 9, true},
		{"15.00€", 15, true},
		{"RM 18.90", 18.90, true},
		{"Burger 14", 14, true},
		{"0.25", 0, false},
		{"serves 1000 people", 0, false},
		{"no price here", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParsePrice(tt.in)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectCurrency(t *testing.T) {
	tests := map[string]string{
		"S$12.00":      "SGD",
		"$12.00":       "USD",
		"£4":           "GBP",
		"€4":           "EUR",
		"¥800":         "JPY",
		"₹250":         "INR",
		"₽300":         "RUB",
		"RM 15":        "MYR",
		"twelve bucks": "USD",
	}
	for in, want := range tests {
		assert.Equal(t, want, DetectCurrency(in), in)
	}
}

func TestParseMenu_TextFallback(t *testing.T) {
	html := `<html><body><div>
Nasi Lemak S$6.50
Chicken Rice S$5.00
x $1
Welcome to our restaurant, we are happy to serve you every day of the week!
</div></body></html>`

	menu := ParseMenu(html)

	require.NotNil(t, menu)
	require.Len(t, menu.Items, 2)
	assert.Equal(t, "Nasi Lemak", menu.Items[0].Name)
	assert.Equal(t, 6.5, menu.Items[0].Price)
	assert.Equal(t, DefaultCategory, menu.Items[0].Category)
	assert.Equal(t, []string{DefaultCategory}, menu.Categories)
	assert.Equal(t, types.PriceRange{Min: 5, Max: 6.5, Currency: "SGD"}, menu.PriceRange)
}

func TestParseMenu_NoItems(t *testing.T) {
	assert.Nil(t, ParseMenu(`<html><body><p>About us</p></body></html>`))
}

func TestMenu_FetchFailure(t *testing.T) {
	c := newTestCollector(search.Unconfigured{})
	menu, source := c.Menu(context.Background(), "not a url")
	assert.Nil(t, menu)
	assert.Equal(t, types.SourceMenu, source.Type)
	require.NotNil(t, source.Confidence)
	assert.Equal(t, 0.0, *source.Confidence)
}

func TestStandardizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"30 mins ago", fixedNow.Add(-30 * time.Minute), true},
		{"5 hours ago", fixedNow.Add(-5 * time.Hour), true},
		{"3 days ago", fixedNow.AddDate(0, 0, -3), true},
		{"2 weeks ago", fixedNow.AddDate(0, 0, -14), true},
		{"1 month ago", fixedNow.AddDate(0, -1, 0), true},
		{"2 years ago", fixedNow.AddDate(-2, 0, 0), true},
		{"2025-01-02", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"Mar 4, 2024", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"sometime soon", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := StandardizeDate(tt.in, fixedNow)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestRecency(t *testing.T) {
	tests := map[string]float64{
		"2 days ago":    1.0,
		"3 weeks ago":   0.8,
		"2 months ago":  0.6,
		"6 months ago":  0.4,
		"3 years ago":   0.2,
		"unknown":       0.5,
		"":              0.5,
	}
	for in, want := range tests {
		assert.Equal(t, want, Recency(in, fixedNow), in)
	}
}

func TestRelevance(t *testing.T) {
	r := search.NewsResult{Title: "Luigi's wins award", Snippet: "The restaurant chef celebrates an opening and expansion."}
	// name 1.0 + restaurant, chef 0.2 + award, opening, expansion 0.6
	assert.InDelta(t, 1.8, Relevance(r, "Luigi's"), 1e-9)

	capped := search.NewsResult{Title: "Luigi's opening expansion award partnership investment", Snippet: "restaurant food dining menu chef kitchen"}
	assert.Equal(t, 2.0, Relevance(capped, "luigi's"))

	assert.Equal(t, 0.0, Relevance(search.NewsResult{Title: "Weather"}, ""))
}

func TestRankNews(t *testing.T) {
	results := []search.NewsResult{
		{Title: "Unrelated story", Date: "1 day ago", Link: "a"},
		{Title: "Luigi's restaurant award", Date: "2 years ago", Link: "b"},
		{Title: "Luigi's restaurant award", Date: "1 day ago", Link: "c"},
	}
	ranked := RankNews(results, "Luigi's", fixedNow)
	require.Len(t, ranked, 3)
	assert.Equal(t, "c", ranked[0].Link)
	assert.Equal(t, "b", ranked[1].Link)
	assert.Equal(t, "a", ranked[2].Link)

	many := make([]search.NewsResult, 15)
	assert.Len(t, RankNews(many, "x", fixedNow), 10)
}

func TestNews_Unconfigured(t *testing.T) {
	c := newTestCollector(search.Unconfigured{})
	news, source := c.News(context.Background(), "Luigi's", "")
	assert.Empty(t, news)
	require.NotNil(t, source.Confidence)
	assert.Equal(t, 0.0, *source.Confidence)
}

func TestIndustryNews(t *testing.T) {
	fake := &fakeSearcher{news: map[string][]search.NewsResult{
		"restaurant industry news": {
			{Title: "Dining scene sees record growth", Link: "https://n.example/1", Date: "not a date"},
		},
	}}
	c := newTestCollector(fake)

	news := c.IndustryNews(context.Background(), "Austin")

	require.Len(t, news, 1)
	assert.Equal(t, types.SentimentPositive, news[0].Sentiment)
	assert.Equal(t, "2025-06-15T12:00:00Z", news[0].Date, "unreadable dates become now")
	assert.Equal(t, []string{`restaurant industry news "Austin" trends`}, fake.seen())
}

func TestSentiment(t *testing.T) {
	assert.Equal(t, types.SentimentPositive, Sentiment("Record profit and a new location"))
	assert.Equal(t, types.SentimentNegative, Sentiment("Health violation leads to closure"))
	assert.Equal(t, types.SentimentNeutral, Sentiment("Chef changes menu"))
	assert.Equal(t, types.SentimentNeutral, Sentiment("Award winner faces lawsuit"))
}

func TestHandleFromURL(t *testing.T) {
	tests := map[string]string{
		"https://www.facebook.com/luigis":              "luigis",
		"https://www.facebook.com/pages/luigis/123":    "luigis",
		"https://www.facebook.com/profile.php?id=1234": "",
		"https://www.instagram.com/luigis/":            "luigis",
		"https://www.instagram.com/":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, handleFromURL(in), in)
	}
}

func TestParseCount(t *testing.T) {
	tests := map[string]int64{
		"1,234": 1234,
		"1.2K":  1200,
		"3M":    3_000_000,
		"1.5b":  1_500_000_000,
		"":      0,
		"lots":  0,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseCount(in), in)
	}
}

func TestFollowerCount(t *testing.T) {
	assert.Equal(t, int64(2300), FollowerCount("2.3K followers on Instagram"))
	assert.Equal(t, int64(15432), FollowerCount("15,432 likes · 200 talking about this"))
	assert.Equal(t, int64(0), FollowerCount("no numbers"))
}

func TestPostFrequency(t *testing.T) {
	assert.Equal(t, 7.0, PostFrequency("We post daily specials"))
	assert.Equal(t, 1.0, PostFrequency("Weekly updates"))
	assert.Equal(t, 3.0, PostFrequency("Regular posts"))
	assert.Equal(t, 0.0, PostFrequency("Hello"))
}

func TestEngagementScore(t *testing.T) {
	assert.InDelta(t, 0.5, EngagementScore("Popular and active"), 1e-9)
	assert.InDelta(t, 1.0, EngagementScore("popular active community reviews responsive"), 1e-9)
	assert.Equal(t, 0.0, EngagementScore("quiet"))
}

func TestBusinessInfoFromSnippet(t *testing.T) {
	info := BusinessInfoFromSnippet("Call (555) 987-6543. 7 Ocean Drive. Open daily 10:30 to late.")
	require.NotNil(t, info)
	assert.Equal(t, "(555) 987-6543", info.Phone)
	assert.Equal(t, "7 Ocean Drive", info.Address)
	assert.Equal(t, "Open daily 10:30 to late", info.Hours)

	assert.Nil(t, BusinessInfoFromSnippet("Just a page"))
}

func TestProfilesFromLinks(t *testing.T) {
	profiles := ProfilesFromLinks(types.SocialLinks{
		Facebook:  "https://facebook.com/luigis",
		Instagram: "https://instagram.com/luigis_ig",
	})
	require.Len(t, profiles, 2)
	assert.Equal(t, PlatformFacebook, profiles[0].Platform)
	assert.Equal(t, "luigis", profiles[0].Handle)
	assert.Equal(t, PlatformInstagram, profiles[1].Platform)
	assert.Equal(t, "luigis_ig", profiles[1].Handle)

	assert.Empty(t, ProfilesFromLinks(types.SocialLinks{}))
}

func TestYelpBusinessURL(t *testing.T) {
	results := []search.Result{
		{Link: "https://www.yelp.com/biz_photos/luigis"},
		{Link: "https://www.yelp.com/biz/luigis/photos"},
		{Link: "https://www.yelp.com/biz/luigis/reviews"},
		{Link: "https://www.yelp.com/biz/luigis-springfield"},
	}
	assert.Equal(t, "https://www.yelp.com/biz/luigis-springfield", YelpBusinessURL(results))
	assert.Empty(t, YelpBusinessURL(results[:3]))
}

const yelpPage = `<html><body>
<div class="cookie-banner">Accept cookies</div>
<h1 data-testid="business-name">Luigi's Pizzeria</h1>
<div data-testid="rating"><div aria-label="4.5 star rating"></div></div>
<span data-testid="review-count">(1,024 reviews)</span>
<span data-testid="price-range">$$</span>
<span data-testid="business-categories"><a>Pizza</a><a>Italian</a><a>Pizza</a></span>
<p data-testid="business-address">42 Main Street</p>
<p data-testid="business-phone">(555) 123-4567</p>
<div data-testid="business-website"><a href="https://luigis.example">luigis.example</a></div>
<table data-testid="business-hours">
  <tr><th>Mon</th><td>11:00 AM - 9:00 PM</td></tr>
  <tr><th>Tue</th><td>11:00 AM - 9:00 PM</td></tr>
</table>
<div data-testid="amenities"><span>Takes Reservations</span><span>Outdoor Seating</span></div>
<div data-testid="review">
  <div aria-label="5 star rating"></div>
  <p class="comment">Best crust in town.</p>
  <span class="user-name">Ana</span>
  <span class="review-date">Jun 1, 2025</span>
</div>
<div data-testid="review">
  <div aria-label="2.5 star rating"></div>
  <p class="comment">Slow service.</p>
</div>
<div data-testid="review">
  <p class="comment">No rating here.</p>
</div>
</body></html>`

func TestParseYelpPage(t *testing.T) {
	biz := ParseYelpPage(yelpPage)
	require.NotNil(t, biz)

	assert.Equal(t, "Luigi's Pizzeria", biz.Name)
	assert.Equal(t, 4.5, biz.Rating)
	assert.Equal(t, 1024, biz.ReviewCount)
	assert.Equal(t, "$$", biz.PriceRange)
	assert.Equal(t, []string{"Pizza", "Italian"}, biz.Cuisine)
	assert.Equal(t, "42 Main Street", biz.Address)
	assert.Equal(t, "(555) 123-4567", biz.Phone)
	assert.Equal(t, "https://luigis.example", biz.Website)
	assert.Equal(t, []string{"Mon: 11:00 AM - 9:00 PM", "Tue: 11:00 AM - 9:00 PM"}, biz.Hours)
	assert.Equal(t, []string{"Takes Reservations", "Outdoor Seating"}, biz.Features)

	require.Len(t, biz.Reviews, 2)
	assert.Equal(t, types.ReviewData{
		Source: "Yelp", Rating: 5, Text: "Best crust in town.", Date: "Jun 1, 2025", Author: "Ana",
	}, biz.Reviews[0])
	assert.Equal(t, 2.0, biz.Reviews[1].Rating, "ratings are truncated to whole stars")
	assert.Equal(t, "Anonymous", biz.Reviews[1].Author)
}

func TestParseYelpPage_NoName(t *testing.T) {
	assert.Nil(t, ParseYelpPage(`<html><body><p>Not found</p></body></html>`))
}
