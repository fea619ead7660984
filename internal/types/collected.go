package types

import "time"

// SourceType classifies where a collected fact came from.
type SourceType string

// Source types recognised in provenance records.
const (
	SourceWebsite SourceType = "website"
	SourceSocial  SourceType = "social"
	SourceNews    SourceType = "news"
	SourceReviews SourceType = "reviews"
	SourceSearch  SourceType = "search"
	SourceMaps    SourceType = "maps"
	SourceMenu    SourceType = "menu"
)

// DataSource tags the provenance of aggregated facts.
type DataSource struct {
	Type       SourceType `json:"type"`
	URL        string     `json:"url"`
	Timestamp  time.Time  `json:"timestamp"`
	Confidence *float64   `json:"confidence,omitempty"`
	DataPoints *int       `json:"dataPoints,omitempty"`
}

// NewSource returns a DataSource without confidence information.
func NewSource(t SourceType, url string) DataSource {
	return DataSource{Type: t, URL: url, Timestamp: time.Now().UTC()}
}

// NewScoredSource returns a DataSource carrying a confidence and data point count.
func NewScoredSource(t SourceType, url string, confidence float64, dataPoints int) DataSource {
	s := NewSource(t, url)
	s.Confidence = &confidence
	s.DataPoints = &dataPoints
	return s
}

// SearchResult is one organic web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
	Date    string `json:"date,omitempty"`
}

// ExtractedInfo holds fields pulled out of search snippets by keyword and pattern heuristics.
type ExtractedInfo struct {
	Description string   `json:"description"`
	Locations   []string `json:"locations"`
	Cuisine     string   `json:"cuisine"`
	Founded     string   `json:"founded"`
	Size        string   `json:"size"`
}

// BasicSearchData is the result of the basic web search collector.
type BasicSearchData struct {
	Name          string         `json:"name"`
	SearchResults []SearchResult `json:"searchResults"`
	ExtractedInfo ExtractedInfo  `json:"extractedInfo"`
}

// SocialLinks holds profile URLs discovered for a business.
type SocialLinks struct {
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
}

// BusinessData is the aggregated result of the free business data collector.
type BusinessData struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Address     string       `json:"address,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	Website     string       `json:"website,omitempty"`
	Rating      float64      `json:"rating,omitempty"`
	ReviewCount int          `json:"reviewCount,omitempty"`
	Cuisine     []string     `json:"cuisine,omitempty"`
	PriceRange  string       `json:"priceRange,omitempty"`
	Hours       []string     `json:"hours,omitempty"`
	Reviews     []ReviewData `json:"reviews"`
	SocialMedia SocialLinks  `json:"socialMedia"`
}

// ReviewData is a single customer review.
type ReviewData struct {
	Source   string   `json:"source"`
	Rating   float64  `json:"rating"`
	Text     string   `json:"text"`
	Date     string   `json:"date"`
	Author   string   `json:"author,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// PriceRange is the span of menu prices.
type PriceRange struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}

// MenuItem is one dish scraped from a menu page.
type MenuItem struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Category    string  `json:"category"`
	IsSignature bool    `json:"isSignature,omitempty"`
}

// MenuData is the structured menu scraped from a business website.
type MenuData struct {
	Categories  []string   `json:"categories"`
	Items       []MenuItem `json:"items"`
	PriceRange  PriceRange `json:"priceRange"`
	Specialties []string   `json:"specialties"`
}

// Sentiment is a coarse keyword-based tone label.
type Sentiment string

// Sentiment values.
const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// NewsData is a news article about the prospect or its industry.
type NewsData struct {
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Date      string    `json:"date"`
	Source    string    `json:"source"`
	URL       string    `json:"url"`
	Sentiment Sentiment `json:"sentiment,omitempty"`
}

// SocialBusinessInfo is contact detail gleaned from a social profile snippet.
type SocialBusinessInfo struct {
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
	Hours   string `json:"hours,omitempty"`
}

// SocialMediaData describes a social media profile.
type SocialMediaData struct {
	Platform     string              `json:"platform"`
	Handle       string              `json:"handle,omitempty"`
	Followers    int64               `json:"followers,omitempty"`
	PostsPerWeek float64             `json:"postsPerWeek,omitempty"`
	Engagement   float64             `json:"engagement,omitempty"`
	LastPost     string              `json:"lastPost,omitempty"`
	ProfileURL   string              `json:"profileUrl,omitempty"`
	Verified     bool                `json:"verified,omitempty"`
	BusinessInfo *SocialBusinessInfo `json:"businessInfo,omitempty"`
}

// YelpBusiness is the data scraped from a Yelp business page.
type YelpBusiness struct {
	Name        string       `json:"name"`
	Rating      float64      `json:"rating"`
	ReviewCount int          `json:"reviewCount"`
	PriceRange  string       `json:"priceRange"`
	Cuisine     []string     `json:"cuisine"`
	Address     string       `json:"address"`
	Phone       string       `json:"phone,omitempty"`
	Website     string       `json:"website,omitempty"`
	Hours       []string     `json:"hours,omitempty"`
	Features    []string     `json:"features,omitempty"`
	Reviews     []ReviewData `json:"reviews"`
}

// ComprehensiveData is the aggregated bag of all collector outputs for one search query.
// Every field except BasicInfo may be absent.
type ComprehensiveData struct {
	BasicInfo    *BasicSearchData  `json:"basicInfo"`
	BusinessData *BusinessData     `json:"businessData,omitempty"`
	MenuData     *MenuData         `json:"menuData,omitempty"`
	ReviewsData  []ReviewData      `json:"reviewsData,omitempty"`
	NewsData     []NewsData        `json:"newsData,omitempty"`
	SocialData   []SocialMediaData `json:"socialData,omitempty"`
	YelpData     *YelpBusiness     `json:"yelpData,omitempty"`
	Sources      []DataSource      `json:"sources"`
}

// HasMenuItems reports whether a menu with at least one item was collected.
func (c *ComprehensiveData) HasMenuItems() bool {
	return c != nil && c.MenuData != nil && len(c.MenuData.Items) > 0
}
