package collect

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/search"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/types"
)

var (
	phonePattern   = regexp.MustCompile(`(\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	addressPattern = regexp.MustCompile(`(?i)\d+\s+[A-Za-z\s]+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Drive|Dr|Lane|Ln)`)
)

// basicCuisineKeywords are matched against search results in order; the first hit wins.
var basicCuisineKeywords = []string{
	"italian", "chinese", "japanese", "mexican", "indian", "thai", "french",
	"american", "mediterranean", "korean", "vietnamese", "greek", "spanish",
	"pizza", "burger", "sushi", "bbq", "seafood", "steakhouse", "cafe", "bakery",
}

// descriptionCuisineKeywords extend the basic list with dining styles.
var descriptionCuisineKeywords = append(append([]string{}, basicCuisineKeywords...),
	"deli", "bistro", "grill", "fast food", "fine dining",
)

func isNotConfigured(err error) bool {
	return eris.Is(err, search.ErrNotConfigured)
}

// titleCase builds a Caser per call; Casers are not safe for concurrent use.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// quotedQuery builds `"name" ["location"] suffix` search queries.
func quotedQuery(name, location, suffix string) string {
	q := fmt.Sprintf("%q", name)
	if location != "" {
		q += fmt.Sprintf(" %q", location)
	}
	if suffix != "" {
		q += " " + suffix
	}
	return q
}

func extractPhone(text string) string {
	return phonePattern.FindString(text)
}

func extractAddress(text string) string {
	return strings.TrimSpace(addressPattern.FindString(text))
}

// cuisinesIn returns up to limit title-cased keywords found in text.
func cuisinesIn(text string, keywords []string, limit int) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			found = append(found, titleCase(kw))
			if len(found) == limit {
				break
			}
		}
	}
	return found
}

// handleFromURL returns the profile handle in a social URL, skipping path prefixes such as
// facebook.com/pages/.
func handleFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(parts) == 0 {
		return ""
	}
	switch parts[0] {
	case "pages", "profile.php", "people":
		if len(parts) > 1 {
			return parts[1]
		}
		return ""
	default:
		return parts[0]
	}
}

var (
	positiveWords = []string{
		"success", "growth", "expansion", "award", "best", "excellent", "popular",
		"thriving", "opening", "new location", "partnership", "investment",
		"recognition", "achievement", "milestone", "celebration", "launch",
		"innovative", "breakthrough", "record", "profit", "revenue",
	}
	negativeWords = []string{
		"closure", "closed", "problem", "issue", "complaint", "lawsuit",
		"violation", "failed", "bankruptcy", "debt", "loss", "decline",
		"controversy", "scandal", "investigation", "fine", "penalty",
		"criticism", "protest", "boycott", "health violation", "inspection",
	}
)

// Sentiment labels text by counting positive and negative keywords.
func Sentiment(text string) types.Sentiment {
	lower := strings.ToLower(text)
	var pos, neg int
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			pos++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			neg++
		}
	}
	switch {
	case pos > neg:
		return types.SentimentPositive
	case neg > pos:
		return types.SentimentNegative
	default:
		return types.SentimentNeutral
	}
}

func countNonEmpty(values ...bool) int {
	n := 0
	for _, v := range values {
		if v {
			n++
		}
	}
	return n
}

func snippetsOf(results []search.Result) []string {
	snippets := make([]string, 0, len(results))
	for _, r := range results {
		snippets = append(snippets, r.Snippet)
	}
	return snippets
}
