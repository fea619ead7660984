// Package reviews turns customer reviews into pain points, strengths and sales angles by
// keyword and pattern matching.
package reviews

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/types"
)

const (
	maxPainPoints      = 5
	maxPositiveAspects = 5
	maxComplaints      = 3

	painPointMaxRating = 3
	positiveMinRating  = 4
	complaintMaxRating = 2
)

// SentimentScores are mean star ratings, overall and per aspect, rounded to one decimal.
type SentimentScores struct {
	Overall  float64 `json:"overall"`
	Food     float64 `json:"food"`
	Service  float64 `json:"service"`
	Ambiance float64 `json:"ambiance"`
}

// Analysis summarises a set of reviews.
type Analysis struct {
	PainPoints        []string        `json:"painPoints"`
	PositiveAspects   []string        `json:"positiveAspects"`
	CommonComplaints  []string        `json:"commonComplaints"`
	OperationalIssues []string        `json:"operationalIssues"`
	SentimentScores   SentimentScores `json:"sentimentScores"`
}

// Empty reports whether the analysis found nothing worth mentioning.
func (a Analysis) Empty() bool {
	return len(a.PainPoints) == 0 && len(a.PositiveAspects) == 0 &&
		len(a.CommonComplaints) == 0 && len(a.OperationalIssues) == 0
}

type theme struct {
	label    string
	keywords []string
}

var painPointThemes = []theme{
	{"Poor customer service and staff attitude", []string{
		"slow service", "rude staff", "unfriendly", "poor service", "bad service", "long wait",
		"waited forever", "ignored", "unprofessional", "attitude", "no attention", "dismissive",
		"unhelpful",
	}},
	{"Food quality and preparation issues", []string{
		"cold food", "overcooked", "undercooked", "tasteless", "bland", "stale", "poor quality",
		"not fresh", "burnt", "soggy", "dry", "greasy", "small portions", "overpriced", "expensive",
	}},
	{"Operational and cleanliness concerns", []string{
		"dirty", "unclean", "messy", "disorganized", "chaotic", "loud", "cramped", "uncomfortable",
		"broken", "out of order", "cash only", "no card", "payment issues", "system down",
	}},
	{"Order accuracy and system issues", []string{
		"wrong order", "missing items", "incorrect", "forgot", "mixed up", "no online ordering",
		"cant order online", "phone busy", "hard to reach",
	}},
}

var positiveThemes = []theme{
	{"Excellent customer service", []string{
		"excellent service", "friendly staff", "attentive", "professional", "helpful", "courteous",
		"welcoming", "great service", "amazing staff",
	}},
	{"High-quality food and taste", []string{
		"delicious", "amazing food", "excellent food", "fresh", "tasty", "flavorful", "perfect",
		"outstanding", "incredible", "best",
	}},
	{"Efficient operations and cleanliness", []string{
		"clean", "organized", "efficient", "quick", "fast", "smooth", "easy ordering", "convenient",
		"modern", "updated",
	}},
}

// Complaints count once per review, however many of their phrases match.
var complaintThemes = []theme{
	{"Long waiting times", []string{"long wait", "slow", "waited"}},
	{"High prices", []string{"expensive", "overpriced", "too much"}},
	{"Small portion sizes", []string{"small portion", "tiny", "not enough"}},
	{"Limited payment options", []string{"cash only", "no card", "payment"}},
	{"Parking issues", []string{"parking"}},
}

var operationalPatterns = []struct {
	pattern *regexp.Regexp
	issue   string
}{
	{regexp.MustCompile(`cash only|no card|payment.*problem`), "Limited payment methods - opportunity for modern POS system"},
	{regexp.MustCompile(`no.*online.*order|cant.*order.*online`), "No online ordering system - digital transformation opportunity"},
	{regexp.MustCompile(`system.*down|pos.*not.*work|machine.*broken`), "POS system reliability issues - upgrade opportunity"},
	{regexp.MustCompile(`long.*queue|slow.*service|waited.*long`), "Service efficiency issues - workflow optimization needed"},
	{regexp.MustCompile(`wrong.*order|mixed.*up|forgot.*item`), "Order accuracy problems - better order management needed"},
}

var aspectKeywords = struct {
	food, service, ambiance []string
}{
	food:     []string{"food", "taste", "meal", "dish"},
	service:  []string{"service", "staff", "waiter", "server"},
	ambiance: []string{"atmosphere", "ambiance", "place", "environment"},
}

// Analyze extracts pain points, positive aspects, complaints, operational issues and sentiment
// scores from reviews. No reviews yields an empty analysis with zero scores.
func Analyze(reviews []types.ReviewData) Analysis {
	a := Analysis{
		PainPoints:        []string{},
		PositiveAspects:   []string{},
		CommonComplaints:  []string{},
		OperationalIssues: []string{},
	}
	if len(reviews) == 0 {
		return a
	}

	texts := make([]string, len(reviews))
	for i, r := range reviews {
		texts[i] = strings.ToLower(r.Text)
	}

	pain := newTally()
	positive := newTally()
	complaints := newTally()
	for i, r := range reviews {
		text := texts[i]
		if r.Rating <= painPointMaxRating {
			for _, th := range painPointThemes {
				pain.add(th.label, countMatches(text, th.keywords))
			}
		}
		if r.Rating >= positiveMinRating {
			for _, th := range positiveThemes {
				positive.add(th.label, countMatches(text, th.keywords))
			}
		}
		if r.Rating <= complaintMaxRating {
			for _, th := range complaintThemes {
				if countMatches(text, th.keywords) > 0 {
					complaints.add(th.label, 1)
				}
			}
		}
	}
	a.PainPoints = pain.top(maxPainPoints)
	a.PositiveAspects = positive.top(maxPositiveAspects)
	a.CommonComplaints = complaints.top(maxComplaints)

	joined := strings.Join(texts, " ")
	for _, p := range operationalPatterns {
		if p.pattern.MatchString(joined) {
			a.OperationalIssues = append(a.OperationalIssues, p.issue)
		}
	}

	a.SentimentScores = sentiment(reviews, texts)
	return a
}

func sentiment(reviews []types.ReviewData, texts []string) SentimentScores {
	var sum float64
	for _, r := range reviews {
		sum += r.Rating
	}
	overall := round1(sum / float64(len(reviews)))

	aspect := func(keywords []string) float64 {
		var total float64
		var n int
		for i, r := range reviews {
			if countMatches(texts[i], keywords) > 0 {
				total += r.Rating
				n++
			}
		}
		if n == 0 {
			return overall
		}
		return round1(total / float64(n))
	}

	return SentimentScores{
		Overall:  overall,
		Food:     aspect(aspectKeywords.food),
		Service:  aspect(aspectKeywords.service),
		Ambiance: aspect(aspectKeywords.ambiance),
	}
}

// Objection responses used when supplementing sales tools.
var (
	CostObjection = types.Objection{
		Objection: "We're already struggling with costs, we can't afford new systems",
		Response:  "I understand cost is a concern. Our POS system actually helps reduce costs through better inventory management, reduced waste, and faster service that increases table turnover. Most clients see ROI within 6 months.",
	}
	CashObjection = types.Objection{
		Objection: "Our customers prefer cash, we don't need card payments",
		Response:  "While cash is important, offering multiple payment options can increase average order value by 15-20%. Our system handles both seamlessly, and you'll capture sales from customers who only have cards.",
	}
)

// SalesInsights maps an analysis to POS sales opportunities and likely objections.
// Opportunities come from pain points and operational issues; objections from complaints.
func SalesInsights(a Analysis) (opportunities []string, objections []types.Objection) {
	opportunities = []string{}
	objections = []types.Objection{}

	seen := map[string]bool{}
	addOpportunity := func(o string) {
		if !seen[o] {
			seen[o] = true
			opportunities = append(opportunities, o)
		}
	}
	for _, finding := range append(append([]string{}, a.PainPoints...), a.OperationalIssues...) {
		lower := strings.ToLower(finding)
		if strings.Contains(lower, "service") {
			addOpportunity("Staff training and customer service improvement through better POS workflow")
		}
		if strings.Contains(lower, "order") || strings.Contains(lower, "system") {
			addOpportunity("Order accuracy improvement with modern POS system and kitchen display")
		}
		if strings.Contains(lower, "payment") {
			addOpportunity("Multiple payment options and faster checkout process")
		}
	}

	for _, complaint := range a.CommonComplaints {
		lower := strings.ToLower(complaint)
		if strings.Contains(lower, "expensive") || strings.Contains(lower, "price") {
			objections = append(objections, CostObjection)
		}
		if strings.Contains(lower, "payment") || strings.Contains(lower, "cash only") {
			objections = append(objections, CashObjection)
		}
	}
	return opportunities, objections
}

func countMatches(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// tally counts labels and remembers the order they were first seen in.
type tally struct {
	order  []string
	counts map[string]int
}

func newTally() *tally {
	return &tally{counts: map[string]int{}}
}

func (t *tally) add(label string, n int) {
	if n == 0 {
		return
	}
	if _, ok := t.counts[label]; !ok {
		t.order = append(t.order, label)
	}
	t.counts[label] += n
}

func (t *tally) top(limit int) []string {
	labels := append([]string{}, t.order...)
	sort.SliceStable(labels, func(i, j int) bool { return t.counts[labels[i]] > t.counts[labels[j]] })
	if len(labels) > limit {
		labels = labels[:limit]
	}
	return labels
}
