// Package observability provides Prometheus metrics for the service and formatted summaries
// for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

func writeList(sb *strings.Builder, heading string, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(heading + ":\n")
	count := min(len(items), limit)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > limit {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-limit))
	}
	sb.WriteString("\n")
}

// PrintSearch outputs a summary of a prospect search result.
func (p *Printer) PrintSearch(resp *types.SearchResponse) {
	if resp == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:        %s\n", resp.Name))
	sb.WriteString(fmt.Sprintf("Type:        %s\n", resp.Type))
	if resp.Domain != "" {
		sb.WriteString(fmt.Sprintf("Domain:      %s\n", resp.Domain))
	}
	sb.WriteString(fmt.Sprintf("Confidence:  %.2f\n", resp.Confidence))
	sb.WriteString(fmt.Sprintf("ID:          %s\n", resp.ID))
	sb.WriteString("\n")

	if data := resp.ComprehensiveData; data != nil {
		if b := data.BusinessData; b != nil {
			if b.Phone != "" {
				sb.WriteString(fmt.Sprintf("Phone:       %s\n", b.Phone))
			}
			if b.Address != "" {
				sb.WriteString(fmt.Sprintf("Address:     %s\n", b.Address))
			}
			if b.Rating > 0 {
				sb.WriteString(fmt.Sprintf("Rating:      %.1f (%d reviews)\n", b.Rating, b.ReviewCount))
			}
			sb.WriteString("\n")
		}
		if data.HasMenuItems() {
			sb.WriteString(fmt.Sprintf("Menu items:  %d\n", len(data.MenuData.Items)))
		}
		sb.WriteString(fmt.Sprintf("Reviews:     %d\n", len(data.ReviewsData)))
		sb.WriteString(fmt.Sprintf("News:        %d\n", len(data.NewsData)))
		sb.WriteString(fmt.Sprintf("Social:      %d\n", len(data.SocialData)))
	} else if data := resp.SearchData; data != nil {
		sb.WriteString(fmt.Sprintf("Results:     %d\n", len(data.SearchResults)))
		if data.ExtractedInfo.Cuisine != "" {
			sb.WriteString(fmt.Sprintf("Cuisine:     %s\n", data.ExtractedInfo.Cuisine))
		}
	}
	sb.WriteString(fmt.Sprintf("Sources:     %d", len(resp.Sources)))

	p.printBox("PROSPECT SEARCH", sb.String())
}

// PrintProfile outputs the prospect profile, or the parse failure in its place.
func (p *Printer) PrintProfile(profile *types.ProspectProfile) {
	if profile == nil {
		return
	}
	if profile.Failed() {
		p.printFailure("PROSPECT PROFILE", profile.ParseFailure)
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:      %s\n", profile.Name))
	if profile.Cuisine != "" {
		sb.WriteString(fmt.Sprintf("Cuisine:   %s\n", profile.Cuisine))
	}
	if profile.PriceRange != "" {
		sb.WriteString(fmt.Sprintf("Price:     %s\n", profile.PriceRange))
	}
	if profile.Size != "" {
		sb.WriteString(fmt.Sprintf("Size:      %s\n", profile.Size))
	}
	if profile.DigitalMaturity != "" {
		sb.WriteString(fmt.Sprintf("Digital:   %s\n", profile.DigitalMaturity))
	}
	if profile.FranchiseStatus != "" {
		sb.WriteString(fmt.Sprintf("Ownership: %s\n", profile.FranchiseStatus))
	}
	sb.WriteString("\n")
	writeList(&sb, "Locations", profile.Locations, 3)
	writeList(&sb, "Menu Highlights", profile.MenuHighlights, maxItemsToShow)

	p.printBox("PROSPECT PROFILE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintInsights outputs the business insights.
func (p *Printer) PrintInsights(insights *types.BusinessInsights) {
	if insights == nil {
		return
	}
	if insights.Failed() {
		p.printFailure("BUSINESS INSIGHTS", insights.ParseFailure)
		return
	}

	var sb strings.Builder
	if insights.MarketPosition != "" {
		sb.WriteString(insights.MarketPosition + "\n\n")
	}
	if s := insights.CustomerSentiment; s != nil {
		sb.WriteString(fmt.Sprintf("Sentiment: overall %.1f  food %.1f  service %.1f  ambiance %.1f\n\n",
			s.Overall, s.Food, s.Service, s.Ambiance))
	}
	writeList(&sb, "Strengths", insights.KeyStrengths, 3)
	writeList(&sb, "Pain Points", insights.PainPoints, maxItemsToShow)
	writeList(&sb, "Operational Challenges", insights.OperationalChallenges, maxItemsToShow)

	p.printBox("BUSINESS INSIGHTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSalesTools outputs conversation starters and objection handling.
func (p *Printer) PrintSalesTools(tools *types.SalesTools) {
	if tools == nil {
		return
	}
	if tools.Failed() {
		p.printFailure("SALES TOOLS", tools.ParseFailure)
		return
	}

	var sb strings.Builder
	writeList(&sb, "Conversation Starters", tools.ConversationStarters, 3)
	if len(tools.PotentialObjections) > 0 {
		sb.WriteString(fmt.Sprintf("Objections (%d):\n", len(tools.PotentialObjections)))
		count := min(len(tools.PotentialObjections), maxItemsToShow)
		for i := 0; i < count; i++ {
			o := tools.PotentialObjections[i]
			sb.WriteString(fmt.Sprintf("⚠ %s\n", o.Objection))
			sb.WriteString(fmt.Sprintf("  → %s\n", o.Response))
		}
		sb.WriteString("\n")
	}
	writeList(&sb, "Value Propositions", tools.ValuePropositions, maxItemsToShow)

	p.printBox("SALES TOOLS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAnalysis outputs all three analysis records.
func (p *Printer) PrintAnalysis(resp *types.AnalyzeResponse) {
	if resp == nil {
		return
	}
	p.PrintProfile(&resp.Profile)
	p.PrintInsights(&resp.Insights)
	p.PrintSalesTools(&resp.SalesTools)
}

func (p *Printer) printFailure(title string, failure types.ParseFailure) {
	p.printBox(title, fmt.Sprintf("⚠ %s\n%s", failure.Error, failure.RawResponse))
}
