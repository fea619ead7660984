package collect

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/song-huang/sh-hackathon-knowbuddy/internal/observability"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/search"
	"github.com/song-huang/sh-hackathon-knowbuddy/internal/types"
)

// Social platform labels as shown to users.
const (
	PlatformFacebook  = "Facebook"
	PlatformInstagram = "Instagram"
)

var (
	followerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?[KMB])\s*(?:followers|likes|fans)`),
		regexp.MustCompile(`(?i)(\d+(?:,\d+)*)\s*(?:followers|likes|fans)`),
	}
	snippetHoursPattern = regexp.MustCompile(`(?i)(open|hours)[^.]*[0-9]{1,2}[:\s]*[0-9]{2}[^.]*`)

	engagementWeights = []struct {
		keywords []string
		weight   float64
	}{
		{[]string{"popular"}, 0.3},
		{[]string{"active"}, 0.2},
		{[]string{"community"}, 0.2},
		{[]string{"reviews", "comments"}, 0.2},
		{[]string{"responsive"}, 0.1},
	}
)

// Social looks up the business's Facebook and Instagram profiles via site-restricted search
// and reads what the result snippets reveal about them.
func (c *Collector) Social(ctx context.Context, name, location string) ([]types.SocialMediaData, []types.DataSource) {
	started := time.Now()
	logFields := []zap.Field{zap.String("query", name), zap.String("location", location)}

	lookups := []struct {
		platform string
		query    string
	}{
		{PlatformFacebook, "site:facebook.com " + quotedQuery(name, location, "restaurant")},
		{PlatformInstagram, "site:instagram.com " + quotedQuery(name, location, "")},
	}

	profiles := []types.SocialMediaData{}
	sources := []types.DataSource{}
	for _, l := range lookups {
		results, err := c.searchResults(ctx, l.query, 3)
		if err != nil {
			zap.L().Warn("social profile search failed", append(logFields, zap.String("platform", l.platform), zap.Error(err))...)
			continue
		}
		if len(results) == 0 {
			continue
		}

		profile := SocialProfile(l.platform, results[0])
		profiles = append(profiles, profile)

		sourceURL := profile.ProfileURL
		if sourceURL == "" {
			sourceURL = "https://" + strings.ToLower(l.platform) + ".com"
		}
		sources = append(sources, types.NewScoredSource(types.SourceSocial, sourceURL, 0.8, profilePoints(profile)))
	}

	outcome := observability.OutcomeOK
	if len(profiles) == 0 {
		outcome = observability.OutcomeEmpty
	}
	c.record(NameSocial, outcome, started, append(logFields, zap.Int("profiles", len(profiles)))...)
	return profiles, sources
}

// SocialProfile builds a profile from the top search result for a platform.
func SocialProfile(platform string, r search.Result) types.SocialMediaData {
	lower := strings.ToLower(r.Snippet)
	profile := types.SocialMediaData{
		Platform:   platform,
		Handle:     handleFromURL(r.Link),
		ProfileURL: r.Link,
		Verified:   strings.Contains(lower, "verified"),
		Followers:  FollowerCount(r.Snippet),
		Engagement: EngagementScore(r.Snippet),
	}
	switch platform {
	case PlatformFacebook:
		profile.BusinessInfo = BusinessInfoFromSnippet(r.Snippet)
	case PlatformInstagram:
		profile.PostsPerWeek = PostFrequency(r.Snippet)
	}
	return profile
}

// FollowerCount reads "1,234 followers" or "1.2K likes" style counts. Zero means unknown.
func FollowerCount(snippet string) int64 {
	for _, re := range followerPatterns {
		if m := re.FindStringSubmatch(snippet); m != nil {
			return ParseCount(m[1])
		}
	}
	return 0
}

// ParseCount converts counts with thousands separators or K/M/B suffixes.
func ParseCount(s string) int64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	multiplier := 1.0
	switch strings.ToUpper(s[len(s)-1:]) {
	case "K":
		multiplier = 1e3
	case "M":
		multiplier = 1e6
	case "B":
		multiplier = 1e9
	}
	if multiplier > 1 {
		s = s[:len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(v*multiplier + 0.5)
}

// PostFrequency estimates posts per week from wording in the snippet. Zero means unknown.
func PostFrequency(snippet string) float64 {
	lower := strings.ToLower(snippet)
	switch {
	case strings.Contains(lower, "daily") || strings.Contains(lower, "every day"):
		return 7
	case strings.Contains(lower, "weekly") || strings.Contains(lower, "every week"):
		return 1
	case strings.Contains(lower, "regular") || strings.Contains(lower, "frequent"):
		return 3
	default:
		return 0
	}
}

// EngagementScore sums keyword weights into a 0..1 score.
func EngagementScore(snippet string) float64 {
	lower := strings.ToLower(snippet)
	score := 0.0
	for _, w := range engagementWeights {
		for _, kw := range w.keywords {
			if strings.Contains(lower, kw) {
				score += w.weight
				break
			}
		}
	}
	if score > 1 {
		return 1
	}
	return score
}

// BusinessInfoFromSnippet pulls a phone number, street address and opening hours from a
// profile snippet. It returns nil when none are present.
func BusinessInfoFromSnippet(snippet string) *types.SocialBusinessInfo {
	info := &types.SocialBusinessInfo{
		Phone:   extractPhone(snippet),
		Address: extractAddress(snippet),
	}
	lower := strings.ToLower(snippet)
	if strings.Contains(lower, "open") || strings.Contains(lower, "hours") {
		info.Hours = strings.TrimSpace(snippetHoursPattern.FindString(snippet))
	}
	if *info == (types.SocialBusinessInfo{}) {
		return nil
	}
	return info
}

// ProfilesFromLinks builds bare profiles from social links found alongside business data.
func ProfilesFromLinks(links types.SocialLinks) []types.SocialMediaData {
	var profiles []types.SocialMediaData
	if links.Facebook != "" {
		profiles = append(profiles, types.SocialMediaData{Platform: PlatformFacebook, Handle: handleFromURL(links.Facebook), ProfileURL: links.Facebook})
	}
	if links.Instagram != "" {
		profiles = append(profiles, types.SocialMediaData{Platform: PlatformInstagram, Handle: handleFromURL(links.Instagram), ProfileURL: links.Instagram})
	}
	return profiles
}

func profilePoints(p types.SocialMediaData) int {
	return countNonEmpty(
		p.Platform != "", p.Handle != "", p.ProfileURL != "", p.Verified,
		p.Followers > 0, p.Engagement > 0, p.PostsPerWeek > 0, p.BusinessInfo != nil,
	)
}
