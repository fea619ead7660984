// Package fetch - platform.go classifies third-party hosts (social networks, directories, search).
package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known third-party site.
type Platform string

const (
	// PlatformFacebook is facebook.com
	PlatformFacebook Platform = "facebook"
	// PlatformInstagram is instagram.com
	PlatformInstagram Platform = "instagram"
	// PlatformTwitter is twitter.com or x.com
	PlatformTwitter Platform = "twitter"
	// PlatformYelp is yelp.com
	PlatformYelp Platform = "yelp"
	// PlatformTripAdvisor is tripadvisor.com and its country sites
	PlatformTripAdvisor Platform = "tripadvisor"
	// PlatformGoogle is google.com including maps
	PlatformGoogle Platform = "google"
	// PlatformLinkedIn is linkedin.com
	PlatformLinkedIn Platform = "linkedin"
	// PlatformUnknown is any other host, typically the business's own website
	PlatformUnknown Platform = "unknown"
)

var platformDomains = []struct {
	platform Platform
	domains  []string
}{
	{PlatformFacebook, []string{"facebook.com", "fb.com"}},
	{PlatformInstagram, []string{"instagram.com"}},
	{PlatformTwitter, []string{"twitter.com", "x.com"}},
	{PlatformYelp, []string{"yelp.com"}},
	{PlatformTripAdvisor, []string{"tripadvisor.com"}},
	{PlatformGoogle, []string{"google.com"}},
	{PlatformLinkedIn, []string{"linkedin.com"}},
}

// DetectPlatform identifies the platform hosting a URL.
func DetectPlatform(urlStr string) Platform {
	host := Hostname(urlStr)
	if host == "" {
		return PlatformUnknown
	}

	for _, p := range platformDomains {
		for _, d := range p.domains {
			if host == d || strings.HasSuffix(host, "."+d) {
				return p.platform
			}
		}
	}

	// tripadvisor.com.sg, tripadvisor.co.uk and friends
	if strings.Contains(host, "tripadvisor.") {
		return PlatformTripAdvisor
	}
	return PlatformUnknown
}

// Hostname returns the lower-cased host of urlStr without a "www." prefix, or "" if unparsable.
func Hostname(urlStr string) string {
	parsed, err := url.Parse(strings.TrimSpace(urlStr))
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// IsThirdPartyHost reports whether a URL belongs to a social network, review directory or
// search engine rather than the business itself.
func IsThirdPartyHost(urlStr string) bool {
	switch DetectPlatform(urlStr) {
	case PlatformFacebook, PlatformInstagram, PlatformTwitter, PlatformYelp, PlatformGoogle:
		return true
	}
	return false
}

// IsListingHost is IsThirdPartyHost plus travel directories, which carry menus of their own
// that are not the business's.
func IsListingHost(urlStr string) bool {
	return IsThirdPartyHost(urlStr) || DetectPlatform(urlStr) == PlatformTripAdvisor
}

// PlatformNoiseSelectors returns noise exclusion selectors for scraping a platform's pages.
func PlatformNoiseSelectors(platform Platform) []string {
	common := []string{
		".cookie-banner",
		".cookie-consent",
		".gdpr-notice",
		".social-share",
		".share-buttons",
		"[role='dialog']",
	}

	switch platform {
	case PlatformYelp:
		return append(common,
			"[data-testid='ad']",
		)
	case PlatformTripAdvisor:
		return append(common, ".ad_wrapper", "#taplc_global_footer")
	default:
		return common
	}
}
