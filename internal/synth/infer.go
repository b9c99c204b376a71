package synth

import (
	"net/url"
	"strings"
)

// siteTypeKeywords are matched against the full URL, first hit wins.
var siteTypeKeywords = []struct {
	keywords []string
	siteType string
}{
	{[]string{".gov", "gouv.", "bund.", "admin.ch"}, "government"},
	{[]string{"stadt", "gemeinde", "city", "municipal", "rathaus"}, "municipal"},
	{[]string{"news", "zeitung", "presse", "nachrichten", "journal"}, "news"},
}

// inferSiteType guesses the site category from URL keywords.
func inferSiteType(rawURL string) string {
	lower := strings.ToLower(rawURL)
	for _, entry := range siteTypeKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.siteType
			}
		}
	}
	return "general"
}

// germanTLDs map to German-language defaults.
var germanTLDs = map[string]bool{"de": true, "at": true}

// inferLanguage guesses content language from the URL's TLD and path
// keywords. The normalizer refines this from actual content later.
func inferLanguage(rawURL string) string {
	lower := strings.ToLower(rawURL)

	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host := u.Host
		if idx := strings.LastIndex(host, "."); idx >= 0 {
			if germanTLDs[host[idx+1:]] {
				return "de"
			}
		}
	}

	for _, kw := range []string{"/de/", "/de-", "veranstaltung", "termine", "aktuelles"} {
		if strings.Contains(lower, kw) {
			return "de"
		}
	}
	return "en"
}

// domainOf extracts the host from a raw URL, falling back to the raw
// string when unparsable.
func domainOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return rawURL
}
