package analyzer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	confPaginationMarkup = 0.8
	confPaginationWalk   = 0.7
)

// paginationMarkup are markup fragments that identify pagination
// outright when present in the raw HTML.
var paginationMarkup = []string{
	`class="pagination`, `class="pager`, `class="page-numbers`,
	`rel="next"`, `class="nav-links`, `data-load-more`,
}

// paginationTokens are matched against element classes and text during
// the DOM walk fallback.
var paginationTokens = []string{
	"pagination", "pager", "next", "weiter", "nächste", "load more",
	"mehr laden", "mehr anzeigen", "show more", "»",
}

// detectPagination finds pagination via markup fragments first, then a
// DOM walk, else reports not-detected with confidence 0.
func detectPagination(html string, doc *goquery.Document) PaginationInfo {
	lower := strings.ToLower(html)
	for _, fragment := range paginationMarkup {
		if strings.Contains(lower, strings.ToLower(fragment)) {
			selector, ptype := paginationSelector(doc)
			if selector == "" {
				selector = ".pagination"
			}
			return PaginationInfo{
				Detected:   true,
				Selector:   selector,
				Type:       ptype,
				Confidence: confPaginationMarkup,
			}
		}
	}

	if selector, ptype := paginationWalk(doc); selector != "" {
		return PaginationInfo{
			Detected:   true,
			Selector:   selector,
			Type:       ptype,
			Confidence: confPaginationWalk,
		}
	}

	return PaginationInfo{Detected: false, Confidence: 0}
}

// paginationSelector picks the best selector and type for pagination
// confirmed by markup fragments.
func paginationSelector(doc *goquery.Document) (string, PaginationType) {
	if doc.Find(".page-numbers").Length() > 0 {
		return ".page-numbers", PaginationNumbered
	}
	if doc.Find(".pagination").Length() > 0 {
		return ".pagination", classifyPagination(doc.Find(".pagination").First())
	}
	if doc.Find(`a[rel="next"]`).Length() > 0 {
		return `a[rel="next"]`, PaginationNextPrev
	}
	if doc.Find("[data-load-more]").Length() > 0 {
		return "[data-load-more]", PaginationLoadMore
	}
	if doc.Find(".pager").Length() > 0 {
		return ".pager", classifyPagination(doc.Find(".pager").First())
	}
	return "", ""
}

// paginationWalk scans elements whose class or text carries a
// pagination-ish token.
func paginationWalk(doc *goquery.Document) (string, PaginationType) {
	var selector string
	var ptype PaginationType

	doc.Find("a, button, div, ul").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		text := strings.ToLower(strings.TrimSpace(s.Text()))
		haystack := strings.ToLower(class) + " " + text

		for _, token := range paginationTokens {
			if strings.Contains(haystack, token) {
				selector = selectorFor(s)
				ptype = classifyToken(token, s)
				return false
			}
		}
		return true
	})

	return selector, ptype
}

func classifyToken(token string, s *goquery.Selection) PaginationType {
	switch token {
	case "load more", "mehr laden", "mehr anzeigen", "show more":
		return PaginationLoadMore
	case "next", "weiter", "nächste", "»":
		return PaginationNextPrev
	default:
		return classifyPagination(s)
	}
}

// classifyPagination inspects a pagination element to decide its type:
// mostly-numeric links mean numbered paging.
func classifyPagination(s *goquery.Selection) PaginationType {
	numeric := 0
	total := 0
	s.Find("a").Each(func(_ int, a *goquery.Selection) {
		total++
		if isNumeric(strings.TrimSpace(a.Text())) {
			numeric++
		}
	})
	if total > 0 && numeric*2 >= total {
		return PaginationNumbered
	}
	return PaginationNextPrev
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
