package analyzer

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/planwright/planwright/internal/htmlx"
)

// Fixed pattern confidences. These are heuristic constants, not
// learned values; the scorer treats them as signal strengths.
const (
	confListTags   = 0.7
	confListClass  = 0.8
	confTable      = 0.9
	confCard       = 0.7
	confNavigation = 0.95
	confDate       = 0.6
)

// listClassHints are class substrings that mark list-like wrappers
// across common CMS themes.
var listClassHints = []string{
	"list", "liste", "items", "results", "teaser-list", "event-list",
	"news-list", "posts", "entries", "cards", "grid",
}

// cardClassSelectors are probed for repeated card-like elements.
var cardClassSelectors = []string{
	".card", ".item", ".teaser", ".tile", ".box", ".entry", ".post",
}

// dateClassHints mark elements that carry date content.
var dateClassHints = []string{"date", "datum", "time", "when", "calendar"}

// detectPatterns runs the fixed structural heuristics over a parsed
// document and returns every detected pattern.
func detectPatterns(doc *goquery.Document) []DetectedPattern {
	var patterns []DetectedPattern

	// (a) raw list tags
	if lists := doc.Find("ul, ol"); lists.Length() > 0 {
		patterns = append(patterns, DetectedPattern{
			Type:       PatternListStructure,
			Selector:   "ul, ol",
			Confidence: confListTags,
			Examples:   sampleTexts(lists, 3),
		})
	}

	// (b) known list classes
	for _, hint := range listClassHints {
		sel := fmt.Sprintf("[class*=%q]", hint)
		if matched := doc.Find(sel); matched.Length() > 0 {
			patterns = append(patterns, DetectedPattern{
				Type:       PatternListStructure,
				Selector:   sel,
				Confidence: confListClass,
				Examples:   sampleTexts(matched, 3),
			})
			break
		}
	}

	// (c) tables with at least two rows
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		if table.Find("tr").Length() >= 2 {
			patterns = append(patterns, DetectedPattern{
				Type:       PatternTableStructure,
				Selector:   "table",
				Confidence: confTable,
				Examples:   sampleTexts(table.Find("tr"), 3),
			})
			return false
		}
		return true
	})

	// (d) repeated card-like classes
	for _, sel := range cardClassSelectors {
		if matched := doc.Find(sel); matched.Length() >= 2 {
			patterns = append(patterns, DetectedPattern{
				Type:       PatternCardLayout,
				Selector:   sel,
				Confidence: confCard,
				Examples:   sampleTexts(matched, 3),
			})
			break
		}
	}

	// (e) navigation
	if nav := doc.Find("nav"); nav.Length() > 0 {
		patterns = append(patterns, DetectedPattern{
			Type:       PatternNavigation,
			Selector:   "nav",
			Confidence: confNavigation,
		})
	}

	// date-bearing content
	if dateSel := detectDateContent(doc); dateSel != "" {
		patterns = append(patterns, DetectedPattern{
			Type:       PatternDateContent,
			Selector:   dateSel,
			Confidence: confDate,
		})
	}

	if article := doc.Find("article"); article.Length() > 0 {
		patterns = append(patterns, DetectedPattern{
			Type:       PatternArticleContent,
			Selector:   "article",
			Confidence: confListTags,
			Examples:   sampleTexts(article, 2),
		})
	}

	return patterns
}

func detectDateContent(doc *goquery.Document) string {
	if doc.Find("time").Length() > 0 {
		return "time"
	}
	for _, hint := range dateClassHints {
		sel := fmt.Sprintf("[class*=%q]", hint)
		if doc.Find(sel).Length() > 0 {
			return sel
		}
	}
	return ""
}

func sampleTexts(sel *goquery.Selection, limit int) []string {
	var samples []string
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := htmlx.Truncate(htmlx.NormalizeWhitespace(s.Text()), 100)
		if strings.TrimSpace(text) != "" {
			samples = append(samples, text)
		}
		return len(samples) < limit
	})
	return samples
}
