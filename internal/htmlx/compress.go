package htmlx

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Character budgets for prompt excerpts. Detail pages get a tighter
// budget because two-phase prompts combine several of them.
const (
	MainPageBudget   = 8000
	DetailPageBudget = 6000
)

// contentClassHints mark blocks likely to contain the page's primary
// content. Matched as substrings against class attributes.
var contentClassHints = []string{
	"content", "main", "article", "post", "entry", "body-text",
	"liste", "list", "events", "veranstaltung", "news",
}

// strippedTags never contribute to selector synthesis and are removed
// outright before excerpting.
var strippedTags = []string{
	"script", "style", "noscript", "meta", "link", "iframe", "svg",
}

// chromeTags are page chrome removed when no dedicated content block
// was found.
var chromeTags = []string{"header", "footer", "nav", "aside"}

// promptSanitizer scrubs every excerpt before it reaches a prompt.
// Policies are safe for concurrent use once built.
var promptSanitizer = NewSanitizer()

// excerpt sanitizes a chosen fragment and fits it to the budget.
func excerpt(h string, budget int) string {
	return Truncate(NormalizeWhitespace(promptSanitizer.Sanitize(h)), budget)
}

// Compress reduces raw HTML to a prompt-sized excerpt. It strips
// non-content markup, prefers dedicated content blocks when present,
// collapses whitespace and hard-truncates at the given budget.
func Compress(htmlStr string, budget int) string {
	doc, err := Load(htmlStr)
	if err != nil {
		// Unparsable input still has to produce something the prompt
		// can carry; fall back to sanitized raw truncation.
		return excerpt(htmlStr, budget)
	}

	doc.Find(strings.Join(strippedTags, ", ")).Remove()
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		removeComments(s)
	})

	if block := findContentBlock(doc); block != nil {
		if h, err := goquery.OuterHtml(block); err == nil && strings.TrimSpace(h) != "" {
			return excerpt(h, budget)
		}
	}

	// No content block: strip chrome from the remainder instead.
	doc.Find(strings.Join(chromeTags, ", ")).Remove()

	body := doc.Find("body")
	h, err := body.Html()
	if err != nil || strings.TrimSpace(h) == "" {
		if full, err := doc.Html(); err == nil {
			h = full
		} else {
			h = htmlStr
		}
	}
	return excerpt(h, budget)
}

// findContentBlock returns the first main/article/section or
// content-classed block, preferring semantic tags.
func findContentBlock(doc *goquery.Document) *goquery.Selection {
	for _, tag := range []string{"main", "article", "section"} {
		if sel := doc.Find(tag).First(); sel.Length() > 0 && len(sel.Text()) > 100 {
			return sel
		}
	}

	var found *goquery.Selection
	doc.Find("div[class], section[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		lower := strings.ToLower(class)
		for _, hint := range contentClassHints {
			if strings.Contains(lower, hint) && len(s.Text()) > 100 {
				found = s
				return false
			}
		}
		return true
	})
	return found
}

func removeComments(s *goquery.Selection) {
	for _, node := range s.Nodes {
		for child := node.FirstChild; child != nil; {
			next := child.NextSibling
			if child.Type == html.CommentNode {
				node.RemoveChild(child)
			}
			child = next
		}
	}
}
