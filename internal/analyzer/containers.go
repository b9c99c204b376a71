package analyzer

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Container confidences for the structural fallback path. Containers
// confirmed by cross-page content analysis keep the confidence the
// analyzer reported.
const (
	confListContainer        = 0.7
	confClassContainer       = 0.8
	confHomogeneousContainer = 0.6
)

// identifyContainers merges content-analysis containers (preferred)
// with structural candidates, dedupes by selector (first occurrence
// wins) and orders by descending confidence.
func identifyContainers(doc *goquery.Document, content *ContentAnalysis) []ListContainer {
	var candidates []ListContainer

	if content != nil {
		candidates = append(candidates, content.Containers...)
	}
	candidates = append(candidates, structuralContainers(doc)...)

	seen := make(map[string]bool, len(candidates))
	merged := make([]ListContainer, 0, len(candidates))
	for _, c := range candidates {
		if c.Selector == "" || seen[c.Selector] {
			continue
		}
		seen[c.Selector] = true
		merged = append(merged, c)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})
	return merged
}

// structuralContainers finds repeated-item wrappers by structure alone:
// list tags and known list classes with two or more children, plus
// generic containers whose children are tag-homogeneous.
func structuralContainers(doc *goquery.Document) []ListContainer {
	var containers []ListContainer

	doc.Find("ul, ol").Each(func(_ int, s *goquery.Selection) {
		if items := s.ChildrenFiltered("li"); items.Length() >= 2 {
			containers = append(containers, newContainer(s, items.Length(), confListContainer))
		}
	})

	for _, hint := range listClassHints {
		doc.Find("[class*=" + quoteAttr(hint) + "]").Each(func(_ int, s *goquery.Selection) {
			if children := s.Children(); children.Length() >= 2 {
				containers = append(containers, newContainer(s, children.Length(), confClassContainer))
			}
		})
	}

	// Generic containers with tag-homogeneous children: at most two
	// distinct child tag names and at least two children.
	doc.Find("div, section, main").Each(func(_ int, s *goquery.Selection) {
		children := s.Children()
		if children.Length() < 2 {
			return
		}
		tags := map[string]int{}
		children.Each(func(_ int, c *goquery.Selection) {
			tags[goquery.NodeName(c)]++
		})
		if len(tags) <= 2 {
			containers = append(containers, newContainer(s, children.Length(), confHomogeneousContainer))
		}
	})

	return containers
}

func newContainer(s *goquery.Selection, itemCount int, confidence float64) ListContainer {
	return ListContainer{
		Selector:         selectorFor(s),
		ItemCount:        itemCount,
		Confidence:       confidence,
		SampleItems:      sampleTexts(s.Children(), 3),
		ExcludeSelectors: excludeSelectorsFor(s),
	}
}

// selectorFor builds a usable CSS selector for one element: id first,
// then tag plus first class, then bare tag.
func selectorFor(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	tag := goquery.NodeName(s)
	if id, ok := s.Attr("id"); ok && id != "" {
		return "#" + id
	}
	if class, ok := s.Attr("class"); ok && class != "" {
		if fields := strings.Fields(class); len(fields) > 0 {
			return tag + "." + fields[0]
		}
	}
	return tag
}

// excludeSelectorsFor marks child elements that repeat inside
// containers but never carry items (ads, separators, headers).
func excludeSelectorsFor(s *goquery.Selection) []string {
	var excludes []string
	for _, noise := range []string{".ad", ".advert", ".separator", ".divider", "header", "h1", "h2"} {
		if s.ChildrenFiltered(noise).Length() > 0 {
			excludes = append(excludes, noise)
		}
	}
	return excludes
}

func quoteAttr(v string) string {
	return `"` + v + `"`
}
