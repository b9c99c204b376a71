package analyzer

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/planwright/planwright/internal/htmlx"
	"github.com/planwright/planwright/internal/httpx"
	"github.com/planwright/planwright/internal/logging"
)

// ContentPattern is a repeated structure confirmed across example pages.
type ContentPattern struct {
	Name     string `json:"name"`
	Selector string `json:"selector"`
	Count    int    `json:"count"`
}

// ContentAnalysis is the cross-page result of content-pattern analysis.
type ContentAnalysis struct {
	Patterns    []ContentPattern  `json:"patterns"`
	Containers  []ListContainer   `json:"containers"`
	Confidence  float64           `json:"confidence"`
	FetchErrors map[string]string `json:"fetchErrors,omitempty"`
}

// ContentAnalyzer inspects example URLs for cross-page content
// patterns. Implementations are optional collaborators; their absence
// degrades analysis to structural heuristics only.
type ContentAnalyzer interface {
	Analyze(ctx context.Context, exampleURLs []string) (*ContentAnalysis, error)
}

// fetchBatchSize bounds concurrent example-page fetches. Failures in a
// batch are recorded per URL and never abort the batch.
const fetchBatchSize = 5

// HTTPContentAnalyzer fetches example pages and scores element
// signatures that repeat across pages.
type HTTPContentAnalyzer struct {
	client *httpx.Client
	log    *logging.Logger
}

// NewHTTPContentAnalyzer builds the default content analyzer.
func NewHTTPContentAnalyzer(client *httpx.Client, log *logging.Logger) *HTTPContentAnalyzer {
	if log == nil {
		log = logging.NewNop()
	}
	return &HTTPContentAnalyzer{client: client, log: log.Component("content-analyzer")}
}

// Analyze fetches the example URLs in bounded batches and derives
// containers whose child signatures repeat on two or more pages.
func (a *HTTPContentAnalyzer) Analyze(ctx context.Context, exampleURLs []string) (*ContentAnalysis, error) {
	analysis := &ContentAnalysis{FetchErrors: map[string]string{}}
	if len(exampleURLs) == 0 {
		return analysis, nil
	}

	docs := a.fetchAll(ctx, exampleURLs, analysis.FetchErrors)
	if len(docs) == 0 {
		return analysis, nil
	}

	// Signature -> number of pages it repeats on, and max repeat count.
	pageHits := map[string]int{}
	maxCounts := map[string]int{}

	for _, doc := range docs {
		counts := repeatedSignatures(doc)
		for sig, count := range counts {
			pageHits[sig]++
			if count > maxCounts[sig] {
				maxCounts[sig] = count
			}
		}
	}

	threshold := 2
	if len(docs) == 1 {
		threshold = 1
	}

	for sig, hits := range pageHits {
		if hits < threshold {
			continue
		}
		analysis.Patterns = append(analysis.Patterns, ContentPattern{
			Name:     "repeated-item",
			Selector: sig,
			Count:    maxCounts[sig],
		})
		analysis.Containers = append(analysis.Containers, ListContainer{
			Selector:   sig,
			ItemCount:  maxCounts[sig],
			Confidence: crossPageConfidence(hits, len(docs)),
		})
	}

	sort.SliceStable(analysis.Containers, func(i, j int) bool {
		return analysis.Containers[i].Confidence > analysis.Containers[j].Confidence
	})

	if len(analysis.Containers) > 0 {
		analysis.Confidence = analysis.Containers[0].Confidence
	}

	a.log.Debug("content analysis complete",
		zap.Int("pages", len(docs)),
		zap.Int("containers", len(analysis.Containers)),
		zap.Int("fetch_errors", len(analysis.FetchErrors)))

	return analysis, nil
}

// fetchAll retrieves pages in batches of fetchBatchSize. Each fetch is
// independent; errors are recorded per URL.
func (a *HTTPContentAnalyzer) fetchAll(ctx context.Context, urls []string, errs map[string]string) []*goquery.Document {
	var mu sync.Mutex
	var docs []*goquery.Document

	for start := 0; start < len(urls); start += fetchBatchSize {
		end := start + fetchBatchSize
		if end > len(urls) {
			end = len(urls)
		}

		var wg sync.WaitGroup
		for _, url := range urls[start:end] {
			wg.Add(1)
			go func(url string) {
				defer wg.Done()
				html, err := a.client.FetchHTML(ctx, url)
				if err != nil {
					mu.Lock()
					errs[url] = err.Error()
					mu.Unlock()
					return
				}
				doc, err := htmlx.Load(html)
				if err != nil {
					mu.Lock()
					errs[url] = err.Error()
					mu.Unlock()
					return
				}
				mu.Lock()
				docs = append(docs, doc)
				mu.Unlock()
			}(url)
		}
		wg.Wait()
	}

	return docs
}

// repeatedSignatures maps parent element signatures to the repeat
// count of their dominant child signature.
func repeatedSignatures(doc *goquery.Document) map[string]int {
	counts := map[string]int{}
	doc.Find("body *").Each(func(_ int, parent *goquery.Selection) {
		children := parent.Children()
		if children.Length() < 2 {
			return
		}
		childSigs := map[string]int{}
		children.Each(func(_ int, child *goquery.Selection) {
			if sig := elementSignature(child); sig != "" {
				childSigs[sig]++
			}
		})
		best := 0
		for _, c := range childSigs {
			if c > best {
				best = c
			}
		}
		if best >= 2 {
			if sig := elementSignature(parent); sig != "" {
				if best > counts[sig] {
					counts[sig] = best
				}
			}
		}
	})
	return counts
}

// elementSignature builds a stable selector-ish signature: id first,
// then tag with sorted classes.
func elementSignature(s *goquery.Selection) string {
	tag := goquery.NodeName(s)
	if tag == "" {
		return ""
	}
	if id, ok := s.Attr("id"); ok && id != "" {
		return tag + "#" + id
	}
	class, _ := s.Attr("class")
	classes := strings.Fields(class)
	if len(classes) == 0 {
		return tag
	}
	sort.Strings(classes)
	return tag + "." + strings.Join(classes, ".")
}

// crossPageConfidence scales with the fraction of pages confirming a
// signature, floored so single-page hits still register.
func crossPageConfidence(hits, pages int) float64 {
	if pages == 0 {
		return 0
	}
	c := 0.5 + 0.5*float64(hits)/float64(pages)
	if c > 1 {
		c = 1
	}
	return c
}
