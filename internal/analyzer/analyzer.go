// Package analyzer turns raw HTML into a structural site analysis:
// CMS archetype, repeated-element patterns, list containers,
// pagination, content areas and an aggregate confidence.
package analyzer

import (
	"context"
	"fmt"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"

	"github.com/planwright/planwright/internal/htmlx"
	"github.com/planwright/planwright/internal/logging"
)

// Aggregate confidence weights. Fixed heuristic blend; defaults apply
// when a signal produced nothing.
const (
	aggBase              = 0.2
	aggPatternWeight     = 0.3
	aggPatternDefault    = 0.3
	aggContainerWeight   = 0.4
	aggContainerDefault  = 0.2
	aggPaginationWeight  = 0.1
	aggContentWeight     = 0.2
	aggContentDefault    = 0.4
	baseRateLimitMs      = 1000
	lowConfidenceCutoff  = 0.7
	conservativeIncrease = 1.5
)

// contentAreaQueries locate primary content regions. XPath keeps the
// queries expressive for attribute predicates.
var contentAreaQueries = []string{
	"//main",
	"//article",
	"//*[@role='main']",
	"//*[contains(@class,'content')]",
	"//*[@id='content']",
}

// Analyzer performs one-pass structural site analysis.
type Analyzer struct {
	content ContentAnalyzer // optional
	log     *logging.Logger
}

// New creates an analyzer. The content analyzer may be nil, in which
// case analysis degrades to structural heuristics only.
func New(content ContentAnalyzer, log *logging.Logger) *Analyzer {
	if log == nil {
		log = logging.NewNop()
	}
	return &Analyzer{content: content, log: log.Component("analyzer")}
}

// Analyze parses the HTML and runs every detection heuristic. Example
// content URLs are forwarded to the content-pattern collaborator when
// one is configured.
func (a *Analyzer) Analyze(ctx context.Context, url, html string, exampleURLs []string) (*Result, error) {
	doc, err := htmlx.Load(html)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	result := &Result{
		URL:       url,
		Archetype: DetectArchetype(html),
	}

	var content *ContentAnalysis
	if a.content != nil && len(exampleURLs) > 0 {
		content, err = a.content.Analyze(ctx, exampleURLs)
		if err != nil {
			// Content analysis is optional; log and continue structural-only.
			a.log.Warn("content analysis failed", zap.Error(err))
			content = nil
		}
	}
	result.Content = content

	result.Structure = BuildTree(doc)
	result.Patterns = detectPatterns(doc)
	result.ListContainers = identifyContainers(doc, content)
	result.Pagination = detectPagination(html, doc)
	result.ContentAreas = contentAreas(html)
	result.Confidence = aggregateConfidence(result, content)
	result.RateLimitMs = rateLimitHint(result.Archetype, result.Confidence)

	a.log.Info("site analysis complete",
		zap.String("url", url),
		zap.String("archetype", string(result.Archetype)),
		zap.Int("patterns", len(result.Patterns)),
		zap.Int("containers", len(result.ListContainers)),
		zap.Bool("pagination", result.Pagination.Detected),
		zap.Float64("confidence", result.Confidence))

	return result, nil
}

// contentAreas returns the breadcrumb paths of detected content regions.
func contentAreas(html string) []string {
	node, err := htmlx.LoadNode(html)
	if err != nil {
		return nil
	}

	seen := map[string]bool{}
	var areas []string
	for _, query := range contentAreaQueries {
		matches, err := htmlquery.QueryAll(node, query)
		if err != nil {
			continue
		}
		for _, m := range matches {
			area := m.Data
			if class := htmlquery.SelectAttr(m, "class"); class != "" {
				area += "." + firstField(class)
			}
			if id := htmlquery.SelectAttr(m, "id"); id != "" {
				area += "#" + id
			}
			if !seen[area] {
				seen[area] = true
				areas = append(areas, area)
			}
		}
	}
	return areas
}

func firstField(s string) string {
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			return s[:i]
		}
	}
	return s
}

// aggregateConfidence blends the individual signals with fixed weights
// and clamps to 1.0.
func aggregateConfidence(r *Result, content *ContentAnalysis) float64 {
	patternAvg := aggPatternDefault
	if len(r.Patterns) > 0 {
		sum := 0.0
		for _, p := range r.Patterns {
			sum += p.Confidence
		}
		patternAvg = sum / float64(len(r.Patterns))
	}

	containerAvg := aggContainerDefault
	if len(r.ListContainers) > 0 {
		sum := 0.0
		for _, c := range r.ListContainers {
			sum += c.Confidence
		}
		containerAvg = sum / float64(len(r.ListContainers))
	}

	contentConf := aggContentDefault
	if content != nil && content.Confidence > 0 {
		contentConf = content.Confidence
	}

	confidence := aggBase +
		patternAvg*aggPatternWeight +
		containerAvg*aggContainerWeight +
		r.Pagination.Confidence*aggPaginationWeight +
		contentConf*aggContentWeight

	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

// rateLimitHint starts at 1s and grows 50% for heavier CMS families
// and 50% again under low aggregate confidence.
func rateLimitHint(archetype Archetype, confidence float64) int {
	ms := float64(baseRateLimitMs)
	if archetype.Heavy() {
		ms *= conservativeIncrease
	}
	if confidence < lowConfidenceCutoff {
		ms *= conservativeIncrease
	}
	return int(ms)
}
