package synth

import (
	"github.com/planwright/planwright/internal/analyzer"
)

// Deterministic fallback values. When every provider fails, synthesis
// still returns a plan; confidence is fixed conservative.
const (
	HeuristicConfidence  = 0.5
	heuristicRateLimitMs = 2000
	HeuristicCreatedBy   = "heuristic-fallback"
)

// heuristicListSelectors maps detected pattern types to generic list
// selectors, in preference order.
var heuristicListSelectors = []struct {
	pattern  analyzer.PatternType
	selector string
}{
	{analyzer.PatternListStructure, "li, article, .item"},
	{analyzer.PatternCardLayout, ".card"},
	{analyzer.PatternTableStructure, "tr"},
}

// heuristicDetailSelectors are generic defaults for detail fields.
var heuristicDetailSelectors = map[string]string{
	"title":       "h1, h2, .title",
	"description": "p, .description, .content",
	"startDate":   "time, .date",
	"images":      "img",
}

// heuristicDraft builds a fully deterministic draft from detected
// pattern types alone. It never fails.
func heuristicDraft(analysis *analyzer.Result) mainDraft {
	draft := mainDraft{
		ListSelector:    "li, article, .item",
		RateLimitMs:     heuristicRateLimitMs,
		ConfidenceScore: HeuristicConfidence,
		Reasoning:       "deterministic fallback from detected structural patterns",
	}

	if analysis != nil {
		for _, mapping := range heuristicListSelectors {
			if analysis.HasPattern(mapping.pattern) {
				draft.ListSelector = mapping.selector
				break
			}
		}
		// A confirmed container beats the generic pattern selector.
		if len(analysis.ListContainers) > 0 {
			draft.ListSelector = analysis.ListContainers[0].Selector
		}
		if analysis.Pagination.Detected {
			draft.PaginationSelector = analysis.Pagination.Selector
		}
		if analysis.RateLimitMs > draft.RateLimitMs {
			draft.RateLimitMs = analysis.RateLimitMs
		}
	}

	return draft
}

// heuristicDetailDraft returns the generic detail selector defaults.
func heuristicDetailDraft() detailDraft {
	selectors := make(map[string]string, len(heuristicDetailSelectors))
	for field, sel := range heuristicDetailSelectors {
		selectors[field] = sel
	}
	return detailDraft{
		DetailSelectors: selectors,
		ConfidenceScore: HeuristicConfidence,
	}
}
