// Package scorer turns selector and plan properties into normalized
// [0,1] confidence scores. Scoring is pure: identical inputs always
// produce identical scores.
package scorer

import (
	"math"
	"strings"

	"github.com/planwright/planwright/internal/analyzer"
	"github.com/planwright/planwright/internal/plan"
)

// Weights blend the four scoring factors. They are configuration, not
// constants; no derivation for the defaults is documented, so treat
// them as tunable.
type Weights struct {
	Specificity  float64 `json:"specificity"`
	Clarity      float64 `json:"clarity"`
	Consistency  float64 `json:"consistency"`
	Completeness float64 `json:"completeness"`
}

// DefaultWeights returns the default blend.
func DefaultWeights() Weights {
	return Weights{
		Specificity:  0.30,
		Clarity:      0.25,
		Consistency:  0.20,
		Completeness: 0.25,
	}
}

// Specificity bonuses per selector feature.
const (
	specBase       = 0.3
	specClassBonus = 0.2
	specIDBonus    = 0.3
	specAttrBonus  = 0.1
	specDescBonus  = 0.1
)

// keyPatternTypes are the pattern types whose joint presence signals a
// consistent listing page.
var keyPatternTypes = []analyzer.PatternType{
	analyzer.PatternListStructure,
	analyzer.PatternPagination,
	analyzer.PatternDateContent,
}

// Scorer computes plan confidence.
type Scorer struct {
	weights Weights
}

// New creates a scorer with the given weights.
func New(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Score blends the four factors with the configured weights, averages
// the result with the provider's self-reported confidence, and rounds
// to two decimals.
func (s *Scorer) Score(p *plan.ScrapingPlan, analysis *analyzer.Result, providerConfidence float64) float64 {
	heuristic := s.weights.Specificity*SelectorSpecificity(p.DetailSelectors) +
		s.weights.Clarity*StructureClarity(analysis) +
		s.weights.Consistency*PatternConsistency(analysis) +
		s.weights.Completeness*ResponseCompleteness(p)

	score := (heuristic + clamp01(providerConfidence)) / 2
	return Round2(clamp01(score))
}

// SelectorSpecificity averages per-selector specificity across the
// detail selectors; no detail selectors scores 0.
func SelectorSpecificity(selectors map[string]string) float64 {
	if len(selectors) == 0 {
		return 0
	}
	sum := 0.0
	for _, sel := range selectors {
		sum += selectorScore(sel)
	}
	return sum / float64(len(selectors))
}

func selectorScore(sel string) float64 {
	score := specBase
	if strings.Contains(sel, ".") {
		score += specClassBonus
	}
	if strings.Contains(sel, "#") {
		score += specIDBonus
	}
	if strings.Contains(sel, "[") {
		score += specAttrBonus
	}
	if strings.Contains(strings.TrimSpace(sel), " ") || strings.Contains(sel, ">") {
		score += specDescBonus
	}
	if score > 1 {
		score = 1
	}
	return score
}

// StructureClarity averages a complexity-bucket score with a pattern
// richness term.
func StructureClarity(analysis *analyzer.Result) float64 {
	if analysis == nil {
		return 0
	}
	richness := math.Min(float64(len(analysis.Patterns))/5, 1)
	return (complexityScore(analysis) + richness) / 2
}

// complexityScore buckets structural complexity: the more candidate
// structures a page shows, the harder it is to pin selectors to it.
func complexityScore(analysis *analyzer.Result) float64 {
	signals := len(analysis.Patterns) + len(analysis.ListContainers)
	switch {
	case signals <= 5:
		return 0.9
	case signals <= 15:
		return 0.7
	default:
		return 0.5
	}
}

// PatternConsistency scales with pattern count plus a bonus for the
// fraction of key pattern types present.
func PatternConsistency(analysis *analyzer.Result) float64 {
	if analysis == nil {
		return 0
	}
	score := math.Min(float64(len(analysis.Patterns))/4, 1)

	present := 0
	for _, key := range keyPatternTypes {
		if analysis.HasPattern(key) {
			present++
		}
	}
	score += 0.2 * float64(present) / float64(len(keyPatternTypes))

	if score > 1 {
		score = 1
	}
	return score
}

// ResponseCompleteness scores required fields at 0.4 each and optional
// fields at 0.1 each, capped at 1.0.
func ResponseCompleteness(p *plan.ScrapingPlan) float64 {
	score := 0.0
	if p.ListSelector != "" {
		score += 0.4
	}
	if len(p.DetailSelectors) > 0 {
		score += 0.4
	}
	if p.PaginationSelector != "" {
		score += 0.1
	}
	if p.RateLimitMs > 0 {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

// Round2 rounds to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
