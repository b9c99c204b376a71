package sandbox

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/planwright/planwright/internal/browser"
	"github.com/planwright/planwright/internal/plan"
)

// Cross-validation credit weights. A lighter presence check than the
// main extraction: selectors are only probed, never extracted.
const (
	maxProbeURLs = 3

	listCredit       = 0.3
	fieldCredit      = 0.1
	paginationCredit = 0.1

	probePassFraction = 0.5
)

// crossValidate probes selector presence across up to three example
// URLs. Each URL is independent: navigation failures score zero credit
// for that URL but do not abort the remaining probes.
func (v *Validator) crossValidate(ctx context.Context, session browser.Session, p *plan.ScrapingPlan, exampleURLs []string) []ProbeResult {
	urls := exampleURLs
	if len(urls) > maxProbeURLs {
		urls = urls[:maxProbeURLs]
	}

	results := make([]ProbeResult, 0, len(urls))
	for _, u := range urls {
		results = append(results, v.probeURL(ctx, session, p, u))
	}
	return results
}

func (v *Validator) probeURL(ctx context.Context, session browser.Session, p *plan.ScrapingPlan, url string) ProbeResult {
	res := ProbeResult{URL: url}

	if err := session.Navigate(ctx, url, navigationWait, v.opts.Timeout); err != nil {
		v.log.Debug("probe navigation failed", zap.String("url", url), zap.Error(err))
		return res
	}

	probe := func(selector string, credit float64) {
		res.ProbedSelectors++
		count, err := session.Count(ctx, selector)
		if err != nil || count == 0 {
			return
		}
		res.MatchedSelectors++
		res.Credit = math.Min(1.0, res.Credit+credit)
	}

	probe(p.ListSelector, listCredit)
	for _, selector := range p.DetailSelectors {
		probe(selector, fieldCredit)
	}
	if p.PaginationSelector != "" {
		probe(p.PaginationSelector, paginationCredit)
	}

	res.Passed = res.ProbedSelectors > 0 &&
		float64(res.MatchedSelectors)/float64(res.ProbedSelectors) >= probePassFraction
	return res
}
