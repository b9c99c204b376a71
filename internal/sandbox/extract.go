package sandbox

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/planwright/planwright/internal/browser"
	"github.com/planwright/planwright/internal/plan"
)

// Extraction tuning. Sampling stays small: validation proves the plan
// works, it does not scrape the site.
const (
	maxSamples = 3

	noMatchConfidence = 0.1
	sampleBonus       = 0.2
	fieldCountBonus   = 0.1
	paginationBonus   = 0.1
)

// navigationWait is the settle condition for validation navigations.
const navigationWait = browser.WaitDOMContentLoaded

// execution is the raw outcome of one extraction attempt.
type execution struct {
	samples     []Sample
	confidence  float64
	errors      []string
	issues      []Issue
	timedOut    bool
	listMatches int
}

// extract navigates to the first entry URL and samples the plan's
// selectors. Zero list matches fail the run immediately with the floor
// confidence.
func (v *Validator) extract(ctx context.Context, session browser.Session, p *plan.ScrapingPlan) *execution {
	exec := &execution{}
	entryURL := p.EntryURLs[0]

	if err := v.navigate(ctx, session, entryURL, p.RetryPolicy); err != nil {
		exec.errors = append(exec.errors, err.Error())
		exec.issues = append(exec.issues, Issue{
			Kind:    IssueNavigation,
			Message: err.Error(),
			Impact:  ImpactFatal,
		})
		return exec
	}

	count, err := session.Count(ctx, p.ListSelector)
	if err != nil {
		exec.errors = append(exec.errors, fmt.Sprintf("probe list selector: %v", err))
		return exec
	}
	exec.listMatches = count
	if count == 0 {
		exec.confidence = noMatchConfidence
		exec.issues = append(exec.issues, Issue{
			Kind:     IssueSelectorMiss,
			Selector: p.ListSelector,
			Message:  "list selector matched no elements",
			Impact:   ImpactFatal,
		})
		exec.errors = append(exec.errors, fmt.Sprintf("list selector %q matched 0 elements", p.ListSelector))
		return exec
	}

	requests := fieldRequests(p.DetailSelectors)
	samples := min(count, maxSamples)
	totalFields := 0
	for i := 0; i < samples; i++ {
		values, err := session.ExtractFields(ctx, p.ListSelector, i, requests)
		if err != nil {
			exec.errors = append(exec.errors, fmt.Sprintf("extract sample %d: %v", i, err))
			continue
		}
		sample := Sample(values)
		if !sample.Populated() {
			continue
		}
		exec.samples = append(exec.samples, sample)
		totalFields += len(sample)
	}

	// Stepwise confidence: each populated sample earns a fixed bonus,
	// richer samples earn more through the average field count.
	conf := noMatchConfidence
	for range exec.samples {
		conf = math.Min(1.0, conf+sampleBonus)
	}
	if len(exec.samples) > 0 {
		avgFields := float64(totalFields) / float64(len(exec.samples))
		conf += fieldCountBonus * avgFields
	}

	if p.PaginationSelector != "" {
		pagCount, err := session.Count(ctx, p.PaginationSelector)
		switch {
		case err != nil:
			exec.issues = append(exec.issues, Issue{
				Kind:     IssueSelectorMiss,
				Selector: p.PaginationSelector,
				Message:  fmt.Sprintf("pagination probe failed: %v", err),
				Impact:   ImpactLow,
			})
		case pagCount > 0:
			conf += paginationBonus
		default:
			exec.issues = append(exec.issues, Issue{
				Kind:       IssueSelectorMiss,
				Selector:   p.PaginationSelector,
				Message:    "pagination selector matched no elements",
				Impact:     ImpactLow,
				Suggestion: "verify the pagination selector or drop it from the plan",
			})
		}
	}

	exec.confidence = clamp01(conf)

	v.log.Debug("extraction finished",
		zap.Int("list_matches", count),
		zap.Int("samples", len(exec.samples)),
		zap.Float64("confidence", exec.confidence))
	return exec
}

// navigate retries transient navigation failures per the plan's retry
// policy, waiting the policy delay between attempts.
func (v *Validator) navigate(ctx context.Context, session browser.Session, url string, policy plan.RetryPolicy) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if delay := policy.Delay(attempt); delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("navigate %s: %w", url, ctx.Err())
			}
		}
		if err := session.Navigate(ctx, url, navigationWait, v.opts.Timeout); err != nil {
			lastErr = err
			if ctx.Err() != nil || !policy.Retryable(plan.ErrKindNetwork) {
				break
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("navigate %s after %d attempts: %w", url, attempts, lastErr)
}

// fieldRequests builds deterministic, sorted field requests from the
// plan's detail selectors.
func fieldRequests(selectors map[string]string) []browser.FieldRequest {
	fields := make([]string, 0, len(selectors))
	for field := range selectors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	requests := make([]browser.FieldRequest, 0, len(fields))
	for _, field := range fields {
		requests = append(requests, browser.FieldRequest{
			Field:    field,
			Selector: selectors[field],
			Kind:     plan.KindForField(field),
		})
	}
	return requests
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
