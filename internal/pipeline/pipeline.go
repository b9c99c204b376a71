// Package pipeline wires the generation stages together: site analysis,
// selector synthesis, confidence scoring and sandbox validation.
// Independent requests run fully parallel and share nothing mutable
// beyond configuration; per-request state (LLM usage tracking) is
// created per call.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/planwright/planwright/internal/analyzer"
	"github.com/planwright/planwright/internal/httpx"
	"github.com/planwright/planwright/internal/llm"
	"github.com/planwright/planwright/internal/logging"
	"github.com/planwright/planwright/internal/monitoring"
	"github.com/planwright/planwright/internal/plan"
	"github.com/planwright/planwright/internal/sandbox"
	"github.com/planwright/planwright/internal/scorer"
	"github.com/planwright/planwright/internal/synth"
)

// GenerateRequest describes one plan-generation call.
type GenerateRequest struct {
	// URL is the listing page the plan targets.
	URL string `json:"url"`

	// HTML optionally supplies pre-fetched page content; when empty the
	// pipeline fetches the URL itself.
	HTML string `json:"html,omitempty"`

	// ExampleURLs feed cross-page content analysis and sandbox
	// cross-validation.
	ExampleURLs []string `json:"exampleUrls,omitempty"`

	// ExampleDetailURLs feed phase-2 detail selector synthesis.
	ExampleDetailURLs []string `json:"exampleDetailUrls,omitempty"`

	// Validate runs the sandbox against the synthesized plan.
	Validate bool `json:"validate,omitempty"`
}

// GenerateResult is the complete pipeline output.
type GenerateResult struct {
	Plan       *plan.ScrapingPlan   `json:"plan"`
	Analysis   *analyzer.Result     `json:"analysis,omitempty"`
	Stage      string               `json:"stage"`
	Usage      map[string]llm.Usage `json:"usage,omitempty"`
	Validation *sandbox.Result      `json:"validation,omitempty"`
}

// Pipeline holds the immutable collaborators shared across requests.
type Pipeline struct {
	fetcher   *httpx.Client
	analyzer  *analyzer.Analyzer
	primary   llm.Provider
	secondary llm.Provider
	score     *scorer.Scorer
	validator *sandbox.Validator
	metrics   *monitoring.Metrics
	synthOpts synth.Options
	log       *logging.Logger
}

// New assembles a pipeline. The validator may be nil when no browser
// backend is available; generation then skips validation.
func New(fetcher *httpx.Client, siteAnalyzer *analyzer.Analyzer, primary, secondary llm.Provider,
	score *scorer.Scorer, validator *sandbox.Validator, metrics *monitoring.Metrics,
	synthOpts synth.Options, log *logging.Logger) *Pipeline {
	if log == nil {
		log = logging.NewNop()
	}
	return &Pipeline{
		fetcher:   fetcher,
		analyzer:  siteAnalyzer,
		primary:   primary,
		secondary: secondary,
		score:     score,
		validator: validator,
		metrics:   metrics,
		synthOpts: synthOpts,
		log:       log.Component("pipeline"),
	}
}

// Generate runs the full pipeline for one site. A plan always comes
// back; the error is non-nil only when the page itself is unreachable
// and no HTML was supplied.
func (p *Pipeline) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	log := p.log.With(zap.String("url", req.URL))

	html := req.HTML
	if html == "" {
		fetched, err := p.fetcher.FetchHTML(ctx, req.URL)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", req.URL, err)
		}
		html = fetched
	}

	analysisStart := time.Now()
	analysis, err := p.analyzer.Analyze(ctx, req.URL, html, req.ExampleURLs)
	if err != nil {
		// Synthesis degrades to generic heuristics without analysis.
		log.Warn("site analysis failed, continuing without structure", zap.Error(err))
		analysis = nil
	}
	p.recordStage("analysis", time.Since(analysisStart))

	tracker := llm.NewTracker()
	s := synth.New(p.primary, p.secondary, tracker, p.score, p.fetcher, p.log, p.synthOpts)

	synthesisStart := time.Now()
	outcome := s.Synthesize(ctx, synth.Input{
		URL:               req.URL,
		HTML:              html,
		Analysis:          analysis,
		ExampleDetailURLs: req.ExampleDetailURLs,
	})
	p.recordStage("synthesis", time.Since(synthesisStart))

	result := &GenerateResult{
		Plan:     outcome.Plan,
		Analysis: analysis,
		Stage:    outcome.Stage,
		Usage:    tracker.Snapshot(),
	}
	if p.metrics != nil {
		p.metrics.RecordPlan(outcome.Stage, outcome.Plan.ConfidenceScore)
		p.metrics.RecordSynthesisStage("main", outcome.Stage)
		for provider, usage := range result.Usage {
			status := "ok"
			if usage.Failures > 0 {
				status = "failed"
			}
			p.metrics.RecordLLMCall(provider, status, usage.TokensUsed)
		}
	}

	if req.Validate && p.validator != nil {
		validation, err := p.Validate(ctx, outcome.Plan, req.ExampleURLs)
		if err != nil {
			log.Warn("validation aborted", zap.Error(err))
		}
		result.Validation = validation
		if validation != nil {
			// Validation evidence lands in metadata, never in selectors.
			outcome.Plan.Metadata.SuccessRate = validation.Report.SchemaCompliance
			outcome.Plan.Metadata.AvgAccuracy = validation.Report.ExtractionAccuracy
		}
	}

	return result, nil
}

// Validate runs the sandbox over an existing plan.
func (p *Pipeline) Validate(ctx context.Context, sp *plan.ScrapingPlan, exampleURLs []string) (*sandbox.Result, error) {
	if p.validator == nil {
		return nil, fmt.Errorf("no validation backend configured")
	}

	if p.metrics != nil {
		p.metrics.ValidationsActive.Inc()
		defer p.metrics.ValidationsActive.Dec()
	}

	start := time.Now()
	res, err := p.validator.Validate(ctx, sp, exampleURLs)
	p.recordStage("validation", time.Since(start))

	if p.metrics != nil && res != nil {
		outcome := "failed"
		if res.Success {
			outcome = "success"
		}
		p.metrics.RecordValidation(outcome, res.Duration)
	}
	return res, err
}

// Health reports collaborator state for the health endpoint.
func (p *Pipeline) Health() map[string]string {
	checks := map[string]string{}
	if p.fetcher != nil {
		checks["http_breaker"] = p.fetcher.BreakerState().String()
	}
	return checks
}

func (p *Pipeline) recordStage(stage string, d time.Duration) {
	if p.metrics != nil {
		p.metrics.RecordPipelineStage(stage, d)
	}
}
