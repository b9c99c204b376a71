// Package synth generates scraping plans: two-phase LLM prompting over
// compressed HTML, an explicit provider fallback chain ending in a
// deterministic heuristic, and tolerant response parsing. Synthesis
// never fails outright; it always returns some plan whose confidence
// reflects how degraded the source was.
package synth

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/planwright/planwright/internal/analyzer"
	"github.com/planwright/planwright/internal/htmlx"
	"github.com/planwright/planwright/internal/httpx"
	"github.com/planwright/planwright/internal/llm"
	"github.com/planwright/planwright/internal/logging"
	"github.com/planwright/planwright/internal/plan"
	"github.com/planwright/planwright/internal/scorer"
)

// maxDetailPages caps how many example detail pages feed phase 2.
const maxDetailPages = 3

// maxOutlinePaths caps the structural outline carried into phase 1.
const maxOutlinePaths = 8

// Reconstruction scaling for responses that arrived without required
// fields. Kept below any honest provider self-report.
const reconstructedConfidence = 0.3

// mainDraft is the phase-1 response shape: list and pagination
// selectors for the listing page.
type mainDraft struct {
	ListSelector                    string  `json:"listSelector"`
	PaginationSelector              string  `json:"paginationSelector"`
	RateLimitMs                     int     `json:"rateLimitMs"`
	CookieConsentSaveButtonSelector string  `json:"cookieConsentSaveButtonSelector"`
	ConfidenceScore                 float64 `json:"confidenceScore"`
	Reasoning                       string  `json:"reasoning"`
}

// detailDraft is the phase-2 response shape: per-field selectors for a
// representative detail page.
type detailDraft struct {
	DetailSelectors map[string]string `json:"detailSelectors"`
	ConfidenceScore float64           `json:"confidenceScore"`
}

// Input carries everything synthesis needs for one site.
type Input struct {
	URL               string
	HTML              string
	Analysis          *analyzer.Result
	ExampleDetailURLs []string
}

// Outcome is the synthesized plan plus which fallback stage produced
// the phase-1 draft.
type Outcome struct {
	Plan  *plan.ScrapingPlan
	Stage string
}

// Synthesizer drives plan generation.
type Synthesizer struct {
	primary   llm.Provider
	secondary llm.Provider
	tracker   *llm.Tracker
	score     *scorer.Scorer
	fetcher   *httpx.Client
	log       *logging.Logger

	temperature float64
	maxTokens   int
}

// Options tunes generation requests.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// DefaultOptions keeps generation deterministic-ish and bounded.
func DefaultOptions() Options {
	return Options{Temperature: 0.1, MaxTokens: 2048}
}

// New creates a synthesizer. Either provider may be nil; missing
// providers simply shorten the fallback chain. The tracker must be
// supplied by the caller, one per session.
func New(primary, secondary llm.Provider, tracker *llm.Tracker, score *scorer.Scorer, fetcher *httpx.Client, log *logging.Logger, opts Options) *Synthesizer {
	if log == nil {
		log = logging.NewNop()
	}
	if tracker == nil {
		tracker = llm.NewTracker()
	}
	return &Synthesizer{
		primary:     primary,
		secondary:   secondary,
		tracker:     tracker,
		score:       score,
		fetcher:     fetcher,
		log:         log.Component("synth"),
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}
}

// Synthesize runs both phases and assembles the unified plan.
func (s *Synthesizer) Synthesize(ctx context.Context, input Input) *Outcome {
	main, stage := s.synthesizeMain(ctx, input)

	var detail detailDraft
	detailStage := ""
	if len(input.ExampleDetailURLs) > 0 {
		detail, detailStage = s.synthesizeDetail(ctx, input)
	}

	p := s.assemble(input, main, detail, stage)

	s.log.Info("plan synthesized",
		zap.String("plan_id", p.PlanID),
		zap.String("stage", stage),
		zap.String("detail_stage", detailStage),
		zap.Float64("confidence", p.ConfidenceScore))

	return &Outcome{Plan: p, Stage: stage}
}

// synthesizeMain runs the phase-1 fallback chain. The heuristic tail
// stage cannot fail, so a draft always comes back.
func (s *Synthesizer) synthesizeMain(ctx context.Context, input Input) (mainDraft, string) {
	compressed := htmlx.Compress(input.HTML, htmlx.MainPageBudget)
	prompt := mainPagePrompt(input.URL, archetypeOf(input.Analysis), patternTypesOf(input.Analysis),
		outlineOf(input.Analysis), compressed)

	var stages []stage[mainDraft]
	if s.primary != nil {
		stages = append(stages, stage[mainDraft]{
			name: s.primary.Name(),
			run: func(ctx context.Context) (mainDraft, error) {
				return s.mainFromProvider(ctx, s.primary, llm.Request{
					Prompt:        prompt,
					SystemMessage: systemMessage,
					Format:        llm.FormatJSON,
					Temperature:   s.temperature,
					MaxTokens:     s.maxTokens,
				}, input.Analysis)
			},
		})
	}
	if s.secondary != nil {
		stages = append(stages, stage[mainDraft]{
			name: s.secondary.Name(),
			run: func(ctx context.Context) (mainDraft, error) {
				return s.mainFromLabelled(ctx, s.secondary, labelledFormatInstructions(prompt), input.Analysis)
			},
		})
	}
	stages = append(stages, stage[mainDraft]{
		name: HeuristicCreatedBy,
		run: func(ctx context.Context) (mainDraft, error) {
			return heuristicDraft(input.Analysis), nil
		},
	})

	draft, name, err := firstSuccess(ctx, s.log, stages)
	if err != nil {
		// Unreachable with the heuristic tail, kept for misconfigured chains.
		s.log.Error("fallback chain exhausted", zap.Error(err))
		return heuristicDraft(input.Analysis), HeuristicCreatedBy
	}
	return draft, name
}

// mainFromProvider performs one strict-JSON provider call. Malformed
// or incomplete responses are repaired locally, never surfaced.
func (s *Synthesizer) mainFromProvider(ctx context.Context, provider llm.Provider, req llm.Request, analysis *analyzer.Result) (mainDraft, error) {
	resp, err := provider.Generate(ctx, req)
	if err != nil {
		s.tracker.Record(provider.Name(), 0, true)
		if llm.IsTokenLimit(err) {
			return mainDraft{}, fmt.Errorf("%w: %v", llm.ErrTokenLimit, err)
		}
		return mainDraft{}, err
	}
	s.tracker.Record(provider.Name(), resp.TokensUsed, false)

	var draft mainDraft
	if err := decodeDraft(resp.Content, &draft); err != nil {
		// Malformed response: recover through the loose line format,
		// then generic defaults.
		fields := parseLabelled(resp.Content)
		draft = mainFromFields(fields)
		s.log.Warn("malformed provider response, reconstructed draft",
			zap.String("provider", provider.Name()))
	}
	return s.repairMain(draft, analysis), nil
}

// mainFromLabelled performs one loose line-format provider call.
func (s *Synthesizer) mainFromLabelled(ctx context.Context, provider llm.Provider, prompt string, analysis *analyzer.Result) (mainDraft, error) {
	resp, err := provider.Generate(ctx, llm.Request{
		Prompt:        prompt,
		SystemMessage: systemMessage,
		Format:        llm.FormatText,
		Temperature:   s.temperature,
		MaxTokens:     s.maxTokens,
	})
	if err != nil {
		s.tracker.Record(provider.Name(), 0, true)
		return mainDraft{}, err
	}
	s.tracker.Record(provider.Name(), resp.TokensUsed, false)

	return s.repairMain(mainFromFields(parseLabelled(resp.Content)), analysis), nil
}

func mainFromFields(fields map[string]string) mainDraft {
	return mainDraft{
		ListSelector:                    fields["list_selector"],
		PaginationSelector:              fields["pagination_selector"],
		RateLimitMs:                     labelledInt(fields, "rate_limit_ms", 0),
		CookieConsentSaveButtonSelector: fields["cookie_selector"],
		ConfidenceScore:                 labelledFloat(fields, "confidence", 0),
	}
}

// repairMain patches missing required fields from analysis and fixed
// defaults. The repaired path carries a reduced confidence.
func (s *Synthesizer) repairMain(draft mainDraft, analysis *analyzer.Result) mainDraft {
	if draft.ListSelector == "" {
		fallback := heuristicDraft(analysis)
		draft.ListSelector = fallback.ListSelector
		if draft.PaginationSelector == "" {
			draft.PaginationSelector = fallback.PaginationSelector
		}
		if draft.ConfidenceScore > reconstructedConfidence || draft.ConfidenceScore == 0 {
			draft.ConfidenceScore = reconstructedConfidence
		}
		s.log.Warn("provider response missing list selector, using reconstruction")
	}
	if draft.RateLimitMs <= 0 {
		if analysis != nil && analysis.RateLimitMs > 0 {
			draft.RateLimitMs = analysis.RateLimitMs
		} else {
			draft.RateLimitMs = 1000
		}
	}
	if draft.ConfidenceScore < 0 {
		draft.ConfidenceScore = 0
	}
	if draft.ConfidenceScore > 1 {
		draft.ConfidenceScore = 1
	}
	return draft
}

// synthesizeDetail runs the phase-2 chain over up to three fetched
// example detail pages.
func (s *Synthesizer) synthesizeDetail(ctx context.Context, input Input) (detailDraft, string) {
	excerpts := s.fetchDetailExcerpts(ctx, input.ExampleDetailURLs, rateLimitOf(input.Analysis))
	if len(excerpts) == 0 {
		s.log.Warn("no detail pages fetched, using generic detail selectors")
		return heuristicDetailDraft(), HeuristicCreatedBy
	}

	prompt := detailPagePrompt(input.URL, excerpts)

	var stages []stage[detailDraft]
	if s.primary != nil {
		stages = append(stages, stage[detailDraft]{
			name: s.primary.Name(),
			run: func(ctx context.Context) (detailDraft, error) {
				return s.detailFromProvider(ctx, s.primary, llm.Request{
					Prompt:        prompt,
					SystemMessage: systemMessage,
					Format:        llm.FormatJSON,
					Temperature:   s.temperature,
					MaxTokens:     s.maxTokens,
				})
			},
		})
	}
	if s.secondary != nil {
		stages = append(stages, stage[detailDraft]{
			name: s.secondary.Name(),
			run: func(ctx context.Context) (detailDraft, error) {
				return s.detailFromLabelled(ctx, s.secondary, labelledFormatInstructions(prompt))
			},
		})
	}
	stages = append(stages, stage[detailDraft]{
		name: HeuristicCreatedBy,
		run: func(ctx context.Context) (detailDraft, error) {
			return heuristicDetailDraft(), nil
		},
	})

	draft, name, err := firstSuccess(ctx, s.log, stages)
	if err != nil {
		return heuristicDetailDraft(), HeuristicCreatedBy
	}
	return draft, name
}

func (s *Synthesizer) detailFromProvider(ctx context.Context, provider llm.Provider, req llm.Request) (detailDraft, error) {
	resp, err := provider.Generate(ctx, req)
	if err != nil {
		s.tracker.Record(provider.Name(), 0, true)
		if llm.IsTokenLimit(err) {
			return detailDraft{}, fmt.Errorf("%w: %v", llm.ErrTokenLimit, err)
		}
		return detailDraft{}, err
	}
	s.tracker.Record(provider.Name(), resp.TokensUsed, false)

	var draft detailDraft
	if err := decodeDraft(resp.Content, &draft); err != nil {
		draft = detailFromFields(parseLabelled(resp.Content))
		s.log.Warn("malformed detail response, reconstructed draft",
			zap.String("provider", provider.Name()))
	}
	return repairDetail(draft), nil
}

func (s *Synthesizer) detailFromLabelled(ctx context.Context, provider llm.Provider, prompt string) (detailDraft, error) {
	resp, err := provider.Generate(ctx, llm.Request{
		Prompt:        prompt,
		SystemMessage: systemMessage,
		Format:        llm.FormatText,
		Temperature:   s.temperature,
		MaxTokens:     s.maxTokens,
	})
	if err != nil {
		s.tracker.Record(provider.Name(), 0, true)
		return detailDraft{}, err
	}
	s.tracker.Record(provider.Name(), resp.TokensUsed, false)

	return repairDetail(detailFromFields(parseLabelled(resp.Content))), nil
}

func detailFromFields(fields map[string]string) detailDraft {
	selectors := map[string]string{}
	for _, field := range detailFields {
		if v, ok := fields[normalizeLabel(field)]; ok {
			selectors[field] = v
		}
	}
	return detailDraft{
		DetailSelectors: selectors,
		ConfidenceScore: labelledFloat(fields, "confidence", 0),
	}
}

func repairDetail(draft detailDraft) detailDraft {
	if len(draft.DetailSelectors) == 0 {
		return heuristicDetailDraft()
	}
	if draft.ConfidenceScore <= 0 {
		draft.ConfidenceScore = reconstructedConfidence
	}
	if draft.ConfidenceScore > 1 {
		draft.ConfidenceScore = 1
	}
	return draft
}

// fetchDetailExcerpts retrieves and compresses up to maxDetailPages
// example pages. Fetch failures skip the page, never the phase.
func (s *Synthesizer) fetchDetailExcerpts(ctx context.Context, urls []string, rateLimitMs int) []string {
	if s.fetcher == nil {
		return nil
	}
	if rateLimitMs > 0 {
		// Honor the analyzer's politeness hint while fetching examples.
		s.fetcher.SetRateLimit(1000.0 / float64(rateLimitMs))
	}
	var excerpts []string
	for _, url := range urls {
		if len(excerpts) >= maxDetailPages {
			break
		}
		html, err := s.fetcher.FetchHTML(ctx, url)
		if err != nil {
			s.log.Warn("detail page fetch failed", zap.String("url", url), zap.Error(err))
			continue
		}
		excerpts = append(excerpts, htmlx.Compress(html, htmlx.DetailPageBudget))
	}
	return excerpts
}

// assemble merges the drafts into one plan with default retry policy
// and inferred metadata.
func (s *Synthesizer) assemble(input Input, main mainDraft, detail detailDraft, stage string) *plan.ScrapingPlan {
	p := plan.New(input.URL)
	p.ListSelector = main.ListSelector
	p.PaginationSelector = main.PaginationSelector
	p.RateLimitMs = main.RateLimitMs
	p.ExcludeSelectors = excludeSelectorsFor(input.Analysis, p.ListSelector)
	if detail.DetailSelectors != nil {
		p.DetailSelectors = detail.DetailSelectors
	}

	p.Metadata = plan.Metadata{
		Domain:    domainOf(input.URL),
		SiteType:  inferSiteType(input.URL),
		Language:  inferLanguage(input.URL),
		CreatedBy: stage,
		CookieConsent: plan.CookieConsent{
			Detected:           main.CookieConsentSaveButtonSelector != "",
			SaveButtonSelector: main.CookieConsentSaveButtonSelector,
		},
	}

	if stage == HeuristicCreatedBy {
		// Fully degraded path: fixed conservative confidence.
		p.ConfidenceScore = HeuristicConfidence
		return p
	}

	providerConf := main.ConfidenceScore
	if len(input.ExampleDetailURLs) > 0 && detail.ConfidenceScore > 0 {
		providerConf = (main.ConfidenceScore + detail.ConfidenceScore) / 2
	}
	p.ConfidenceScore = s.score.Score(p, input.Analysis, providerConf)
	return p
}

func archetypeOf(analysis *analyzer.Result) analyzer.Archetype {
	if analysis == nil {
		return analyzer.ArchetypeGeneric
	}
	return analysis.Archetype
}

func patternTypesOf(analysis *analyzer.Result) []analyzer.PatternType {
	if analysis == nil {
		return nil
	}
	return analysis.PatternTypes()
}

func outlineOf(analysis *analyzer.Result) []string {
	if analysis == nil || analysis.Structure == nil {
		return nil
	}
	return analysis.Structure.Outline(maxOutlinePaths)
}

func rateLimitOf(analysis *analyzer.Result) int {
	if analysis == nil {
		return 0
	}
	return analysis.RateLimitMs
}

// excludeSelectorsFor carries an analyzed container's exclusion list
// onto the plan when the plan's list selector targets that container,
// either exactly or as a scoped descendant selector.
func excludeSelectorsFor(analysis *analyzer.Result, listSelector string) []string {
	if analysis == nil || listSelector == "" {
		return nil
	}
	for _, c := range analysis.ListContainers {
		if len(c.ExcludeSelectors) == 0 {
			continue
		}
		if listSelector == c.Selector || strings.HasPrefix(listSelector, c.Selector+" ") {
			out := make([]string, len(c.ExcludeSelectors))
			copy(out, c.ExcludeSelectors)
			return out
		}
	}
	return nil
}
