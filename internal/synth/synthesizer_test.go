package synth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planwright/planwright/internal/analyzer"
	"github.com/planwright/planwright/internal/llm"
	"github.com/planwright/planwright/internal/logging"
	"github.com/planwright/planwright/internal/scorer"
)

// fakeProvider scripts provider behavior for fallback-chain tests.
type fakeProvider struct {
	name       string
	content    string
	err        error
	calls      int
	lastPrompt string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.calls++
	f.lastPrompt = req.Prompt
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{
		Content:    f.content,
		Provider:   f.name,
		Model:      "fake",
		TokensUsed: 42,
	}, nil
}

func testAnalysis() *analyzer.Result {
	return &analyzer.Result{
		URL:       "https://example.de/events",
		Archetype: analyzer.ArchetypeGeneric,
		Patterns: []analyzer.DetectedPattern{
			{Type: analyzer.PatternListStructure, Confidence: 0.8},
			{Type: analyzer.PatternPagination, Confidence: 0.8},
		},
		ListContainers: []analyzer.ListContainer{
			{Selector: "ul.event-list", ItemCount: 3, Confidence: 0.8},
		},
		Pagination:  analyzer.PaginationInfo{Detected: true, Selector: ".pagination", Confidence: 0.8},
		RateLimitMs: 1000,
	}
}

func newTestSynthesizer(primary, secondary llm.Provider) *Synthesizer {
	return New(primary, secondary, llm.NewTracker(), scorer.New(scorer.DefaultWeights()),
		nil, logging.NewNop(), DefaultOptions())
}

const goodMainResponse = `{
	"listSelector": "ul.event-list > li",
	"paginationSelector": ".pagination a",
	"rateLimitMs": 1500,
	"confidenceScore": 0.85,
	"reasoning": "repeated li structure with dates"
}`

func TestSynthesizePrimarySucceeds(t *testing.T) {
	primary := &fakeProvider{name: "primary", content: goodMainResponse}
	secondary := &fakeProvider{name: "secondary"}
	s := newTestSynthesizer(primary, secondary)

	out := s.Synthesize(context.Background(), Input{
		URL:      "https://example.de/events",
		HTML:     "<html><body></body></html>",
		Analysis: testAnalysis(),
	})

	require.NotNil(t, out.Plan)
	assert.Equal(t, "primary", out.Stage)
	assert.Equal(t, "ul.event-list > li", out.Plan.ListSelector)
	assert.Equal(t, ".pagination a", out.Plan.PaginationSelector)
	assert.Equal(t, 1500, out.Plan.RateLimitMs)
	assert.Zero(t, secondary.calls, "secondary must not be called when primary succeeds")
	assert.NoError(t, out.Plan.Validate())
}

func TestSynthesizeTokenLimitFallsBackToSecondary(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errors.New("maximum context length exceeded")}
	secondary := &fakeProvider{name: "secondary", content: `
LIST_SELECTOR: .card
PAGINATION_SELECTOR: None
RATE_LIMIT_MS: 2000
CONFIDENCE: 0.7
TITLE: h2.card-title
DESCRIPTION: .card-body p
`}
	s := newTestSynthesizer(primary, secondary)

	out := s.Synthesize(context.Background(), Input{
		URL:               "https://example.de/events",
		HTML:              "<html><body></body></html>",
		Analysis:          testAnalysis(),
		ExampleDetailURLs: []string{"https://example.de/events/1"},
	})

	require.NotNil(t, out.Plan)
	assert.Equal(t, "secondary", out.Stage)
	assert.Equal(t, ".card", out.Plan.ListSelector)
	assert.Greater(t, out.Plan.ConfidenceScore, 0.0)
	assert.NotEmpty(t, out.Plan.DetailSelectors)
	assert.GreaterOrEqual(t, primary.calls, 1)
}

func TestSynthesizeAllProvidersFailUsesHeuristic(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errors.New("connection refused")}
	secondary := &fakeProvider{name: "secondary", err: errors.New("connection refused")}
	s := newTestSynthesizer(primary, secondary)

	out := s.Synthesize(context.Background(), Input{
		URL:      "https://example.de/events",
		HTML:     "<html><body></body></html>",
		Analysis: testAnalysis(),
	})

	require.NotNil(t, out.Plan)
	assert.Equal(t, HeuristicCreatedBy, out.Stage)
	assert.Equal(t, HeuristicCreatedBy, out.Plan.Metadata.CreatedBy)
	assert.Equal(t, HeuristicConfidence, out.Plan.ConfidenceScore)
	// Heuristic prefers the confirmed container.
	assert.Equal(t, "ul.event-list", out.Plan.ListSelector)
	assert.Equal(t, ".pagination", out.Plan.PaginationSelector)
}

func TestSynthesizeNoProvidersStillReturnsPlan(t *testing.T) {
	s := newTestSynthesizer(nil, nil)

	out := s.Synthesize(context.Background(), Input{
		URL:  "https://example.de/events",
		HTML: "<html><body></body></html>",
	})

	require.NotNil(t, out.Plan)
	assert.Equal(t, HeuristicCreatedBy, out.Stage)
	assert.NotEmpty(t, out.Plan.ListSelector)
	assert.Equal(t, HeuristicConfidence, out.Plan.ConfidenceScore)
}

func TestSynthesizeMalformedJSONRecovered(t *testing.T) {
	primary := &fakeProvider{name: "primary", content: "Sure! Here is the result:\nLIST_SELECTOR: ul li\nCONFIDENCE: 0.6\n"}
	s := newTestSynthesizer(primary, nil)

	out := s.Synthesize(context.Background(), Input{
		URL:      "https://example.de/events",
		HTML:     "<html><body></body></html>",
		Analysis: testAnalysis(),
	})

	// Malformed output is repaired in-stage, not treated as a provider failure.
	require.NotNil(t, out.Plan)
	assert.Equal(t, "primary", out.Stage)
	assert.Equal(t, "ul li", out.Plan.ListSelector)
}

func TestSynthesizeConfidenceAlwaysInRange(t *testing.T) {
	responses := []string{
		goodMainResponse,
		`{"listSelector": "li", "confidenceScore": 42}`,
		`{"listSelector": "li", "confidenceScore": -1}`,
		`garbage`,
	}

	for _, content := range responses {
		primary := &fakeProvider{name: "primary", content: content}
		s := newTestSynthesizer(primary, nil)
		out := s.Synthesize(context.Background(), Input{
			URL:      "https://example.de",
			HTML:     "<html></html>",
			Analysis: testAnalysis(),
		})
		assert.GreaterOrEqual(t, out.Plan.ConfidenceScore, 0.0)
		assert.LessOrEqual(t, out.Plan.ConfidenceScore, 1.0)
		assert.NotEmpty(t, out.Plan.ListSelector)
	}
}

func TestSynthesizeMetadataInference(t *testing.T) {
	primary := &fakeProvider{name: "primary", content: goodMainResponse}
	s := newTestSynthesizer(primary, nil)

	out := s.Synthesize(context.Background(), Input{
		URL:      "https://www.stadt-beispiel.de/veranstaltungen",
		HTML:     "<html></html>",
		Analysis: testAnalysis(),
	})

	assert.Equal(t, "www.stadt-beispiel.de", out.Plan.Metadata.Domain)
	assert.Equal(t, "de", out.Plan.Metadata.Language)
	assert.Equal(t, "primary", out.Plan.Metadata.CreatedBy)
}

func TestSynthesizePromptCarriesStructureOutline(t *testing.T) {
	primary := &fakeProvider{name: "primary", content: goodMainResponse}
	s := newTestSynthesizer(primary, nil)

	analysis := testAnalysis()
	analysis.Structure = &analyzer.Tree{
		Root: 0,
		Nodes: []analyzer.TreeNode{
			{Tag: "body", Parent: -1, Path: "body", Children: []int{1}},
			{Tag: "ul", Class: "event-list", Parent: 0, Depth: 1,
				Path: "body > ul.event-list", Children: []int{2, 3, 4}},
			{Tag: "li", Parent: 1, Depth: 2, Path: "body > ul.event-list > li"},
			{Tag: "li", Parent: 1, Depth: 2, Path: "body > ul.event-list > li"},
			{Tag: "li", Parent: 1, Depth: 2, Path: "body > ul.event-list > li"},
		},
	}

	s.Synthesize(context.Background(), Input{
		URL:      "https://example.de/events",
		HTML:     "<html><body></body></html>",
		Analysis: analysis,
	})

	assert.Contains(t, primary.lastPrompt, "Structural outline")
	assert.Contains(t, primary.lastPrompt, "body > ul.event-list")
}

func TestSynthesizeCarriesExcludeSelectors(t *testing.T) {
	analysis := testAnalysis()
	analysis.ListContainers[0].ExcludeSelectors = []string{"nav li", ".ad"}

	t.Run("heuristic uses the container directly", func(t *testing.T) {
		s := newTestSynthesizer(nil, nil)

		out := s.Synthesize(context.Background(), Input{
			URL:      "https://example.de/events",
			HTML:     "<html><body></body></html>",
			Analysis: analysis,
		})

		assert.Equal(t, "ul.event-list", out.Plan.ListSelector)
		assert.Equal(t, []string{"nav li", ".ad"}, out.Plan.ExcludeSelectors)
	})

	t.Run("provider selector scoped inside the container", func(t *testing.T) {
		primary := &fakeProvider{name: "primary", content: goodMainResponse}
		s := newTestSynthesizer(primary, nil)

		out := s.Synthesize(context.Background(), Input{
			URL:      "https://example.de/events",
			HTML:     "<html><body></body></html>",
			Analysis: analysis,
		})

		assert.Equal(t, "ul.event-list > li", out.Plan.ListSelector)
		assert.Equal(t, []string{"nav li", ".ad"}, out.Plan.ExcludeSelectors)
	})

	t.Run("unrelated selector carries nothing", func(t *testing.T) {
		primary := &fakeProvider{name: "primary", content: `{"listSelector": ".card", "confidenceScore": 0.8}`}
		s := newTestSynthesizer(primary, nil)

		out := s.Synthesize(context.Background(), Input{
			URL:      "https://example.de/events",
			HTML:     "<html><body></body></html>",
			Analysis: analysis,
		})

		assert.Empty(t, out.Plan.ExcludeSelectors)
	})
}

func TestUsageTracking(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errors.New("boom")}
	secondary := &fakeProvider{name: "secondary", content: "LIST_SELECTOR: li\nCONFIDENCE: 0.5"}
	tracker := llm.NewTracker()
	s := New(primary, secondary, tracker, scorer.New(scorer.DefaultWeights()),
		nil, logging.NewNop(), DefaultOptions())

	s.Synthesize(context.Background(), Input{URL: "https://example.com", HTML: "<html></html>"})

	usage := tracker.Snapshot()
	assert.Equal(t, 1, usage["primary"].Failures)
	assert.Equal(t, 42, usage["secondary"].TokensUsed)
}
