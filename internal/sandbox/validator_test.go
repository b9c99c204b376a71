package sandbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planwright/planwright/internal/browser"
	"github.com/planwright/planwright/internal/logging"
	"github.com/planwright/planwright/internal/normalize"
	"github.com/planwright/planwright/internal/plan"
)

// fakeSession scripts browser behavior. Selector counts and per-field
// values are configured per test.
type fakeSession struct {
	counts      map[string]int
	fields      map[string]string
	navigateErr error
	navigateDly time.Duration
	requests    int
	closed      bool
	closeErr    error
}

func (f *fakeSession) Navigate(ctx context.Context, url string, wait browser.WaitCondition, timeout time.Duration) error {
	f.requests++
	if f.navigateDly > 0 {
		select {
		case <-time.After(f.navigateDly):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.navigateErr
}

func (f *fakeSession) Count(ctx context.Context, selector string) (int, error) {
	return f.counts[selector], nil
}

func (f *fakeSession) Elements(ctx context.Context, selector string, limit int) ([]browser.Element, error) {
	n := f.counts[selector]
	if n > limit {
		n = limit
	}
	elements := make([]browser.Element, 0, n)
	for i := 0; i < n; i++ {
		elements = append(elements, browser.Element{
			Selector: selector,
			Visible:  true,
			Box:      &browser.Box{X: 0, Y: float64(i * 100), Width: 300, Height: 80},
			Text:     "sample text",
			Tag:      "article",
		})
	}
	return elements, nil
}

func (f *fakeSession) ExtractFields(ctx context.Context, itemSelector string, itemIndex int, fields []browser.FieldRequest) (map[string]plan.FieldValue, error) {
	values := map[string]plan.FieldValue{}
	for _, req := range fields {
		if v, ok := f.fields[req.Field]; ok {
			values[req.Field] = plan.FieldValue{Kind: req.Kind, Value: v}
		}
	}
	return values, nil
}

func (f *fakeSession) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	// Minimal PNG header so mimetype sniffing sees an image.
	return []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}, nil
}

func (f *fakeSession) RequestCount() int { return f.requests }

func (f *fakeSession) Close(ctx context.Context) error {
	f.closed = true
	return f.closeErr
}

type fakeAutomation struct {
	session    *fakeSession
	acquireErr error
}

func (f *fakeAutomation) Acquire(ctx context.Context, cfg browser.SessionConfig) (browser.Session, error) {
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	return f.session, nil
}

func testPlan() *plan.ScrapingPlan {
	p := plan.New("https://example.de/events")
	p.ListSelector = ".event-item"
	p.DetailSelectors = map[string]string{
		"title":       "h3",
		"description": "p.summary",
		"startDate":   "time",
	}
	p.PaginationSelector = ".pagination"
	return p
}

func goodSession() *fakeSession {
	return &fakeSession{
		counts: map[string]int{
			".event-item": 5,
			".pagination": 1,
			"h3":          5,
			"p.summary":   5,
			"time":        5,
		},
		fields: map[string]string{
			"title":       "Stadtfest am Rathausplatz",
			"description": "Das große Fest für die ganze Familie mit Musik und Ständen.",
			"startDate":   "25.12.2024",
		},
	}
}

func newTestValidator(session *fakeSession) *Validator {
	return New(&fakeAutomation{session: session}, normalize.New(),
		Options{Timeout: 5 * time.Second}, logging.NewNop())
}

func TestValidateSuccessfulRun(t *testing.T) {
	session := goodSession()
	v := newTestValidator(session)

	res, err := v.Validate(context.Background(), testPlan(), nil)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, StateCleanedUp, res.State)
	assert.Len(t, res.Samples, 3, "sampling caps at three items")
	assert.Greater(t, res.ExecutionConfidence, successThreshold)
	assert.Empty(t, res.Errors)
	assert.True(t, session.closed, "session must always be released")
	assert.NotEmpty(t, res.Diagnostics)
	assert.Greater(t, res.OverallConfidence, 0.0)
}

func TestValidateZeroListMatchesFails(t *testing.T) {
	session := goodSession()
	session.counts[".event-item"] = 0
	v := newTestValidator(session)

	res, err := v.Validate(context.Background(), testPlan(), nil)
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, noMatchConfidence, res.ExecutionConfidence)
	assert.Empty(t, res.Samples)
	assert.True(t, session.closed)

	fatal := false
	for _, issue := range res.Report.Issues {
		if issue.Kind == IssueSelectorMiss && issue.Impact == ImpactFatal {
			fatal = true
		}
	}
	assert.True(t, fatal, "zero list matches must record a fatal selector miss")
}

func TestValidateDomainAllowList(t *testing.T) {
	session := goodSession()
	v := New(&fakeAutomation{session: session}, normalize.New(),
		Options{Timeout: 5 * time.Second, AllowedDomains: []string{"allowed.example"}},
		logging.NewNop())

	res, err := v.Validate(context.Background(), testPlan(), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDomainNotAllowed)
	assert.False(t, res.Success)
	assert.Zero(t, session.requests, "no navigation may happen after an allow-list violation")
	assert.Equal(t, StateCleanedUp, res.State)
}

func TestValidateEmptyListSelectorPrecondition(t *testing.T) {
	p := testPlan()
	p.ListSelector = ""
	v := newTestValidator(goodSession())

	res, err := v.Validate(context.Background(), p, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, plan.ErrEmptyListSelector)
	assert.False(t, res.Success)
}

func TestValidateTimeout(t *testing.T) {
	session := goodSession()
	session.navigateDly = time.Second
	v := New(&fakeAutomation{session: session}, normalize.New(),
		Options{Timeout: 50 * time.Millisecond}, logging.NewNop())

	res, err := v.Validate(context.Background(), testPlan(), nil)
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Errors)
	assert.True(t, session.closed, "cleanup must run on timeout")

	timedOut := false
	for _, issue := range res.Report.Issues {
		if issue.Kind == IssueTimeout {
			timedOut = true
		}
	}
	assert.True(t, timedOut)
}

func TestValidateNavigationErrorRetriedThenSurfaced(t *testing.T) {
	session := goodSession()
	session.navigateErr = errors.New("connection reset")
	v := newTestValidator(session)

	p := testPlan()
	p.RetryPolicy.BaseDelayMs = 1
	p.RetryPolicy.MaxDelayMs = 2

	res, err := v.Validate(context.Background(), p, nil)
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, p.RetryPolicy.MaxAttempts, session.requests, "navigation must be retried per the plan policy")
	assert.NotEmpty(t, res.Errors)
}

func TestValidateCleanupErrorNotSurfaced(t *testing.T) {
	session := goodSession()
	session.closeErr = errors.New("browser already gone")
	v := newTestValidator(session)

	res, err := v.Validate(context.Background(), testPlan(), nil)

	require.NoError(t, err, "cleanup failures are logged, never re-thrown")
	assert.True(t, res.Success)
}

func TestValidateCrossValidation(t *testing.T) {
	session := goodSession()
	v := newTestValidator(session)

	examples := []string{
		"https://example.de/events?page=2",
		"https://example.de/events?page=3",
		"https://example.de/events?page=4",
		"https://example.de/events?page=5", // beyond the probe cap
	}

	res, err := v.Validate(context.Background(), testPlan(), examples)
	require.NoError(t, err)

	require.Len(t, res.Probes, 3, "cross-validation probes at most three URLs")
	for _, probe := range res.Probes {
		assert.True(t, probe.Passed)
		// list 0.3 + 3 fields x 0.1 + pagination 0.1
		assert.InDelta(t, 0.7, probe.Credit, 1e-9)
	}
}

func TestValidateCrossValidationLowersConfidence(t *testing.T) {
	session := goodSession()
	v := newTestValidator(session)

	base, err := v.Validate(context.Background(), testPlan(), nil)
	require.NoError(t, err)

	probed, err := v.Validate(context.Background(), testPlan(),
		[]string{"https://example.de/other"})
	require.NoError(t, err)

	// Probe credit 0.7 caps the combined execution confidence.
	assert.LessOrEqual(t, probed.ExecutionConfidence, base.ExecutionConfidence)
	assert.LessOrEqual(t, probed.ExecutionConfidence, 0.7)
}

func TestOverallConfidenceBlend(t *testing.T) {
	session := goodSession()
	v := newTestValidator(session)

	res, err := v.Validate(context.Background(), testPlan(), nil)
	require.NoError(t, err)

	want := round2(overallExecutionWeight*res.ExecutionConfidence +
		overallAccuracyWeight*res.Report.ExtractionAccuracy)
	assert.Equal(t, want, res.OverallConfidence)
}

func TestElementConfidenceHeuristic(t *testing.T) {
	box := &browser.Box{Width: 300, Height: 80}
	tiny := &browser.Box{Width: 4, Height: 4}

	tests := []struct {
		name     string
		elements []browser.Element
		hasValue bool
		want     float64
	}{
		{"no match", nil, false, elementConfidenceFloor},
		{"plain div", []browser.Element{{Tag: "div", Box: box}}, false, 0.7},
		{"with value", []browser.Element{{Tag: "div", Box: box}}, true, 0.9},
		{"semantic with value", []browser.Element{{Tag: "article", Box: box}}, true, 1.0},
		{"tiny element", []browser.Element{{Tag: "div", Box: tiny}}, false, 0.5},
		{"tiny semantic with value", []browser.Element{{Tag: "time", Box: tiny}}, true, 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, elementConfidence(tt.elements, tt.hasValue), 1e-9)
		})
	}
}

func TestReportRecommendations(t *testing.T) {
	session := goodSession()
	// Break normalization: drop required description.
	delete(session.fields, "description")
	v := newTestValidator(session)

	res, err := v.Validate(context.Background(), testPlan(), nil)
	require.NoError(t, err)

	assert.Zero(t, res.Report.SchemaCompliance)
	assert.NotEmpty(t, res.Report.Recommendations)
	assert.Less(t, res.Report.DataQuality, qualityThreshold)
}

func TestArtifactsHighlightsCompressed(t *testing.T) {
	session := goodSession()
	v := New(&fakeAutomation{session: session}, normalize.New(),
		Options{Timeout: 5 * time.Second, CaptureScreenshot: true}, logging.NewNop())

	res, err := v.Validate(context.Background(), testPlan(), nil)
	require.NoError(t, err)

	assert.NotEmpty(t, res.Artifacts.HighlightsGzip)
	assert.NotEmpty(t, res.Artifacts.Screenshot)
	assert.Equal(t, "image/png", res.Artifacts.ScreenshotMIME)
}
