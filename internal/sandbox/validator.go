package sandbox

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/planwright/planwright/internal/browser"
	"github.com/planwright/planwright/internal/logging"
	"github.com/planwright/planwright/internal/normalize"
	"github.com/planwright/planwright/internal/plan"
)

// successThreshold is the execution confidence a run must exceed, on
// top of having samples and zero execution errors, to count as passed.
const successThreshold = 0.6

// Overall confidence blend.
const (
	overallExecutionWeight = 0.6
	overallAccuracyWeight  = 0.4
)

// ErrDomainNotAllowed is the fatal precondition violation: the run
// never navigates when an entry URL falls outside the allow-list.
var ErrDomainNotAllowed = errors.New("entry url domain not in allow-list")

// Options configure a validator.
type Options struct {
	// Timeout bounds the whole extraction attempt wall-clock.
	Timeout time.Duration

	// AllowedDomains, when non-empty, is the only set of hosts the
	// sandbox will navigate to. Checked before any navigation.
	AllowedDomains []string

	// Session is the per-run browser session configuration.
	Session browser.SessionConfig

	// CaptureScreenshot enables the annotated full-page artifact.
	CaptureScreenshot bool
}

// DefaultOptions mirror the sandbox resource discipline.
func DefaultOptions() Options {
	return Options{
		Timeout: 60 * time.Second,
		Session: browser.DefaultSessionConfig(),
	}
}

// Validator executes plans in isolated sessions. Safe for concurrent
// use; each run acquires its own session and shares nothing mutable.
type Validator struct {
	automation browser.Automation
	normalizer *normalize.Normalizer
	opts       Options
	log        *logging.Logger
}

// New creates a validator on the given browser backend.
func New(automation browser.Automation, normalizer *normalize.Normalizer, opts Options, log *logging.Logger) *Validator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	return &Validator{
		automation: automation,
		normalizer: normalizer,
		opts:       opts,
		log:        log.Component("sandbox"),
	}
}

// Validate runs the candidate plan against its first entry URL, then
// cross-validates selector presence on up to three example URLs. The
// returned result is complete on every path; the error is non-nil only
// for fatal precondition violations.
func (v *Validator) Validate(ctx context.Context, p *plan.ScrapingPlan, exampleURLs []string) (*Result, error) {
	started := time.Now()
	res := &Result{
		RunID: uuid.New().String(),
		State: StateCreated,
	}
	log := v.log.With(zap.String("run_id", res.RunID), zap.String("plan_id", p.PlanID))

	if err := v.checkPreconditions(p); err != nil {
		res.State = StateCleanedUp
		res.Success = false
		res.ExecutionConfidence = 0
		res.Errors = append(res.Errors, err.Error())
		res.Report.Issues = append(res.Report.Issues, preconditionIssue(err))
		res.Duration = time.Since(started)
		log.Warn("validation aborted by precondition", zap.Error(err))
		return res, err
	}
	res.State = StatePreconditionsChecked

	session, err := v.automation.Acquire(ctx, v.opts.Session)
	if err != nil {
		res.State = StateCleanedUp
		res.Errors = append(res.Errors, fmt.Sprintf("acquire session: %v", err))
		res.Duration = time.Since(started)
		log.Error("session acquisition failed", zap.Error(err))
		return res, nil
	}
	res.State = StateContextAcquired

	// Cleanup always runs, in order, with failures logged and dropped.
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if cerr := session.Close(closeCtx); cerr != nil {
			log.Warn("session cleanup failed", zap.Error(cerr))
		}
		res.State = StateCleanedUp
		res.Duration = time.Since(started)
	}()

	res.State = StateExecuting
	exec := v.race(ctx, session, p)
	res.Samples = exec.samples
	res.Errors = append(res.Errors, exec.errors...)
	res.ExecutionConfidence = exec.confidence
	res.Report.Issues = append(res.Report.Issues, exec.issues...)

	res.Diagnostics, res.Artifacts = v.collectDiagnostics(ctx, session, p, exec)
	res.Report = v.buildReport(res.Report.Issues, res.Samples, p.EntryURLs[0])

	if len(exampleURLs) > 0 && !exec.timedOut {
		res.Probes = v.crossValidate(ctx, session, p, exampleURLs)
		if combined, ok := probeConfidence(res.Probes); ok && combined < res.ExecutionConfidence {
			res.ExecutionConfidence = combined
		}
	}

	res.Success = len(res.Samples) > 0 && len(res.Errors) == 0 && res.ExecutionConfidence > successThreshold
	if res.Success {
		res.State = StateSuccess
	} else {
		res.State = StateFailed
	}
	res.OverallConfidence = round2(overallExecutionWeight*res.ExecutionConfidence +
		overallAccuracyWeight*res.Report.ExtractionAccuracy)
	res.RequestCount = session.RequestCount()

	log.Info("validation run finished",
		zap.Bool("success", res.Success),
		zap.Float64("execution_confidence", res.ExecutionConfidence),
		zap.Float64("overall_confidence", res.OverallConfidence),
		zap.Int("samples", len(res.Samples)),
		zap.Int("requests", res.RequestCount))
	return res, nil
}

// checkPreconditions validates the plan before any navigation happens.
func (v *Validator) checkPreconditions(p *plan.ScrapingPlan) error {
	if len(p.EntryURLs) == 0 {
		return plan.ErrNoEntryURLs
	}
	if p.ListSelector == "" {
		return plan.ErrEmptyListSelector
	}
	if len(v.opts.AllowedDomains) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(v.opts.AllowedDomains))
	for _, d := range v.opts.AllowedDomains {
		allowed[d] = true
	}
	for _, entry := range p.EntryURLs {
		parsed, err := url.Parse(entry)
		if err != nil || !allowed[parsed.Hostname()] {
			return fmt.Errorf("%w: %s", ErrDomainNotAllowed, entry)
		}
	}
	return nil
}

func preconditionIssue(err error) Issue {
	issue := Issue{
		Message: err.Error(),
		Impact:  ImpactFatal,
	}
	switch {
	case errors.Is(err, ErrDomainNotAllowed):
		issue.Kind = IssueDomainNotAllowed
	default:
		issue.Kind = IssueSelectorMiss
	}
	return issue
}

// race runs the extraction attempt against the wall-clock timer;
// whichever finishes first wins. On timeout the run fails but
// resources are still released by the caller's deferred cleanup.
func (v *Validator) race(ctx context.Context, session browser.Session, p *plan.ScrapingPlan) *execution {
	runCtx, cancel := context.WithTimeout(ctx, v.opts.Timeout)
	defer cancel()

	done := make(chan *execution, 1)
	go func() {
		done <- v.extract(runCtx, session, p)
	}()

	select {
	case exec := <-done:
		return exec
	case <-runCtx.Done():
		return &execution{
			timedOut:   true,
			confidence: 0,
			errors:     []string{fmt.Sprintf("extraction timed out after %s", v.opts.Timeout)},
			issues: []Issue{{
				Kind:    IssueTimeout,
				Message: fmt.Sprintf("extraction did not finish within %s", v.opts.Timeout),
				Impact:  ImpactFatal,
			}},
		}
	}
}

// probeConfidence averages cross-validation credit; ok is false when
// no probe produced a score.
func probeConfidence(probes []ProbeResult) (float64, bool) {
	if len(probes) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, p := range probes {
		sum += p.Credit
	}
	return sum / float64(len(probes)), true
}
