package plan

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// ErrorKind is a symbolic tag identifying a class of retryable failure.
// Kinds are stable strings, not wrapped error types, so they survive
// serialization into the plan document.
type ErrorKind string

const (
	ErrKindTimeout          ErrorKind = "TIMEOUT"
	ErrKindNetwork          ErrorKind = "NETWORK_ERROR"
	ErrKindRateLimited      ErrorKind = "RATE_LIMITED"
	ErrKindSelectorNotFound ErrorKind = "SELECTOR_NOT_FOUND"
)

// BackoffStrategy names how retry delays grow between attempts.
type BackoffStrategy string

const (
	BackoffExponential BackoffStrategy = "exponential"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffFixed       BackoffStrategy = "fixed"
)

// RetryPolicy bounds every retry loop in the system. No component
// retries outside these limits.
type RetryPolicy struct {
	MaxAttempts         int             `json:"maxAttempts"`
	BackoffStrategy     BackoffStrategy `json:"backoffStrategy"`
	BaseDelayMs         int             `json:"baseDelayMs"`
	MaxDelayMs          int             `json:"maxDelayMs"`
	RetryableErrorKinds []ErrorKind     `json:"retryableErrorKinds"`
}

// DefaultRetryPolicy returns the policy attached to every synthesized
// plan: 3 attempts, exponential backoff 1s to 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		BackoffStrategy: BackoffExponential,
		BaseDelayMs:     1000,
		MaxDelayMs:      30000,
		RetryableErrorKinds: []ErrorKind{
			ErrKindTimeout,
			ErrKindNetwork,
			ErrKindRateLimited,
			ErrKindSelectorNotFound,
		},
	}
}

// Delay returns the wait before the given attempt (1-based). The first
// attempt never waits.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	base := float64(p.BaseDelayMs)
	var ms float64
	switch p.BackoffStrategy {
	case BackoffLinear:
		ms = base * float64(attempt-1)
	case BackoffFixed:
		ms = base
	default:
		ms = base * math.Pow(2, float64(attempt-2))
	}
	if max := float64(p.MaxDelayMs); p.MaxDelayMs > 0 && ms > max {
		ms = max
	}
	return time.Duration(ms) * time.Millisecond
}

// Retryable reports whether the given kind is covered by the policy.
func (p RetryPolicy) Retryable(kind ErrorKind) bool {
	for _, k := range p.RetryableErrorKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// CookieConsent carries consent-dialog info discovered during
// synthesis. Clicking the dialog is a collaborator concern; the plan
// only transports the selector.
type CookieConsent struct {
	Detected           bool   `json:"detected"`
	SaveButtonSelector string `json:"saveButtonSelector,omitempty"`
}

// Metadata describes plan provenance and site-level hints.
type Metadata struct {
	Domain        string        `json:"domain"`
	SiteType      string        `json:"siteType"`
	Language      string        `json:"language"`
	CreatedBy     string        `json:"createdBy"`
	SuccessRate   float64       `json:"successRate"`
	AvgAccuracy   float64       `json:"avgAccuracy"`
	Compliance    []string      `json:"compliance,omitempty"`
	CookieConsent CookieConsent `json:"cookieConsent"`
}

// ScrapingPlan is the full selector/config bundle describing how to
// scrape a site. Once returned to the caller it is owned exclusively
// by the caller and is immutable except for explicit version bumps.
type ScrapingPlan struct {
	PlanID             string            `json:"planId"`
	Version            int               `json:"version"`
	EntryURLs          []string          `json:"entryUrls"`
	ListSelector       string            `json:"listSelector"`
	DetailSelectors    map[string]string `json:"detailSelectors"`
	PaginationSelector string            `json:"paginationSelector,omitempty"`
	ExcludeSelectors   []string          `json:"excludeSelectors,omitempty"`
	RateLimitMs        int               `json:"rateLimitMs"`
	RetryPolicy        RetryPolicy       `json:"retryPolicy"`
	ConfidenceScore    float64           `json:"confidenceScore"`
	Metadata           Metadata          `json:"metadata"`
}

var (
	ErrEmptyListSelector = errors.New("plan list selector is empty")
	ErrNoEntryURLs       = errors.New("plan has no entry urls")
)

// New creates an empty plan for the given entry URL with a fresh ID,
// version 1 and the default retry policy.
func New(entryURL string) *ScrapingPlan {
	return &ScrapingPlan{
		PlanID:          uuid.NewString(),
		Version:         1,
		EntryURLs:       []string{entryURL},
		DetailSelectors: map[string]string{},
		RetryPolicy:     DefaultRetryPolicy(),
	}
}

// Validate checks the invariants a plan must satisfy to be usable.
func (p *ScrapingPlan) Validate() error {
	if len(p.EntryURLs) == 0 {
		return ErrNoEntryURLs
	}
	if p.ListSelector == "" {
		return ErrEmptyListSelector
	}
	if p.ConfidenceScore < 0 || p.ConfidenceScore > 1 {
		return fmt.Errorf("confidence score %f out of [0,1]", p.ConfidenceScore)
	}
	if p.RetryPolicy.MaxAttempts < 1 {
		return fmt.Errorf("retry policy max attempts %d < 1", p.RetryPolicy.MaxAttempts)
	}
	return nil
}

// BumpVersion increments the plan version. The only sanctioned
// mutation after a plan has been handed to a caller.
func (p *ScrapingPlan) BumpVersion() {
	p.Version++
}

// Encode serializes the plan to its persisted JSON shape.
func (p *ScrapingPlan) Encode() ([]byte, error) {
	return sonic.Marshal(p)
}

// Decode parses a plan from its persisted JSON shape.
func Decode(data []byte) (*ScrapingPlan, error) {
	var p ScrapingPlan
	if err := sonic.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if p.DetailSelectors == nil {
		p.DetailSelectors = map[string]string{}
	}
	return &p, nil
}
