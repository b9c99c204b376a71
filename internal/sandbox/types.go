// Package sandbox executes candidate scraping plans against live pages
// inside an isolated, resource-bounded browser session and turns the
// observations into a validation verdict. It never alters the plan:
// everything it produces is evidence.
package sandbox

import (
	"time"

	"github.com/planwright/planwright/internal/browser"
	"github.com/planwright/planwright/internal/plan"
)

// RunState names a stage of the validation state machine. Transitions
// are strictly forward; CleanedUp is terminal and reached on every
// path, including failures.
type RunState string

const (
	StateCreated              RunState = "created"
	StatePreconditionsChecked RunState = "preconditions-checked"
	StateContextAcquired      RunState = "context-acquired"
	StateExecuting            RunState = "executing"
	StateSuccess              RunState = "success"
	StateFailed               RunState = "failed"
	StateCleanedUp            RunState = "cleaned-up"
)

// Issue is one validation finding.
type Issue struct {
	Kind       string `json:"kind"`
	Field      string `json:"field,omitempty"`
	Selector   string `json:"selector,omitempty"`
	Message    string `json:"message"`
	Impact     string `json:"impact"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Issue kinds.
const (
	IssueSelectorMiss     = "SELECTOR_MISS"
	IssueDomainNotAllowed = "DOMAIN_NOT_ALLOWED"
	IssueNavigation       = "NETWORK_NAVIGATION_ERROR"
	IssueTimeout          = "TIMEOUT"
	IssueLowCompliance    = "LOW_SCHEMA_COMPLIANCE"
	IssueLowQuality       = "LOW_DATA_QUALITY"
	IssueNormalization    = "FIELD_NORMALIZATION_ERROR"
)

// Impact levels.
const (
	ImpactFatal  = "fatal"
	ImpactHigh   = "high"
	ImpactMedium = "medium"
	ImpactLow    = "low"
	ImpactAdvice = "advice"
)

// Sample is one extracted item candidate: tagged values keyed by field.
type Sample map[string]plan.FieldValue

// Populated reports whether the sample carries any value at all.
func (s Sample) Populated() bool { return len(s) > 0 }

// Report is the normalization-backed validation report.
type Report struct {
	SchemaCompliance   float64  `json:"schemaCompliance"`
	DataQuality        float64  `json:"dataQuality"`
	ExtractionAccuracy float64  `json:"extractionAccuracy"`
	Issues             []Issue  `json:"issues"`
	Recommendations    []string `json:"recommendations"`
}

// ElementDiagnostic is one observational record per probed selector.
type ElementDiagnostic struct {
	Label      string        `json:"label"`
	Selector   string        `json:"selector"`
	Boxes      []browser.Box `json:"boxes,omitempty"`
	Preview    string        `json:"preview,omitempty"`
	Matched    int           `json:"matched"`
	Confidence float64       `json:"confidence"`
}

// Artifacts are optional binary diagnostic outputs.
type Artifacts struct {
	Screenshot     []byte `json:"-"`
	ScreenshotMIME string `json:"screenshotMime,omitempty"`
	// HighlightsGzip is the gzip-compressed JSON of the element
	// diagnostics, suitable for persisting next to the screenshot.
	HighlightsGzip []byte `json:"-"`
}

// ProbeResult is the lighter selector-presence check for one example URL.
type ProbeResult struct {
	URL              string  `json:"url"`
	MatchedSelectors int     `json:"matchedSelectors"`
	ProbedSelectors  int     `json:"probedSelectors"`
	Credit           float64 `json:"credit"`
	Passed           bool    `json:"passed"`
}

// Result is the complete outcome of one validation run.
type Result struct {
	RunID               string              `json:"runId"`
	State               RunState            `json:"state"`
	Success             bool                `json:"success"`
	ExecutionConfidence float64             `json:"executionConfidence"`
	OverallConfidence   float64             `json:"overallConfidence"`
	Samples             []Sample            `json:"samples"`
	Errors              []string            `json:"errors,omitempty"`
	Report              Report              `json:"report"`
	Diagnostics         []ElementDiagnostic `json:"diagnostics,omitempty"`
	Artifacts           Artifacts           `json:"artifacts,omitempty"`
	Probes              []ProbeResult       `json:"probes,omitempty"`
	RequestCount        int                 `json:"requestCount"`
	Duration            time.Duration       `json:"duration"`
}
