package sandbox

import (
	"bytes"
	"context"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/planwright/planwright/internal/browser"
	"github.com/planwright/planwright/internal/plan"
)

// Per-element confidence heuristic. Observational only: diagnostics
// never feed back into the plan.
const (
	elementBaseConfidence = 0.7
	valueExtractedBonus   = 0.2
	semanticTagBonus      = 0.1
	tinyElementPenalty    = 0.2

	elementConfidenceFloor = 0.1

	diagnosticElementLimit = 5
	previewLen             = 80
)

// Elements below this box size carry the tiny-element penalty.
const (
	tinyWidth  = 16.0
	tinyHeight = 8.0
)

var semanticTags = map[string]bool{
	"article": true,
	"section": true,
	"main":    true,
	"nav":     true,
	"header":  true,
	"footer":  true,
	"time":    true,
	"figure":  true,
	"h1":      true,
	"h2":      true,
	"h3":      true,
}

// collectDiagnostics observes every selector the plan carries: list
// container, detail fields, pagination and exclude selectors. Failures
// degrade to fewer diagnostics, never to a failed run.
func (v *Validator) collectDiagnostics(ctx context.Context, session browser.Session, p *plan.ScrapingPlan, exec *execution) ([]ElementDiagnostic, Artifacts) {
	type probe struct {
		label    string
		selector string
	}

	probes := []probe{{label: "list", selector: p.ListSelector}}

	fields := make([]string, 0, len(p.DetailSelectors))
	for field := range p.DetailSelectors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		probes = append(probes, probe{label: "field:" + field, selector: p.DetailSelectors[field]})
	}
	if p.PaginationSelector != "" {
		probes = append(probes, probe{label: "pagination", selector: p.PaginationSelector})
	}
	for _, excl := range p.ExcludeSelectors {
		probes = append(probes, probe{label: "exclude", selector: excl})
	}

	previews := fieldPreviews(exec.samples)

	diagnostics := make([]ElementDiagnostic, 0, len(probes))
	for _, pr := range probes {
		elements, err := session.Elements(ctx, pr.selector, diagnosticElementLimit)
		if err != nil {
			v.log.Debug("diagnostic probe failed",
				zap.String("selector", pr.selector), zap.Error(err))
			continue
		}

		diag := ElementDiagnostic{
			Label:    pr.label,
			Selector: pr.selector,
			Matched:  len(elements),
			Preview:  previews[pr.label],
		}
		for _, el := range elements {
			if el.Visible && el.Box != nil {
				diag.Boxes = append(diag.Boxes, *el.Box)
			}
			if diag.Preview == "" && el.Text != "" {
				diag.Preview = truncatePreview(el.Text)
			}
		}
		diag.Confidence = elementConfidence(elements, diag.Preview != "")
		diagnostics = append(diagnostics, diag)
	}

	return diagnostics, v.captureArtifacts(ctx, session, diagnostics)
}

// elementConfidence scores the first matched element: base 0.7, bonus
// for an extracted value and semantic markup, penalty for elements too
// small to hold visible content.
func elementConfidence(elements []browser.Element, hasValue bool) float64 {
	if len(elements) == 0 {
		return elementConfidenceFloor
	}

	conf := elementBaseConfidence
	if hasValue {
		conf += valueExtractedBonus
	}

	el := elements[0]
	if semanticTags[el.Tag] {
		conf += semanticTagBonus
	}
	if el.Box != nil && (el.Box.Width < tinyWidth || el.Box.Height < tinyHeight) {
		conf -= tinyElementPenalty
	}

	if conf < elementConfidenceFloor {
		return elementConfidenceFloor
	}
	if conf > 1.0 {
		return 1.0
	}
	return conf
}

// fieldPreviews pulls short value previews for the per-field
// diagnostics from the first sample that populated the field.
func fieldPreviews(samples []Sample) map[string]string {
	previews := map[string]string{}
	for _, sample := range samples {
		for field, value := range sample {
			key := "field:" + field
			if previews[key] == "" && value.Value != "" {
				previews[key] = truncatePreview(value.Value)
			}
		}
	}
	return previews
}

func truncatePreview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > previewLen {
		return s[:previewLen] + "…"
	}
	return s
}

// captureArtifacts takes the optional annotated screenshot and packs
// the highlight records as gzip JSON for persistence.
func (v *Validator) captureArtifacts(ctx context.Context, session browser.Session, diagnostics []ElementDiagnostic) Artifacts {
	artifacts := Artifacts{}

	if data, err := sonic.Marshal(diagnostics); err == nil {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(data); err == nil && gz.Close() == nil {
			artifacts.HighlightsGzip = buf.Bytes()
		}
	}

	if !v.opts.CaptureScreenshot {
		return artifacts
	}
	shot, err := session.Screenshot(ctx, true)
	if err != nil {
		v.log.Debug("screenshot capture failed", zap.Error(err))
		return artifacts
	}
	kind := mimetype.Detect(shot)
	if !strings.HasPrefix(kind.String(), "image/") {
		v.log.Warn("screenshot has unexpected content type",
			zap.String("mime", kind.String()))
		return artifacts
	}
	artifacts.Screenshot = shot
	artifacts.ScreenshotMIME = kind.String()
	return artifacts
}
