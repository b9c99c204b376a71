package synth

import (
	"fmt"
	"strings"

	"github.com/planwright/planwright/internal/analyzer"
)

const systemMessage = "You are an expert in CSS selectors and web scraping. " +
	"You answer with precise, minimal selectors that match the described content. " +
	"Respond only in the requested format."

// detailFields are the per-field selectors requested during phase 2.
var detailFields = []string{
	"title", "description", "startDate", "endDate", "address",
	"email", "phone", "website", "images",
}

// mainPagePrompt builds the phase-1 prompt: list selector, pagination
// and rate limit for a listing page.
func mainPagePrompt(url string, archetype analyzer.Archetype, patternTypes []analyzer.PatternType, outline []string, compressedHTML string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze this listing page and derive scraping selectors.\n\n")
	fmt.Fprintf(&b, "URL: %s\n", url)
	fmt.Fprintf(&b, "Detected CMS: %s\n", archetype)
	if len(patternTypes) > 0 {
		names := make([]string, len(patternTypes))
		for i, t := range patternTypes {
			names[i] = string(t)
		}
		fmt.Fprintf(&b, "Detected patterns: %s\n", strings.Join(names, ", "))
	}
	if len(outline) > 0 {
		b.WriteString("Structural outline (candidate repeated-item containers):\n")
		for _, path := range outline {
			b.WriteString("  " + path + "\n")
		}
	}

	b.WriteString("\nReturn a JSON object with exactly these keys:\n")
	b.WriteString(`{
  "listSelector": "CSS selector matching each repeated item on the page",
  "paginationSelector": "CSS selector for the pagination control, or null",
  "rateLimitMs": 1000,
  "cookieConsentSaveButtonSelector": "selector of the consent dialog save/accept button, or null",
  "confidenceScore": 0.0,
  "reasoning": "one short sentence"
}`)
	b.WriteString("\n\nHTML excerpt:\n")
	b.WriteString(compressedHTML)
	return b.String()
}

// detailPagePrompt builds the phase-2 prompt: per-field selectors for
// a representative detail page, from up to three fetched examples.
func detailPagePrompt(url string, excerpts []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze these detail pages from %s and derive one selector per field.\n", url)
	b.WriteString("The selectors must work on a single representative detail page.\n\n")
	b.WriteString("Return a JSON object with exactly these keys:\n{\n  \"detailSelectors\": {\n")
	for i, field := range detailFields {
		sep := ","
		if i == len(detailFields)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "    %q: \"CSS selector or null\"%s\n", field, sep)
	}
	b.WriteString("  },\n  \"confidenceScore\": 0.0\n}\n")

	for i, excerpt := range excerpts {
		fmt.Fprintf(&b, "\nExample page %d:\n%s\n", i+1, excerpt)
	}
	return b.String()
}

// labelledFormatInstructions rewrites a prompt for providers that
// cannot hold a strict JSON contract: one LABEL: value pair per line.
func labelledFormatInstructions(prompt string) string {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nDo NOT answer in JSON. Answer with one field per line in the form LABEL: value.\n")
	b.WriteString("Use the labels LIST_SELECTOR, PAGINATION_SELECTOR, RATE_LIMIT_MS, COOKIE_SELECTOR, CONFIDENCE")
	for _, field := range detailFields {
		b.WriteString(", " + strings.ToUpper(field))
	}
	b.WriteString(".\nWrite None for fields you cannot determine.\n")
	return b.String()
}
