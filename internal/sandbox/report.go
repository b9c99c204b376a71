package sandbox

import (
	"fmt"

	"github.com/planwright/planwright/internal/normalize"
	"github.com/planwright/planwright/internal/plan"
)

// Report thresholds. Scores below these generate recommendations.
const (
	complianceThreshold = 0.8
	qualityThreshold    = 0.7
)

// Field presence weights for dataQuality: required fields count full,
// optional fields half.
var (
	requiredReportFields = []string{"title", "description"}
	optionalReportFields = []string{
		"startDate", "endDate", "images", "address",
		"email", "phone", "website",
	}
)

// buildReport runs the normalizer over every extracted sample and
// derives compliance, quality and accuracy scores. Issues collected
// during execution are carried through.
func (v *Validator) buildReport(issues []Issue, samples []Sample, baseURL string) Report {
	report := Report{Issues: issues}
	if len(samples) == 0 {
		report.Recommendations = append(report.Recommendations,
			"no samples extracted; review the list selector before using this plan")
		return report
	}

	valid := 0
	for _, sample := range samples {
		res := v.normalizer.Normalize(sampleToItem(sample), baseURL)
		if res.IsValid {
			valid++
			continue
		}
		for _, e := range res.Errors {
			report.Issues = append(report.Issues, Issue{
				Kind:    IssueNormalization,
				Field:   e.Field,
				Message: e.Message,
				Impact:  ImpactMedium,
			})
		}
	}

	report.SchemaCompliance = round2(float64(valid) / float64(len(samples)))
	report.DataQuality = round2(fieldPresence(samples))
	report.ExtractionAccuracy = round2((report.SchemaCompliance + report.DataQuality) / 2)

	if report.SchemaCompliance < complianceThreshold {
		report.Recommendations = append(report.Recommendations, fmt.Sprintf(
			"only %.0f%% of samples normalize validly; review the detail selectors for required fields",
			report.SchemaCompliance*100))
	}
	if report.DataQuality < qualityThreshold {
		report.Recommendations = append(report.Recommendations,
			"extracted samples are missing many fields; add or fix detail selectors for the optional fields")
	}
	return report
}

// fieldPresence computes the weighted presence of report fields across
// all samples.
func fieldPresence(samples []Sample) float64 {
	total := 0.0
	score := 0.0
	for _, sample := range samples {
		for _, field := range requiredReportFields {
			total += 1.0
			if v, ok := sample[field]; ok && v.Value != "" {
				score += 1.0
			}
		}
		for _, field := range optionalReportFields {
			total += 0.5
			if v, ok := sample[field]; ok && v.Value != "" {
				score += 0.5
			}
		}
	}
	if total == 0 {
		return 0
	}
	return score / total
}

// sampleToItem converts tagged field values into the normalizer's item
// shape.
func sampleToItem(sample Sample) normalize.Item {
	item := normalize.Item{}
	for field, value := range sample {
		switch field {
		case "title":
			item.Title = value.Value
		case "description":
			item.Description = value.Value
		case "startDate":
			item.StartDate = value.Value
		case "endDate":
			item.EndDate = value.Value
		case "address":
			item.Address = value.Value
		case "email":
			item.Email = value.Value
		case "phone":
			item.Phone = value.Value
		case "website":
			item.Website = value.Value
		case "images", "image":
			if value.Value != "" {
				item.Images = append(item.Images, value.Value)
			}
		default:
			if value.Kind == plan.KindDate && value.Value != "" {
				item.Dates = append(item.Dates, value.Value)
			}
		}
	}
	return item
}
