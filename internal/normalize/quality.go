package normalize

import "math"

// Quality blend weights. Fixed by design; completeness and accuracy
// dominate, consistency breaks ties.
const (
	weightCompleteness = 0.4
	weightAccuracy     = 0.4
	weightConsistency  = 0.2
)

// quality computes the per-item metrics from the normalized item.
func (n *Normalizer) quality(res *Result) Metrics {
	m := Metrics{
		Completeness: completeness(&res.Item),
		Accuracy:     accuracy(&res.Item),
		Consistency:  consistency(&res.Item),
	}
	m.Overall = round2(weightCompleteness*m.Completeness +
		weightAccuracy*m.Accuracy +
		weightConsistency*m.Consistency)
	return m
}

// completeness measures field presence; required fields weigh double.
func completeness(item *Item) float64 {
	type check struct {
		present bool
		weight  float64
	}

	checks := []check{
		{item.Title != "", 2},
		{item.Description != "", 2},
		{item.Language != "", 2},
		{item.StartDate != "", 1},
		{item.EndDate != "", 1},
		{len(item.Images) > 0, 1},
		{item.Address != "", 1},
		{item.Email != "", 1},
		{item.Phone != "", 1},
		{item.Website != "", 1},
		{item.Longitude != nil && item.Latitude != nil, 1},
		{item.Price != nil, 1},
	}

	total := 0.0
	present := 0.0
	for _, c := range checks {
		total += c.weight
		if c.present {
			present += c.weight
		}
	}
	return present / total
}

// accuracy measures format-correctness of populated fields. Items with
// nothing checkable score full accuracy.
func accuracy(item *Item) float64 {
	checked := 0
	correct := 0

	checkDate := func(v string) {
		if v == "" {
			return
		}
		checked++
		if isValidISO(v) {
			correct++
		}
	}
	checkDate(item.StartDate)
	checkDate(item.EndDate)
	checkDate(item.CreatedAt)
	for _, d := range item.Dates {
		checkDate(d)
	}

	if item.Email != "" {
		checked++
		if emailRe.MatchString(item.Email) {
			correct++
		}
	}
	if item.Website != "" {
		checked++
		if isAbsoluteURL(item.Website) {
			correct++
		}
	}
	for _, img := range item.Images {
		checked++
		if isAbsoluteURL(img) {
			correct++
		}
	}
	if item.Longitude != nil {
		checked++
		if *item.Longitude >= -180 && *item.Longitude <= 180 {
			correct++
		}
	}
	if item.Latitude != nil {
		checked++
		if *item.Latitude >= -90 && *item.Latitude <= 90 {
			correct++
		}
	}

	if checked == 0 {
		return 1
	}
	return float64(correct) / float64(checked)
}

// consistency checks cross-field coherence: date ordering, price
// ordering and coordinate-pair completeness. Items with no applicable
// checks score full consistency.
func consistency(item *Item) float64 {
	checked := 0
	passed := 0

	if item.StartDate != "" && item.EndDate != "" {
		checked++
		if item.StartDate <= item.EndDate {
			passed++
		}
	}
	if item.Price != nil && item.DiscountPrice != nil {
		checked++
		if *item.DiscountPrice <= *item.Price {
			passed++
		}
	}
	if item.Longitude != nil || item.Latitude != nil {
		checked++
		if item.Longitude != nil && item.Latitude != nil {
			passed++
		}
	}

	if checked == 0 {
		return 1
	}
	return float64(passed) / float64(checked)
}

func isAbsoluteURL(v string) bool {
	return len(v) > 8 && (v[:7] == "http://" || v[:8] == "https://")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
