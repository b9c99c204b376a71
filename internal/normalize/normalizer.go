// Package normalize validates and normalizes extracted items
// independently of how they were extracted. The pipeline is stateless
// per item and idempotent: normalizing an already-normalized item
// changes nothing.
package normalize

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Field length bounds. Violations warn but keep the value.
const (
	maxTitleLen       = 500
	minTitleLen       = 3
	maxDescriptionLen = 5000
)

var (
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9 ()\/.\-]{5,25}$`)
)

// Normalizer runs the per-item pipeline. Safe for concurrent use.
type Normalizer struct {
	lexicons []Lexicon
	now      func() time.Time
}

// New creates a normalizer with the default locale lexicons.
func New() *Normalizer {
	return NewWithLexicons(DefaultLexicons())
}

// NewWithLexicons creates a normalizer with custom locale lexicons.
func NewWithLexicons(lexicons []Lexicon) *Normalizer {
	return &Normalizer{
		lexicons: lexicons,
		now:      time.Now,
	}
}

// Normalize validates and normalizes one item. The returned result
// carries the normalized copy; the input is not mutated.
func (n *Normalizer) Normalize(item Item, baseURL string) Result {
	res := Result{Item: item}

	n.normalizeText(&res)
	n.normalizeDates(&res)
	n.normalizeImages(&res, baseURL)
	n.normalizeLanguage(&res)
	n.normalizeContact(&res)
	n.normalizeNumeric(&res)

	res.IsValid = len(res.Errors) == 0
	res.Quality = n.quality(&res)
	return res
}

func (r *Result) addError(field, message string) {
	r.Errors = append(r.Errors, Issue{Field: field, Message: message})
}

func (r *Result) addWarning(field, message string) {
	r.Warnings = append(r.Warnings, Issue{Field: field, Message: message})
}

// normalizeText enforces the required text fields and length bounds.
func (n *Normalizer) normalizeText(res *Result) {
	res.Item.Title = strings.TrimSpace(res.Item.Title)
	res.Item.Description = strings.TrimSpace(res.Item.Description)

	if res.Item.Title == "" {
		res.addError("title", "title is required")
	} else {
		if len(res.Item.Title) < minTitleLen {
			res.addWarning("title", "title is very short")
		}
		if len(res.Item.Title) > maxTitleLen {
			res.addWarning("title", "title is very long")
		}
	}

	if res.Item.Description == "" {
		res.addError("description", "description is required")
	} else if len(res.Item.Description) > maxDescriptionLen {
		res.addWarning("description", "description is very long")
	}
}

// normalizeDates canonicalizes every date field. Unparseable values
// are errors and are dropped from the item.
func (n *Normalizer) normalizeDates(res *Result) {
	now := n.now()

	normalizeOne := func(field string, value *string) {
		if *value == "" {
			return
		}
		iso, err := NormalizeDate(*value)
		if err != nil {
			res.addError(field, fmt.Sprintf("unparseable date %q", *value))
			*value = ""
			return
		}
		*value = iso
		if farFuture(iso, now) {
			res.addWarning(field, "date is more than 100 years away")
		}
	}

	normalizeOne("startDate", &res.Item.StartDate)
	normalizeOne("endDate", &res.Item.EndDate)
	normalizeOne("createdAt", &res.Item.CreatedAt)

	if len(res.Item.Dates) > 0 {
		// Fresh slice: the input item's backing array stays untouched.
		kept := make([]string, 0, len(res.Item.Dates))
		for _, raw := range res.Item.Dates {
			iso, err := NormalizeDate(raw)
			if err != nil {
				res.addError("dates", fmt.Sprintf("unparseable date %q", raw))
				continue
			}
			if farFuture(iso, now) {
				res.addWarning("dates", "date is more than 100 years away")
			}
			kept = append(kept, iso)
		}
		res.Item.Dates = kept
		if len(res.Item.Dates) == 0 {
			res.Item.Dates = nil
		}
	}

	if res.Item.StartDate != "" && res.Item.EndDate != "" && res.Item.StartDate > res.Item.EndDate {
		// Canonical ISO strings order lexicographically.
		res.addWarning("startDate", "start date is after end date")
	}
}

// normalizeImages resolves every image URL to an absolute URL. Results
// are always valid absolute URLs or dropped.
func (n *Normalizer) normalizeImages(res *Result, baseURL string) {
	if len(res.Item.Images) == 0 {
		return
	}

	var base *url.URL
	if baseURL != "" {
		if parsed, err := url.Parse(baseURL); err == nil {
			base = parsed
		}
	}

	// Fresh slice: the input item's backing array stays untouched.
	kept := make([]string, 0, len(res.Item.Images))
	for _, raw := range res.Item.Images {
		parsed, err := url.Parse(strings.TrimSpace(raw))
		if err != nil {
			res.addWarning("images", fmt.Sprintf("invalid image url %q dropped", raw))
			continue
		}
		if parsed.IsAbs() {
			kept = append(kept, parsed.String())
			continue
		}
		if base == nil {
			res.addWarning("images", fmt.Sprintf("relative image url %q without base url dropped", raw))
			continue
		}
		resolved := base.ResolveReference(parsed)
		if !resolved.IsAbs() {
			res.addWarning("images", fmt.Sprintf("unresolvable image url %q dropped", raw))
			continue
		}
		kept = append(kept, resolved.String())
	}
	res.Item.Images = kept
	if len(res.Item.Images) == 0 {
		res.Item.Images = nil
	}
}

// normalizeLanguage infers a missing language from the item text and
// validates a supplied one against the loaded lexicons.
func (n *Normalizer) normalizeLanguage(res *Result) {
	if res.Item.Language != "" {
		if !supportedLanguage(res.Item.Language, n.lexicons) {
			res.addError("language", fmt.Sprintf("unsupported language %q", res.Item.Language))
		}
		return
	}

	text := res.Item.Title + " " + res.Item.Description
	if detected := detectLanguage(text, n.lexicons); detected != "" {
		res.Item.Language = detected
		return
	}
	res.addError("language", "language missing and not detectable from content")
}

// normalizeContact validates email/phone/website formats. Failures are
// warnings; email and phone keep their value, website gains a default
// scheme when only the scheme is missing.
func (n *Normalizer) normalizeContact(res *Result) {
	if res.Item.Email != "" && !emailRe.MatchString(res.Item.Email) {
		res.addWarning("email", fmt.Sprintf("invalid email format %q", res.Item.Email))
	}
	if res.Item.Phone != "" && !phoneRe.MatchString(res.Item.Phone) {
		res.addWarning("phone", fmt.Sprintf("invalid phone format %q", res.Item.Phone))
	}
	if res.Item.Website != "" {
		parsed, err := url.Parse(res.Item.Website)
		switch {
		case err != nil:
			res.addWarning("website", fmt.Sprintf("invalid website url %q", res.Item.Website))
		case parsed.Scheme == "":
			res.Item.Website = "https://" + res.Item.Website
			res.addWarning("website", "website url missing scheme, https assumed")
		}
	}
}

// normalizeNumeric range-checks coordinates, prices and zipcode.
// Out-of-range values warn but are retained.
func (n *Normalizer) normalizeNumeric(res *Result) {
	item := &res.Item

	if item.Longitude != nil && (*item.Longitude < -180 || *item.Longitude > 180) {
		res.addWarning("longitude", "longitude out of range")
	}
	if item.Latitude != nil && (*item.Latitude < -90 || *item.Latitude > 90) {
		res.addWarning("latitude", "latitude out of range")
	}
	if item.Price != nil && *item.Price < 0 {
		res.addWarning("price", "price is negative")
	}
	if item.DiscountPrice != nil && *item.DiscountPrice < 0 {
		res.addWarning("discountPrice", "discount price is negative")
	}
	if item.Zipcode != nil && (*item.Zipcode < 0 || *item.Zipcode > 99999) {
		res.addWarning("zipcode", "zipcode out of range")
	}
}
