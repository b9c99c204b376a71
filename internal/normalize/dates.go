package normalize

import (
	"fmt"
	"time"
)

// isoFormat is the canonical output for every normalized date:
// UTC with millisecond precision.
const isoFormat = "2006-01-02T15:04:05.000Z"

// nativeFormats are tried first; they cover already-normalized values
// so normalization is idempotent.
var nativeFormats = []string{
	isoFormat,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// dayFirstFormats cover European numeric dates.
var dayFirstFormats = []string{
	"2.1.2006", "02.01.2006",
	"2/1/2006", "02/01/2006",
	"2-1-2006", "02-01-2006",
}

// isoishFormats cover year-first and US month-first numeric dates.
var isoishFormats = []string{
	"2006-1-2", "2006-01-02",
	"1/2/2006", "01/02/2006",
}

// parseDate attempts the parse chain: native, then day-first numeric,
// then ISO-ish numeric. The result is always UTC.
func parseDate(raw string) (time.Time, error) {
	for _, layout := range nativeFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range dayFirstFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range isoishFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

// NormalizeDate converts a raw date string to canonical ISO-8601.
func NormalizeDate(raw string) (string, error) {
	t, err := parseDate(raw)
	if err != nil {
		return "", err
	}
	return t.Format(isoFormat), nil
}

// farFuture reports whether the date lies more than 100 years from now.
func farFuture(iso string, now time.Time) bool {
	t, err := time.Parse(isoFormat, iso)
	if err != nil {
		return false
	}
	return t.After(now.AddDate(100, 0, 0)) || t.Before(now.AddDate(-100, 0, 0))
}

// isValidISO reports whether a value is already canonical ISO-8601.
func isValidISO(v string) bool {
	_, err := time.Parse(isoFormat, v)
	return err == nil
}
