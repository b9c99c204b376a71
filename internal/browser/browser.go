// Package browser defines the browser-automation contract consumed by
// the validation sandbox, plus a chromedp-backed implementation. The
// sandbox depends only on this contract and carries no assumption
// about how extraction code runs inside the browser.
package browser

import (
	"context"
	"errors"
	"time"

	"github.com/planwright/planwright/internal/plan"
)

// WaitCondition names the navigation settle condition.
type WaitCondition string

const (
	WaitLoad             WaitCondition = "load"
	WaitDOMContentLoaded WaitCondition = "domcontentloaded"
	WaitNetworkIdle      WaitCondition = "networkidle"
)

// Box is an element bounding box in CSS pixels.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is one matched element observation.
type Element struct {
	Selector string `json:"selector"`
	Visible  bool   `json:"visible"`
	Box      *Box   `json:"box,omitempty"`
	Text     string `json:"text,omitempty"`
	Tag      string `json:"tag,omitempty"`
}

// FieldRequest asks for one field extraction: selector plus the value
// kind the field carries.
type FieldRequest struct {
	Field    string
	Selector string
	Kind     plan.FieldKind
}

// SessionConfig bounds an isolated session. Every session is used by
// exactly one validation run and never shared.
type SessionConfig struct {
	MaxMemoryMB          int64
	BlockedResourceTypes []string
	Locale               string
	TimezoneID           string
	UserAgent            string
	ViewportWidth        int
	ViewportHeight       int
}

// DefaultSessionConfig mirrors the sandbox resource discipline:
// modest memory ceiling, heavyweight resources blocked, fixed locale.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxMemoryMB:          512,
		BlockedResourceTypes: []string{"image", "media", "font"},
		Locale:               "de-DE",
		TimezoneID:           "Europe/Berlin",
		UserAgent:            "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:        1366,
		ViewportHeight:       900,
	}
}

// ErrSessionClosed is returned by operations on a released session.
var ErrSessionClosed = errors.New("browser session closed")

// Session is one exclusive, resource-bounded browser session.
//
// Query and ExtractFields scope lookups to the element identified by
// scope selector and index when given; implementations fall back to a
// page-scoped lookup when the scoped one matches nothing.
type Session interface {
	// Navigate loads a URL and waits for the given condition.
	Navigate(ctx context.Context, url string, wait WaitCondition, timeout time.Duration) error

	// Count returns how many elements match the selector on the page.
	Count(ctx context.Context, selector string) (int, error)

	// Elements observes up to limit matched elements with boxes and
	// text previews.
	Elements(ctx context.Context, selector string, limit int) ([]Element, error)

	// ExtractFields evaluates the field requests against the
	// itemIndex-th element matched by itemSelector and returns a
	// field to tagged-value map. Missing fields are absent from the map.
	ExtractFields(ctx context.Context, itemSelector string, itemIndex int, fields []FieldRequest) (map[string]plan.FieldValue, error)

	// Screenshot captures the page (or full scrollable page) as PNG.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)

	// RequestCount reports network requests observed so far.
	RequestCount() int

	// Close releases the session and everything it opened.
	Close(ctx context.Context) error
}

// Automation acquires isolated sessions.
type Automation interface {
	Acquire(ctx context.Context, cfg SessionConfig) (Session, error)
}
