package browser

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/planwright/planwright/internal/plan"
)

// Chromedp runs sessions on headless Chrome through the DevTools
// protocol. One Chromedp value can serve many sessions; each Acquire
// starts its own allocator so sessions never share browser state.
type Chromedp struct {
	ExecPath string
	Headless bool
}

// NewChromedp creates a headless-Chrome automation backend.
func NewChromedp() *Chromedp {
	return &Chromedp{Headless: true}
}

// blockedURLPatterns translates resource-type names into URL blocking
// patterns. Coarse, but avoids per-request interception overhead.
var blockedURLPatterns = map[string][]string{
	"image": {"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico"},
	"media": {"*.mp4", "*.webm", "*.mp3", "*.ogg", "*.wav", "*.avi"},
	"font":  {"*.woff", "*.woff2", "*.ttf", "*.otf", "*.eot"},
}

// Acquire starts an isolated browser session.
func (c *Chromedp) Acquire(ctx context.Context, cfg SessionConfig) (Session, error) {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-service-autorun", true),
	}
	if c.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	}
	if c.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(c.ExecPath))
	}
	if cfg.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight))
	}
	if cfg.MaxMemoryMB > 0 {
		allocOpts = append(allocOpts, chromedp.Flag("js-flags", fmt.Sprintf("--max-old-space-size=%d", cfg.MaxMemoryMB)))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &chromedpSession{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
	}

	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		if _, ok := ev.(*network.EventRequestWillBeSent); ok {
			atomic.AddInt64(&s.requests, 1)
		}
	})

	setup := []chromedp.Action{network.Enable()}
	if patterns := blockedPatterns(cfg.BlockedResourceTypes); len(patterns) > 0 {
		setup = append(setup, network.SetBlockedURLs(patterns))
	}
	if cfg.Locale != "" {
		setup = append(setup, emulation.SetLocaleOverride().WithLocale(cfg.Locale))
	}
	if cfg.TimezoneID != "" {
		setup = append(setup, emulation.SetTimezoneOverride(cfg.TimezoneID))
	}

	startCtx, startCancel := startupContext(ctx, browserCtx)
	defer startCancel()
	if err := chromedp.Run(startCtx, setup...); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser session: %w", err)
	}
	return s, nil
}

// startupTimeout bounds browser launch plus session setup.
const startupTimeout = 30 * time.Second

// startupContext derives the context for the first Run. It must descend
// from the chromedp-created browser context, which is what launches the
// browser; a plain caller context would be rejected outright. The
// caller's context still cancels the startup through AfterFunc.
func startupContext(callerCtx, browserCtx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(browserCtx, startupTimeout)
	stop := context.AfterFunc(callerCtx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func blockedPatterns(types []string) []string {
	var patterns []string
	for _, t := range types {
		patterns = append(patterns, blockedURLPatterns[strings.ToLower(t)]...)
	}
	return patterns
}

type chromedpSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	requests    int64
	closed      atomic.Bool
}

func (s *chromedpSession) Navigate(ctx context.Context, url string, wait WaitCondition, timeout time.Duration) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	runCtx, cancel := s.bounded(ctx, timeout)
	defer cancel()

	actions := []chromedp.Action{chromedp.Navigate(url)}
	switch wait {
	case WaitDOMContentLoaded:
		actions = append(actions, chromedp.WaitReady("body", chromedp.ByQuery))
	case WaitNetworkIdle:
		actions = append(actions,
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(500*time.Millisecond))
	default:
		actions = append(actions, chromedp.WaitVisible("body", chromedp.ByQuery))
	}
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (s *chromedpSession) Count(ctx context.Context, selector string) (int, error) {
	if s.closed.Load() {
		return 0, ErrSessionClosed
	}
	runCtx, cancel := s.bounded(ctx, 10*time.Second)
	defer cancel()

	var count int
	script := fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(selector))
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &count)); err != nil {
		return 0, fmt.Errorf("count %q: %w", selector, err)
	}
	return count, nil
}

// elementsScript observes matched elements with visibility, bounding
// box and a short text preview.
const elementsScript = `(() => {
	const out = [];
	const nodes = document.querySelectorAll(%s);
	const limit = Math.min(nodes.length, %d);
	for (let i = 0; i < limit; i++) {
		const el = nodes[i];
		const rect = el.getBoundingClientRect();
		out.push({
			selector: %s,
			visible: rect.width > 0 && rect.height > 0,
			box: {x: rect.x, y: rect.y, width: rect.width, height: rect.height},
			text: (el.textContent || '').trim().slice(0, 200),
			tag: el.tagName.toLowerCase(),
		});
	}
	return out;
})()`

func (s *chromedpSession) Elements(ctx context.Context, selector string, limit int) ([]Element, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	runCtx, cancel := s.bounded(ctx, 10*time.Second)
	defer cancel()

	script := fmt.Sprintf(elementsScript, jsString(selector), limit, jsString(selector))
	var elements []Element
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &elements)); err != nil {
		return nil, fmt.Errorf("observe %q: %w", selector, err)
	}
	return elements, nil
}

// extractScript resolves each field selector within the scoped item
// first and falls back to a page-scoped lookup. URL-ish fields read
// href/src, everything else reads trimmed text.
const extractScript = `(() => {
	const items = document.querySelectorAll(%s);
	const scope = items[%d] || null;
	const fields = %s;
	const out = {};
	for (const f of fields) {
		let el = scope ? scope.querySelector(f.selector) : null;
		if (!el) el = document.querySelector(f.selector);
		if (!el) continue;
		let value = '';
		if (f.kind === 'url' || f.kind === 'image') {
			value = el.href || el.src || el.getAttribute('href') || el.getAttribute('src') || '';
		}
		if (!value) value = (el.textContent || '').trim();
		if (value) out[f.field] = value;
	}
	return out;
})()`

func (s *chromedpSession) ExtractFields(ctx context.Context, itemSelector string, itemIndex int, fields []FieldRequest) (map[string]plan.FieldValue, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	runCtx, cancel := s.bounded(ctx, 15*time.Second)
	defer cancel()

	type fieldSpec struct {
		Field    string `json:"field"`
		Selector string `json:"selector"`
		Kind     string `json:"kind"`
	}
	specs := make([]fieldSpec, 0, len(fields))
	for _, f := range fields {
		specs = append(specs, fieldSpec{Field: f.Field, Selector: f.Selector, Kind: string(f.Kind)})
	}
	encoded, err := sonic.MarshalString(specs)
	if err != nil {
		return nil, fmt.Errorf("encode field requests: %w", err)
	}

	script := fmt.Sprintf(extractScript, jsString(itemSelector), itemIndex, encoded)
	raw := map[string]string{}
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &raw)); err != nil {
		return nil, fmt.Errorf("extract fields: %w", err)
	}

	values := make(map[string]plan.FieldValue, len(raw))
	for _, f := range fields {
		v, ok := raw[f.Field]
		if !ok || v == "" {
			continue
		}
		values[f.Field] = plan.FieldValue{Kind: f.Kind, Value: v}
	}
	return values, nil
}

func (s *chromedpSession) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	runCtx, cancel := s.bounded(ctx, 15*time.Second)
	defer cancel()

	var shot []byte
	var action chromedp.Action
	if fullPage {
		action = chromedp.FullScreenshot(&shot, 80)
	} else {
		action = chromedp.CaptureScreenshot(&shot)
	}
	if err := chromedp.Run(runCtx, action); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return shot, nil
}

func (s *chromedpSession) RequestCount() int {
	return int(atomic.LoadInt64(&s.requests))
}

func (s *chromedpSession) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cancel()
	s.allocCancel()
	return nil
}

// bounded derives a run context tied to both the caller's context and
// the session lifetime.
func (s *chromedpSession) bounded(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func jsString(s string) string {
	encoded, err := sonic.MarshalString(s)
	if err != nil {
		return `""`
	}
	return encoded
}
