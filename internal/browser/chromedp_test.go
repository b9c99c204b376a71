package browser

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLazyBrowserContext(t *testing.T) context.Context {
	t.Helper()
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background())
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	t.Cleanup(func() {
		browserCancel()
		allocCancel()
	})
	return browserCtx
}

func TestStartupContextDescendsFromBrowserContext(t *testing.T) {
	browserCtx := newLazyBrowserContext(t)

	startCtx, cancel := startupContext(context.Background(), browserCtx)
	defer cancel()

	// Session setup runs through chromedp; the run context must carry
	// the browser context's identity or the first Run is rejected
	// before the browser ever starts.
	require.NotNil(t, chromedp.FromContext(startCtx))

	deadline, ok := startCtx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(startupTimeout), deadline, time.Second)
}

func TestStartupContextCancelledByCaller(t *testing.T) {
	browserCtx := newLazyBrowserContext(t)

	callerCtx, callerCancel := context.WithCancel(context.Background())
	startCtx, cancel := startupContext(callerCtx, browserCtx)
	defer cancel()

	callerCancel()

	select {
	case <-startCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("startup context not cancelled by caller")
	}
}

func TestBlockedPatterns(t *testing.T) {
	patterns := blockedPatterns([]string{"image", "FONT", "unknown"})

	assert.Contains(t, patterns, "*.png")
	assert.Contains(t, patterns, "*.woff2")
	assert.NotContains(t, patterns, "*.mp4")

	assert.Empty(t, blockedPatterns(nil))
}

func TestJSString(t *testing.T) {
	assert.Equal(t, `".event-item > a"`, jsString(".event-item > a"))
	assert.Equal(t, `"quote \" inside"`, jsString(`quote " inside`))
}
