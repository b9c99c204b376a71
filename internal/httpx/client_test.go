package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planwright/planwright/internal/resilience"
)

func TestFetchHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>ok</body></html>")) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(DefaultOptions())

	body, err := c.FetchHTML(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "ok")
}

func TestFetchHTMLErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	opts := DefaultOptions()
	opts.MaxRetries = 0
	c := New(opts)

	_, err := c.FetchHTML(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestSetHeaderAppliesToRequests(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Accept-Language")
	}))
	defer srv.Close()

	c := New(DefaultOptions())
	c.SetHeader("Accept-Language", "de-DE")

	_, err := c.FetchHTML(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "de-DE", got)
}

func TestSetRateLimitConcurrentWithRequests(t *testing.T) {
	c := New(DefaultOptions())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := c.Request(context.Background())
			assert.NoError(t, err)
		}()
		go func(rps float64) {
			defer wg.Done()
			c.SetRateLimit(rps)
		}(float64(i * 100))
	}
	wg.Wait()
}

func TestSetRateLimitCancelledWait(t *testing.T) {
	c := New(DefaultOptions())
	c.SetRateLimit(0.001) // effectively blocks

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Request(ctx)
	assert.Error(t, err)
}

func TestBreakerStateStartsClosed(t *testing.T) {
	c := New(DefaultOptions())
	assert.Equal(t, resilience.StateClosed, c.BreakerState())
}
