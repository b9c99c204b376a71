package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/planwright/planwright/internal/httpx"
	"github.com/planwright/planwright/internal/synth"
)

func TestHealthReportsBreakerState(t *testing.T) {
	fetcher := httpx.New(httpx.DefaultOptions())
	p := New(fetcher, nil, nil, nil, nil, nil, nil, synth.DefaultOptions(), nil)

	checks := p.Health()

	assert.Equal(t, "closed", checks["http_breaker"])
}

func TestHealthWithoutFetcher(t *testing.T) {
	p := New(nil, nil, nil, nil, nil, nil, nil, synth.DefaultOptions(), nil)

	assert.Empty(t, p.Health())
}
