package llm

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTokenLimit(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrTokenLimit, true},
		{"wrapped sentinel", fmt.Errorf("primary: %w", ErrTokenLimit), true},
		{"openai phrasing", errors.New("This model's maximum context length is 8192 tokens"), true},
		{"anthropic phrasing", errors.New("prompt is too long: 210000 tokens"), true},
		{"api code", errors.New("400 context_length_exceeded"), true},
		{"generic token limit", errors.New("Token limit reached for this request"), true},
		{"unrelated", errors.New("connection refused"), false},
		{"mentions tokens only", errors.New("invalid api token"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTokenLimit(tt.err))
		})
	}
}

func TestTrackerRecord(t *testing.T) {
	tr := NewTracker()

	tr.Record("primary", 100, false)
	tr.Record("primary", 50, true)
	tr.Record("secondary", 0, true)

	usage := tr.Snapshot()
	assert.Equal(t, 2, usage["primary"].Calls)
	assert.Equal(t, 1, usage["primary"].Failures)
	assert.Equal(t, 150, usage["primary"].TokensUsed)
	assert.Equal(t, 1, usage["secondary"].Failures)
}

func TestTrackerSnapshotIsCopy(t *testing.T) {
	tr := NewTracker()
	tr.Record("primary", 10, false)

	snap := tr.Snapshot()
	tr.Record("primary", 10, false)

	assert.Equal(t, 10, snap["primary"].TokensUsed, "snapshot must not track later calls")
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker()
	tr.Record("primary", 10, false)
	tr.Reset()

	assert.Empty(t, tr.Snapshot())
}

func TestTrackerConcurrent(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Record("primary", 1, false)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, tr.Snapshot()["primary"].Calls)
}
