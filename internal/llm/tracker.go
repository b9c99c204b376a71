package llm

import "sync"

// Usage accumulates per-provider call accounting.
type Usage struct {
	Calls      int `json:"calls"`
	Failures   int `json:"failures"`
	TokensUsed int `json:"tokensUsed"`
}

// Tracker records LLM usage for one synthesis session. It is owned by
// the caller of the pipeline and passed by injection; there is no
// process-wide instance. Reset starts a fresh session.
type Tracker struct {
	mu    sync.Mutex
	usage map[string]*Usage
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{usage: map[string]*Usage{}}
}

// Record notes one call outcome for a provider.
func (t *Tracker) Record(provider string, tokens int, failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u, ok := t.usage[provider]
	if !ok {
		u = &Usage{}
		t.usage[provider] = u
	}
	u.Calls++
	u.TokensUsed += tokens
	if failed {
		u.Failures++
	}
}

// Snapshot returns a copy of the accumulated usage.
func (t *Tracker) Snapshot() map[string]Usage {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]Usage, len(t.usage))
	for name, u := range t.usage {
		out[name] = *u
	}
	return out
}

// Reset clears the tracker for a new session.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage = map[string]*Usage{}
}
