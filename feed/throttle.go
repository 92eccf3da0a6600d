package feed

import (
	"sync"
	"time"

	"hud/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var refreshCandidates = promauto.NewCounter(prometheus.CounterOpts{
	Name: "hud_refresh_candidates_total",
	Help: "Number of sources selected for a background refresh",
})

// Throttler decides whether a source is stale enough, and not recently
// requested, to trigger a background refresh. State is in-memory and
// single-process; it does not survive restarts or coordinate across
// instances.
type Throttler struct {
	mu         sync.Mutex
	requested  map[string]time.Time
	window     time.Duration
	staleAfter time.Duration

	// Now is swappable for tests.
	Now func() time.Time
}

func NewThrottler(window, staleAfter time.Duration) *Throttler {
	return &Throttler{
		requested:  make(map[string]time.Time),
		window:     window,
		staleAfter: staleAfter,
		Now:        time.Now,
	}
}

// ShouldRefresh reports whether a refresh should be issued for source this
// cycle. A candidate is recorded as requested immediately, before the refresh
// resolves, so concurrent requests inside the window trigger only once.
func (t *Throttler) ShouldRefresh(source models.Source) bool {
	if source.Kind != models.KindRSS {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.Now()
	if last, ok := t.requested[source.ID]; ok && now.Sub(last) < t.window {
		return false
	}
	if source.LastPolledAt != nil && now.Sub(*source.LastPolledAt) < t.staleAfter {
		return false
	}

	t.requested[source.ID] = now
	refreshCandidates.Inc()
	return true
}

// Forget drops the request-time record for a source, e.g. after deletion.
func (t *Throttler) Forget(sourceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.requested, sourceID)
}
