// logring.go — bounded console log ring (spec §3 "Console log buffer",
// component C5 "Log capture").
//
// Accessed from multiple threads: the host's log handler may be invoked from
// any thread, not just the UI thread (spec §5), so this type is protected by
// its own mutex rather than relying on UI-thread affinity like the registry.
package monitor

import (
	"regexp"
	"sync"

	"github.com/ssss2art/qtmcp/internal/types"
)

const ringCapacity = 1000

// LogRing is a capacity-bounded FIFO of captured host log messages.
type LogRing struct {
	mu      sync.Mutex
	entries []types.LogEntry // oldest first
	total   int64            // monotonic count of everything ever added
}

// NewLogRing returns an empty ring.
func NewLogRing() *LogRing {
	return &LogRing{entries: make([]types.LogEntry, 0, ringCapacity)}
}

// Add appends an entry, evicting the oldest if the ring is at capacity.
func (r *LogRing) Add(e types.LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) >= ringCapacity {
		r.entries = append(r.entries[1:], e)
	} else {
		r.entries = append(r.entries, e)
	}
	r.total++
}

// Total returns the number of entries ever added, including evicted ones.
func (r *LogRing) Total() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Query returns entries newest-first, optionally filtered by a compiled
// regex (matched against Text) and/or restricted to error-severity entries,
// capped at limit (0 means unlimited).
func (r *LogRing) Query(filter *regexp.Regexp, errorsOnly bool, limit int) []types.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []types.LogEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if errorsOnly && e.Severity != types.SeverityError {
			continue
		}
		if filter != nil && !filter.MatchString(e.Text) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
