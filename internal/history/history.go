package history

import (
	"sync"
	"time"

	"github.com/schwarzekatzer/netwatchdog/internal/probe"
)

// Entry is one recorded monitor event: a probe battery, a state transition,
// or a reboot decision.
type Entry struct {
	Time   time.Time     `json:"time"`
	Kind   string        `json:"kind"` // "probe" | "state" | "reboot"
	Detail string        `json:"detail,omitempty"`
	Report *probe.Report `json:"report,omitempty"`
}

// Ring keeps the most recent entries for the status API. The monitor loop is
// the only writer; API handlers read concurrently.
type Ring struct {
	mu      sync.RWMutex
	max     int
	entries []Entry
}

func New(max int) *Ring {
	if max < 1 {
		max = 256
	}
	return &Ring{
		max:     max,
		entries: make([]Entry, 0, max),
	}
}

func (r *Ring) Append(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	if len(r.entries) > r.max {
		r.entries = r.entries[len(r.entries)-r.max:]
	}
}

// Recent returns up to n entries, newest last. n <= 0 means everything kept.
func (r *Ring) Recent(n int) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 || n > len(r.entries) {
		n = len(r.entries)
	}
	out := make([]Entry, n)
	copy(out, r.entries[len(r.entries)-n:])
	return out
}
