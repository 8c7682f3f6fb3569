package leave

import (
	"sync"
)

// History is an append-only monthly time series, one bucket per month.
// It is safe for concurrent use.
type History struct {
	mu      sync.RWMutex
	buckets map[string]MonthlyBucket
}

// NewHistory seeds the series. Later duplicates of a month are ignored.
func NewHistory(seed []MonthlyBucket) *History {
	h := &History{buckets: make(map[string]MonthlyBucket, len(seed))}
	for _, b := range seed {
		h.Record(b)
	}
	return h
}

// Record stores a bucket unless its month is already present.
// Returns false when the month was already recorded.
func (h *History) Record(b MonthlyBucket) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.buckets[b.Month]; ok {
		return false
	}
	h.buckets[b.Month] = b
	return true
}

func (h *History) Has(month string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.buckets[month]
	return ok
}

// Buckets returns the series sorted by month.
func (h *History) Buckets() []MonthlyBucket {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]MonthlyBucket, 0, len(h.buckets))
	for _, b := range h.buckets {
		out = append(out, b)
	}
	sortBuckets(out)
	return out
}
