package detection

import (
	"sync"

	"github.com/unilert/unilert/pkg/Logger"
)

// History is the bounded in-memory record of positive detections, newest
// first. Mutations are persisted through the store; persistence failures are
// logged and the in-memory state stays authoritative.
type History struct {
	mu         sync.RWMutex
	detections []Detection
	limit      int
	store      Store
	logger     *Logger.Logger
}

func NewHistory(limit int, store Store, logger *Logger.Logger) *History {
	if limit <= 0 {
		limit = 100
	}
	h := &History{limit: limit, store: store, logger: logger}

	if err := store.Load(StoreKeyHistory, &h.detections); err != nil {
		logger.Warnf("failed to load detection history, starting empty: %v", err)
		h.detections = nil
	}
	if len(h.detections) > h.limit {
		h.detections = h.detections[:h.limit]
	}
	return h
}

// Add prepends a detection, evicting the oldest entry past the limit.
func (h *History) Add(d Detection) {
	h.mu.Lock()
	h.detections = append([]Detection{d}, h.detections...)
	if len(h.detections) > h.limit {
		h.detections = h.detections[:h.limit]
	}
	snapshot := append([]Detection(nil), h.detections...)
	h.mu.Unlock()

	h.persist(snapshot)
}

// All returns the detections newest first.
func (h *History) All() []Detection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Detection(nil), h.detections...)
}

// Len reports the current entry count.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.detections)
}

// Clear drops all entries, in memory and persisted.
func (h *History) Clear() {
	h.mu.Lock()
	h.detections = nil
	h.mu.Unlock()

	h.persist([]Detection{})
}

func (h *History) persist(snapshot []Detection) {
	if err := h.store.Save(StoreKeyHistory, snapshot); err != nil {
		h.logger.Errorf("failed to persist detection history: %v", err)
	}
}
