package hftcore

import "sync"

// UpdateHandler consumes batches of book notifications on the drain
// goroutine. The slice is reused by the caller after OnUpdates returns, so
// implementations must copy anything they keep.
type UpdateHandler interface {
	OnUpdates(updates []Update)
}

// UpdateHandlerFunc adapts a function to UpdateHandler.
type UpdateHandlerFunc func(updates []Update)

// OnUpdates calls f.
func (f UpdateHandlerFunc) OnUpdates(updates []Update) {
	f(updates)
}

// MemoryUpdates stores updates in memory, useful for testing.
type MemoryUpdates struct {
	mu      sync.RWMutex
	Updates []Update
}

// NewMemoryUpdates creates a new MemoryUpdates.
func NewMemoryUpdates() *MemoryUpdates {
	return &MemoryUpdates{
		Updates: make([]Update, 0),
	}
}

// OnUpdates appends the batch.
func (m *MemoryUpdates) OnUpdates(updates []Update) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates = append(m.Updates, updates...)
}

// Count returns the number of updates stored.
func (m *MemoryUpdates) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Updates)
}

// Get returns the update at the specified index.
func (m *MemoryUpdates) Get(index int) Update {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Updates[index]
}

// Snapshot returns a copy of all updates stored.
func (m *MemoryUpdates) Snapshot() []Update {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Update, len(m.Updates))
	copy(out, m.Updates)
	return out
}

// DiscardUpdates drops every update, useful for benchmarking.
type DiscardUpdates struct{}

// OnUpdates does nothing.
func (DiscardUpdates) OnUpdates([]Update) {}

// FanOut hands every batch to each handler in order.
type FanOut []UpdateHandler

// OnUpdates forwards the batch.
func (f FanOut) OnUpdates(updates []Update) {
	for _, h := range f {
		h.OnUpdates(updates)
	}
}
