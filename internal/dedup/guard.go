// Package dedup suppresses re-printing of orders that were already admitted.
//
// A guard remembers a bounded number of order ids in insertion order. When
// the history is full, the oldest recorded id is forgotten first, regardless
// of how recently it was checked.
package dedup

import (
	"container/list"
	"context"
	"sync"
)

// DefaultMaxHistory is the number of order ids remembered by default.
const DefaultMaxHistory = 100

// Guard records order ids and reports repeats.
type Guard interface {
	// CheckAndRecord returns false the first time an id is seen (and records
	// it), true while the id remains in the history.
	CheckAndRecord(ctx context.Context, orderID string) (bool, error)
	// Forget removes an id recorded for an order that never made it into
	// the queue, so a retry is admitted again.
	Forget(ctx context.Context, orderID string) error
}

// MemoryGuard is a process-local Guard.
type MemoryGuard struct {
	mu    sync.Mutex
	max   int
	seen  map[string]*list.Element
	order *list.List // front = oldest
}

// NewMemoryGuard returns a guard remembering up to max ids.
// A non-positive max falls back to DefaultMaxHistory.
func NewMemoryGuard(max int) *MemoryGuard {
	if max <= 0 {
		max = DefaultMaxHistory
	}
	return &MemoryGuard{
		max:   max,
		seen:  make(map[string]*list.Element, max+1),
		order: list.New(),
	}
}

// CheckAndRecord implements Guard. It never fails.
func (g *MemoryGuard) CheckAndRecord(_ context.Context, orderID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.seen[orderID]; ok {
		return true, nil
	}
	g.seen[orderID] = g.order.PushBack(orderID)
	if g.order.Len() > g.max {
		oldest := g.order.Front()
		g.order.Remove(oldest)
		delete(g.seen, oldest.Value.(string))
	}
	return false, nil
}

// Forget implements Guard. Unknown ids are ignored.
func (g *MemoryGuard) Forget(_ context.Context, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if el, ok := g.seen[orderID]; ok {
		g.order.Remove(el)
		delete(g.seen, orderID)
	}
	return nil
}

// Len is the number of ids currently remembered.
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.order.Len()
}
