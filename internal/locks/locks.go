// Package locks provides per-key mutual exclusion. The ledger and the trade
// engine share one PerKey instance so that every mutation of a personality's
// aura score row (score updates, buys, sells, lazy creation) runs in a
// serialized read-compute-write section for that personality.
//
// Single-instance discipline; for horizontal scaling, replace with
// distributed locking or database-level optimistic concurrency.
package locks

import "sync"

// PerKey is a set of named mutexes. Locks are created lazily and never
// discarded; key cardinality equals the number of personalities, which is
// small.
type PerKey struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPerKey creates an empty per-key lock set.
func NewPerKey() *PerKey {
	return &PerKey{locks: make(map[string]*sync.Mutex)}
}

func (p *PerKey) get(key string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.locks[key]
	if !ok {
		m = &sync.Mutex{}
		p.locks[key] = m
	}
	return m
}

// Lock acquires the mutex for key, creating it on first use.
func (p *PerKey) Lock(key string) {
	p.get(key).Lock()
}

// Unlock releases the mutex for key.
func (p *PerKey) Unlock(key string) {
	p.get(key).Unlock()
}
