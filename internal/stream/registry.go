package stream

import "sync"

// Entry is one registry slot: a channel ID and the weak handle
// registered under it.
type Entry struct {
	ID  string
	Ref Handle
}

// Registry indexes the live RX and TX endpoints by channel ID. It is
// shared across all motherboards: stream-lifecycle code registers and
// unregisters while rate-update and sync-dispatch code snapshot and
// resolve concurrently. The lock guards only the maps, never a
// hardware call.
//
// Registration is last-writer-wins: endpoints are recreated on
// reconfiguration and the newest one under an ID is the live one.
type Registry struct {
	mu sync.RWMutex
	rx map[string]Handle
	tx map[string]Handle
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rx: make(map[string]Handle),
		tx: make(map[string]Handle),
	}
}

// RegisterRx records the RX endpoint handle under id, replacing any
// prior entry.
func (r *Registry) RegisterRx(id string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rx[id] = h
}

// RegisterTx records the TX endpoint handle under id, replacing any
// prior entry.
func (r *Registry) RegisterTx(id string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tx[id] = h
}

// UnregisterRx drops the RX entry for id, if any.
func (r *Registry) UnregisterRx(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rx, id)
}

// UnregisterTx drops the TX entry for id, if any.
func (r *Registry) UnregisterTx(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tx, id)
}

// ResolveRx resolves the RX endpoint registered under id. Absence
// (never registered, unregistered, or expired) reports false.
func (r *Registry) ResolveRx(id string) (Endpoint, bool) {
	r.mu.RLock()
	h, ok := r.rx[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return h.Get()
}

// ResolveTx resolves the TX endpoint registered under id.
func (r *Registry) ResolveTx(id string) (Endpoint, bool) {
	r.mu.RLock()
	h, ok := r.tx[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return h.Get()
}

// SnapshotRx returns a consistent copy of the RX table. Order is
// unspecified and may differ between calls; no ID appears twice.
func (r *Registry) SnapshotRx() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.rx)
}

// SnapshotTx returns a consistent copy of the TX table.
func (r *Registry) SnapshotTx() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.tx)
}

func snapshot(m map[string]Handle) []Entry {
	out := make([]Entry, 0, len(m))
	for id, h := range m {
		out = append(out, Entry{ID: id, Ref: h})
	}
	return out
}
