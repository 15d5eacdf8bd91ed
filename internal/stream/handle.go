package stream

import "sync"

// OwnedEndpoint is the owning side of an endpoint reference. The
// stream-acquisition code that created the endpoint holds one; when it
// releases it, every Handle handed out before goes dead.
type OwnedEndpoint struct {
	mu sync.RWMutex
	ep Endpoint
}

// Own wraps an endpoint in an owning reference.
func Own(ep Endpoint) *OwnedEndpoint {
	return &OwnedEndpoint{ep: ep}
}

// Release expires the endpoint. Handles resolved afterward report
// absence. Releasing twice is harmless.
func (o *OwnedEndpoint) Release() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ep = nil
}

// Handle returns a weak, non-owning handle to the endpoint.
func (o *OwnedEndpoint) Handle() Handle {
	return Handle{owner: o}
}

// Handle is a weak reference to an endpoint. The zero Handle resolves
// to absent.
type Handle struct {
	owner *OwnedEndpoint
}

// Get resolves the handle. The second result is false once the owner
// has released the endpoint; that is a normal absence, not an error.
func (h Handle) Get() (Endpoint, bool) {
	if h.owner == nil {
		return nil, false
	}
	h.owner.mu.RLock()
	defer h.owner.mu.RUnlock()
	if h.owner.ep == nil {
		return nil, false
	}
	return h.owner.ep, true
}
