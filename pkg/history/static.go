package history

import "sync"

// StaticHistory is a History fixed at one location, for rendering a
// single request on a server. Push and Replace don't move it; the last
// attempt is recorded so the caller can answer with an HTTP redirect.
type StaticHistory struct {
	location Location

	mu        sync.Mutex
	attempted *Location
	action    Action
}

// NewStaticHistory creates a StaticHistory at to.
func NewStaticHistory(to string) *StaticHistory {
	loc := NewLocation(to, nil)
	loc.Key = DefaultKey
	return &StaticHistory{location: loc}
}

// Action implements History.
func (h *StaticHistory) Action() Action { return Pop }

// Location implements History.
func (h *StaticHistory) Location() Location { return h.location }

// Push implements History.
func (h *StaticHistory) Push(loc Location) { h.record(Push, loc) }

// Replace implements History.
func (h *StaticHistory) Replace(loc Location) { h.record(Replace, loc) }

func (h *StaticHistory) record(action Action, loc Location) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attempted = &loc
	h.action = action
}

// Go implements History; a static history cannot move.
func (h *StaticHistory) Go(int) {}

// Listen implements History; listeners are never called.
func (h *StaticHistory) Listen(Listener) func() { return func() {} }

// CreateHref implements History.
func (h *StaticHistory) CreateHref(loc Location) string { return loc.String() }

// Attempted returns the last location the router tried to push or
// replace, if any.
func (h *StaticHistory) Attempted() (Location, Action, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.attempted == nil {
		return Location{}, "", false
	}
	return *h.attempted, h.action, true
}
