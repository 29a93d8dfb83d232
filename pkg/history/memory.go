package history

import "sync"

// MemoryOptions configures a MemoryHistory.
type MemoryOptions struct {
	// InitialEntries are the starting stack; defaults to ["/"].
	InitialEntries []string

	// InitialIndex selects the current entry; defaults to the last one.
	InitialIndex *int
}

// MemoryHistory is an in-memory History. It is safe for concurrent use;
// listeners run on the goroutine that called Go, after the internal
// lock is released.
type MemoryHistory struct {
	mu        sync.Mutex
	entries   []Location
	index     int
	action    Action
	listeners map[int]Listener
	nextID    int
}

// NewMemoryHistory creates a MemoryHistory.
func NewMemoryHistory(opts MemoryOptions) *MemoryHistory {
	initial := opts.InitialEntries
	if len(initial) == 0 {
		initial = []string{"/"}
	}

	h := &MemoryHistory{
		action:    Pop,
		listeners: make(map[int]Listener),
	}
	for i, to := range initial {
		loc := NewLocation(to, nil)
		if i == 0 {
			loc.Key = DefaultKey
		}
		h.entries = append(h.entries, loc)
	}

	h.index = len(h.entries) - 1
	if opts.InitialIndex != nil {
		h.index = h.clamp(*opts.InitialIndex)
	}
	return h
}

func (h *MemoryHistory) clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > len(h.entries)-1 {
		return len(h.entries) - 1
	}
	return n
}

// Action implements History.
func (h *MemoryHistory) Action() Action {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.action
}

// Location implements History.
func (h *MemoryHistory) Location() Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

// Index returns the position of the current entry.
func (h *MemoryHistory) Index() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index
}

// Entries returns a copy of the stack.
func (h *MemoryHistory) Entries() []Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Location(nil), h.entries...)
}

// Push implements History.
func (h *MemoryHistory) Push(loc Location) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if loc.Key == "" {
		loc.Key = NewKey()
	}
	h.action = Push
	h.index++
	h.entries = append(h.entries[:h.index], loc)
}

// Replace implements History.
func (h *MemoryHistory) Replace(loc Location) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if loc.Key == "" {
		loc.Key = NewKey()
	}
	h.action = Replace
	h.entries[h.index] = loc
}

// Go implements History. Moves past either end are clamped; a move that
// doesn't change the index notifies nobody.
func (h *MemoryHistory) Go(delta int) {
	h.mu.Lock()
	next := h.clamp(h.index + delta)
	moved := next - h.index
	if moved == 0 {
		h.mu.Unlock()
		return
	}
	h.index = next
	h.action = Pop
	update := Update{Action: Pop, Location: h.entries[next], Delta: moved}
	listeners := make([]Listener, 0, len(h.listeners))
	for id := 0; id < h.nextID; id++ {
		if fn, ok := h.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(update)
	}
}

// Back is Go(-1).
func (h *MemoryHistory) Back() { h.Go(-1) }

// Forward is Go(1).
func (h *MemoryHistory) Forward() { h.Go(1) }

// Listen implements History.
func (h *MemoryHistory) Listen(fn Listener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
	}
}

// CreateHref implements History.
func (h *MemoryHistory) CreateHref(loc Location) string {
	return loc.String()
}
