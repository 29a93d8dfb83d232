package navigation

import (
	"sort"

	"github.com/vango-dev/waypoint/pkg/history"
)

// BlockerArgs describe a navigation a blocker may veto.
type BlockerArgs struct {
	CurrentLocation history.Location
	NextLocation    history.Location
	HistoryAction   history.Action
}

// BlockerFunc returns true to block the navigation.
type BlockerFunc func(BlockerArgs) bool

// Block registers fn. Blocked PUSH and REPLACE navigations return
// ErrBlocked; a blocked POP is reverted. Redirects are never blocked.
func (r *Router) Block(fn BlockerFunc) (unblock func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextBlocker
	r.nextBlocker++
	r.blockers[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.blockers, id)
	}
}

func (r *Router) blocked(current, next history.Location, action history.Action) bool {
	r.mu.Lock()
	ids := make([]int, 0, len(r.blockers))
	for id := range r.blockers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]BlockerFunc, len(ids))
	for i, id := range ids {
		fns[i] = r.blockers[id]
	}
	r.mu.Unlock()

	args := BlockerArgs{CurrentLocation: current, NextLocation: next, HistoryAction: action}
	for _, fn := range fns {
		if fn(args) {
			return true
		}
	}
	return false
}
