// Package history abstracts the stack of locations a router navigates
// over. MemoryHistory keeps the stack in memory (tests, non-browser
// hosts); StaticHistory is a fixed location for one-shot server renders.
//
// Push and Replace are issued by the router after it commits a
// navigation and never notify listeners. Go moves through the stack and
// notifies listeners with a POP update, which the router answers by
// running its GET pipeline against the new location.
package history

import (
	"github.com/google/uuid"

	"github.com/vango-dev/waypoint/pkg/routepath"
)

// Action is the kind of history change.
type Action string

const (
	Pop     Action = "POP"
	Push    Action = "PUSH"
	Replace Action = "REPLACE"
)

// DefaultKey is the key of the initial entry.
const DefaultKey = "default"

// Location is an immutable snapshot of a history entry.
type Location struct {
	Pathname string
	Search   string
	Hash     string
	State    any
	Key      string
}

// String returns pathname + search + hash.
func (l Location) String() string {
	return routepath.Path{Pathname: l.Pathname, Search: l.Search, Hash: l.Hash}.String()
}

// SameURL reports whether l and other address the same URL, ignoring
// state and key.
func (l Location) SameURL(other Location) bool {
	return l.Pathname == other.Pathname && l.Search == other.Search && l.Hash == other.Hash
}

// HashOnlyChange reports whether moving from l to next only scrolls
// within the page: same pathname and search, and next carries a hash.
func (l Location) HashOnlyChange(next Location) bool {
	if l.Pathname != next.Pathname || l.Search != next.Search {
		return false
	}
	return next.Hash != ""
}

// NewLocation parses to into a Location with a fresh key.
func NewLocation(to string, state any) Location {
	p := routepath.Parse(to)
	if p.Pathname == "" {
		p.Pathname = "/"
	}
	return Location{
		Pathname: p.Pathname,
		Search:   p.Search,
		Hash:     p.Hash,
		State:    state,
		Key:      NewKey(),
	}
}

// NewKey returns a short random entry key.
func NewKey() string {
	return uuid.NewString()[:8]
}

// Update is delivered to listeners when the location changes outside the
// router (back/forward).
type Update struct {
	Action   Action
	Location Location

	// Delta is the distance moved; negative for back.
	Delta int
}

// Listener receives history updates.
type Listener func(Update)

// History is the adapter a navigation.Router drives.
type History interface {
	// Action is the last action that changed the location.
	Action() Action

	// Location is the current entry.
	Location() Location

	// Push adds an entry after the current one, dropping forward entries.
	Push(loc Location)

	// Replace swaps the current entry.
	Replace(loc Location)

	// Go moves delta entries and notifies listeners with a POP update.
	Go(delta int)

	// Listen registers fn for POP updates.
	Listen(fn Listener) (unlisten func())

	// CreateHref renders loc as a link target.
	CreateHref(loc Location) string
}
