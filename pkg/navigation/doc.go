// Package navigation is the router state machine. It sequences
// navigations through matching, submission, loading, redirects and
// commit, and keeps history, in-flight work and the published State
// consistent.
//
//	r, err := navigation.New(navigation.Config{
//	    Routes:  routes,
//	    History: history.NewMemoryHistory(history.MemoryOptions{}),
//	})
//	if err := r.Initialize(ctx); err != nil { ... }
//	unsubscribe := r.Subscribe(func(s navigation.State) { render(s) })
//	defer unsubscribe()
//
//	err = r.Navigate(ctx, "/users/42")
//
// # Concurrency
//
// Every navigation takes a new generation number. Starting a navigation
// cancels the context of the one in flight; whichever navigation holds
// the latest generation when its loaders finish is the only one allowed
// to commit, and the others return ErrSuperseded. Fetchers do the same
// per key.
//
// Navigate blocks until its navigation commits or fails. Subscribers are
// called one at a time, in commit order, with snapshot copies of State.
package navigation
