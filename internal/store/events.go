package store

import (
	"sync"

	"github.com/flagonhq/flagon/internal/toggle"
)

// Change classifies a definition mutation.
type Change string

const (
	ChangeCreated           Change = "created"
	ChangeUpdated           Change = "updated"
	ChangeDeleted           Change = "deleted"
	ChangeMembershipChanged Change = "membership_changed"
)

// Phase distinguishes the notifications bracketing a multi-step membership
// transaction. Subscribers that evict caches must react only to PhasePost;
// reacting to PhasePre would repopulate with mid-transaction state.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// MutationEvent describes one definition mutation. The store publishes these
// so the cache layer can evict stale decisions without the store knowing
// anything about caching.
type MutationEvent struct {
	Kind   toggle.Kind
	Name   string
	Change Change
	Phase  Phase
}

// Notifier is a minimal synchronous event bus for mutation events.
// Subscriptions are expected at wiring time; Publish fans out in
// subscription order on the caller's goroutine.
type Notifier struct {
	mu   sync.RWMutex
	subs []func(MutationEvent)
}

// NewNotifier creates an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe registers a handler for all future events.
func (n *Notifier) Subscribe(fn func(MutationEvent)) {
	if fn == nil {
		panic("store: notifier subscriber cannot be nil")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, fn)
}

// Publish delivers the event to every subscriber synchronously.
func (n *Notifier) Publish(ev MutationEvent) {
	n.mu.RLock()
	subs := n.subs
	n.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}
