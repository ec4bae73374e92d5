// Package authsvc holds what the authenticators share.
package authsvc

import (
	"sync"

	"github.com/trezcool/alama/core/session"
)

// Notifier keeps the signed in identity of the process and tells listeners when it changes.
// The zero value is ready to use.
type Notifier struct {
	mu        sync.Mutex
	current   *session.Identity
	listeners map[int]func(*session.Identity)
	nextID    int
}

// Current returns a copy of the signed in identity, or nil.
func (n *Notifier) Current() *session.Identity {
	n.mu.Lock()
	defer n.mu.Unlock()
	return copyIdentity(n.current)
}

// OnSessionChange calls fn with the current identity right away, then on every Publish.
func (n *Notifier) OnSessionChange(fn func(*session.Identity)) (unsubscribe func()) {
	n.mu.Lock()
	if n.listeners == nil {
		n.listeners = make(map[int]func(*session.Identity))
	}
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	current := copyIdentity(n.current)
	n.mu.Unlock()

	fn(current)

	return func() {
		n.mu.Lock()
		delete(n.listeners, id)
		n.mu.Unlock()
	}
}

// Publish sets the signed in identity; nil signs out.
func (n *Notifier) Publish(id *session.Identity) {
	n.mu.Lock()
	n.current = copyIdentity(id)
	listeners := make([]func(*session.Identity), 0, len(n.listeners))
	for _, fn := range n.listeners {
		listeners = append(listeners, fn)
	}
	n.mu.Unlock()

	for _, fn := range listeners {
		fn(copyIdentity(id))
	}
}

func copyIdentity(id *session.Identity) *session.Identity {
	if id == nil {
		return nil
	}
	cp := *id
	return &cp
}
