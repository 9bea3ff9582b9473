// Package notifier implements the session change broadcast. The session
// controller and HTTP client publish when the authentication state changes;
// UI surfaces subscribe to re-fetch identity or redirect to login without
// being wired to each other.
package notifier

import "sync"

// Notifier is a process-wide synchronous publish/subscribe channel carrying
// zero-payload "session changed" signals. Delivery order is unspecified.
type Notifier struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func()
}

// New creates an empty notifier.
func New() *Notifier {
	return &Notifier{handlers: make(map[int]func())}
}

// Subscribe registers a handler and returns a function that removes it.
// The returned unsubscribe is safe to call more than once.
func (n *Notifier) Subscribe(handler func()) (unsubscribe func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.handlers[id] = handler
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.handlers, id)
		n.mu.Unlock()
	}
}

// Publish invokes all currently registered handlers synchronously. A panic
// in one handler does not prevent the others from running.
func (n *Notifier) Publish() {
	n.mu.Lock()
	snapshot := make([]func(), 0, len(n.handlers))
	for _, h := range n.handlers {
		snapshot = append(snapshot, h)
	}
	n.mu.Unlock()

	for _, h := range snapshot {
		invoke(h)
	}
}

func invoke(h func()) {
	defer func() { _ = recover() }()
	h()
}
