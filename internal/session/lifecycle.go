package session

import "sync"

// AppState is the application visibility state reported by the platform.
type AppState string

const (
	StateActive     AppState = "active"
	StateInactive   AppState = "inactive"
	StateBackground AppState = "background"
)

// Foreground reports whether the state counts as the app being visible.
func (s AppState) Foreground() bool { return s == StateActive }

// Lifecycle is the subscribed visibility capability. The integrity monitor
// consumes transitions as events rather than polling current state.
type Lifecycle interface {
	// OnTransition registers a handler invoked on every state change.
	// The returned function cancels the subscription.
	OnTransition(handler func(from, to AppState)) (cancel func())
}

// AppStateWatcher is a Lifecycle fed by explicit SetState calls. The CLI
// wires process signals into it; tests drive it directly.
type AppStateWatcher struct {
	mu       sync.Mutex
	current  AppState
	handlers map[int]func(from, to AppState)
	nextID   int
}

// NewAppStateWatcher creates a watcher starting in the active state.
func NewAppStateWatcher() *AppStateWatcher {
	return &AppStateWatcher{
		current:  StateActive,
		handlers: make(map[int]func(from, to AppState)),
	}
}

// OnTransition registers a transition handler.
func (w *AppStateWatcher) OnTransition(handler func(from, to AppState)) (cancel func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	id := w.nextID
	w.handlers[id] = handler

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.handlers, id)
	}
}

// SetState records a new visibility state and notifies handlers of the
// transition. Setting the current state again is a no-op.
func (w *AppStateWatcher) SetState(to AppState) {
	w.mu.Lock()
	from := w.current
	if from == to {
		w.mu.Unlock()
		return
	}
	w.current = to
	handlers := make([]func(from, to AppState), 0, len(w.handlers))
	for _, h := range w.handlers {
		handlers = append(handlers, h)
	}
	w.mu.Unlock()

	for _, h := range handlers {
		h(from, to)
	}
}

// State returns the current visibility state.
func (w *AppStateWatcher) State() AppState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}
