package realtime

import "encoding/json"

// Channel is the realtime proctoring channel the session controller emits
// violation and snapshot events on and receives server pushes from.
// Implementations are owned by the session scope: connect before the
// attempt starts, close on teardown. Emits are best-effort; a failed emit
// must never disturb the exam.
type Channel interface {
	// Emit sends one event with a JSON-marshalable payload.
	Emit(event Event, payload interface{}) error

	// On registers a handler for a server-pushed event. The returned
	// function unsubscribes the handler. Handlers run on the channel's
	// reader goroutine and must not block.
	On(event Event, handler func(data json.RawMessage)) (off func())

	// Close tears the channel down and releases the transport.
	Close() error
}
