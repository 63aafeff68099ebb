package realtime

import "encoding/json"

// Event names carried over the proctoring channel.
type Event string

const (
	// ─── Client → Server ────────────────────────────────────────────────
	EventCheatingAlert   Event = "cheating_alert"
	EventMonitorSnapshot Event = "monitor_snapshot"

	// ─── Server → Client ────────────────────────────────────────────────
	EventPointsDeducted Event = "points_deducted"
	EventError          Event = "error"
)

// Envelope is the wire frame for every channel message.
type Envelope struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals payload into an Envelope.
func NewEnvelope(event Event, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Event: event, Data: data}, nil
}
