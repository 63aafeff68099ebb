package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeTimeout = 10 * time.Second
	readTimeout  = 5 * time.Minute
)

// WSChannel is the gorilla/websocket implementation of Channel.
type WSChannel struct {
	conn *websocket.Conn
	log  zerolog.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	handlers map[Event]map[int]func(json.RawMessage)
	nextID   int
	closed   bool
	done     chan struct{}
}

// Dial connects to the proctoring stream and starts the reader loop.
// The token is passed as a query parameter because WebSocket upgrade
// requests cannot carry an Authorization header from every client.
func Dial(ctx context.Context, url, token string, log zerolog.Logger) (*WSChannel, error) {
	if token != "" {
		url += "?token=" + token
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	ch := &WSChannel{
		conn:     conn,
		log:      log.With().Str("component", "realtime").Logger(),
		handlers: make(map[Event]map[int]func(json.RawMessage)),
		done:     make(chan struct{}),
	}

	go ch.readLoop()
	return ch, nil
}

// Emit sends one event frame with a write deadline.
func (ch *WSChannel) Emit(event Event, payload interface{}) error {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		return err
	}

	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()

	ch.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return ch.conn.WriteJSON(env)
}

// On registers a handler for server-pushed events.
func (ch *WSChannel) On(event Event, handler func(data json.RawMessage)) (off func()) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.nextID++
	id := ch.nextID
	if ch.handlers[event] == nil {
		ch.handlers[event] = make(map[int]func(json.RawMessage))
	}
	ch.handlers[event][id] = handler

	return func() {
		ch.mu.Lock()
		defer ch.mu.Unlock()
		delete(ch.handlers[event], id)
	}
}

// Close tears down the connection and stops the reader loop.
func (ch *WSChannel) Close() error {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return nil
	}
	ch.closed = true
	ch.mu.Unlock()

	err := ch.conn.Close()
	<-ch.done
	return err
}

func (ch *WSChannel) readLoop() {
	defer close(ch.done)

	for {
		ch.conn.SetReadDeadline(time.Now().Add(readTimeout))

		var env Envelope
		if err := ch.conn.ReadJSON(&env); err != nil {
			ch.mu.Lock()
			closed := ch.closed
			ch.mu.Unlock()

			if !closed && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ch.log.Warn().Err(err).Msg("Unexpected close")
			} else {
				ch.log.Debug().Msg("Connection closed")
			}
			return
		}

		ch.dispatch(&env)
	}
}

func (ch *WSChannel) dispatch(env *Envelope) {
	ch.mu.Lock()
	registered := ch.handlers[env.Event]
	handlers := make([]func(json.RawMessage), 0, len(registered))
	for _, h := range registered {
		handlers = append(handlers, h)
	}
	ch.mu.Unlock()

	for _, h := range handlers {
		h(env.Data)
	}
}
