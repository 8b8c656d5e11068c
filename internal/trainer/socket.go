// Push channel subscriber. Dials the engine's WebSocket endpoint, dispatches
// its named events into the reconciler and re-broadcasts them to browser
// clients. A dropped connection is retried with capped backoff; it never
// counts as "training stopped" on its own.

package trainer

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/akirol/trainwatch/internal/models"
	"github.com/akirol/trainwatch/internal/monitor"
	ws "github.com/akirol/trainwatch/internal/websocket"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Socket subscribes to the engine's push channel.
type Socket struct {
	url         string
	rec         *monitor.Reconciler
	hub         *ws.Hub
	onReconnect func()
}

// NewSocket creates a subscriber feeding the given reconciler. hub may be nil
// (events are then not re-broadcast), which tests use.
func NewSocket(url string, rec *monitor.Reconciler, hub *ws.Hub) *Socket {
	return &Socket{url: url, rec: rec, hub: hub}
}

// SetReconnectHook registers a callback fired after every successful
// (re)connection, used to trigger an immediate status poll.
func (s *Socket) SetReconnectHook(f func()) {
	s.onReconnect = f
}

// Run connects and reads events until the context is cancelled. Each dropped
// connection is redialed with exponential backoff capped at maxBackoff.
func (s *Socket) Run(ctx context.Context) {
	backoff := initialBackoff
	connectedBefore := false

	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Push channel dial failed (retrying in %s): %v", backoff, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		log.Printf("Push channel connected to %s", s.url)
		backoff = initialBackoff
		if connectedBefore {
			// Stale progress and histories are discarded; liveness is
			// re-derived from the fresh poll, not from buffered history.
			s.rec.Reset()
		}
		connectedBefore = true
		if s.onReconnect != nil {
			s.onReconnect()
		}

		s.readLoop(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return
		}
		log.Println("Push channel disconnected")
	}
}

func (s *Socket) readLoop(ctx context.Context, conn *websocket.Conn) {
	// Unblock ReadMessage when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.dispatch(message)
	}
}

// pushMessage is the engine's wire envelope: a named event plus its payload.
type pushMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// dispatch routes one raw push message into the reconciler. Payloads of
// unexpected shape decode to zero values and fall through as no-ops; a
// malformed envelope is logged and dropped.
func (s *Socket) dispatch(message []byte) {
	var msg pushMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("Dropping malformed push message: %v", err)
		return
	}

	switch msg.Event {
	case "connected":
		var state models.StatusPayload
		json.Unmarshal(msg.Data, &state)
		s.rec.OnConnect(state)
	case "training_state":
		var state models.StatusPayload
		json.Unmarshal(msg.Data, &state)
		s.rec.OnStateUpdate(state)
	case "progress":
		var progress models.Progress
		if err := json.Unmarshal(msg.Data, &progress); err != nil {
			return
		}
		s.rec.OnProgress(progress)
	case "sampling":
		s.rec.OnSampling(payloadMessage(msg.Data, "Sampling finished"), msg.Data)
	case "backup":
		s.rec.OnBackup(payloadMessage(msg.Data, "Backup created"), msg.Data)
	case "log":
		var line struct {
			Level   string `json:"level"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(msg.Data, &line); err != nil {
			return
		}
		kind := models.LogKindInfo
		if line.Level == "error" {
			kind = models.LogKindError
		}
		s.rec.OnLog(kind, line.Message)
	default:
		// Unknown events are ignored so engine upgrades stay non-fatal.
		return
	}

	if s.hub != nil {
		s.hub.Broadcast(message)
	}
}

// payloadMessage pulls the human-readable message out of an auxiliary event
// payload, with a fallback for payloads that carry none.
func payloadMessage(data json.RawMessage, fallback string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return fallback
}
