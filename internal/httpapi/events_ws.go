package httpapi

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/SFitz911/Nextwork-Teachers-TechMonkey/internal/events"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const streamWriteTimeout = 10 * time.Second

// handleEventsWS upgrades the connection and streams session events until the
// client disconnects or the session is torn down. Events are framed one JSON
// object per websocket message; an idle stream gets a KEEPALIVE frame instead
// of going silent.
func (r *Router) handleEventsWS(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	if _, err := r.store.Get(id); err != nil {
		http.Error(w, `{"error": "session not found"}`, http.StatusNotFound)
		return
	}

	if !r.streams.Add() {
		http.Error(w, `{"error": "draining"}`, http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.streams.Done()
		r.logger.Printf("events_ws: upgrade failed: %v", err)
		return
	}

	stream := &eventStream{
		sessionID: id,
		conn:      conn,
		sub:       r.bus.Subscribe(id),
		bus:       r.bus,
		streams:   r.streams,
		logger:    r.logger,
		keepalive: r.cfg.EventKeepalive,
	}
	stream.run()
}

// eventStream is one subscriber's pull loop bound to a websocket connection.
type eventStream struct {
	sessionID string
	conn      *websocket.Conn
	connMu    sync.Mutex
	sub       *events.Subscriber
	bus       *events.Bus
	streams   *StreamRegistry
	logger    *log.Logger
	keepalive time.Duration
}

func (s *eventStream) run() {
	defer s.cleanup()

	// Reader goroutine exists only to detect the client going away; the UI
	// never sends application messages on this socket.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := s.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.writeEvent(events.Connected(s.sessionID)); err != nil {
		return
	}

	idle := time.NewTimer(s.keepalive)
	defer idle.Stop()

	for {
		select {
		case ev, ok := <-s.sub.Events():
			if !ok {
				// Session deleted or expired; end the stream.
				return
			}
			if err := s.writeEvent(ev); err != nil {
				return
			}

		case <-idle.C:
			if err := s.writeEvent(events.Keepalive(s.sessionID)); err != nil {
				return
			}

		case <-clientGone:
			return
		}

		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(s.keepalive)
	}
}

func (s *eventStream) writeEvent(ev events.Event) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return s.conn.WriteJSON(ev)
}

func (s *eventStream) cleanup() {
	s.bus.Unsubscribe(s.sub)

	s.connMu.Lock()
	_ = s.conn.Close()
	s.connMu.Unlock()

	s.streams.Done()
	s.logger.Printf("events_ws: stream closed for session %s", s.sessionID)
}
