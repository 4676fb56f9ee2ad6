package webui

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/alantheprice/dialoguegen/pkg/events"
)

// SafeConn wraps a WebSocket connection with write mutex and panic recovery
type SafeConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  bool
}

// NewSafeConn creates a new safe connection wrapper
func NewSafeConn(conn *websocket.Conn) *SafeConn {
	return &SafeConn{conn: conn}
}

// WriteJSON safely writes JSON to the WebSocket connection
func (sc *SafeConn) WriteJSON(v interface{}) (err error) {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()

	if sc.closed {
		return nil // Silently ignore writes to closed connections
	}

	defer func() {
		if r := recover(); r != nil {
			sc.closed = true
			err = fmt.Errorf("websocket write panic: %v", r)
		}
	}()

	sc.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return sc.conn.WriteJSON(v)
}

// WritePing sends a websocket ping control frame
func (sc *SafeConn) WritePing() error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()

	if sc.closed {
		return nil
	}
	return sc.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Close closes the underlying connection
func (sc *SafeConn) Close() error {
	sc.writeMu.Lock()
	sc.closed = true
	sc.writeMu.Unlock()
	return sc.conn.Close()
}

// handleWebSocket streams pipeline events. With ?request_id=... only the
// events of that request are forwarded.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("WebSocket upgrade error: %v", err)
		return
	}

	// Wrap connection in SafeConn to prevent concurrent write panics
	safeConn := NewSafeConn(conn)
	defer safeConn.Close()

	sessionID := "ws_" + uuid.NewString()
	info := &ConnectionInfo{
		SessionID:   sessionID,
		RequestID:   r.URL.Query().Get("request_id"),
		ConnectedAt: time.Now(),
	}
	s.connections.Store(conn, info)
	defer s.connections.Delete(conn)

	s.logger.Logf("WebSocket client connected: %s", sessionID)

	// Subscribe to events with unique session ID to support multiple clients
	eventCh := s.eventBus.Subscribe(sessionID)
	defer s.eventBus.Unsubscribe(sessionID)

	// Send initial connection status
	safeConn.WriteJSON(map[string]interface{}{
		"type": "connection_status",
		"data": map[string]interface{}{"connected": true, "session_id": sessionID},
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Read goroutine - handles incoming messages. Any read error, including
	// a missed pong deadline, ends the connection.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		conn.SetReadLimit(64 * 1024)
		conn.SetReadDeadline(time.Now().Add(s.pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(s.pongWait))
		})
		for {
			var msg map[string]interface{}
			if err := conn.ReadJSON(&msg); err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Logf("WebSocket %s read error: %v", sessionID, err)
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(s.pongWait))
			s.handleWebSocketMessage(safeConn, msg)
		}
	}()

	pingTicker := time.NewTicker(s.pongWait * 9 / 10)
	defer pingTicker.Stop()

	// Write loop - handles outgoing events
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-eventCh:
			if !ok {
				return
			}
			if !info.wants(event) {
				continue
			}
			if err := safeConn.WriteJSON(event); err != nil {
				s.logger.Logf("WebSocket %s write error: %v", sessionID, err)
				return
			}

		case <-pingTicker.C:
			if err := safeConn.WritePing(); err != nil {
				s.logger.Logf("WebSocket %s ping error: %v", sessionID, err)
				return
			}

		case <-readDone:
			return
		}
	}
}

func (c *ConnectionInfo) wants(event events.PipelineEvent) bool {
	return c.RequestID == "" || c.RequestID == event.RequestID
}

// handleWebSocketMessage processes incoming WebSocket messages
func (s *Server) handleWebSocketMessage(safeConn *SafeConn, msg map[string]interface{}) {
	msgType, ok := msg["type"].(string)
	if !ok {
		return
	}

	switch msgType {
	case "ping":
		safeConn.WriteJSON(map[string]interface{}{
			"type": "pong",
			"data": map[string]interface{}{"timestamp": time.Now().Unix()},
		})
	}
}
