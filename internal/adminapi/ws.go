package adminapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mbrown1837/webmonitor/internal/models"
)

// upgrader mirrors the teacher's ws/hub.go: origin checking belongs to a
// reverse proxy in front of this process, not this narrow operator API.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeTimeout = 10 * time.Second

// handleQueueStream upgrades to a websocket connection and streams every
// models.StatusEvent the Queue Processor broadcasts, realizing spec.md
// §2/§4.3's "streams status transitions" (SPEC_FULL.md §4.4).
func (s *Server) handleQueueStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("admin api: websocket upgrade failed", map[string]interface{}{"error": err})
		return
	}
	defer conn.Close()

	events := s.broadcast.Subscribe()
	defer s.broadcast.Unsubscribe(events)

	// Detect client disconnects without blocking the write loop.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(conn, event); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, event models.StatusEvent) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, raw)
}
