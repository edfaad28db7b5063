package gateway

import (
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/tinypirate/tinypirate/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWebSocket streams events as they append: the push variant of the
// polling contract, same Event JSON. The client passes ?since=N to start
// from a known index; the stream then follows the log's watermark.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	since := uint64(0)
	if raw := r.URL.Query().Get("since"); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			since = parsed
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.ErrorCF("gateway", "WebSocket upgrade failed", map[string]any{"error": err.Error()})
		return
	}
	defer conn.Close()

	notify, cancel := s.log.Subscribe()
	defer cancel()

	// Reader goroutine: we never expect client frames, but reading is
	// what detects a dropped peer.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		res := s.log.FetchSince(since)
		for _, ev := range res.Events {
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
			since = ev.Index
		}

		select {
		case <-notify:
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
