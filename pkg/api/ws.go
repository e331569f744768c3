package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"chatrelay/pkg/hub"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/state"
)

// recentWindow is the number of messages sent to a newly connected
// subscriber. Older history is reachable through GET /messages.
const recentWindow = 50

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The relay is an open single-room system; origin policy is handled by
	// the CORS middleware where configured.
	CheckOrigin: func(*http.Request) bool { return true },
}

// serveWS upgrades the connection and runs the subscriber handshake through
// Conversation.Subscribe, which queues the group snapshot and the
// recent-message batch and registers the client under the mutation lock.
// That makes the handshake atomic against concurrent mutations: the batch
// ends at the latest accepted message and everything after it arrives as a
// live event.
func serveWS(conv *state.Conversation, h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("ws_upgrade_failed", "remote", r.RemoteAddr, "error", err)
			return
		}

		client := hub.NewClient(conn, h, r.RemoteAddr)
		if err := conv.Subscribe(client, recentWindow); err != nil {
			logger.Error("subscribe_failed", "remote", r.RemoteAddr, "error", err)
			_ = conn.Close()
			return
		}
	}
}
