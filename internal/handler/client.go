package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"ppemonitor/internal/logger"
	hub "ppemonitor/internal/service/websocket"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StatusWebsocketHandler handles viewer connections on /api/status/ws and
// registers them in the HubService to receive compliance updates.
func StatusWebsocketHandler(h *hub.HubService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		if !h.Register(r.Context(), connection) {
			connection.Close()
			return
		}
		defer h.Unregister(r.Context(), connection)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Debug("Status viewer disconnected normally")
				} else {
					logger.Debug("Status viewer disconnected with error: %v", err)
				}
				return
			}
		}
	}
}
