package handler

import (
	"encoding/json"
	"image"
	"net/http"

	"github.com/gorilla/websocket"

	"petlens/internal/dto"
	"petlens/internal/logger"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewerHub accepts viewer connections.
type ViewerHub interface {
	Register(client *websocket.Conn) bool
	Unregister(client *websocket.Conn)
}

// BoundsSetter receives viewer display sizes.
type BoundsSetter interface {
	SetDisplayBounds(bounds image.Point)
}

// ViewWebsocketHandler registers viewers with the hub and forwards the
// display size they report to the pipeline.
func ViewWebsocketHandler(hub ViewerHub, bounds BoundsSetter, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		if !hub.Register(connection) {
			connection.Close()
			return
		}
		defer hub.Unregister(connection)

		logger.Info("Viewer connected")

		for {
			_, data, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Viewer disconnected normally")
				} else {
					logger.Warning("Viewer disconnected with error: %v", err)
				}
				return
			}

			var msg dto.BoundsMessage
			if err := json.Unmarshal(data, &msg); err != nil || msg.Type != dto.MessageBounds {
				continue
			}
			if msg.Width <= 0 || msg.Height <= 0 {
				continue
			}
			bounds.SetDisplayBounds(image.Pt(msg.Width, msg.Height))
		}
	}
}
