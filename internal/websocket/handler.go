package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades the request and runs it as a hub client until the
// connection closes.
func HandleWebSocket(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // office LAN, any origin
		})
		if err != nil {
			hub.logger.Warn("websocket accept", "remote", r.RemoteAddr, "error", err)
			return
		}

		hub.logger.Debug("websocket connected", "remote", r.RemoteAddr)
		NewClient(hub, conn, r.RemoteAddr).Run(r.Context())
		hub.logger.Debug("websocket disconnected", "remote", r.RemoteAddr)
	}
}
