package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
	"github.com/goccy/go-json"
)

// HandleWebSocket upgrades the request and runs it as a Hub client. When
// hello is non-nil its message is the first thing the screen receives.
func HandleWebSocket(hub *Hub, logger *slog.Logger, hello func() Message) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // screens on the home LAN connect from any origin
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		conn.SetReadLimit(4096)

		var greeting []byte
		if hello != nil {
			if greeting, err = json.Marshal(hello()); err != nil {
				logger.Error("marshal greeting", "error", err)
				conn.Close(ws.StatusInternalError, "")
				return
			}
		}

		NewClient(hub, conn, r.RemoteAddr).Run(r.Context(), greeting)
		conn.CloseNow()
	}
}

// Hello greets a newly connected screen with the week it should be showing,
// so a screen left open across a rollover knows to reload.
func Hello(weekStart string) Message {
	return NewMessage(EntitySession, ActionHello, "", map[string]any{"weekStart": weekStart})
}
