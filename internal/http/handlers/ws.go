package handlers

import (
	"net/http"

	"ccox_dashboard/internal/service"
	"ccox_dashboard/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WS upgrades the connection and subscribes it to the caller's balance
// events. Browsers cannot set headers on WebSocket dials, so the token
// travels as a query parameter.
func (h *Handler) WS(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		userID, err := service.ParseJWT(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		client := ws.NewClient(userID, conn)
		hub.Register(client)
		go client.WritePump(hub)
		go client.ReadPump(hub)
	}
}
