package controllers

import (
	"net/http"

	"chat-server/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSController upgrades incoming connections and hands them to the engine.
type WSController struct {
	Hub *services.Hub
}

// Handle 处理 WebSocket 连接
//
// The credential comes in the token query parameter at handshake time; the
// session refuses the connection itself if it is missing or invalid.
func (w *WSController) Handle(ctx *gin.Context) {
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	session := services.NewSession(w.Hub, conn)
	go session.Run(ctx.Query("token"))
}
