package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket handles WebSocket connections for change events
// @Summary WebSocket change feed
// @Description Streams {type, timestamp, data} events after each committed inventory change
// @Tags websocket
// @Success 101 {string} string "Switching Protocols"
// @Router /api/ws/events [get]
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return nil
	}

	client := &Client{
		hub:  s.wsHub,
		conn: ws,
		send: make(chan []byte, 256),
	}

	if !s.wsHub.Register(client) {
		_ = ws.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()

	return nil
}

// GetWebSocketStats returns WebSocket connection statistics
// @Summary Get WebSocket statistics
// @Tags websocket
// @Produce json
// @Success 200 {object} WebSocketStats
// @Router /api/ws/stats [get]
func (s *Server) GetWebSocketStats(c echo.Context) error {
	return c.JSON(http.StatusOK, WebSocketStats{
		ConnectedClients: s.wsHub.ClientCount(),
		Status:           "operational",
	})
}
