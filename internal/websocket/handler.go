package websocket

import (
	"lab-compare-be/internal/service"

	"github.com/gofiber/websocket/v2"
)

// ServeWs runs one connection until the peer goes away.
func ServeWs(hub *Hub, dispatcher service.IDispatcherService, c *websocket.Conn, userID string, readLimit int64) {
	client := &Client{
		Hub:        hub,
		Conn:       c,
		UserID:     userID,
		Send:       make(chan []byte, 256),
		dispatcher: dispatcher,
		readLimit:  readLimit,
	}
	if !hub.addClient(client) {
		c.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
