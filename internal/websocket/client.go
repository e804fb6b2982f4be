package websocket

import (
	"context"
	"encoding/json"
	"time"

	"lab-compare-be/internal/dto"
	"lab-compare-be/internal/pkg/serverutils"
	"lab-compare-be/internal/service"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Frame overhead on top of the base64-encoded document.
	frameOverhead = 4096
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	Conn *websocket.Conn

	UserID string

	// Buffered channel of outbound messages.
	Send chan []byte

	dispatcher service.IDispatcherService
	readLimit  int64
}

// ReadLimit is the largest frame accepted for a document of maxDocumentBytes.
func ReadLimit(maxDocumentBytes int64) int64 {
	return (maxDocumentBytes+2)/3*4 + frameOverhead
}

// readPump turns inbound frames into intake events for the dispatcher.
func (c *Client) readPump() {
	defer func() {
		c.Hub.removeClient(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(c.readLimit)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn(hubModule, "Unexpected close", map[string]interface{}{"user_id": c.UserID, "error": err.Error()})
			}
			break
		}
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handleFrame(raw)
	}
}

func (c *Client) handleFrame(raw []byte) {
	var frame dto.IntakeFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.sendError("malformed frame")
		return
	}
	if err := serverutils.ValidateRequest(frame); err != nil {
		c.sendError(err.Error())
		return
	}

	event, err := frame.ToEvent(c.UserID, time.Now())
	if err != nil {
		c.sendError(err.Error())
		return
	}

	// The reply arrives through the hub; the dispatcher keeps the order.
	c.dispatcher.Submit(context.Background(), event, c.Hub)
}

func (c *Client) sendError(message string) {
	data, _ := json.Marshal(map[string]interface{}{
		"type": "error",
		"data": map[string]string{"message": message},
	})
	c.Hub.mu.RLock()
	defer c.Hub.mu.RUnlock()
	select {
	case c.Send <- data:
	default:
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One reply per websocket message so clients can decode each frame.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
