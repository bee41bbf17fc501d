package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"tradeup_backend/internal/services"
	"tradeup_backend/internal/services/dto"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// Client is one open websocket channel for one authenticated user.
type Client struct {
	UserID  string
	Conn    *websocket.Conn
	Send    chan services.Event
	manager *Manager

	db        *gorm.DB
	messaging services.MessagingService
}

// IncomingMessage is the inbound frame envelope. Action selects the
// operation, Data carries its payload.
type IncomingMessage struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

type errorPayload struct {
	Action string `json:"action,omitempty"`
	Error  string `json:"error"`
}

// readPump reads frames from the socket until the connection drops,
// then unregisters the client.
func (c *Client) readPump() {
	defer func() {
		c.manager.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws read error: user=%s err=%v", c.UserID, err)
			}
			return
		}

		var msg IncomingMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("", "invalid message format")
			continue
		}
		c.handleMessage(msg)
	}
}

// writePump pushes outbound events and keepalive pings to the socket.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(event); err != nil {
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

func (c *Client) handleMessage(msg IncomingMessage) {
	switch msg.Action {
	case "send_message":
		c.handleSendMessage(msg.Data)
	case "ping":
		c.trySend(services.Event{Type: "pong"})
	default:
		c.sendError(msg.Action, "unknown action")
	}
}

// handleSendMessage routes an inbound chat message through the same
// service path as the REST endpoint, so validation, persistence and
// fan-out behave identically on both surfaces.
func (c *Client) handleSendMessage(data json.RawMessage) {
	var req dto.SendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("send_message", "invalid payload")
		return
	}

	resp, err := c.messaging.SendMessage(c.db, c.UserID, &req)
	if err != nil {
		c.sendError("send_message", err.Error())
		return
	}
	c.trySend(services.Event{Type: "message_sent", Payload: resp})
}

func (c *Client) sendError(action, message string) {
	c.trySend(services.Event{Type: "error", Payload: errorPayload{Action: action, Error: message}})
}

func (c *Client) trySend(event services.Event) {
	select {
	case c.Send <- event:
	default:
	}
}
