package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/tmaslen/serverless-fb-messenger/services"
)

// WebSocketMessage represents an incoming WebSocket message
type WebSocketMessage struct {
	Type    string `json:"type"`
	UserID  string `json:"user_id,omitempty"`
	Message string `json:"message,omitempty"`
}

// MonitorHandler streams dispatched events to dashboards and lets them reply to users
type MonitorHandler struct {
	monitor *services.Monitor
	sender  MessageSender
}

// NewMonitorHandler creates the websocket endpoint handler
func NewMonitorHandler(monitor *services.Monitor, sender MessageSender) *MonitorHandler {
	return &MonitorHandler{monitor: monitor, sender: sender}
}

// WebSocketUpgrade upgrades HTTP connection to WebSocket
func WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handle serves one websocket connection until it closes
func (h *MonitorHandler) Handle(c *websocket.Conn) {
	conn := &services.MonitorConnection{
		ID:   uuid.New().String(),
		Send: make(chan []byte, 256),
	}

	h.monitor.RegisterConnection(conn)
	defer h.monitor.UnregisterConnection(conn.ID)

	welcomeMsg := map[string]any{
		"type":          "connected",
		"message":       "WebSocket connection established",
		"connection_id": conn.ID,
	}
	if welcomeData, err := json.Marshal(welcomeMsg); err == nil {
		c.WriteMessage(websocket.TextMessage, welcomeData)
	}

	go writePump(c, conn)

	h.readPump(c, conn)
}

// writePump handles sending messages to the WebSocket client
func writePump(c *websocket.Conn, conn *services.MonitorConnection) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			c.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Channel closed
				c.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Error("Failed to write WebSocket message", "error", err)
				return
			}

		case <-ticker.C:
			c.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump handles receiving messages from the WebSocket client
func (h *MonitorHandler) readPump(c *websocket.Conn, conn *services.MonitorConnection) {
	c.SetReadLimit(64 * 1024)
	c.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, messageBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket read error", "error", err)
			}
			return
		}

		c.SetReadDeadline(time.Now().Add(60 * time.Second))

		var msg WebSocketMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			slog.Error("Failed to parse WebSocket message", "error", err)
			continue
		}

		h.monitor.SendToConnection(conn.ID, h.HandleCommand(context.Background(), msg))
	}
}

// HandleCommand executes one dashboard command and returns the reply frame
func (h *MonitorHandler) HandleCommand(ctx context.Context, msg WebSocketMessage) []byte {
	switch msg.Type {
	case "ping":
		return frame(map[string]any{"type": "pong"})

	case "send_message":
		if msg.UserID == "" || msg.Message == "" {
			return errorFrame("Missing required fields: user_id and message")
		}

		sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := h.sender.SendMessage(sendCtx, services.TextMessage{UserID: msg.UserID, Text: msg.Message}); err != nil {
			slog.Error("Failed to send dashboard message", "userID", msg.UserID, "error", err)
			return errorFrame("Failed to send message")
		}

		slog.Info("Dashboard message sent successfully", "userID", msg.UserID)
		return frame(map[string]any{
			"type":      "message_sent",
			"user_id":   msg.UserID,
			"message":   msg.Message,
			"timestamp": time.Now().Unix(),
		})

	default:
		slog.Warn("Unknown WebSocket message type", "type", msg.Type)
		return errorFrame("Unknown message type")
	}
}

func frame(v map[string]any) []byte {
	data, _ := json.Marshal(v)
	return data
}

func errorFrame(message string) []byte {
	return frame(map[string]any{"type": "error", "error": message})
}
