package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// WebSocket errors
var (
	ErrConnectionNotFound   = errors.New("connection not found")
	ErrConnectionBufferFull = errors.New("connection buffer full")
)

// Monitor fans dispatched webhook events out to connected dashboards
type Monitor struct {
	connections map[string]*MonitorConnection
	mu          sync.RWMutex
	broadcast   chan BroadcastMessage
	done        chan struct{}
}

// MonitorConnection is one subscribed dashboard. The websocket handler's
// write pump drains Send into the socket.
type MonitorConnection struct {
	ID   string
	Send chan []byte
}

// BroadcastMessage represents a message to broadcast
type BroadcastMessage struct {
	PageID string
	Type   string
	Data   any
}

// MessagePayload represents the structure of WebSocket messages
type MessagePayload struct {
	Type      string `json:"type"`
	PageID    string `json:"page_id,omitempty"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// NewMonitor creates a monitor and starts its broadcast loop. Call Close to stop it.
func NewMonitor() *Monitor {
	m := &Monitor{
		connections: make(map[string]*MonitorConnection),
		broadcast:   make(chan BroadcastMessage, 100),
		done:        make(chan struct{}),
	}
	go m.handleBroadcast()
	return m
}

// Close stops the broadcast loop
func (m *Monitor) Close() {
	close(m.done)
}

// RegisterConnection registers a new WebSocket connection
func (m *Monitor) RegisterConnection(conn *MonitorConnection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connections[conn.ID] = conn

	slog.Info("Monitor connection registered",
		"connectionID", conn.ID,
		"totalConnections", len(m.connections))
}

// UnregisterConnection removes a WebSocket connection
func (m *Monitor) UnregisterConnection(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conn, exists := m.connections[id]; exists {
		close(conn.Send)
		delete(m.connections, id)

		slog.Info("Monitor connection unregistered",
			"connectionID", id,
			"remainingConnections", len(m.connections))
	}
}

// Broadcast queues a message for every connection. It never blocks the
// caller; when the queue is full the message is dropped.
func (m *Monitor) Broadcast(message BroadcastMessage) {
	select {
	case m.broadcast <- message:
	default:
		slog.Warn("Monitor broadcast queue full, dropping message", "type", message.Type)
	}
}

// handleBroadcast processes broadcast messages
func (m *Monitor) handleBroadcast() {
	for {
		select {
		case <-m.done:
			return
		case message := <-m.broadcast:
			m.deliver(message)
		}
	}
}

func (m *Monitor) deliver(message BroadcastMessage) {
	payload := MessagePayload{
		Type:      message.Type,
		PageID:    message.PageID,
		Data:      message.Data,
		Timestamp: time.Now().Unix(),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal WebSocket message", "error", err)
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, conn := range m.connections {
		select {
		case conn.Send <- jsonData:
		default:
			slog.Warn("WebSocket connection buffer full", "connectionID", conn.ID)
		}
	}
}

// SendToConnection sends a message to a specific connection
func (m *Monitor) SendToConnection(id string, data []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conn, exists := m.connections[id]
	if !exists {
		return ErrConnectionNotFound
	}
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrConnectionBufferFull
	}
}

// ConnectionCount returns the number of active connections
func (m *Monitor) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}
