package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// ClientMessage is a subscribe/unsubscribe request from a WebSocket client.
type ClientMessage struct {
	Action  string `json:"action"` // "subscribe" | "unsubscribe" | "ping"
	Channel string `json:"channel,omitempty"`
}

// ConnectionManager manages WebSocket connections and their channel
// subscriptions over the broker. Each process has one instance.
type ConnectionManager struct {
	broker       *Broker
	writeTimeout time.Duration

	mu          sync.RWMutex
	connections map[string]*connection
}

// connection is a single WebSocket client.
//
// subscriptions is accessed only from the goroutine owning the connection
// (HandleConnection's read loop and its deferred cleanup), so it needs no
// lock of its own.
type connection struct {
	id            string
	conn          *websocket.Conn
	subscriptions map[string]func()
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewConnectionManager creates a manager over the broker.
func NewConnectionManager(broker *Broker, writeTimeout time.Duration) *ConnectionManager {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &ConnectionManager{
		broker:       broker,
		writeTimeout: writeTimeout,
		connections:  make(map[string]*connection),
	}
}

// HandleConnection owns the lifecycle of one WebSocket connection. Blocks
// until the connection closes.
func (m *ConnectionManager) HandleConnection(parentCtx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(parentCtx)
	c := &connection{
		id:            uuid.New().String(),
		conn:          conn,
		subscriptions: make(map[string]func()),
		ctx:           ctx,
		cancel:        cancel,
	}

	m.mu.Lock()
	m.connections[c.id] = c
	m.mu.Unlock()

	defer func() {
		for _, cancelSub := range c.subscriptions {
			cancelSub()
		}
		m.mu.Lock()
		delete(m.connections, c.id)
		m.mu.Unlock()
		cancel()
	}()

	m.sendJSON(c, map[string]string{
		"type":          "connection.established",
		"connection_id": c.id,
	})

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid_ws_message", "connection_id", c.id, "error", err)
			continue
		}
		m.handleClientMessage(c, &msg)
	}
}

func (m *ConnectionManager) handleClientMessage(c *connection, msg *ClientMessage) {
	switch msg.Action {
	case "subscribe":
		if msg.Channel == "" || c.subscriptions[msg.Channel] != nil {
			return
		}
		ch, cancelSub := m.broker.Subscribe(msg.Channel)
		c.subscriptions[msg.Channel] = cancelSub
		go m.forward(c, ch)
		m.sendJSON(c, map[string]string{"type": "subscribed", "channel": msg.Channel})
	case "unsubscribe":
		if cancelSub, ok := c.subscriptions[msg.Channel]; ok {
			cancelSub()
			delete(c.subscriptions, msg.Channel)
		}
	case "ping":
		m.sendJSON(c, map[string]string{"type": "pong"})
	default:
		slog.Warn("unknown_ws_action", "action", msg.Action)
	}
}

// forward pumps broker payloads to the client until the subscription closes.
func (m *ConnectionManager) forward(c *connection, ch <-chan ProgressPayload) {
	for payload := range ch {
		if !m.sendJSON(c, payload) {
			return
		}
	}
}

func (m *ConnectionManager) sendJSON(c *connection, payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("ws_marshal_failed", "error", err)
		return false
	}
	writeCtx, cancel := context.WithTimeout(c.ctx, m.writeTimeout)
	defer cancel()
	if err := c.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		c.cancel()
		return false
	}
	return true
}

// ConnectionCount reports active connections.
func (m *ConnectionManager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}
