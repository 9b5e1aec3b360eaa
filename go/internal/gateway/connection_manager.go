package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/votify/go/internal/models"
)

// ConnectionManager owns every live WebSocket connection and the per-room
// broadcast groups. A connection is minted at upgrade time with an opaque
// id; it only enters a room's group when a create_room or join_room
// operation subscribes it.
type ConnectionManager struct {
	// All live connections keyed by connection id.
	connections map[string]*Connection
	// Broadcast groups keyed by room id.
	roomConnections map[string]map[*Connection]bool
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	dispatcher *Dispatcher

	// Snapshot fan-out. A single consumer goroutine drains this channel,
	// so snapshots enqueued under a room's mutex reach subscribers in
	// commit order.
	broadcastCh chan broadcastMessage
}

// Connection represents one WebSocket client session. Its ID is the opaque
// connection identity used as the participant key in rooms.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds configuration for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	BroadcastBuffer int
	CheckOrigin     func(r *http.Request) bool
}

type broadcastMessage struct {
	roomID string
	data   []byte
}

// DefaultConnectionConfig returns default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      256,
		BroadcastBuffer: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		connections:     make(map[string]*Connection),
		roomConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan broadcastMessage, config.BroadcastBuffer),
	}
}

// SetDispatcher wires the inbound event dispatcher. Must be called before
// any connection is accepted.
func (cm *ConnectionManager) SetDispatcher(d *Dispatcher) {
	cm.dispatcher = d
}

// Start begins processing broadcast messages.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a WebSocket session and
// assigns it a fresh connection identity.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBuffer),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.mu.Lock()
	cm.connections[connection.ID] = connection
	cm.mu.Unlock()

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Msg("WebSocket connection established")

	return nil
}

// Subscribe adds a connection to a room's broadcast group. Called by the
// room application inside create_room and join_room, while the room's
// mutex is held.
func (cm *ConnectionManager) Subscribe(roomID, connectionID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	conn, ok := cm.connections[connectionID]
	if !ok {
		// Socket closed between dispatch and subscribe; the disconnect
		// scan removes the participant again.
		log.Warn().
			Str("connection_id", connectionID).
			Str("room_id", roomID).
			Msg("subscribe for unknown connection")
		return
	}

	if cm.roomConnections[roomID] == nil {
		cm.roomConnections[roomID] = make(map[*Connection]bool)
	}
	cm.roomConnections[roomID][conn] = true

	log.Debug().
		Str("connection_id", connectionID).
		Str("room_id", roomID).
		Int("subscribers", len(cm.roomConnections[roomID])).
		Msg("connection subscribed to room")
}

// Publish enqueues a snapshot for fan-out to a room's subscribers. The
// enqueue blocks rather than drops: a missed snapshot would leave clients
// permanently stale since no diffs are ever sent.
func (cm *ConnectionManager) Publish(roomID string, state models.RoomSnapshot) {
	data, err := json.Marshal(StateMessage{
		Type:   MessageTypeRoomState,
		RoomID: roomID,
		State:  state,
	})
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to marshal room state")
		return
	}
	cm.broadcastCh <- broadcastMessage{roomID: roomID, data: data}
}

// unregisterConnection removes a connection from the manager and every
// broadcast group. Returns false when the connection was already gone, so
// the read and write pumps can race on cleanup without double-reporting
// the disconnect.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, ok := cm.connections[conn.ID]; !ok {
		return false
	}
	delete(cm.connections, conn.ID)
	close(conn.Send)

	for roomID, group := range cm.roomConnections {
		if group[conn] {
			delete(group, conn)
			if len(group) == 0 {
				delete(cm.roomConnections, roomID)
			}
		}
	}

	log.Info().
		Str("connection_id", conn.ID).
		Msg("connection unregistered")
	return true
}

// handleBroadcast fans one snapshot out to a room's subscribers.
func (cm *ConnectionManager) handleBroadcast(message broadcastMessage) {
	cm.mu.RLock()
	group, exists := cm.roomConnections[message.roomID]
	if !exists {
		cm.mu.RUnlock()
		return
	}
	targets := make([]*Connection, 0, len(group))
	for conn := range group {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		select {
		case conn.Send <- message.data:
		default:
			// Connection is slow/dead, close it
			log.Warn().
				Str("connection_id", conn.ID).
				Msg("connection send buffer full, closing connection")
			if cm.unregisterConnection(conn) {
				conn.Conn.Close()
				// Reported off the broadcast loop: the disconnect
				// triggers further publishes into this channel.
				go cm.dispatcher.HandleDisconnect(conn.ID)
			}
		}
	}

	log.Debug().
		Str("room_id", message.roomID).
		Int("connections", len(targets)).
		Msg("room state broadcasted")
}

// GetConnectionStats returns statistics about active connections.
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	roomCounts := make(map[string]int, len(cm.roomConnections))
	for roomID, group := range cm.roomConnections {
		roomCounts[roomID] = len(group)
	}

	return ConnectionStats{
		TotalConnections: len(cm.connections),
		ActiveRooms:      len(cm.roomConnections),
		RoomConnections:  roomCounts,
	}
}

// ConnectionStats summarizes the live connection pools.
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveRooms      int            `json:"active_rooms"`
	RoomConnections  map[string]int `json:"room_connections"`
}

// writePump handles sending messages to the WebSocket connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		if c.Manager.unregisterConnection(c) {
			c.Manager.dispatcher.HandleDisconnect(c.ID)
		}
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump handles reading messages from the WebSocket connection. Each
// inbound frame is dispatched synchronously, so operations from one
// connection are applied in the order they arrive.
func (c *Connection) readPump() {
	defer func() {
		if c.Manager.unregisterConnection(c) {
			c.Manager.dispatcher.HandleDisconnect(c.ID)
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		ack := c.Manager.dispatcher.HandleMessage(c.ID, message)
		c.sendAck(ack)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// sendAck queues an ack for delivery to this connection only.
func (c *Connection) sendAck(ack Ack) {
	data, err := json.Marshal(ack)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal ack")
		return
	}
	select {
	case c.Send <- data:
	default:
		log.Warn().
			Str("connection_id", c.ID).
			Msg("ack dropped, send buffer full")
	}
}
