package websocket

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now (should be restricted in production)
	},
}

// Client represents a WebSocket subscriber on one progress channel
type Client struct {
	Channel string
	Conn    *websocket.Conn
	Send    chan []byte
	Hub     *Hub
}

// Hub maintains active WebSocket connections keyed by progress channel.
// Channels are client-chosen tokens: a browser subscribes to a channel,
// then submits an analysis naming the same channel in its options.
type Hub struct {
	clients        map[*Client]bool
	channelClients map[string][]*Client
	broadcast      chan []byte
	register       chan *Client
	unregister     chan *Client
	logger         *logrus.Logger
	mutex          sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:        make(map[*Client]bool),
		channelClients: make(map[string][]*Client),
		broadcast:      make(chan []byte, 256),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		logger:         logger,
	}
}

// Run starts the hub and handles client registration/unregistration
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.channelClients[client.Channel] = append(h.channelClients[client.Channel], client)
			h.mutex.Unlock()

			h.logger.WithFields(logrus.Fields{
				"channel":       client.Channel,
				"total_clients": len(h.clients),
			}).Info("WebSocket client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)

				subscribers := h.channelClients[client.Channel]
				for i, c := range subscribers {
					if c == client {
						h.channelClients[client.Channel] = append(subscribers[:i], subscribers[i+1:]...)
						break
					}
				}
				if len(h.channelClients[client.Channel]) == 0 {
					delete(h.channelClients, client.Channel)
				}
			}
			h.mutex.Unlock()

			h.logger.WithFields(logrus.Fields{
				"channel":       client.Channel,
				"total_clients": len(h.clients),
			}).Info("WebSocket client disconnected")

		case message := <-h.broadcast:
			h.mutex.RLock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					h.logger.WithField("channel", client.Channel).Warn("Dropping message; client send buffer full")
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// HandleWebSocket upgrades a connection and subscribes it to a channel
func (h *Hub) HandleWebSocket(c *gin.Context) {
	channel := strings.TrimSpace(c.Param("channel"))
	if channel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid progress channel"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		Channel: channel,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		Hub:     h,
	}

	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}

// BroadcastToChannel sends a message to every subscriber of a channel.
// The lookup and sends happen under one read lock: Run closes a client's
// Send channel only while holding the write lock, so a client visible
// here cannot be closed mid-send.
func (h *Hub) BroadcastToChannel(channel string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal WebSocket message")
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for _, client := range h.channelClients[channel] {
		select {
		case client.Send <- data:
		default:
			h.logger.WithField("channel", channel).Warn("Dropping message; client send buffer full")
		}
	}
}

// BroadcastToAll sends a message to all connected clients
func (h *Hub) BroadcastToAll(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal WebSocket message")
		return
	}

	h.broadcast <- data
}

// GetActiveChannels returns the channels that currently have subscribers
func (h *Hub) GetActiveChannels() []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	channels := make([]string, 0, len(h.channelClients))
	for channel := range h.channelClients {
		channels = append(channels, channel)
	}
	return channels
}

// GetConnectionCount returns the total number of active connections
func (h *Hub) GetConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// readPump discards inbound frames and unregisters the client on close
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.WithError(err).Error("WebSocket error")
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.Hub.logger.WithError(err).Error("Failed to write WebSocket message")
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
