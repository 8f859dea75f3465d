package websocket

import (
	"context"
	"sync"

	"cs-chatbot-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Hub fans session lifecycle events out to every connected ops dashboard.
// When Redis is configured, events are also relayed across instances.
type Hub struct {
	clients map[*Client]bool

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance relay (nil when not configured)
	rdb *redis.Client

	// Dedicated Logger
	logger logger.ILogger
}

const relayChannel = "session_events"

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info("Hub", "Dashboard client registered", map[string]interface{}{"remote": client.Remote})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Info("Hub", "Dashboard client unregistered", map[string]interface{}{"remote": client.Remote})
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event payload to all connected clients and relays it
// to other instances through Redis.
func (h *Hub) Broadcast(payload []byte) {
	h.broadcastLocal(payload)

	if h.rdb != nil {
		h.rdb.Publish(context.Background(), relayChannel, payload)
	}
}

// BroadcastLocal sends a payload to locally connected clients only, without
// relaying it. Used for payloads that already arrived over a relay.
func (h *Hub) BroadcastLocal(payload []byte) {
	h.broadcastLocal(payload)
}

func (h *Hub) broadcastLocal(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.Send <- payload:
		default:
			// Slow consumer; drop it rather than blocking the hub.
			h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"remote": client.Remote})
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

// subscribeToRedis receives events relayed by other instances. Locally
// published events come back through the channel as well; dashboards
// tolerate the duplicate.
func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, relayChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.broadcastLocal([]byte(msg.Payload))
	}
}
