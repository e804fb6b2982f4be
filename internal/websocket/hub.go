package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"lab-compare-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	hubModule = "Hub"

	// ClusterChannel carries replies between instances.
	ClusterChannel = "cluster_events"
)

// ErrUserOffline is returned when a reply has nowhere to go: the user has
// no local connection and there is no cluster to forward to.
var ErrUserOffline = errors.New("user has no open connection")

type Hub struct {
	// Registered clients map: UserID -> List of Clients (multi-device)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	// Closed when Run returns.
	done chan struct{}

	mu sync.RWMutex

	// Redis connection for cross-instance communication. Optional.
	rdb        *redis.Client
	instanceID string

	logger logger.ILogger
}

// replyFrame is what a browser receives for every reply.
type replyFrame struct {
	Type string    `json:"type"`
	Data replyData `json:"data"`
}

type replyData struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type clusterPayload struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Run owns client registration until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info(hubModule, "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			clients := h.clients[client.UserID]
			for i, c := range clients {
				if c == client {
					h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
					close(client.Send)
					break
				}
			}
			if len(h.clients[client.UserID]) == 0 {
				delete(h.clients, client.UserID)
				h.logger.Info(hubModule, "Client completely unregistered", map[string]interface{}{"user_id": client.UserID})
			}
			h.mu.Unlock()
		}
	}
}

// addClient reports false once the hub has stopped.
func (h *Hub) addClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) removeClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SendText delivers a reply to every connection of the user, here and, when
// Redis is configured, on the other instances.
func (h *Hub) SendText(ctx context.Context, userID, text string) error {
	data, err := json.Marshal(replyFrame{
		Type: "message",
		Data: replyData{UserID: userID, Text: text},
	})
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	delivered := h.deliverLocal(userID, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterPayload{
			Origin:       h.instanceID,
			TargetUserID: userID,
			Message:      data,
		})
		if err := h.rdb.Publish(ctx, ClusterChannel, payload).Err(); err != nil {
			if delivered == 0 {
				return fmt.Errorf("publish reply to cluster: %w", err)
			}
			h.logger.Warn(hubModule, "Cluster publish failed", map[string]interface{}{"user_id": userID, "error": err.Error()})
		}
		return nil
	}

	if delivered == 0 {
		return ErrUserOffline
	}
	return nil
}

// Connected reports how many local connections the user has.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) deliverLocal(userID string, data []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, client := range h.clients[userID] {
		select {
		case client.Send <- data:
			delivered++
		default:
			h.logger.Warn(hubModule, "Client Send buffer full, dropping message", map[string]interface{}{"user_id": userID})
		}
	}
	return delivered
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterPayload
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn(hubModule, "Redis msg parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			// Our own publications were already delivered locally.
			if payload.Origin == h.instanceID {
				continue
			}
			h.deliverLocal(payload.TargetUserID, payload.Message)
		}
	}
}
