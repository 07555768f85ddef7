package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mosaek2/lepisong/internal/collection"
)

var errHubStopped = errors.New("realtime hub stopped")

// Hub owns the connected clients and fans every message out to all of them.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

var _ collection.Notifier = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer; it reloads the snapshot on reconnect.
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	_ = client.conn.Close()
}

// Broadcast queues an already encoded message for every client.
func (h *Hub) Broadcast(ctx context.Context, message []byte) error {
	select {
	case <-h.done:
		return errHubStopped
	default:
	}
	select {
	case h.broadcast <- message:
		return nil
	case <-h.done:
		return errHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Notify lets the hub stand in for Redis on a single instance.
func (h *Hub) Notify(ctx context.Context, ev collection.Event) error {
	data, err := json.Marshal(map[string]any{
		"type":    ev.Type,
		"payload": ev,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return h.Broadcast(ctx, data)
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
