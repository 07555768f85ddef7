package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

// Server upgrades subscribers to websockets and attaches them to the hub.
type Server struct {
	hub      *Hub
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewServer builds a Server. With no allowed origins only same-origin
// handshakes are accepted.
func NewServer(hub *Hub, allowedOrigins []string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{hub: hub, log: logger}
	if len(allowedOrigins) > 0 {
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
		}
	}
	return s
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("ws upgrade", "err", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	welcome := map[string]any{
		"type": "welcome",
		"now":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.Marshal(welcome); err == nil {
		client.send <- b
	}

	if !s.hub.join(client) {
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// Subscribe forwards every message published on channel to the hub until ctx
// is done.
func Subscribe(ctx context.Context, rdb *redis.Client, channel string, hub *Hub, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	sub := rdb.Subscribe(ctx, channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := hub.Broadcast(ctx, []byte(msg.Payload)); err != nil {
				logger.Warn("forward event to hub", "channel", channel, "err", err)
				return
			}
		}
	}
}
