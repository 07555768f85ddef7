package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaek2/lepisong/internal/collection"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

// dial connects a subscriber and waits for the welcome message, which is only
// written once the hub has registered the client.
func dial(t *testing.T, srv *httptest.Server, origin string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	ws, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	got := read(t, ws)
	require.Equal(t, "welcome", got.Type)
	return ws
}

func read(t *testing.T, ws *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

func TestHub_NotifyReachesEverySubscriber(t *testing.T) {
	hub, _ := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(NewServer(hub, nil, nil).HandleWS))
	defer srv.Close()

	a := dial(t, srv, "")
	b := dial(t, srv, "")

	ev := collection.Event{
		Type:          "queue.updated",
		CollectionKey: "queue",
		Revision:      3,
		Items:         []collection.Item{{ID: "i1", PayloadRef: "v1", Position: 1}},
	}
	require.NoError(t, hub.Notify(context.Background(), ev))

	for _, ws := range []*websocket.Conn{a, b} {
		got := read(t, ws)
		assert.Equal(t, "queue.updated", got.Type)

		var payload collection.Event
		require.NoError(t, json.Unmarshal(got.Payload, &payload))
		assert.Equal(t, int64(3), payload.Revision)
		assert.Equal(t, "v1", payload.Items[0].PayloadRef)
	}
}

func TestServer_OriginCheck(t *testing.T) {
	hub, _ := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(
		NewServer(hub, []string{"http://localhost:4200"}, nil).HandleWS))
	defer srv.Close()

	dial(t, srv, "http://localhost:4200")

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	header.Set("Origin", "http://evil.com")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSubscribe_ForwardsRedisMessages(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	hub, _ := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(NewServer(hub, nil, nil).HandleWS))
	defer srv.Close()
	ws := dial(t, srv, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Subscribe(ctx, rdb, "broadcast", hub, nil)

	require.Eventually(t, func() bool {
		return rdb.PubSubNumSub(context.Background(), "broadcast").Val()["broadcast"] == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, rdb.Publish(context.Background(), "broadcast",
		`{"type":"playlist.deleted","payload":{"collectionKey":"p1"}}`).Err())

	got := read(t, ws)
	assert.Equal(t, "playlist.deleted", got.Type)
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	hub, cancel := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(NewServer(hub, nil, nil).HandleWS))
	defer srv.Close()
	ws := dial(t, srv, "")

	cancel()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.Error(t, err)

	assert.Eventually(t, func() bool {
		return hub.Notify(context.Background(), collection.Event{Type: "queue.updated"}) != nil
	}, time.Second, 10*time.Millisecond)
}
