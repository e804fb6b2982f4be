package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"lab-compare-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run(ctx)
	return hub
}

func registerClient(t *testing.T, hub *Hub, userID string) *Client {
	t.Helper()
	client := &Client{Hub: hub, UserID: userID, Send: make(chan []byte, 4)}
	require.True(t, hub.addClient(client))
	require.Eventually(t, func() bool { return hub.Connected(userID) > 0 }, time.Second, 5*time.Millisecond)
	return client
}

func TestHub_SendTextWithoutConnection(t *testing.T) {
	hub := startHub(t)

	err := hub.SendText(context.Background(), "nobody", "hello")
	assert.ErrorIs(t, err, ErrUserOffline)
}

func TestHub_SendTextReachesEveryDevice(t *testing.T) {
	hub := startHub(t)
	phone := registerClient(t, hub, "alice")
	laptop := registerClient(t, hub, "alice")
	other := registerClient(t, hub, "bob")

	require.NoError(t, hub.SendText(context.Background(), "alice", "result"))

	for _, c := range []*Client{phone, laptop} {
		select {
		case raw := <-c.Send:
			var frame replyFrame
			require.NoError(t, json.Unmarshal(raw, &frame))
			assert.Equal(t, "message", frame.Type)
			assert.Equal(t, "alice", frame.Data.UserID)
			assert.Equal(t, "result", frame.Data.Text)
		case <-time.After(time.Second):
			t.Fatal("reply not delivered")
		}
	}
	assert.Empty(t, other.Send)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := startHub(t)
	client := registerClient(t, hub, "carol")

	hub.removeClient(client)

	require.Eventually(t, func() bool { return hub.Connected("carol") == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-client.Send
	assert.False(t, open)
}

func TestHub_StoppedHubDoesNotBlockClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run(ctx)
	client := registerClient(t, hub, "dave")

	cancel()
	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	finished := make(chan bool)
	go func() {
		hub.removeClient(client)
		finished <- hub.addClient(&Client{Hub: hub, UserID: "erin", Send: make(chan []byte, 1)})
	}()

	select {
	case added := <-finished:
		assert.False(t, added)
	case <-time.After(time.Second):
		t.Fatal("client registration blocked after shutdown")
	}
}

func TestReadLimit(t *testing.T) {
	assert.Equal(t, int64(4+frameOverhead), ReadLimit(3))
	assert.Equal(t, int64(8+frameOverhead), ReadLimit(4))
	assert.Greater(t, ReadLimit(10*1024*1024), int64(10*1024*1024))
}
