package sync

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"petrocore/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTCPFeed(t *testing.T) {
	hub := NewHub(nil)
	srv := NewServer("", hub, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	r := bufio.NewReader(conn)

	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"welcome"`)

	require.Eventually(t, func() bool { return hub.Stats().TCPClients == 1 }, time.Second, 10*time.Millisecond)

	s := &models.Specimen{ID: "s1", Kind: models.KindRock, Code: "R-1"}
	hub.Publish(NewEvent(EventCreated, s))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err = r.ReadString('\n')
	require.NoError(t, err)

	var ev SpecimenEvent
	require.NoError(t, json.Unmarshal([]byte(line), &ev))
	assert.Equal(t, EventCreated, ev.Type)
	assert.Equal(t, "s1", ev.ID)
	assert.Equal(t, models.KindRock, ev.Kind)
	assert.Equal(t, "R-1", ev.Code)
	assert.False(t, ev.At.IsZero())

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Stats().TCPClients == 0 }, time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestWebsocketFeed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil)
	r := gin.New()
	r.GET("/ws", WSHandler(hub))
	ts := httptest.NewServer(r)
	defer ts.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool { return hub.Stats().WSClients == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(SpecimenEvent{Type: EventImported, Count: 3, At: time.Now()})

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)

	var ev SpecimenEvent
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, EventImported, ev.Type)
	assert.Equal(t, 3, ev.Count)
}

func TestWebsocketReplaysHistory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil)
	for i := 0; i < historySize+5; i++ {
		hub.Publish(SpecimenEvent{Type: EventUpdated, Count: i, At: time.Now()})
	}
	recent := hub.Recent()
	require.Len(t, recent, historySize)
	assert.Equal(t, 5, recent[0].Count)

	r := gin.New()
	r.GET("/ws", WSHandler(hub))
	ts := httptest.NewServer(r)
	defer ts.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer ws.Close()

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < historySize; i++ {
		var ev SpecimenEvent
		require.NoError(t, ws.ReadJSON(&ev))
		assert.Equal(t, i+5, ev.Count)
	}
}

func TestPublishDoesNotWaitOnStalledClient(t *testing.T) {
	hub := NewHub(nil)

	// nothing ever reads from peer, so every write to stalled blocks
	stalled, peer := net.Pipe()
	defer peer.Close()
	hub.Add(stalled)
	require.Equal(t, 1, hub.Stats().TCPClients)

	start := time.Now()
	for i := 0; i < 2*sendBuffer; i++ {
		hub.Publish(SpecimenEvent{Type: EventUpdated, Count: i + 1, At: time.Now()})
	}
	assert.Less(t, time.Since(start), writeTimeout, "publish must not block on a stalled socket")
	assert.Zero(t, hub.Stats().TCPClients, "client with a full queue is dropped")
	assert.Len(t, hub.Recent(), historySize)

	// dropping closed the connection, so the peer sees EOF once drained
	_ = peer.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := io.Copy(io.Discard, peer)
	assert.NoError(t, err)
}

func TestNewEvent_NilSpecimen(t *testing.T) {
	ev := NewEvent(EventImported, nil)
	assert.Equal(t, EventImported, ev.Type)
	assert.Empty(t, ev.ID)
}
