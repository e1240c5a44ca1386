package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/parlay-analytics/pkg/types"
)

func newHubServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(logrus.New())
	go hub.Run()

	router := gin.New()
	router.GET("/ws/:channel", hub.HandleWebSocket)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return hub, server
}

func dialChannel(t *testing.T, server *httptest.Server, channel string) *gorilla.Conn {
	t.Helper()
	wsURL := strings.Replace(server.URL, "http://", "ws://", 1) + "/ws/" + channel

	conn, _, err := gorilla.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastToChannel(t *testing.T) {
	hub, server := newHubServer(t)
	conn := dialChannel(t, server, "chan-1")

	require.Eventually(t, func() bool {
		return hub.GetConnectionCount() == 1
	}, time.Second, 10*time.Millisecond)

	update := types.ProgressUpdate{
		Type:       "analysis_progress",
		AnalysisID: "abc-123",
		Progress:   0.5,
		DrawsDone:  5000,
		TotalDraws: 10000,
		HitRate:    0.27,
		Timestamp:  time.Now().UTC(),
	}
	hub.BroadcastToChannel("chan-1", update)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var received types.ProgressUpdate
	require.NoError(t, json.Unmarshal(payload, &received))
	assert.Equal(t, "analysis_progress", received.Type)
	assert.Equal(t, "abc-123", received.AnalysisID)
	assert.Equal(t, 5000, received.DrawsDone)
	assert.InDelta(t, 0.5, received.Progress, 1e-9)
}

func TestHub_ChannelIsolation(t *testing.T) {
	hub, server := newHubServer(t)
	conn := dialChannel(t, server, "chan-1")

	require.Eventually(t, func() bool {
		return hub.GetConnectionCount() == 1
	}, time.Second, 10*time.Millisecond)

	hub.BroadcastToChannel("chan-2", types.ProgressUpdate{Type: "analysis_progress"})

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "subscriber must not receive another channel's messages")
}

func TestHub_UnregisterOnClose(t *testing.T) {
	hub, server := newHubServer(t)
	conn := dialChannel(t, server, "chan-1")

	require.Eventually(t, func() bool {
		return hub.GetConnectionCount() == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"chan-1"}, hub.GetActiveChannels())

	conn.Close()

	require.Eventually(t, func() bool {
		return hub.GetConnectionCount() == 0
	}, time.Second, 10*time.Millisecond)
	assert.Empty(t, hub.GetActiveChannels())
}

func TestHub_BroadcastDuringDisconnect(t *testing.T) {
	hub, server := newHubServer(t)
	conn := dialChannel(t, server, "chan-1")

	require.Eventually(t, func() bool {
		return hub.GetConnectionCount() == 1
	}, time.Second, 10*time.Millisecond)

	// A sampled run keeps publishing ticks while the browser goes away;
	// the unregister path must never turn a broadcast into a panic.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			hub.BroadcastToChannel("chan-1", types.ProgressUpdate{
				Type:      "analysis_progress",
				DrawsDone: i,
			})
		}
	}()

	conn.Close()
	<-done

	require.Eventually(t, func() bool {
		return hub.GetConnectionCount() == 0
	}, time.Second, 10*time.Millisecond)

	// The client is gone from the channel map; broadcasting again is a no-op
	hub.BroadcastToChannel("chan-1", types.ProgressUpdate{Type: "analysis_complete"})
	assert.Empty(t, hub.GetActiveChannels())
}

func TestHub_BroadcastToAll(t *testing.T) {
	hub, server := newHubServer(t)
	first := dialChannel(t, server, "chan-1")
	second := dialChannel(t, server, "chan-2")

	require.Eventually(t, func() bool {
		return hub.GetConnectionCount() == 2
	}, time.Second, 10*time.Millisecond)

	hub.BroadcastToAll(types.ProgressUpdate{Type: "system_notice", Message: "refreshing samples"})

	for _, conn := range []*gorilla.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)

		var received types.ProgressUpdate
		require.NoError(t, json.Unmarshal(payload, &received))
		assert.Equal(t, "system_notice", received.Type)
	}
}
