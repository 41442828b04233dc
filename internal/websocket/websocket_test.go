package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"navcli/internal/config"
	"navcli/internal/infrastructure"
	"navcli/pkg/contracts/events"
)

func startServer(t *testing.T, origins ...string) (*Hub, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics, err := infrastructure.CreateBusinessMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	hub := NewHub(metrics, logger)
	hub.Start()
	t.Cleanup(hub.Stop)

	if len(origins) == 0 {
		origins = []string{"*"}
	}
	srv := httptest.NewServer(NewHandler(hub, config.Default().WebSocket, origins, logger))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	return websocket.DefaultDialer.Dial(url, header)
}

func readMessage(t *testing.T, conn *websocket.Conn) events.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg events.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubGreetsAndBroadcasts(t *testing.T) {
	hub, srv := startServer(t)

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)
	defer conn.Close()

	greeting := readMessage(t, conn)
	assert.Equal(t, events.MessageTypeConnect, greeting.Type)
	assert.NotEmpty(t, greeting.ID)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	hub.BroadcastUpdate(string(events.MessageTypeOperationSnapshot), "compute", "running", map[string]int{"progress": 40})
	msg := readMessage(t, conn)
	assert.Equal(t, events.MessageTypeOperationSnapshot, msg.Type)
	assert.Equal(t, "compute", msg.Step)
	assert.Equal(t, "running", msg.Status)
	assert.Equal(t, map[string]any{"progress": float64(40)}, msg.Data)
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, srv := startServer(t)

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHandlerRejectsForeignOrigin(t *testing.T) {
	_, srv := startServer(t, "http://localhost:8080")

	_, resp, err := dial(t, srv, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dial(t, srv, http.Header{"Origin": {"http://localhost:8080"}})
	require.NoError(t, err)
	conn.Close()
}

func TestBroadcastAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	hub.Start()
	hub.Stop()

	done := make(chan struct{})
	go func() {
		for range broadcastBuffer + 10 {
			hub.BroadcastUpdate("operation:snapshot", "", "", nil)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("BroadcastUpdate blocked after Stop")
	}
	assert.Equal(t, 0, hub.ClientCount())
}
