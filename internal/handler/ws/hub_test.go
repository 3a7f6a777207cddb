package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PricePulse/internal/domain/models"
	"PricePulse/pkg/logger"
)

func newWSLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

// startHub mounts the hub on a test server and returns a dialer URL.
func startHub(t *testing.T, origins []string) (*Hub, string, context.CancelFunc) {
	t.Helper()

	hub := NewHub(origins, newWSLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/ws", hub.Serve)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return hub, wsURL, cancel
}

func dial(t *testing.T, wsURL string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("hub never reached %d clients, have %d", want, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubBroadcastsAlertFrames(t *testing.T) {
	hub, wsURL, cancel := startHub(t, nil)
	defer cancel()

	conn := dial(t, wsURL, nil)
	waitForClients(t, hub, 1)

	alert := models.PriceAlert{
		ID:             3,
		ProductID:      "prod-1",
		Type:           models.AlertTargetReached,
		Message:        "Target price reached for 4K Monitor!",
		Priority:       models.PriorityHigh,
		TriggeredPrice: decimal.NewFromFloat(95),
		CreatedAt:      time.Date(2024, 3, 16, 12, 0, 0, 0, time.UTC),
	}
	hub.BroadcastAlert(alert)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var got struct {
		Type string            `json:"type"`
		Data models.PriceAlert `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, FrameAlert, got.Type)
	assert.Equal(t, int64(3), got.Data.ID)
	assert.Equal(t, models.AlertTargetReached, got.Data.Type)
	assert.Equal(t, "Target price reached for 4K Monitor!", got.Data.Message)
	assert.True(t, got.Data.TriggeredPrice.Equal(decimal.NewFromFloat(95)))
}

func TestHubBroadcastsPredictionToAllClients(t *testing.T) {
	hub, wsURL, cancel := startHub(t, nil)
	defer cancel()

	first := dial(t, wsURL, nil)
	second := dial(t, wsURL, nil)
	waitForClients(t, hub, 2)

	lower, upper := 88.5, 112.25
	hub.BroadcastPrediction(models.PredictionResult{
		ProductID:      "prod-1",
		DaysAhead:      7,
		PredictedPrice: 101.4,
		Confidence:     0.82,
		LowerBound:     &lower,
		UpperBound:     &upper,
	})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)

		var got struct {
			Type string                  `json:"type"`
			Data models.PredictionResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, FramePrediction, got.Type)
		assert.Equal(t, "prod-1", got.Data.ProductID)
		assert.Equal(t, 7, got.Data.DaysAhead)
		assert.InDelta(t, 101.4, got.Data.PredictedPrice, 1e-9)
		require.NotNil(t, got.Data.LowerBound)
		assert.InDelta(t, 88.5, *got.Data.LowerBound, 1e-9)
	}
}

func TestHubDisconnectUnregistersClient(t *testing.T) {
	hub, wsURL, cancel := startHub(t, nil)
	defer cancel()

	conn := dial(t, wsURL, nil)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHubRejectsDisallowedOrigin(t *testing.T) {
	_, wsURL, cancel := startHub(t, []string{"http://localhost:3000"})
	defer cancel()

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	allowed := http.Header{"Origin": []string{"http://localhost:3000"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, allowed)
	require.NoError(t, err)
	conn.Close()
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub, wsURL, cancel := startHub(t, nil)

	conn := dial(t, wsURL, nil)
	waitForClients(t, hub, 1)

	cancel()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
