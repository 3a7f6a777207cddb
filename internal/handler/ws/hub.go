// Package ws pushes live alert and prediction frames to websocket
// subscribers. One hub serves all clients; clients that cannot keep up
// with the broadcast stream are disconnected.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"PricePulse/internal/domain/models"
	"PricePulse/pkg/logger"
)

// Frame types delivered to subscribers.
const (
	FrameAlert      = "alert"
	FramePrediction = "prediction"
)

const (
	clientSendBuffer = 256
	broadcastBuffer  = 64
)

type frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client is one connected websocket subscriber.
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans frames out to every connected client. Register, unregister
// and broadcast all funnel through Run's select loop.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex

	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewHub creates a hub that accepts upgrades from the given origins.
// An empty list, or an entry "*", allows every origin.
func NewHub(allowedOrigins []string, log *logger.Logger) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 {
				return true
			}
			for _, v := range allowedOrigins {
				v = strings.TrimSpace(v)
				if v == "*" || v == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Run processes hub events until ctx is cancelled, then closes every
// client connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("ws client connected", logger.Int("clients", n))
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("ws client disconnected", logger.Int("clients", n))
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastAlert pushes a persisted price alert to all subscribers.
func (h *Hub) BroadcastAlert(a models.PriceAlert) {
	h.push(FrameAlert, a)
}

// BroadcastPrediction pushes a fresh forecast to all subscribers.
func (h *Hub) BroadcastPrediction(p models.PredictionResult) {
	h.push(FramePrediction, p)
}

// ClientCount reports the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request to a websocket and registers the client.
// Mounted as GET /ws by the API handler.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.log.Warn("ws upgrade failed", logger.Error(err))
		return nil
	}
	client := &Client{conn: conn, send: make(chan []byte, clientSendBuffer)}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump(h)
	return nil
}

// push marshals a frame and hands it to the broadcast loop without
// blocking the caller.
func (h *Hub) push(kind string, data interface{}) {
	b, err := json.Marshal(frame{Type: kind, Data: data})
	if err != nil {
		h.log.Error("marshal ws frame", logger.String("type", kind), logger.Error(err))
		return
	}
	select {
	case h.broadcast <- b:
	case <-h.done:
	default:
		h.log.Warn("ws broadcast buffer full, frame dropped", logger.String("type", kind))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func (c *Client) readPump(h *Hub) {
	defer c.conn.Close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
