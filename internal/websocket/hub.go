package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"navcli/internal/infrastructure"
	"navcli/pkg/contracts/events"
)

// broadcastBuffer bounds the messages queued for the hub loop.
const broadcastBuffer = 256

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewHub creates a hub. metrics may be nil.
func NewHub(metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Start runs the hub loop in its own goroutine
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

func (h *Hub) run() {
	defer close(h.done)
	ctx := context.Background()

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.recordClients(ctx, 1)

			h.logger.InfoContext(ctx, "client registered",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("total_clients", count))
			h.sendTo(client, events.Message{
				Type: events.MessageTypeConnect,
				Data: events.ConnectData{ClientID: client.id, Message: "Connected to NAV statistics updates"},
			})

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			if ok {
				h.recordClients(ctx, -1)
				h.logger.InfoContext(ctx, "client unregistered",
					slog.String("client_id", client.id),
					slog.Int("total_clients", count),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			}

		case message := <-h.broadcast:
			h.mu.Lock()
			delivered, dropped := 0, 0
			for client := range h.clients {
				select {
				case client.send <- message:
					delivered++
				default:
					// A client that cannot keep up is disconnected.
					close(client.send)
					delete(h.clients, client)
					dropped++
					h.logger.WarnContext(ctx, "client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}
			h.mu.Unlock()
			h.recordMessages(ctx, "delivered", delivered)
			h.recordMessages(ctx, "dropped", dropped)
			h.recordClients(ctx, -int64(dropped))
		}
	}
}

// BroadcastUpdate queues a message for every client. It never blocks: when
// the hub is stopped or its queue is full the message is dropped.
func (h *Hub) BroadcastUpdate(eventType, step, status string, data interface{}) {
	payload, err := h.encode(events.Message{
		Type:   events.MessageType(eventType),
		Step:   step,
		Status: status,
		Data:   data,
	})
	if err != nil {
		return
	}

	select {
	case <-h.quit:
	case h.broadcast <- payload:
	default:
		h.logger.Warn("broadcast queue full, dropping message", slog.String("type", eventType))
		h.recordMessages(context.Background(), "dropped", 1)
	}
}

// sendTo delivers msg to one client from inside the hub loop.
func (h *Hub) sendTo(client *Client, msg events.Message) {
	payload, err := h.encode(msg)
	if err != nil {
		return
	}
	select {
	case client.send <- payload:
	default:
		h.logger.Warn("client buffer full, greeting dropped", slog.String("client_id", client.id))
	}
}

func (h *Hub) encode(msg events.Message) ([]byte, error) {
	msg.ID = uuid.NewString()
	msg.Timestamp = time.Now().UTC()
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode message",
			slog.String("type", string(msg.Type)),
			slog.String("error", err.Error()))
	}
	return payload, err
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		close(client.send)
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop disconnects every client and waits for the hub loop to exit
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

func (h *Hub) recordClients(ctx context.Context, delta int64) {
	if h.metrics != nil && delta != 0 {
		h.metrics.WebSocketClients.Add(ctx, delta)
	}
}

func (h *Hub) recordMessages(ctx context.Context, outcome string, n int) {
	if h.metrics != nil && n > 0 {
		h.metrics.WebSocketMessages.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}
