package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"memory-match-server/config"
	"memory-match-server/content"
	"memory-match-server/game"
	"memory-match-server/telemetry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development; restrict in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TokenValidator resolves a bearer token to a user id.
type TokenValidator interface {
	UserID(token string) (string, error)
}

// Hub maintains the set of active clients. Each client plays its own game.
type Hub struct {
	Clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	Config     *config.Config
	Pool       content.Pool

	// Telemetry receives every client's game events. Nil logs them only.
	Telemetry telemetry.Sink
	// Auth validates auth messages. Nil disables the auth message.
	Auth TokenValidator
	// EngineOptions are applied to each client's engine after the telemetry sink.
	EngineOptions []game.Option

	done      chan struct{}
	connected atomic.Int64
}

// NewHub creates a new Hub.
func NewHub(cfg *config.Config, pool content.Pool, sink telemetry.Sink) *Hub {
	if sink == nil {
		sink = telemetry.SlogSink{}
	}
	return &Hub{
		Clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Config:     cfg,
		Pool:       pool,
		Telemetry:  sink,
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. Should be run as a goroutine.
// When ctx is cancelled (e.g. on server shutdown), Run closes every client and returns.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received, closing clients", "tag", "hub", "clients", len(h.Clients))
			for client := range h.Clients {
				h.drop(client)
			}
			return
		case client := <-h.Register:
			h.Clients[client] = true
			h.connected.Store(int64(len(h.Clients)))
			slog.Info("client connected", "tag", "hub", "total", len(h.Clients))

		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				h.drop(client)
				slog.Info("client disconnected", "tag", "hub", "total", len(h.Clients))
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.Clients, client)
	h.connected.Store(int64(len(h.Clients)))
	client.engine.Close()
	close(client.Send)
}

// ConnectedClients returns the number of registered clients.
func (h *Hub) ConnectedClients() int {
	return int(h.connected.Load())
}

// ServeWS handles WebSocket upgrade requests and creates a new Client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "tag", "hub", "err", err)
		return
	}

	client := h.newClient(conn)
	select {
	case h.Register <- client:
	case <-h.done:
		client.engine.Close()
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

func (h *Hub) newClient(conn *websocket.Conn) *Client {
	c := &Client{
		Hub:     h,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		limiter: newClickLimiter(h.Config),
	}
	opts := append([]game.Option{game.WithEventSink(telemetry.ForUser(h.Telemetry, c.UserID))}, h.EngineOptions...)
	c.engine = game.NewEngine(h.Config, opts...)
	c.engine.Subscribe(c.pushState)
	return c
}

func newClickLimiter(cfg *config.Config) *rate.Limiter {
	if cfg.MaxClicksPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.ClickBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.MaxClicksPerSecond), burst)
}

// unregister hands c back to the hub, or does nothing once the hub has stopped.
func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}
