package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"memory-match-server/game"
	"memory-match-server/matcherrors"
	"memory-match-server/wsutil"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Client is a middleman between the websocket connection and its game engine.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte

	engine  *game.Engine
	limiter *rate.Limiter

	mu     sync.Mutex
	userID string
}

// UserID returns the authenticated user id, or "" for guests.
func (c *Client) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// ReadPump pumps messages from the websocket connection to the engine.
// It runs in its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "tag", "ws", "err", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the send channel to the websocket connection.
// It runs in its own goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var envelope InboundEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.sendError("Invalid message format.")
		return
	}

	switch envelope.Type {
	case "auth":
		c.handleAuth(envelope.Raw)
	case "start_game":
		c.handleStartGame(envelope.Raw)
	case "reveal_card":
		c.handleRevealCard(envelope.Raw)
	case "set_grid_size":
		c.handleSetGridSize(envelope.Raw)
	case "get_state":
		c.sendState()
	default:
		c.sendError("Unknown message type: " + envelope.Type)
	}
}

func (c *Client) handleAuth(raw json.RawMessage) {
	var msg AuthMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid auth message.")
		return
	}
	if c.Hub.Auth == nil {
		c.sendError("Server auth not configured.")
		return
	}
	userID, err := c.Hub.Auth.UserID(msg.Token)
	if err != nil {
		slog.Info("auth rejected", "tag", "ws", "err", err)
		c.sendError("Invalid or expired token.")
		return
	}

	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()
	wsutil.SendJSON(c.Send, AuthOKMsg{Type: "auth_ok", UserID: userID})
}

func (c *Client) handleStartGame(raw json.RawMessage) {
	var msg StartGameMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid start_game message.")
		return
	}
	gridSize := msg.GridSize
	if gridSize == 0 {
		gridSize = c.Hub.Config.GridSize
	}
	if _, err := c.engine.StartNewGame(gridSize, c.Hub.Pool.Items); err != nil {
		c.sendEngineError(err)
	}
}

func (c *Client) handleRevealCard(raw json.RawMessage) {
	var msg RevealCardMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid reveal_card message.")
		return
	}
	if !c.limiter.Allow() {
		slog.Debug("click dropped", "tag", "ws", "err", matcherrors.ErrRateLimited)
		return
	}
	if _, outcome := c.engine.RevealCard(msg.CardID); outcome == game.OutcomeIgnored {
		slog.Debug("click ignored", "tag", "ws", "card", msg.CardID)
	}
}

func (c *Client) handleSetGridSize(raw json.RawMessage) {
	var msg SetGridSizeMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid set_grid_size message.")
		return
	}
	if _, err := c.engine.SetGridSize(msg.GridSize); err != nil {
		c.sendEngineError(err)
	}
}

// pushState is the engine observer: it runs after every state change and
// only queues outbound messages.
func (c *Client) pushState(s game.GameState, st game.Stats) {
	wsutil.SendJSON(c.Send, game.BuildStateMsg(&s, st))
	if s.Completed() {
		wsutil.SendJSON(c.Send, GameCompleteMsg{
			Type:   "game_complete",
			GameID: s.GameID,
			Stats:  game.BuildStatsView(st),
		})
	}
}

func (c *Client) sendState() {
	s, st := c.engine.Snapshot()
	wsutil.SendJSON(c.Send, game.BuildStateMsg(&s, st))
}

func (c *Client) sendEngineError(err error) {
	switch {
	case errors.Is(err, matcherrors.ErrInvalidGridSize):
		c.sendError("Invalid grid size.")
	case errors.Is(err, matcherrors.ErrNoGameInProgress):
		c.sendError("No game in progress.")
	case errors.Is(err, matcherrors.ErrEmptyContentPool), errors.Is(err, matcherrors.ErrDuplicateContent):
		slog.Error("content pool unusable", "tag", "ws", "err", err)
		c.sendError("Server content pool is misconfigured.")
	default:
		slog.Error("engine error", "tag", "ws", "err", err)
		c.sendError("Internal error.")
	}
}

func (c *Client) sendError(message string) {
	wsutil.SendJSON(c.Send, ErrorMsg{Type: "error", Message: message})
}
