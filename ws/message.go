package ws

import (
	"encoding/json"

	"memory-match-server/game"
)

// InboundEnvelope is the generic envelope for all client-to-server messages.
// The Type field is used for routing; Raw holds the full JSON payload.
type InboundEnvelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements custom unmarshaling to capture the raw payload.
func (e *InboundEnvelope) UnmarshalJSON(data []byte) error {
	type typeOnly struct {
		Type string `json:"type"`
	}
	var t typeOnly
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	e.Type = t.Type
	e.Raw = json.RawMessage(data)
	return nil
}

// --- Client-to-Server message payloads ---

// AuthMsg attributes the connection's telemetry to a player. Optional.
type AuthMsg struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// StartGameMsg starts a new game. GridSize 0 uses the server default.
type StartGameMsg struct {
	Type     string `json:"type"`
	GridSize int    `json:"gridSize"`
}

// RevealCardMsg reveals one card.
type RevealCardMsg struct {
	Type   string `json:"type"`
	CardID string `json:"cardId"`
}

// SetGridSizeMsg restarts the game with a new grid size.
type SetGridSizeMsg struct {
	Type     string `json:"type"`
	GridSize int    `json:"gridSize"`
}

// --- Server-to-Client messages ---

// ErrorMsg is sent when a client action is invalid.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AuthOKMsg confirms a successful auth message.
type AuthOKMsg struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// GameCompleteMsg is sent once per game, after the final game_state.
type GameCompleteMsg struct {
	Type   string         `json:"type"`
	GameID string         `json:"gameId"`
	Stats  game.StatsView `json:"stats"`
}
