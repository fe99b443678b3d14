package service

import (
	"time"

	"github.com/wricardo/chopsticks/game/engine"
	"github.com/wricardo/chopsticks/game/session"
)

// Event types published after each committed change
const (
	EventGameCreated  = "game_created"
	EventPlayerJoined = "player_joined"
	EventAttack       = "attack"
	EventRedistribute = "redistribute"
	EventGameOver     = "game_over"
)

// GameInfo is the client view of one game
type GameInfo struct {
	ID        string       `json:"id"`
	Game      *engine.Game `json:"game"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// JoinResult reports whether a join seated the caller
type JoinResult struct {
	Joined  bool      `json:"joined"`
	Message string    `json:"message"`
	Game    *GameInfo `json:"game"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success  bool        `json:"success"`
	Game     *GameInfo   `json:"game"`
	Message  string      `json:"message"`
	Events   []GameEvent `json:"events,omitempty"`
	GameOver bool        `json:"game_over"`
	Winner   string      `json:"winner,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string       `json:"type"`
	SessionID string       `json:"session_id"`
	PlayerID  string       `json:"player_id,omitempty"`
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
	Move      *engine.Move `json:"move,omitempty"`
	Game      *engine.Game `json:"game,omitempty"`
}

func newGameInfo(s *session.Session) *GameInfo {
	return &GameInfo{
		ID:        s.ID,
		Game:      s.Game,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
