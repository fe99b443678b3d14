package service

import (
	"context"

	"github.com/wricardo/chopsticks/game/engine"
	"github.com/wricardo/chopsticks/game/session"
)

// GameService defines all game-related operations
type GameService interface {
	// Game lifecycle
	CreateGame(ctx context.Context, playerID string) (*GameInfo, error)
	JoinGame(ctx context.Context, sessionID, playerID string) (*JoinResult, error)

	// Moves
	Attack(ctx context.Context, sessionID, playerID string, source, target engine.Hand) (*MoveResult, error)
	Redistribute(ctx context.Context, sessionID, playerID string, source engine.Hand, amount uint) (*MoveResult, error)

	// Game state
	GetState(ctx context.Context, sessionID string) (*GameInfo, error)
	ListGames(ctx context.Context) ([]*GameInfo, error)
	PossibleMoves(ctx context.Context, sessionID string) ([]engine.Move, error)
}

// SessionRegistry is the session storage the service drives.
// *session.Registry implements it.
type SessionRegistry interface {
	Create(ctx context.Context, playerID string) (*session.Session, error)
	Join(ctx context.Context, id, playerID string) (*session.Session, bool, error)
	Attack(ctx context.Context, id, playerID string, source, target engine.Hand) (*session.Session, error)
	Redistribute(ctx context.Context, id, playerID string, source engine.Hand, amount uint) (*session.Session, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	List(ctx context.Context) []*session.Session
}

// EventPublisher forwards game events to an external bus
type EventPublisher interface {
	Publish(ctx context.Context, event GameEvent) error
}

// NopPublisher discards every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, GameEvent) error { return nil }
