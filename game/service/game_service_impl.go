package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wricardo/chopsticks/game/engine"
	"github.com/wricardo/chopsticks/game/session"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions  SessionRegistry
	publisher EventPublisher
	metrics   *Metrics
	logger    zerolog.Logger
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithPublisher sets where game events are sent
func WithPublisher(p EventPublisher) Option {
	return func(s *gameServiceImpl) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithMetrics records service activity on m
func WithMetrics(m *Metrics) Option {
	return func(s *gameServiceImpl) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets the service logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *gameServiceImpl) {
		s.logger = l
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionRegistry, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions:  sessions,
		publisher: NopPublisher{},
		metrics:   NewMetrics(),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGame starts a new game with playerID in the first seat
func (s *gameServiceImpl) CreateGame(ctx context.Context, playerID string) (*GameInfo, error) {
	start := time.Now()
	sess, err := s.sessions.Create(ctx, playerID)
	s.metrics.createLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.gamesCreated.WithLabelValues("error").Inc()
		s.logger.Warn().Err(err).Str("player_id", playerID).Msg("create game failed")
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	s.metrics.gamesCreated.WithLabelValues("ok").Inc()

	s.publish(ctx, GameEvent{
		Type:      EventGameCreated,
		SessionID: sess.ID,
		PlayerID:  playerID,
		Message:   fmt.Sprintf("%s created the game", playerID),
		Timestamp: sess.CreatedAt,
		Game:      sess.Game,
	})

	return newGameInfo(sess), nil
}

// JoinGame seats playerID as the second player. Joining a game that already
// has two players is not an error; the result says it was ignored.
func (s *gameServiceImpl) JoinGame(ctx context.Context, sessionID, playerID string) (*JoinResult, error) {
	sess, joined, err := s.sessions.Join(ctx, sessionID, playerID)
	if err != nil {
		s.metrics.joins.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to join game: %w", err)
	}

	result := &JoinResult{
		Joined: joined,
		Game:   newGameInfo(sess),
	}
	if !joined {
		s.metrics.joins.WithLabelValues("ignored").Inc()
		result.Message = fmt.Sprintf("Game is %s; join ignored", sess.Game.State.Status)
		return result, nil
	}

	s.metrics.joins.WithLabelValues("joined").Inc()
	result.Message = fmt.Sprintf("%s joined; %s moves first", playerID, s.activeID(sess.Game))
	s.logger.Info().Str("session_id", sessionID).Str("player_id", playerID).Msg("player joined")

	s.publish(ctx, GameEvent{
		Type:      EventPlayerJoined,
		SessionID: sess.ID,
		PlayerID:  playerID,
		Message:   result.Message,
		Timestamp: sess.UpdatedAt,
		Game:      sess.Game,
	})
	return result, nil
}

// Attack executes an attack for playerID
func (s *gameServiceImpl) Attack(ctx context.Context, sessionID, playerID string, source, target engine.Hand) (*MoveResult, error) {
	move := engine.Move{Kind: engine.MoveAttack, Source: source, Target: target}
	sess, err := s.sessions.Attack(ctx, sessionID, playerID, source, target)
	if err != nil {
		return nil, s.moveFailed(move, sessionID, playerID, err)
	}

	msg := fmt.Sprintf("%s attacked with %s hand onto %s hand", playerID, source, target)
	return s.moveDone(ctx, move, sess, playerID, msg), nil
}

// Redistribute executes a redistribution for playerID
func (s *gameServiceImpl) Redistribute(ctx context.Context, sessionID, playerID string, source engine.Hand, amount uint) (*MoveResult, error) {
	move := engine.Move{Kind: engine.MoveRedistribute, Source: source, Target: source.Other(), Amount: amount}
	sess, err := s.sessions.Redistribute(ctx, sessionID, playerID, source, amount)
	if err != nil {
		return nil, s.moveFailed(move, sessionID, playerID, err)
	}

	msg := fmt.Sprintf("%s moved %d from %s hand to %s hand", playerID, amount, source, source.Other())
	return s.moveDone(ctx, move, sess, playerID, msg), nil
}

func (s *gameServiceImpl) moveFailed(move engine.Move, sessionID, playerID string, err error) error {
	s.metrics.moves.WithLabelValues(string(move.Kind), outcomeLabel(err)).Inc()
	s.logger.Debug().Err(err).Str("session_id", sessionID).Str("player_id", playerID).
		Str("kind", string(move.Kind)).Msg("move rejected")
	return fmt.Errorf("%s rejected: %w", move.Kind, err)
}

func (s *gameServiceImpl) moveDone(ctx context.Context, move engine.Move, sess *session.Session, playerID, msg string) *MoveResult {
	s.metrics.moves.WithLabelValues(string(move.Kind), "ok").Inc()

	eventType := EventAttack
	if move.Kind == engine.MoveRedistribute {
		eventType = EventRedistribute
	}
	events := []GameEvent{{
		Type:      eventType,
		SessionID: sess.ID,
		PlayerID:  playerID,
		Message:   msg,
		Timestamp: sess.UpdatedAt,
		Move:      &move,
		Game:      sess.Game,
	}}

	result := &MoveResult{
		Success: true,
		Game:    newGameInfo(sess),
		Message: msg,
	}

	if sess.Game.IsFinished() {
		s.metrics.gamesFinished.Inc()
		result.GameOver = true
		result.Winner = sess.Game.State.Winner
		result.Message = fmt.Sprintf("%s. %s wins!", msg, result.Winner)
		events = append(events, GameEvent{
			Type:      EventGameOver,
			SessionID: sess.ID,
			PlayerID:  result.Winner,
			Message:   fmt.Sprintf("%s wins", result.Winner),
			Timestamp: sess.UpdatedAt,
			Game:      sess.Game,
		})
		s.logger.Info().Str("session_id", sess.ID).Str("winner", result.Winner).Msg("game finished")
	}

	result.Events = events
	for _, ev := range events {
		s.publish(ctx, ev)
	}
	return result
}

// GetState returns the current game
func (s *gameServiceImpl) GetState(ctx context.Context, sessionID string) (*GameInfo, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return newGameInfo(sess), nil
}

// ListGames returns all known games, oldest first
func (s *gameServiceImpl) ListGames(ctx context.Context) ([]*GameInfo, error) {
	sessions := s.sessions.List(ctx)
	result := make([]*GameInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, newGameInfo(sess))
	}
	return result, nil
}

// PossibleMoves lists the legal moves for whoever is to move
func (s *gameServiceImpl) PossibleMoves(ctx context.Context, sessionID string) ([]engine.Move, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	moves := sess.Game.PossibleMoves()
	if moves == nil {
		moves = []engine.Move{}
	}
	return moves, nil
}

func (s *gameServiceImpl) activeID(g *engine.Game) string {
	if p := g.ActivePlayer(); p != nil {
		return p.ID
	}
	return string(g.CurrentTurn)
}

// publish sends an event without failing the caller; the move is already
// committed by the time events go out.
func (s *gameServiceImpl) publish(ctx context.Context, ev GameEvent) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Error().Err(err).Str("session_id", ev.SessionID).Str("type", ev.Type).Msg("failed to publish game event")
	}
}

// outcomeLabel maps a move error to a bounded metric label
func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, engine.ErrNotInProgress):
		return "not_in_progress"
	case errors.Is(err, engine.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, engine.ErrDeadHand):
		return "dead_hand"
	case errors.Is(err, engine.ErrInvalidHand):
		return "invalid_hand"
	case errors.Is(err, engine.ErrInsufficientCount):
		return "insufficient_count"
	case errors.Is(err, engine.ErrSymmetricMoveForbidden):
		return "symmetric_move_forbidden"
	default:
		return "error"
	}
}
