package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wricardo/chopsticks/game/engine"
)

// DefaultMaxRecordSize bounds the encoded size of one persisted session
const DefaultMaxRecordSize = 10000

// Store persists sessions one key at a time
type Store interface {
	// Save persists a session, replacing any previous record with the same ID
	Save(ctx context.Context, session *Session) error

	// Load retrieves a session by ID.
	// Returns ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, id string) (*Session, error)

	// Exists checks if a session exists in storage
	Exists(ctx context.Context, id string) (bool, error)

	// ListAll returns all persisted session IDs
	ListAll(ctx context.Context) ([]string, error)
}

// UnlockFunc releases a lock acquired through a Locker
type UnlockFunc func(ctx context.Context) error

// Locker serializes mutations of one session across processes sharing a Store
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

// Session is a game together with its registry metadata
type Session struct {
	ID        string       `json:"id"`
	Game      *engine.Game `json:"game"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (s *Session) clone() *Session {
	c := *s
	if s.Game != nil {
		c.Game = s.Game.Clone()
	}
	return &c
}

// encodeSession serializes a session, failing with ErrRecordTooLarge when the
// record exceeds maxSize bytes. A maxSize of zero disables the bound.
func encodeSession(s *Session, maxSize int) ([]byte, error) {
	if s == nil || s.Game == nil {
		return nil, fmt.Errorf("session cannot be nil")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session %s: %w", s.ID, err)
	}
	if maxSize > 0 && len(data) > maxSize {
		return nil, fmt.Errorf("%w: session %s is %d bytes, limit %d", ErrRecordTooLarge, s.ID, len(data), maxSize)
	}
	return data, nil
}

// decodeSession parses a persisted record and checks the game invariants
func decodeSession(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if s.Game == nil {
		return nil, fmt.Errorf("%w: session %s has no game", engine.ErrCorruptGame, s.ID)
	}
	if s.ID != s.Game.SessionID {
		return nil, fmt.Errorf("%w: record id %q does not match game %q", engine.ErrCorruptGame, s.ID, s.Game.SessionID)
	}
	if err := s.Game.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// validID rejects identifiers that cannot be used as storage keys
func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return nil
}
