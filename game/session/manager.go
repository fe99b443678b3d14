package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wricardo/chopsticks/game/engine"
	"github.com/wricardo/chopsticks/game/idgen"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrIDGenerationFailed = errors.New("session id generation failed")
	ErrSessionIDCollision = errors.New("session id already in use")
	ErrInvalidSessionID   = errors.New("invalid session ID")
	ErrRecordTooLarge     = errors.New("session record exceeds the store size limit")
)

const (
	defaultIDTimeout     = 5 * time.Second
	defaultMaxIDAttempts = 3
	defaultLockTTL       = 10 * time.Second
)

// Registry owns every live game and is the only path through which games
// are created or mutated. Each call is one critical section: the game is
// cloned, mutated, persisted and only then published back to the registry.
type Registry struct {
	sessions map[string]*Session
	mu       sync.Mutex

	store         Store
	issuer        idgen.Issuer
	coin          engine.Coin
	locker        Locker
	idTimeout     time.Duration
	maxIDAttempts int
	lockTTL       time.Duration
	logger        zerolog.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithStore persists every committed game to store
func WithStore(store Store) Option {
	return func(r *Registry) {
		r.store = store
	}
}

// WithIssuer sets the source of new session IDs
func WithIssuer(issuer idgen.Issuer) Option {
	return func(r *Registry) {
		r.issuer = issuer
	}
}

// WithCoin sets the coin used to pick the opening player
func WithCoin(coin engine.Coin) Option {
	return func(r *Registry) {
		r.coin = coin
	}
}

// WithIDTimeout bounds each session ID fetch
func WithIDTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.idTimeout = d
		}
	}
}

// WithMaxIDAttempts sets how many fresh IDs are tried when an issued ID is
// already taken
func WithMaxIDAttempts(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxIDAttempts = n
		}
	}
}

// WithLocker enables cross-process locking. The store becomes the source of
// truth and every mutation re-reads the game under the lock.
func WithLocker(locker Locker, ttl time.Duration) Option {
	return func(r *Registry) {
		r.locker = locker
		if ttl > 0 {
			r.lockTTL = ttl
		}
	}
}

// WithLogger sets the registry logger
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions:      make(map[string]*Session),
		issuer:        idgen.UUIDIssuer{},
		coin:          engine.CryptoCoin{},
		idTimeout:     defaultIDTimeout,
		maxIDAttempts: defaultMaxIDAttempts,
		lockTTL:       defaultLockTTL,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create starts a new game owned by playerID and returns its session.
//
// The session ID is fetched before the registry is locked, so other calls may
// run while the issuer is working. Uniqueness is therefore checked again at
// commit time and a taken ID is replaced by a fresh one.
func (r *Registry) Create(ctx context.Context, playerID string) (*Session, error) {
	if playerID == "" {
		return nil, engine.ErrEmptyPlayerID
	}

	for attempt := 1; attempt <= r.maxIDAttempts; attempt++ {
		id, err := r.nextID(ctx)
		if err != nil {
			return nil, err
		}

		sess, err := r.commitNew(ctx, id, playerID)
		if errors.Is(err, ErrSessionIDCollision) {
			r.logger.Warn().Str("session_id", id).Int("attempt", attempt).Msg("issued session id already in use")
			continue
		}
		return sess, err
	}

	return nil, fmt.Errorf("%w: %w after %d attempts", ErrIDGenerationFailed, ErrSessionIDCollision, r.maxIDAttempts)
}

// nextID asks the issuer for an ID, giving up after idTimeout even when the
// issuer ignores its context.
func (r *Registry) nextID(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.idTimeout)
	defer cancel()

	type result struct {
		id  string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		id, err := r.issuer.NextID(ctx)
		ch <- result{id, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return "", fmt.Errorf("%w: %w", ErrIDGenerationFailed, res.err)
		}
		if err := validID(res.id); err != nil {
			return "", fmt.Errorf("%w: %w", ErrIDGenerationFailed, err)
		}
		return res.id, nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrIDGenerationFailed, ctx.Err())
	}
}

func (r *Registry) commitNew(ctx context.Context, id, playerID string) (*Session, error) {
	var out *Session
	err := r.withLock(ctx, id, func() error {
		taken, err := r.existsLocked(ctx, id)
		if err != nil {
			return err
		}
		if taken {
			return ErrSessionIDCollision
		}

		game, err := engine.NewGame(id, playerID, r.coin)
		if err != nil {
			return err
		}

		now := time.Now()
		sess := &Session{ID: id, Game: game, CreatedAt: now, UpdatedAt: now}
		if err := r.persist(ctx, sess); err != nil {
			return err
		}
		r.sessions[id] = sess
		out = sess.clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info().Str("session_id", id).Str("player_id", playerID).
		Str("opening_turn", string(out.Game.CurrentTurn)).Msg("game created")
	return out, nil
}

// Join seats playerID as the second player. Joining a game that is not
// waiting for a player is ignored and reported through the returned bool.
func (r *Registry) Join(ctx context.Context, id, playerID string) (*Session, bool, error) {
	joined := false
	sess, err := r.mutate(ctx, id, func(g *engine.Game) (bool, error) {
		joined = g.Join(playerID)
		return joined, nil
	})
	if err != nil {
		return nil, false, err
	}
	if !joined {
		r.logger.Debug().Str("session_id", id).Str("player_id", playerID).
			Str("status", string(sess.Game.State.Status)).Msg("join ignored")
	}
	return sess, joined, nil
}

// Attack applies an attack move to the game identified by id
func (r *Registry) Attack(ctx context.Context, id, playerID string, source, target engine.Hand) (*Session, error) {
	return r.mutate(ctx, id, func(g *engine.Game) (bool, error) {
		if err := g.Attack(playerID, source, target); err != nil {
			return false, err
		}
		return true, nil
	})
}

// Redistribute applies a redistribute move to the game identified by id
func (r *Registry) Redistribute(ctx context.Context, id, playerID string, source engine.Hand, amount uint) (*Session, error) {
	return r.mutate(ctx, id, func(g *engine.Game) (bool, error) {
		if err := g.Redistribute(playerID, source, amount); err != nil {
			return false, err
		}
		return true, nil
	})
}

// mutate runs fn against a copy of the game and commits the copy only when
// fn reports a change and the store accepted it.
func (r *Registry) mutate(ctx context.Context, id string, fn func(g *engine.Game) (bool, error)) (*Session, error) {
	var out *Session
	err := r.withLock(ctx, id, func() error {
		current, err := r.lookupLocked(ctx, id)
		if err != nil {
			return err
		}

		next := current.clone()
		changed, err := fn(next.Game)
		if err != nil {
			return err
		}
		if !changed {
			out = next
			return nil
		}

		next.UpdatedAt = time.Now()
		if err := r.persist(ctx, next); err != nil {
			return err
		}
		r.sessions[id] = next
		out = next.clone()
		return nil
	})
	return out, err
}

// Get returns a snapshot of the session. Snapshots are copies; mutating them
// does not affect the registry.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, err := r.lookupLocked(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.clone(), nil
}

// List returns snapshots of all sessions, oldest first. With a distributed
// locker the store is read so that games created or changed by other
// processes are listed as they are now.
func (r *Registry) List(ctx context.Context) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sharedStore() {
		r.refreshLocked(ctx)
	}

	result := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		result = append(result, sess.clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Count returns the number of cached sessions
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// LoadPersisted warms the registry with every session in the store.
// Records that fail to decode are logged and skipped.
func (r *Registry) LoadPersisted(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	ids, err := r.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		if _, exists := r.sessions[id]; exists {
			continue
		}
		sess, err := r.store.Load(ctx, id)
		if err != nil {
			r.logger.Warn().Err(err).Str("session_id", id).Msg("skipping persisted session")
			continue
		}
		r.sessions[id] = sess
		loaded++
	}

	if loaded > 0 {
		r.logger.Info().Int("count", loaded).Msg("loaded persisted sessions")
	}
	return nil
}

// refreshLocked reloads every stored session into the cache. Unreadable
// records are logged and skipped; a failed listing keeps the cache as it is.
func (r *Registry) refreshLocked(ctx context.Context) {
	ids, err := r.store.ListAll(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("failed to list stored sessions, serving cached list")
		return
	}

	for _, id := range ids {
		sess, err := r.store.Load(ctx, id)
		if err != nil {
			r.logger.Warn().Err(err).Str("session_id", id).Msg("skipping stored session")
			continue
		}
		r.sessions[id] = sess
	}
}

// sharedStore reports whether the store, not the cache, is the source of truth
func (r *Registry) sharedStore() bool {
	return r.locker != nil && r.store != nil
}

// withLock runs fn inside the registry critical section, also holding the
// distributed lock for key when one is configured.
func (r *Registry) withLock(ctx context.Context, key string, fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.locker != nil {
		unlock, err := r.locker.Lock(ctx, key, r.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to lock session %s: %w", key, err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				r.logger.Error().Err(err).Str("session_id", key).Msg("failed to release session lock")
			}
		}()
	}

	return fn()
}

// lookupLocked finds a session in memory, falling back to the store. With a
// distributed locker and a store, the store is always consulted so that
// writes from other processes are seen.
func (r *Registry) lookupLocked(ctx context.Context, id string) (*Session, error) {
	if !r.sharedStore() {
		if sess, ok := r.sessions[id]; ok {
			return sess, nil
		}
	}
	if r.store == nil {
		return nil, ErrSessionNotFound
	}

	sess, err := r.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}
	r.sessions[id] = sess
	return sess, nil
}

func (r *Registry) existsLocked(ctx context.Context, id string) (bool, error) {
	if _, ok := r.sessions[id]; ok {
		return true, nil
	}
	if r.store == nil {
		return false, nil
	}
	ok, err := r.store.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to check session %s: %w", id, err)
	}
	return ok, nil
}

func (r *Registry) persist(ctx context.Context, sess *Session) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("failed to persist session %s: %w", sess.ID, err)
	}
	return nil
}
