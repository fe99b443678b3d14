package session

import (
	"context"
	"errors"
	"fmt"
	"sort"

	backend "github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key the Redis store and locker write
const DefaultRedisPrefix = "chopsticks:session:"

// RedisStore implements Store on Redis. Each session is one string key and
// the set of known IDs is kept in a separate index set.
type RedisStore struct {
	client        backend.UniversalClient
	prefix        string
	maxRecordSize int
}

// RedisOption configures a RedisStore
type RedisOption func(*RedisStore)

// WithRedisPrefix sets the key prefix for sessions.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithRedisMaxRecordSize bounds the encoded size of one session record.
func WithRedisMaxRecordSize(n int) RedisOption {
	return func(s *RedisStore) {
		if n > 0 {
			s.maxRecordSize = n
		}
	}
}

// NewRedisStore creates a store on top of an existing client
func NewRedisStore(client backend.UniversalClient, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client:        client,
		prefix:        DefaultRedisPrefix,
		maxRecordSize: DefaultMaxRecordSize,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "index"
}

// Save writes the record and indexes its ID in one pipeline
func (s *RedisStore) Save(ctx context.Context, session *Session) error {
	if session != nil {
		if err := validID(session.ID); err != nil {
			return err
		}
	}
	data, err := encodeSession(session, s.maxRecordSize)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(session.ID), data, 0)
	pipe.SAdd(ctx, s.indexKey(), session.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves and validates a session record
func (s *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	session, err := decodeSession(val)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	return session, nil
}

func (s *RedisStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check redis key: %w", err)
	}
	return n > 0, nil
}

// ListAll returns the indexed session IDs in lexical order
func (s *RedisStore) ListAll(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
