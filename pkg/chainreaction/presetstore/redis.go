package presetstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// RedisStore persists presets in Redis.
//
// Each preset is a string key under the prefix. A sorted set scored by
// first-save sequence keeps List ordered and a hash records update times.
type RedisStore struct {
	client *backend.Client
	prefix string

	mu     sync.RWMutex
	closed bool
}

// RedisOption configures RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix sets the key prefix. Default: "chainreaction:preset:".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStore connects to Redis at address.
func NewRedisStore(address, password string, db int, opts ...RedisOption) *RedisStore {
	return NewRedisStoreFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewRedisStoreFromClient wraps an existing client. Close closes the client.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: "chainreaction:preset:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) dataKey(key string) string { return s.prefix + "data:" + key }
func (s *RedisStore) indexKey() string          { return s.prefix + "index" }
func (s *RedisStore) seqKey() string            { return s.prefix + "seq" }
func (s *RedisStore) updatedKey() string        { return s.prefix + "updated" }

// Save implements Store.
// Overwriting a key keeps its original sequence.
func (s *RedisStore) Save(ctx context.Context, key string, data []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.dataKey(key), data, 0)
	pipe.HSet(ctx, s.updatedKey(), key, time.Now().UTC().Format(time.RFC3339Nano))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save preset: %w", err)
	}

	_, err := s.client.ZScore(ctx, s.indexKey(), key).Result()
	if err == nil {
		return nil
	}
	if !errors.Is(err, backend.Nil) {
		return fmt.Errorf("read preset sequence: %w", err)
	}

	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("allocate preset sequence: %w", err)
	}
	if err := s.client.ZAddNX(ctx, s.indexKey(), backend.Z{Score: float64(seq), Member: key}).Err(); err != nil {
		return fmt.Errorf("index preset: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	data, err := s.client.Get(ctx, s.dataKey(key)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load preset: %w", err)
	}
	return data, nil
}

// List implements Store.
func (s *RedisStore) List(ctx context.Context) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	members, err := s.client.ZRangeWithScores(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}

	infos := make([]Info, 0, len(members))
	for _, m := range members {
		key, ok := m.Member.(string)
		if !ok {
			continue
		}
		size, err := s.client.StrLen(ctx, s.dataKey(key)).Result()
		if err != nil {
			return nil, fmt.Errorf("size preset %s: %w", key, err)
		}
		info := Info{Key: key, Sequence: int(m.Score), Size: size}
		if ts, err := s.client.HGet(ctx, s.updatedKey(), key).Result(); err == nil {
			info.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.dataKey(key))
	pipe.ZRem(ctx, s.indexKey(), key)
	pipe.HDel(ctx, s.updatedKey(), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.client.Close()
}
