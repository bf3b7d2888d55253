package onboarding

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campusbot/backend/pkg/logger"
)

// SessionStore keeps in-flight onboarding drafts keyed by user id. The
// memory-backed store keeps drafts local to one process; the Redis-backed
// store survives restarts and can be shared across instances.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (*Draft, error)
	Put(ctx context.Context, userID int64, draft *Draft) error
	Delete(ctx context.Context, userID int64) error
}

type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[int64]Draft
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[int64]Draft)}
}

func (m *MemoryStore) Get(ctx context.Context, userID int64) (*Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.drafts[userID]
	if !ok {
		return nil, nil
	}
	copied := d
	return &copied, nil
}

func (m *MemoryStore) Put(ctx context.Context, userID int64, draft *Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.drafts[userID] = *draft
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.drafts, userID)
	return nil
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis session store initialized", zap.String("addr", addr))

	return &RedisStore{client: client, ttl: ttl}, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func draftKey(userID int64) string {
	return fmt.Sprintf("onboarding:draft:%d", userID)
}

func (r *RedisStore) Get(ctx context.Context, userID int64) (*Draft, error) {
	data, err := r.client.Get(ctx, draftKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &d, nil
}

func (r *RedisStore) Put(ctx context.Context, userID int64, draft *Draft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	if err := r.client.Set(ctx, draftKey(userID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store draft: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, draftKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
