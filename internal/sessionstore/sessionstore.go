// Package sessionstore persists SessionState between turns, keyed by
// (domain, user_id), with a TTL and a graceful-degrade-on-failure
// contract: a turn must survive a down session store.
package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/slotwise/dialog-orchestrator/internal/domain"
	"github.com/slotwise/dialog-orchestrator/pkg/logger"
)

// Store is the SessionStore contract Orchestrator depends on.
type Store interface {
	Get(ctx context.Context, d domain.Domain, userID string) (*domain.SessionState, error)
	Set(ctx context.Context, d domain.Domain, userID string, state *domain.SessionState, ttl time.Duration) error
	Clear(ctx context.Context, d domain.Domain, userID string) error
}

// RedisStore is the production Store backed by go-redis.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	logger    *logger.Logger
}

// New wraps an already-connected redis client. keyPrefix is the
// `<prefix>` segment of the `<prefix>:<domain>:user:<user_id>` key
// format.
func New(client *redis.Client, keyPrefix string, log *logger.Logger) *RedisStore {
	return &RedisStore{client: client, keyPrefix: keyPrefix, logger: log}
}

func (s *RedisStore) key(d domain.Domain, userID string) string {
	return fmt.Sprintf("%s:%s:user:%s", s.keyPrefix, d, userID)
}

// Get reads and decodes the session, returning (nil, nil) both when no
// session exists and when the store itself fails: persistence failure
// must degrade gracefully, never propagate or crash a turn.
func (s *RedisStore) Get(ctx context.Context, d domain.Domain, userID string) (*domain.SessionState, error) {
	raw, err := s.client.Get(ctx, s.key(d, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("session store get failed, degrading to no session", "domain", d, "user_id", userID, "error", err)
		return nil, nil
	}

	var state domain.SessionState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		s.logger.Error("session store get decoded corrupt payload, degrading to no session", "domain", d, "user_id", userID, "error", err)
		return nil, nil
	}
	return &state, nil
}

// Set writes the session with the given TTL. Failures are logged with
// full context but never returned to the caller as a hard error.
func (s *RedisStore) Set(ctx context.Context, d domain.Domain, userID string, state *domain.SessionState, ttl time.Duration) error {
	payload, err := json.Marshal(state)
	if err != nil {
		s.logger.Error("session store set failed to encode state", "domain", d, "user_id", userID, "error", err)
		return nil
	}
	if err := s.client.Set(ctx, s.key(d, userID), payload, ttl).Err(); err != nil {
		s.logger.Error("session store set failed", "domain", d, "user_id", userID, "error", err)
	}
	return nil
}

// Clear deletes the session outright, used on READY/EXECUTED and on
// reset intents.
func (s *RedisStore) Clear(ctx context.Context, d domain.Domain, userID string) error {
	if err := s.client.Del(ctx, s.key(d, userID)).Err(); err != nil {
		s.logger.Error("session store clear failed", "domain", d, "user_id", userID, "error", err)
	}
	return nil
}

// Connect dials Redis from discrete host/port/password/db settings.
func Connect(host string, port int, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})
	return client, nil
}
