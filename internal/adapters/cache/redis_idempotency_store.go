package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"warehouse-allocation-service/internal/platform/obs"
	"warehouse-allocation-service/internal/ports"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPending   = "pending"
	idempotencyCompleted = "completed"
)

type idempotencyRecord struct {
	State    string                    `json:"state"`
	Response *ports.IdempotentResponse `json:"response,omitempty"`
}

// RedisIdempotencyStore keeps idempotency keys in Redis with a TTL.
// A key is first written as a pending marker with SETNX, then overwritten
// with the recorded response once the request finishes.
type RedisIdempotencyStore struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{Client: client, Prefix: "idempotency:", TTL: ttl}
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string) (_ *ports.IdempotentResponse, _ bool, err error) {
	defer obs.Time(ctx, "idempotency.redis.Reserve")(&err)

	if s.Client == nil {
		return nil, false, errors.New("idempotency store: redis client is nil")
	}
	if strings.TrimSpace(key) == "" {
		return nil, false, errors.New("reserve idempotency key: key must not be empty")
	}

	pending, err := json.Marshal(idempotencyRecord{State: idempotencyPending})
	if err != nil {
		return nil, false, fmt.Errorf("reserve idempotency key: encode marker: %w", err)
	}

	ok, err := s.Client.SetNX(ctx, s.Prefix+key, pending, s.TTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("reserve idempotency key %q: setnx: %w", key, err)
	}
	if ok {
		return nil, true, nil
	}

	raw, err := s.Client.Get(ctx, s.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; the caller may retry.
		return nil, false, fmt.Errorf("reserve idempotency key %q: %w", key, ports.ErrIdempotencyInFlight)
	}
	if err != nil {
		return nil, false, fmt.Errorf("reserve idempotency key %q: get: %w", key, err)
	}

	var rec idempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("reserve idempotency key %q: decode record: %w", key, err)
	}
	if rec.State != idempotencyCompleted || rec.Response == nil {
		return nil, false, fmt.Errorf("reserve idempotency key %q: %w", key, ports.ErrIdempotencyInFlight)
	}

	return rec.Response, false, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, resp ports.IdempotentResponse) error {
	if s.Client == nil {
		return errors.New("idempotency store: redis client is nil")
	}

	raw, err := json.Marshal(idempotencyRecord{State: idempotencyCompleted, Response: &resp})
	if err != nil {
		return fmt.Errorf("complete idempotency key %q: encode record: %w", key, err)
	}
	if err := s.Client.Set(ctx, s.Prefix+key, raw, s.TTL).Err(); err != nil {
		return fmt.Errorf("complete idempotency key %q: set: %w", key, err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if s.Client == nil {
		return errors.New("idempotency store: redis client is nil")
	}
	if err := s.Client.Del(ctx, s.Prefix+key).Err(); err != nil {
		return fmt.Errorf("release idempotency key %q: del: %w", key, err)
	}
	return nil
}
