package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"reviewhub/internal/domain"
)

// Sessions resolves bearer tokens against redis. Login flows that mint the
// tokens live in a separate service; this side only reads (Put exists for
// that service and for tests).
type Sessions struct{ c *redis.Client }

func New(addr, pass string, db int) *Sessions {
	return &Sessions{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

func sessionKey(token string) string { return "session:" + token }

func (s *Sessions) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	v, err := s.c.Get(ctx, sessionKey(token)).Bytes()
	if err == redis.Nil {
		return domain.Identity{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Identity{}, fmt.Errorf("session lookup: %w", err)
	}
	var id domain.Identity
	if err := json.Unmarshal(v, &id); err != nil {
		return domain.Identity{}, fmt.Errorf("session decode: %w", err)
	}
	return id, nil
}

func (s *Sessions) Put(ctx context.Context, token string, id domain.Identity, ttl time.Duration) error {
	b, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return s.c.Set(ctx, sessionKey(token), b, ttl).Err()
}

func (s *Sessions) Delete(ctx context.Context, token string) error {
	return s.c.Del(ctx, sessionKey(token)).Err()
}
