package loginsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-todo-spa/internal/errors"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "todo-spa:session:"

var _ Repo = (*RedisRepo)(nil)

// RedisRepo keeps login sessions in Redis so several instances can share them.
// Keys expire with the session.
type RedisRepo struct {
	client *redis.Client
}

func NewRedisRepo(client *redis.Client) *RedisRepo {
	return &RedisRepo{client: client}
}

func (r *RedisRepo) Upsert(ctx context.Context, session Session) error {
	if session.ID == "" {
		return fmt.Errorf("sessionID is required")
	}

	var ttl time.Duration
	if !session.ExpiresAt.IsZero() {
		ttl = time.Until(session.ExpiresAt)
		if ttl <= 0 {
			return apperrors.ErrSessionExpired
		}
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return r.client.Set(ctx, sessionKeyPrefix+session.ID, payload, ttl).Err()
}

func (r *RedisRepo) Get(ctx context.Context, sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{}, fmt.Errorf("sessionID is required")
	}

	payload, err := r.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}

	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return session, nil
}

func (r *RedisRepo) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}
	return r.client.Del(ctx, sessionKeyPrefix+sessionID).Err()
}
