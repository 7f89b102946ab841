package redis

import (
	"context"
	"errors"
	"time"

	customErrors "github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/errors"
	"github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix  = "session:user:"
	tokenKeyPrefix = "session:token:"
)

// RedisSessionRepo stores the current refresh token per account under two keys:
// user -> token for rotation and token -> user for lookup. Both expire with the token.
type RedisSessionRepo struct {
	client *redis.Client
}

func NewRedisSessionRepo(client *redis.Client) *RedisSessionRepo {
	return &RedisSessionRepo{client: client}
}

func userKey(id uuid.UUID) string { return userKeyPrefix + id.String() }

func tokenKey(tok string) string { return tokenKeyPrefix + tok }

func (r *RedisSessionRepo) Save(ctx context.Context, userID uuid.UUID, refreshToken string, expiresAt time.Time) error {
	prev, err := r.client.Get(ctx, userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return customErrors.WrapInternal(err, "SaveSession")
	}

	ttl := safeTTL(expiresAt)
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if prev != "" && prev != refreshToken {
			p.Del(ctx, tokenKey(prev))
		}
		p.Set(ctx, userKey(userID), refreshToken, ttl)
		p.Set(ctx, tokenKey(refreshToken), userID.String(), ttl)
		return nil
	})
	if err != nil {
		return customErrors.WrapInternal(err, "SaveSession")
	}
	return nil
}

func (r *RedisSessionRepo) GetByToken(ctx context.Context, refreshToken string) (model.Session, error) {
	if refreshToken == "" {
		return model.Session{}, customErrors.ErrNotFound
	}

	raw, err := r.client.Get(ctx, tokenKey(refreshToken)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return model.Session{}, customErrors.ErrNotFound
	case err != nil:
		return model.Session{}, customErrors.WrapInternal(err, "GetSessionByToken")
	}

	uid, err := uuid.Parse(raw)
	if err != nil {
		return model.Session{}, customErrors.ErrNotFound
	}

	// A racing Save may leave a stale token key behind; the user key is authoritative.
	current, err := r.client.Get(ctx, userKey(uid)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return model.Session{}, customErrors.ErrNotFound
	case err != nil:
		return model.Session{}, customErrors.WrapInternal(err, "GetSessionByToken")
	case current != refreshToken:
		return model.Session{}, customErrors.ErrNotFound
	}

	ttl, err := r.client.PTTL(ctx, userKey(uid)).Result()
	if err != nil {
		return model.Session{}, customErrors.WrapInternal(err, "GetSessionByToken")
	}

	return model.Session{
		UserID:       uid,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(ttl),
	}, nil
}

func (r *RedisSessionRepo) Remove(ctx context.Context, userID uuid.UUID) error {
	prev, err := r.client.Get(ctx, userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return customErrors.WrapInternal(err, "RemoveSession")
	}

	keys := []string{userKey(userID)}
	if prev != "" {
		keys = append(keys, tokenKey(prev))
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return customErrors.WrapInternal(err, "RemoveSession")
	}
	return nil
}

func safeTTL(exp time.Time) time.Duration {
	ttl := time.Until(exp)
	if ttl <= 0 {
		// already expired: keep the key just long enough to be unusable and then vanish
		return time.Second
	}
	return ttl
}
