package tokeninfra

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Abraxas-365/tenantgate/pkg/errx"
	"github.com/Abraxas-365/tenantgate/pkg/oauth"
	"github.com/redis/go-redis/v9"
)

const (
	accessKeyPrefix  = "oauth:token:"
	refreshKeyPrefix = "oauth:refresh:"
)

// RedisTokenStore persists issued tokens in Redis. Each entry carries a TTL
// matching the token expiry, so revocation state never outlives the token.
type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) oauth.TokenStore {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) SaveAccessToken(ctx context.Context, token oauth.AccessToken) error {
	return s.save(ctx, accessKeyPrefix+token.Token, token, time.Until(token.ExpiresAt))
}

func (s *RedisTokenStore) FindAccessToken(ctx context.Context, tokenValue string) (*oauth.AccessToken, error) {
	var token oauth.AccessToken
	if err := s.find(ctx, accessKeyPrefix+tokenValue, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *RedisTokenStore) RemoveAccessToken(ctx context.Context, tokenValue string) error {
	return s.remove(ctx, accessKeyPrefix+tokenValue)
}

func (s *RedisTokenStore) SaveRefreshToken(ctx context.Context, token oauth.RefreshToken) error {
	return s.save(ctx, refreshKeyPrefix+token.Token, token, time.Until(token.ExpiresAt))
}

func (s *RedisTokenStore) FindRefreshToken(ctx context.Context, tokenValue string) (*oauth.RefreshToken, error) {
	var token oauth.RefreshToken
	if err := s.find(ctx, refreshKeyPrefix+tokenValue, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *RedisTokenStore) RemoveRefreshToken(ctx context.Context, tokenValue string) error {
	return s.remove(ctx, refreshKeyPrefix+tokenValue)
}

func (s *RedisTokenStore) save(ctx context.Context, key string, token any, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(token)
	if err != nil {
		return errx.Wrap(err, "failed to marshal token", errx.TypeInternal)
	}
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return errx.Wrap(err, "failed to store token", errx.TypeInternal)
	}
	return nil
}

func (s *RedisTokenStore) find(ctx context.Context, key string, out any) error {
	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return oauth.ErrTokenNotFound()
		}
		return errx.Wrap(err, "failed to fetch token", errx.TypeInternal)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return errx.Wrap(err, "failed to unmarshal token", errx.TypeInternal)
	}
	return nil
}

func (s *RedisTokenStore) remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return errx.Wrap(err, "failed to remove token", errx.TypeInternal)
	}
	return nil
}
