package account

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Outcomes of consuming a refresh token.
const (
	refreshUnknown  = 0
	refreshConsumed = 1
	refreshReused   = -1
)

// TokenStore is the Redis allow-list of refresh token ids. Rotated and
// logged-out ids leave a revoked marker until they would have expired.
type TokenStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client, now: time.Now}
}

func refreshKey(jti string) string       { return "refresh:" + jti }
func revokedKey(jti string) string       { return "refresh:revoked:" + jti }
func userTokensKey(userID string) string { return "refresh:user:" + userID }

var consumeScript = redis.NewScript(`
if redis.call('DEL', KEYS[1]) == 1 then
	redis.call('SREM', KEYS[3], ARGV[1])
	redis.call('SET', KEYS[2], '1', 'PX', ARGV[2])
	return 1
end
if redis.call('EXISTS', KEYS[2]) == 1 then
	return -1
end
return 0
`)

func (s *TokenStore) remaining(exp time.Time) time.Duration {
	d := exp.Sub(s.now())
	if d < time.Second {
		return time.Second
	}
	return d
}

// Allow registers a refresh token id for userID until exp.
func (s *TokenStore) Allow(ctx context.Context, userID, jti string, exp time.Time) error {
	ttl := s.remaining(exp)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, refreshKey(jti), userID, ttl)
		pipe.SAdd(ctx, userTokensKey(userID), jti)
		pipe.Expire(ctx, userTokensKey(userID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to allow refresh token: %w", err)
	}
	return nil
}

// Consume removes jti from the allow-list and marks it revoked. It returns
// refreshConsumed, refreshReused when jti was revoked before, or
// refreshUnknown.
func (s *TokenStore) Consume(ctx context.Context, userID, jti string, exp time.Time) (int, error) {
	n, err := consumeScript.Run(ctx, s.client,
		[]string{refreshKey(jti), revokedKey(jti), userTokensKey(userID)},
		jti, s.remaining(exp).Milliseconds(),
	).Int()
	if err != nil {
		return refreshUnknown, fmt.Errorf("failed to consume refresh token: %w", err)
	}
	return n, nil
}

// RevokeAll drops every refresh token of the user.
func (s *TokenStore) RevokeAll(ctx context.Context, userID string) error {
	jtis, err := s.client.SMembers(ctx, userTokensKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list refresh tokens: %w", err)
	}
	keys := make([]string, 0, len(jtis)+1)
	for _, jti := range jtis {
		keys = append(keys, refreshKey(jti))
	}
	keys = append(keys, userTokensKey(userID))
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}
