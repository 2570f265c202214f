package account

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Challenge is a pending second-factor check for a user who passed the
// password step.
type Challenge struct {
	ID           string
	UserID       string
	CodeHash     string
	AttemptsLeft int
	ExpiresAt    time.Time
}

// ChallengeStore keeps 2FA challenges in Redis hashes that expire with the
// challenge.
type ChallengeStore struct {
	client      *redis.Client
	ttl         time.Duration
	maxAttempts int
}

func NewChallengeStore(client *redis.Client, ttl time.Duration, maxAttempts int) *ChallengeStore {
	return &ChallengeStore{client: client, ttl: ttl, maxAttempts: maxAttempts}
}

func challengeKey(id string) string {
	return "2fa:challenge:" + id
}

// failAttemptScript decrements the remaining attempts. It returns -1 for a
// missing challenge and deletes the challenge once no attempts remain.
var failAttemptScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
local n = redis.call('HINCRBY', KEYS[1], 'attempts', -1)
if n <= 0 then
	redis.call('DEL', KEYS[1])
end
return n
`)

func (s *ChallengeStore) write(ctx context.Context, id, userID, codeHash string) (*Challenge, error) {
	key := challengeKey(id)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "user_id", userID, "code_hash", codeHash, "attempts", s.maxAttempts)
		pipe.PExpire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store 2fa challenge: %w", err)
	}
	return &Challenge{
		ID:           id,
		UserID:       userID,
		CodeHash:     codeHash,
		AttemptsLeft: s.maxAttempts,
		ExpiresAt:    time.Now().Add(s.ttl),
	}, nil
}

func (s *ChallengeStore) Create(ctx context.Context, userID, codeHash string) (*Challenge, error) {
	return s.write(ctx, uuid.NewString(), userID, codeHash)
}

// Get returns the live challenge or ErrChallengeExpired.
func (s *ChallengeStore) Get(ctx context.Context, id string) (*Challenge, error) {
	key := challengeKey(id)
	var fields *redis.MapStringStringCmd
	var ttl *redis.DurationCmd
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		fields = pipe.HGetAll(ctx, key)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load 2fa challenge: %w", err)
	}
	m := fields.Val()
	if len(m) == 0 || m["user_id"] == "" {
		return nil, ErrChallengeExpired
	}
	attempts, _ := strconv.Atoi(m["attempts"])
	if attempts <= 0 {
		return nil, ErrChallengeExpired
	}
	return &Challenge{
		ID:           id,
		UserID:       m["user_id"],
		CodeHash:     m["code_hash"],
		AttemptsLeft: attempts,
		ExpiresAt:    time.Now().Add(ttl.Val()),
	}, nil
}

// FailAttempt records a wrong code and returns the attempts left.
func (s *ChallengeStore) FailAttempt(ctx context.Context, id string) (int, error) {
	n, err := failAttemptScript.Run(ctx, s.client, []string{challengeKey(id)}).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to record 2fa attempt: %w", err)
	}
	if n < 0 {
		return 0, ErrChallengeExpired
	}
	return n, nil
}

// Replace stores a new code for a live challenge and resets its attempts and TTL.
func (s *ChallengeStore) Replace(ctx context.Context, id, codeHash string) (*Challenge, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, id, c.UserID, codeHash)
}

// Consume deletes the challenge. It reports false when it was already gone.
func (s *ChallengeStore) Consume(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Del(ctx, challengeKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete 2fa challenge: %w", err)
	}
	return n == 1, nil
}
