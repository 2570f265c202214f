package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter counts failed logins per email inside a fixed window.
type LoginLimiter struct {
	client      *redis.Client
	maxFailures int
	window      time.Duration
}

func NewLoginLimiter(client *redis.Client, maxFailures int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{client: client, maxFailures: maxFailures, window: window}
}

// failScript counts a failure and starts the window on a counter that has
// none, so a counter never outlives its window.
var failScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

func failuresKey(email string) string {
	return "login:failures:" + strings.ToLower(email)
}

// Locked reports whether the email reached the failure limit.
func (l *LoginLimiter) Locked(ctx context.Context, email string) (bool, error) {
	n, err := l.client.Get(ctx, failuresKey(email)).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read login failures: %w", err)
	}
	return n >= l.maxFailures, nil
}

// Fail records a failed login and returns the count in the current window.
func (l *LoginLimiter) Fail(ctx context.Context, email string) (int, error) {
	n, err := failScript.Run(ctx, l.client, []string{failuresKey(email)}, l.window.Milliseconds()).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to record login failure: %w", err)
	}
	return n, nil
}

func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	if err := l.client.Del(ctx, failuresKey(email)).Err(); err != nil {
		return fmt.Errorf("failed to reset login failures: %w", err)
	}
	return nil
}
