package vercode

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResendLimiter throttles code requests per (email, purpose) so a user cannot
// hammer the mail collaborator. Redis outages fail open: throttling is a
// courtesy, not a security control, and must never block a legitimate
// request.
type ResendLimiter struct {
	client *redis.Client
	window time.Duration
}

// NewResendLimiter constructs a ResendLimiter with the given resend window.
func NewResendLimiter(client *redis.Client, window time.Duration) *ResendLimiter {
	return &ResendLimiter{client: client, window: window}
}

// Allow reports whether a code may be issued now, and reserves the window
// when it is.
func (l *ResendLimiter) Allow(ctx context.Context, email string, purpose Purpose) bool {
	if l == nil || l.client == nil || l.window <= 0 {
		return true
	}
	key := fmt.Sprintf("vercode:resend:%s:%s", purpose, email)
	ok, err := l.client.SetNX(ctx, key, 1, l.window).Result()
	if err != nil {
		return true
	}
	return ok
}
