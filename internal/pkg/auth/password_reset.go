// internal/pkg/auth/password_reset.go
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/catalog-backend/internal/config"
)

// ErrResetThrottled is returned when a reset link was requested too recently
var ErrResetThrottled = errors.New("password reset requested too recently")

// PasswordResets keeps one hashed reset token per email in redis
type PasswordResets struct {
	client   *redis.Client
	expiry   time.Duration
	throttle time.Duration
}

// NewPasswordResets creates a redis-backed reset token store
func NewPasswordResets(client *redis.Client, cfg *config.Config) *PasswordResets {
	return &PasswordResets{
		client:   client,
		expiry:   cfg.Security.PasswordResetExpiry,
		throttle: cfg.Security.PasswordResetThrottle,
	}
}

func resetKey(email string) string {
	return "auth:password_reset:" + email
}

func resetThrottleKey(email string) string {
	return "auth:password_reset_throttle:" + email
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Create issues a new token for email, replacing any earlier one. Only the
// token's hash is stored.
func (p *PasswordResets) Create(ctx context.Context, email string) (string, error) {
	if p.throttle > 0 {
		ok, err := p.client.SetNX(ctx, resetThrottleKey(email), 1, p.throttle).Result()
		if err != nil {
			return "", fmt.Errorf("failed to throttle password reset: %w", err)
		}
		if !ok {
			return "", ErrResetThrottled
		}
	}

	token := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	if err := p.client.Set(ctx, resetKey(email), hashResetToken(token), p.expiry).Err(); err != nil {
		return "", fmt.Errorf("failed to store password reset token: %w", err)
	}
	return token, nil
}

// Consume reports whether token is the live token for email and deletes it when it is
func (p *PasswordResets) Consume(ctx context.Context, email, token string) (bool, error) {
	stored, err := p.client.Get(ctx, resetKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read password reset token: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(hashResetToken(token))) != 1 {
		return false, nil
	}
	if err := p.client.Del(ctx, resetKey(email)).Err(); err != nil {
		return false, fmt.Errorf("failed to delete password reset token: %w", err)
	}
	return true, nil
}
