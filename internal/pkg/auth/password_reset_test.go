package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/catalog-backend/internal/config"
)

func newResets(t *testing.T, throttle time.Duration) (*PasswordResets, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := &config.Config{Security: config.SecurityConfig{
		PasswordResetExpiry:   time.Hour,
		PasswordResetThrottle: throttle,
	}}
	return NewPasswordResets(client, cfg), mr
}

func TestPasswordResetTokenIsSingleUse(t *testing.T) {
	ctx := context.Background()
	resets, mr := newResets(t, 0)

	token, err := resets.Create(ctx, "ann@example.com")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if stored, _ := mr.Get(resetKey("ann@example.com")); stored == token || stored == "" {
		t.Errorf("stored value = %q", stored)
	}

	if ok, _ := resets.Consume(ctx, "bob@example.com", token); ok {
		t.Error("token accepted for another email")
	}
	if ok, _ := resets.Consume(ctx, "ann@example.com", "wrong"); ok {
		t.Error("wrong token accepted")
	}
	if ok, err := resets.Consume(ctx, "ann@example.com", token); !ok || err != nil {
		t.Fatalf("Consume = %v, %v", ok, err)
	}
	if ok, _ := resets.Consume(ctx, "ann@example.com", token); ok {
		t.Error("token reused")
	}
}

func TestPasswordResetNewTokenReplacesOld(t *testing.T) {
	ctx := context.Background()
	resets, _ := newResets(t, 0)

	first, _ := resets.Create(ctx, "ann@example.com")
	second, _ := resets.Create(ctx, "ann@example.com")
	if ok, _ := resets.Consume(ctx, "ann@example.com", first); ok {
		t.Error("replaced token accepted")
	}
	if ok, _ := resets.Consume(ctx, "ann@example.com", second); !ok {
		t.Error("latest token rejected")
	}
}

func TestPasswordResetExpiresAndThrottles(t *testing.T) {
	ctx := context.Background()
	resets, mr := newResets(t, time.Minute)

	token, err := resets.Create(ctx, "ann@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := resets.Create(ctx, "ann@example.com"); !errors.Is(err, ErrResetThrottled) {
		t.Errorf("second request: %v", err)
	}

	mr.FastForward(2 * time.Hour)
	if ok, _ := resets.Consume(ctx, "ann@example.com", token); ok {
		t.Error("expired token accepted")
	}
	if _, err := resets.Create(ctx, "ann@example.com"); err != nil {
		t.Errorf("request after throttle window: %v", err)
	}
}
