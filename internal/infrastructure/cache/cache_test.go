package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/your-org/catalog-backend/internal/infrastructure/database/redis"
	"github.com/your-org/catalog-backend/internal/pkg/logger"
)

type listing struct {
	IDs   []uint `json:"ids"`
	Total int64  `json:"total"`
}

func newCatalog(t *testing.T) (*Catalog, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	return NewCatalog(client, time.Hour, logger.Discard()), mr
}

func TestRememberCachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)

	calls := 0
	load := func() (listing, error) {
		calls++
		return listing{IDs: []uint{4, 2}, Total: int64(calls)}, nil
	}
	params := map[string]interface{}{"category": 3, "sort": "price_asc"}

	first, err := Remember(ctx, c, "products:list", params, load)
	if err != nil {
		t.Fatalf("Remember: %v", err)
	}
	second, _ := Remember(ctx, c, "products:list", params, load)
	if calls != 1 || second.Total != first.Total {
		t.Fatalf("expected a cache hit, calls=%d", calls)
	}

	// different params use a different key
	if _, err := Remember(ctx, c, "products:list", map[string]interface{}{"category": 4}, load); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}

	c.Invalidate(ctx)
	third, _ := Remember(ctx, c, "products:list", params, load)
	if calls != 3 || third.Total != 3 {
		t.Errorf("expected reload after invalidate, calls=%d total=%d", calls, third.Total)
	}
}

func TestRememberDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)

	boom := errors.New("db down")
	calls := 0
	load := func() (listing, error) {
		calls++
		return listing{}, boom
	}

	for i := 0; i < 2; i++ {
		if _, err := Remember(ctx, c, "products:list", 1, load); !errors.Is(err, boom) {
			t.Fatalf("err = %v, want %v", err, boom)
		}
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRememberFallsBackWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	c, mr := newCatalog(t)
	mr.Close()

	got, err := Remember(ctx, c, "products:list", 1, func() (listing, error) {
		return listing{Total: 9}, nil
	})
	if err != nil || got.Total != 9 {
		t.Errorf("got %+v, %v", got, err)
	}
}

func TestDisabledCatalog(t *testing.T) {
	var c *Catalog
	got, err := Remember(context.Background(), c, "x", nil, func() (int, error) { return 5, nil })
	if err != nil || got != 5 {
		t.Errorf("got %d, %v", got, err)
	}
	c.Invalidate(context.Background())
}
