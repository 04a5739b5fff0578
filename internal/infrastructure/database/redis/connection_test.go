package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()})), mr
}

func TestJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)

	type payload struct {
		IDs   []int  `json:"ids"`
		Label string `json:"label"`
	}

	if err := c.SetJSON(ctx, "k", payload{IDs: []int{3, 1}, Label: "x"}, time.Minute); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}

	var got payload
	if err := c.GetJSON(ctx, "k", &got); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if got.Label != "x" || len(got.IDs) != 2 || got.IDs[0] != 3 {
		t.Errorf("got %+v", got)
	}

	mr.FastForward(2 * time.Minute)
	if err := c.GetJSON(ctx, "k", &got); !errors.Is(err, ErrMiss) {
		t.Errorf("after expiry err = %v, want ErrMiss", err)
	}
}

func TestGetMissAndIncr(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)

	if _, err := c.Get(ctx, "absent"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get err = %v, want ErrMiss", err)
	}

	for want := int64(1); want <= 3; want++ {
		got, err := c.Incr(ctx, "counter")
		if err != nil || got != want {
			t.Fatalf("Incr = %d, %v; want %d", got, err, want)
		}
	}

	if err := c.Health(ctx); err != nil {
		t.Errorf("Health: %v", err)
	}
}
