// internal/infrastructure/cache/cache.go
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	rediscli "github.com/your-org/catalog-backend/internal/infrastructure/database/redis"
)

const versionKey = "catalog:version"

// Catalog is a read-through cache for storefront reads. Every catalog write bumps a
// version counter, which orphans all previously cached entries at once.
type Catalog struct {
	client *rediscli.Client
	ttl    time.Duration
	log    *logrus.Logger
}

// NewCatalog creates a catalog cache. A nil client disables caching.
func NewCatalog(client *rediscli.Client, ttl time.Duration, log *logrus.Logger) *Catalog {
	return &Catalog{client: client, ttl: ttl, log: log}
}

// Enabled reports whether a redis client is attached
func (c *Catalog) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *Catalog) version(ctx context.Context) string {
	v, err := c.client.Get(ctx, versionKey)
	if errors.Is(err, rediscli.ErrMiss) {
		return "0"
	}
	if err != nil {
		return ""
	}
	return v
}

// Key builds "<prefix>:v<version>:<sha1 of params>"
func (c *Catalog) Key(ctx context.Context, prefix string, params interface{}) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to encode cache params: %w", err)
	}
	sum := sha1.Sum(raw)

	v := c.version(ctx)
	if v == "" {
		return "", fmt.Errorf("cache version unavailable")
	}
	return prefix + ":v" + v + ":" + hex.EncodeToString(sum[:]), nil
}

// Invalidate drops every cached catalog read
func (c *Catalog) Invalidate(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	n, err := c.client.Incr(ctx, versionKey)
	if err != nil {
		c.log.WithError(err).Warn("failed to bump catalog cache version")
		return
	}
	c.log.WithField("version", strconv.FormatInt(n, 10)).Debug("catalog cache invalidated")
}

// Remember returns the cached value for (prefix, params) or computes and stores it.
// Redis failures degrade to calling load directly.
func Remember[T any](ctx context.Context, c *Catalog, prefix string, params interface{}, load func() (T, error)) (T, error) {
	if !c.Enabled() {
		return load()
	}

	key, err := c.Key(ctx, prefix, params)
	if err != nil {
		c.log.WithError(err).Warn("catalog cache bypassed")
		return load()
	}

	var cached T
	err = c.client.GetJSON(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, rediscli.ErrMiss) {
		c.log.WithError(err).WithField("key", key).Warn("catalog cache read failed")
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	if err := c.client.SetJSON(ctx, key, value, c.ttl); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("catalog cache write failed")
	}
	return value, nil
}
