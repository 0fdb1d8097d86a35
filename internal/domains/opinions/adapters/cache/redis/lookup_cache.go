package redis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

var _ ports.LookupResolver = (*LookupCache)(nil)

const (
	keyPrefix  = "opinions:lookup"
	defaultTTL = 10 * time.Minute
)

// LookupCache is a read-through Redis cache in front of a catalogue resolver.
// Redis failures are logged and the request falls through to the wrapped resolver.
type LookupCache struct {
	next   ports.LookupResolver
	client goredis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// Option customises the cache.
type Option func(*LookupCache)

// WithTTL sets how long entries live in Redis.
func WithTTL(ttl time.Duration) Option {
	return func(c *LookupCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger overrides the logger used for cache failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *LookupCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewLookupCache wraps next. A nil client disables caching.
func NewLookupCache(next ports.LookupResolver, client goredis.Cmdable, opts ...Option) *LookupCache {
	c := &LookupCache{
		next:   next,
		client: client,
		ttl:    defaultTTL,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *LookupCache) ResolveID(ctx context.Context, kind domain.LookupKind, name string) (int64, error) {
	key := nameKey(kind, name)
	if raw, ok := c.get(ctx, key); ok {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return id, nil
		}
	}
	id, err := c.next.ResolveID(ctx, kind, name)
	if err != nil {
		return 0, err
	}
	c.set(ctx, key, strconv.FormatInt(id, 10))
	return id, nil
}

func (c *LookupCache) ResolveName(ctx context.Context, kind domain.LookupKind, id int64) (string, error) {
	key := idKey(kind, id)
	if raw, ok := c.get(ctx, key); ok {
		return raw, nil
	}
	name, err := c.next.ResolveName(ctx, kind, id)
	if err != nil {
		return "", err
	}
	c.set(ctx, key, name)
	return name, nil
}

func (c *LookupCache) get(ctx context.Context, key string) (string, bool) {
	if c.client == nil {
		return "", false
	}
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.logger.WarnContext(ctx, "lookup cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return "", false
	}
	return raw, true
}

func (c *LookupCache) set(ctx context.Context, key, value string) {
	if c.client == nil {
		return
	}
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "lookup cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func nameKey(kind domain.LookupKind, name string) string {
	return fmt.Sprintf("%s:%s:name:%s", keyPrefix, kind, strings.ToLower(strings.TrimSpace(name)))
}

func idKey(kind domain.LookupKind, id int64) string {
	return fmt.Sprintf("%s:%s:id:%d", keyPrefix, kind, id)
}
