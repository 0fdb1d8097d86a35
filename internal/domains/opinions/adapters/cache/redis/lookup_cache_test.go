package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/opinions-api/internal/domains/opinions/adapters/memory"
	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

// fakeRedis implements the two commands the cache issues.
type fakeRedis struct {
	goredis.Cmdable
	data    map[string]string
	ttls    map[string]time.Duration
	readErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *goredis.StringCmd {
	cmd := goredis.NewStringCmd(ctx, "get", key)
	switch v, ok := f.data[key]; {
	case f.readErr != nil:
		cmd.SetErr(f.readErr)
	case !ok:
		cmd.SetErr(goredis.Nil)
	default:
		cmd.SetVal(v)
	}
	return cmd
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd {
	cmd := goredis.NewStatusCmd(ctx, "set", key, value)
	f.data[key] = fmt.Sprint(value)
	f.ttls[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

type countingResolver struct {
	ports.LookupResolver
	calls int
}

func (c *countingResolver) ResolveID(ctx context.Context, kind domain.LookupKind, name string) (int64, error) {
	c.calls++
	return c.LookupResolver.ResolveID(ctx, kind, name)
}

func (c *countingResolver) ResolveName(ctx context.Context, kind domain.LookupKind, id int64) (string, error) {
	c.calls++
	return c.LookupResolver.ResolveName(ctx, kind, id)
}

func newCatalog() *countingResolver {
	return &countingResolver{LookupResolver: memory.NewLookupCatalog(map[domain.LookupKind][]domain.LookupEntry{
		domain.LookupDocumentType: {{ID: 3, Name: "Oficio"}},
	})}
}

func TestLookupCache_ReadThrough(t *testing.T) {
	ctx := context.Background()
	next := newCatalog()
	client := newFakeRedis()
	cache := NewLookupCache(next, client, WithTTL(time.Minute))

	for i := 0; i < 3; i++ {
		id, err := cache.ResolveID(ctx, domain.LookupDocumentType, " OFICIO ")
		require.NoError(t, err)
		require.Equal(t, int64(3), id)
	}
	require.Equal(t, 1, next.calls)
	require.Equal(t, time.Minute, client.ttls["opinions:lookup:document_type:name:oficio"])

	for i := 0; i < 2; i++ {
		name, err := cache.ResolveName(ctx, domain.LookupDocumentType, 3)
		require.NoError(t, err)
		require.Equal(t, "Oficio", name)
	}
	require.Equal(t, 2, next.calls)
}

func TestLookupCache_MissesAreNotCached(t *testing.T) {
	ctx := context.Background()
	next := newCatalog()
	client := newFakeRedis()
	cache := NewLookupCache(next, client)

	_, err := cache.ResolveID(ctx, domain.LookupDocumentType, "Memo")
	require.ErrorIs(t, err, ports.ErrNotFound)
	require.Empty(t, client.data)
}

func TestLookupCache_FallsThroughOnRedisFailure(t *testing.T) {
	ctx := context.Background()
	next := newCatalog()
	client := newFakeRedis()
	client.readErr = errors.New("connection refused")
	cache := NewLookupCache(next, client)

	id, err := cache.ResolveID(ctx, domain.LookupDocumentType, "Oficio")
	require.NoError(t, err)
	require.Equal(t, int64(3), id)

	uncached := NewLookupCache(next, nil)
	id, err = uncached.ResolveID(ctx, domain.LookupDocumentType, "Oficio")
	require.NoError(t, err)
	require.Equal(t, int64(3), id)
	require.Equal(t, 2, next.calls)
}
