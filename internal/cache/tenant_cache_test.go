package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aidevelo/voice-gateway/internal/domain"
	"github.com/aidevelo/voice-gateway/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	values   map[string]string
	getErr   error
	setErr   error
	getCalls int
	setCalls int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}}
}

func (f *fakeRedis) GenerateKey(keyType redis.KeyType, identifier string) string {
	return fmt.Sprintf("%s:%s", keyType, identifier)
}

func (f *fakeRedis) GetValue(ctx context.Context, key string) (string, error) {
	f.getCalls++
	if f.getErr != nil {
		return "", f.getErr
	}
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return "", redis.ErrKeyNotExist
}

func (f *fakeRedis) SetValue(ctx context.Context, key string, value string, ttl time.Duration) error {
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	f.values[key] = value
	return nil
}

func (f *fakeRedis) DelValue(ctx context.Context, key string) error {
	delete(f.values, key)
	return nil
}

type countingTenantRepo struct {
	numbers      map[string]string
	resolveCalls int
	err          error
}

func (r *countingTenantRepo) ResolveLocationIDByNumber(ctx context.Context, number string) (string, error) {
	r.resolveCalls++
	if r.err != nil {
		return "", r.err
	}
	return r.numbers[number], nil
}

func (r *countingTenantRepo) GetLocation(ctx context.Context, id string) (*domain.Location, error) {
	return nil, nil
}

func (r *countingTenantRepo) GetAgentConfig(ctx context.Context, locationID string) (*domain.AgentConfig, error) {
	return nil, nil
}

func TestResolveLocationIDByNumber_CacheAside(t *testing.T) {
	repo := &countingTenantRepo{numbers: map[string]string{"+41440000000": "loc-1"}}
	rds := newFakeRedis()
	cached := NewCachedTenantRepository(repo, rds)

	// First lookup misses the cache and hits the database.
	id, err := cached.ResolveLocationIDByNumber(context.Background(), "+41440000000")
	require.NoError(t, err)
	assert.Equal(t, "loc-1", id)
	assert.Equal(t, 1, repo.resolveCalls)
	assert.Equal(t, 1, rds.setCalls)

	// Second lookup is served from cache.
	id, err = cached.ResolveLocationIDByNumber(context.Background(), "+41440000000")
	require.NoError(t, err)
	assert.Equal(t, "loc-1", id)
	assert.Equal(t, 1, repo.resolveCalls)
}

func TestResolveLocationIDByNumber_MissNotCached(t *testing.T) {
	repo := &countingTenantRepo{numbers: map[string]string{}}
	rds := newFakeRedis()
	cached := NewCachedTenantRepository(repo, rds)

	for i := 0; i < 2; i++ {
		id, err := cached.ResolveLocationIDByNumber(context.Background(), "+41999999999")
		require.NoError(t, err)
		assert.Empty(t, id)
	}

	// Negative results always go back to the database.
	assert.Equal(t, 2, repo.resolveCalls)
	assert.Equal(t, 0, rds.setCalls)
}

func TestResolveLocationIDByNumber_CacheErrorsNotSurfaced(t *testing.T) {
	repo := &countingTenantRepo{numbers: map[string]string{"+41440000000": "loc-1"}}
	rds := newFakeRedis()
	rds.getErr = fmt.Errorf("connection refused")
	rds.setErr = fmt.Errorf("connection refused")
	cached := NewCachedTenantRepository(repo, rds)

	id, err := cached.ResolveLocationIDByNumber(context.Background(), "+41440000000")
	require.NoError(t, err)
	assert.Equal(t, "loc-1", id)
}

func TestResolveLocationIDByNumber_NilRedisPassthrough(t *testing.T) {
	repo := &countingTenantRepo{numbers: map[string]string{"+41440000000": "loc-1"}}
	cached := NewCachedTenantRepository(repo, nil)

	id, err := cached.ResolveLocationIDByNumber(context.Background(), "+41440000000")
	require.NoError(t, err)
	assert.Equal(t, "loc-1", id)
	assert.Equal(t, 1, repo.resolveCalls)
}

func TestResolveLocationIDByNumber_DatabaseErrorSurfaced(t *testing.T) {
	repo := &countingTenantRepo{err: fmt.Errorf("connection refused")}
	cached := NewCachedTenantRepository(repo, newFakeRedis())

	_, err := cached.ResolveLocationIDByNumber(context.Background(), "+41440000000")
	require.Error(t, err)
}
