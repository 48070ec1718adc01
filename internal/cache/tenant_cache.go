package cache

import (
	"context"
	"time"

	"github.com/aidevelo/voice-gateway/internal/domain"
	"github.com/aidevelo/voice-gateway/internal/repository"
	"github.com/aidevelo/voice-gateway/pkg/logger"
	"github.com/aidevelo/voice-gateway/pkg/redis"
	"go.uber.org/zap"
)

// DefaultResolutionTTL bounds how long a number-to-location mapping is
// served from cache. Number reassignment is rare, short staleness is fine.
const DefaultResolutionTTL = 5 * time.Minute

// CachedTenantRepository wraps a TenantRepository with a Redis cache-aside
// layer for dialed-number resolution, the hottest lookup on the inbound
// webhook path. With no Redis service it degrades to plain passthrough.
type CachedTenantRepository struct {
	repo  repository.TenantRepository
	redis redis.RedisServiceInterface
	ttl   time.Duration
}

// NewCachedTenantRepository creates a caching wrapper. redisSvc may be nil.
func NewCachedTenantRepository(repo repository.TenantRepository, redisSvc redis.RedisServiceInterface) *CachedTenantRepository {
	return &CachedTenantRepository{
		repo:  repo,
		redis: redisSvc,
		ttl:   DefaultResolutionTTL,
	}
}

// ResolveLocationIDByNumber resolves via cache first, falling back to the
// database. Cache errors are logged and never surfaced.
func (c *CachedTenantRepository) ResolveLocationIDByNumber(ctx context.Context, number string) (string, error) {
	if c.redis == nil || number == "" {
		return c.repo.ResolveLocationIDByNumber(ctx, number)
	}

	key := c.redis.GenerateKey(redis.PHONE_LOCATION, number)
	if cached, err := c.redis.GetValue(ctx, key); err == nil {
		return cached, nil
	} else if err != redis.ErrKeyNotExist {
		logger.Base().Warn("phone resolution cache read failed", zap.String("number", number), zap.Error(err))
	}

	locationID, err := c.repo.ResolveLocationIDByNumber(ctx, number)
	if err != nil {
		return "", err
	}

	if locationID != "" {
		if err := c.redis.SetValue(ctx, key, locationID, c.ttl); err != nil {
			logger.Base().Warn("phone resolution cache write failed", zap.String("number", number), zap.Error(err))
		}
	}
	return locationID, nil
}

// GetLocation delegates to the underlying repository
func (c *CachedTenantRepository) GetLocation(ctx context.Context, id string) (*domain.Location, error) {
	return c.repo.GetLocation(ctx, id)
}

// GetAgentConfig delegates to the underlying repository
func (c *CachedTenantRepository) GetAgentConfig(ctx context.Context, locationID string) (*domain.AgentConfig, error) {
	return c.repo.GetAgentConfig(ctx, locationID)
}
