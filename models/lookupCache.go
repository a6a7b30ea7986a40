package models

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/posting_backend/config"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const lookupLoadTimeout = 10 * time.Second

// CachedLookupRepository caches the slow-changing routing tables in redis.
// Merchant, terminal and account lookups always go to the database.
type CachedLookupRepository struct {
	LookupRepository
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
	group  singleflight.Group
}

// NewCachedLookupRepository returns a pass-through repository when client is nil or ttl <= 0.
func NewCachedLookupRepository(inner LookupRepository, client *redis.Client, ttl time.Duration, logger *logrus.Logger) *CachedLookupRepository {
	if ttl <= 0 {
		client = nil
	}
	return &CachedLookupRepository{LookupRepository: inner, client: client, ttl: ttl, logger: logger}
}

func profileCacheKey(profile string) string {
	return "posting:profile:" + profile
}

func controlCacheKey(profile string, variant ControlVariant) string {
	return fmt.Sprintf("posting:control:%s:%s", profile, variant)
}

func chargesCacheKey(profile, merchantCode string) string {
	return fmt.Sprintf("posting:charges:%s:%s", profile, merchantCode)
}

func (c *CachedLookupRepository) FindProfile(ctx context.Context, code string) (*PostingProfile, error) {
	var p *PostingProfile
	return readThrough(ctx, c, profileCacheKey(code), &p, func(loadCtx context.Context) (*PostingProfile, error) {
		return c.LookupRepository.FindProfile(loadCtx, code)
	}, func(p *PostingProfile) bool { return p != nil })
}

func (c *CachedLookupRepository) AutoBalance(ctx context.Context, profile string) (*AutoBalanceConfig, error) {
	p, err := c.FindProfile(ctx, profile)
	if err != nil || p == nil {
		return nil, err
	}
	return p.AutoBalanceConfig(), nil
}

func (c *CachedLookupRepository) ControlEntries(ctx context.Context, profile string, variant ControlVariant) ([]ControlEntry, error) {
	var entries []ControlEntry
	return readThrough(ctx, c, controlCacheKey(profile, variant), &entries, func(loadCtx context.Context) ([]ControlEntry, error) {
		return c.LookupRepository.ControlEntries(loadCtx, profile, variant)
	}, nil)
}

func (c *CachedLookupRepository) ChargeRules(ctx context.Context, profile, merchantCode string) ([]ChargeRule, error) {
	var rules []ChargeRule
	return readThrough(ctx, c, chargesCacheKey(profile, merchantCode), &rules, func(loadCtx context.Context) ([]ChargeRule, error) {
		return c.LookupRepository.ChargeRules(loadCtx, profile, merchantCode)
	}, nil)
}

// readThrough serves key from redis, or loads it once per key across concurrent callers and stores it.
// A nil cacheable stores every loaded value.
//
// The shared load is detached from the caller that started it and bounded by lookupLoadTimeout;
// each caller stops waiting on its own context only.
func readThrough[T any](ctx context.Context, c *CachedLookupRepository, key string, dest *T, load func(context.Context) (T, error), cacheable func(T) bool) (T, error) {
	if c.get(ctx, key, dest) {
		return *dest, nil
	}
	ch := c.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupLoadTimeout)
		defer cancel()
		loaded, err := load(loadCtx)
		if err != nil {
			return loaded, err
		}
		if cacheable == nil || cacheable(loaded) {
			c.set(loadCtx, key, loaded)
		}
		return loaded, nil
	})
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// InvalidateProfile drops every cached entry of a profile after its tables change.
func (c *CachedLookupRepository) InvalidateProfile(ctx context.Context, profile string) error {
	if c.client == nil {
		return nil
	}
	keys := []string{
		profileCacheKey(profile),
		controlCacheKey(profile, ControlVariantPOS),
		controlCacheKey(profile, ControlVariantEcommerce),
	}
	iter := c.client.Scan(ctx, 0, chargesCacheKey(profile, "*"), 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return config.RemoveRedisKey(ctx, c.client, keys...)
}

// Redis failures fall through to the database.
func (c *CachedLookupRepository) get(ctx context.Context, key string, dest interface{}) bool {
	ok, err := config.GetRedisObject(ctx, c.client, key, dest)
	if err != nil {
		config.LogError(c.logger, "CachedLookupRepository", "get", key, nil, err)
		return false
	}
	return ok
}

func (c *CachedLookupRepository) set(ctx context.Context, key string, obj interface{}) {
	if err := config.SetRedisObject(ctx, c.client, key, obj, c.ttl); err != nil {
		config.LogError(c.logger, "CachedLookupRepository", "set", key, nil, err)
	}
}
