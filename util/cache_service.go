// util/cache_service.go

package util

import (
	"context"
	"time"

	"github.com/arbiterhq/arbiter/db"
	"github.com/arbiterhq/arbiter/model"
	pdp_model "github.com/arbiterhq/arbiter/pdp/model"
)

type CacheService struct{}

func NewCacheService() *CacheService {
	return &CacheService{}
}

func (c *CacheService) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	return db.GetCachedPolicy(ctx, policyID)
}

func (c *CacheService) SetPolicy(ctx context.Context, policy model.Policy) error {
	return db.CachePolicy(ctx, &policy)
}

func (c *CacheService) DeletePolicy(ctx context.Context, policyID string) error {
	return db.DeleteCachedPolicy(ctx, policyID)
}

func (c *CacheService) GetDecision(ctx context.Context, cacheKey string) (*pdp_model.Decision, error) {
	return db.GetCachedDecision(ctx, cacheKey)
}

func (c *CacheService) SetDecision(ctx context.Context, cacheKey string, decision *pdp_model.Decision, ttl time.Duration) error {
	return db.CacheDecision(ctx, cacheKey, decision, ttl)
}

func (c *CacheService) InvalidateDecisions(ctx context.Context) error {
	return db.InvalidateDecisions(ctx)
}

// LockPolicy serializes writers on one policy. It returns false when another
// writer already holds the lock.
func (c *CacheService) LockPolicy(ctx context.Context, policyID string, ttl time.Duration) (bool, error) {
	return db.LockResource(ctx, "policy:"+policyID, ttl)
}

func (c *CacheService) UnlockPolicy(ctx context.Context, policyID string) error {
	return db.UnlockResource(ctx, "policy:"+policyID)
}
