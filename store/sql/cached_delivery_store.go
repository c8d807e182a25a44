package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-interactions/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const deliveryCacheKeyPrefix = "go-interactions::delivery::v1"

// CachedDeliveryStore layers a read cache over a delivery ledger. Claim,
// Complete and Fail write through to the base ledger and invalidate the
// cached record so Get never reports a stale status.
type CachedDeliveryStore struct {
	base  core.DeliveryLedger
	cache repositorycache.CacheService

	mu     sync.Mutex
	claims map[string]string
}

func NewCachedDeliveryStore(
	base core.DeliveryLedger,
	cacheService repositorycache.CacheService,
) (*CachedDeliveryStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base delivery ledger is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: delivery cache service is required")
	}
	return &CachedDeliveryStore{
		base:   base,
		cache:  cacheService,
		claims: map[string]string{},
	}, nil
}

// DeliveryCacheKey returns the deterministic cache key contract for delivery
// reads: go-interactions::delivery::v1::<interaction_id> with the id
// URL-path escaped.
func DeliveryCacheKey(interactionID string) (string, error) {
	trimmed := strings.TrimSpace(interactionID)
	if trimmed == "" {
		return "", fmt.Errorf("sqlstore: interaction id is required")
	}
	return deliveryCacheKeyPrefix + "::" + url.PathEscape(trimmed), nil
}

func (s *CachedDeliveryStore) Claim(
	ctx context.Context,
	interactionID string,
	payload []byte,
) (core.DeliveryRecord, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.DeliveryRecord{}, false, fmt.Errorf("sqlstore: cached delivery store is not configured")
	}
	cacheKey, err := DeliveryCacheKey(interactionID)
	if err != nil {
		return core.DeliveryRecord{}, false, err
	}

	record, claimed, err := s.base.Claim(ctx, interactionID, payload)
	if err != nil {
		return core.DeliveryRecord{}, false, err
	}
	if claimed {
		s.rememberClaim(record.ClaimID, record.InteractionID)
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return core.DeliveryRecord{}, false, err
	}
	return record, claimed, nil
}

func (s *CachedDeliveryStore) Get(ctx context.Context, interactionID string) (core.DeliveryRecord, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.DeliveryRecord{}, fmt.Errorf("sqlstore: cached delivery store is not configured")
	}
	cacheKey, err := DeliveryCacheKey(interactionID)
	if err != nil {
		return core.DeliveryRecord{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.DeliveryRecord, error) {
		return s.base.Get(ctx, interactionID)
	})
}

func (s *CachedDeliveryStore) Complete(ctx context.Context, claimID string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached delivery store is not configured")
	}
	if err := s.base.Complete(ctx, claimID); err != nil {
		return err
	}
	return s.invalidateClaim(ctx, claimID)
}

func (s *CachedDeliveryStore) Fail(ctx context.Context, claimID string, cause error) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached delivery store is not configured")
	}
	if err := s.base.Fail(ctx, claimID, cause); err != nil {
		return err
	}
	return s.invalidateClaim(ctx, claimID)
}

func (s *CachedDeliveryStore) rememberClaim(claimID string, interactionID string) {
	claimID = strings.TrimSpace(claimID)
	interactionID = strings.TrimSpace(interactionID)
	if claimID == "" || interactionID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[claimID] = interactionID
}

// invalidateClaim drops the cached record for the interaction the claim
// belongs to. Claims taken before this process started are unknown here;
// those entries age out on their TTL instead.
func (s *CachedDeliveryStore) invalidateClaim(ctx context.Context, claimID string) error {
	s.mu.Lock()
	interactionID, known := s.claims[strings.TrimSpace(claimID)]
	if known {
		delete(s.claims, strings.TrimSpace(claimID))
	}
	s.mu.Unlock()
	if !known {
		return nil
	}
	cacheKey, err := DeliveryCacheKey(interactionID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

// Purger passthrough so a cached store can still back the purge job.
func (s *CachedDeliveryStore) PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if s == nil || s.base == nil {
		return 0, fmt.Errorf("sqlstore: cached delivery store is not configured")
	}
	purger, ok := s.base.(interface {
		PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int, error)
	})
	if !ok {
		return 0, fmt.Errorf("sqlstore: base delivery ledger does not support purging")
	}
	return purger.PurgeProcessedBefore(ctx, cutoff)
}
